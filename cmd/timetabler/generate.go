package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/service"
	"github.com/noah-isme/sma-timetable/pkg/export"
)

var errIncomplete = errors.New("timetable incomplete")

type generateOptions struct {
	input   string
	output  string
	format  string
	classID string
	strict  bool
}

func newGenerateCmd(root *cliOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate timetables for every class in the input",
		Long: "Reads a generate request as JSON and prints the run as JSON, or one class week as CSV or PDF.\n" +
			"Diagnostics are logged on stderr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "request file, - for stdin")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, stdout when empty")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "json, csv or pdf")
	cmd.Flags().StringVar(&opts.classID, "class", "", "class to export for csv and pdf")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero when diagnostics are reported")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *cliOptions, opts *generateOptions) error {
	if opts.format != "json" {
		format, err := export.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		opts.format = string(format)
	}

	var req dto.GenerateTimetableRequest
	if err := readInput(cmd, opts.input, &req); err != nil {
		return err
	}

	svc, logr, err := root.newService()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	ctx := cmd.Context()
	run, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}
	for _, v := range run.Diagnostics.Validation {
		logr.Warn("configuration rejected", zap.String("error", v.Error()))
	}
	for _, short := range run.Diagnostics.UnderAllocation {
		logr.Warn("subject under-allocated", zap.String("error", short.Error()))
	}
	logr.Debug("run generated",
		zap.String("run_id", run.RunID),
		zap.Int("classes", run.Summary.Classes),
		zap.Int("scheduled_periods", run.Summary.ScheduledPeriods),
	)

	if opts.format == "json" {
		err = writeJSON(cmd, opts.output, run)
	} else {
		err = exportClass(cmd, svc, run, opts)
	}
	if err != nil {
		return err
	}
	if opts.strict && !run.Diagnostics.Empty() {
		return errIncomplete
	}
	return nil
}

type classExporter interface {
	Export(ctx context.Context, runID string, query dto.ExportTimetableQuery) (*service.ExportedTimetable, error)
}

func exportClass(cmd *cobra.Command, svc classExporter, run *dto.TimetableRunResponse, opts *generateOptions) error {
	classID := opts.classID
	if classID == "" {
		if len(run.Schedules) != 1 {
			return fmt.Errorf("--class is required when the run holds %d classes", len(run.Schedules))
		}
		classID = run.Schedules[0].ClassID
	}
	file, err := svc.Export(cmd.Context(), run.RunID, dto.ExportTimetableQuery{ClassID: classID, Format: opts.format})
	if err != nil {
		return err
	}
	return writeOutput(cmd, opts.output, file.Body)
}
