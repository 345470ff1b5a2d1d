package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/service"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	"github.com/noah-isme/sma-timetable/pkg/logger"
)

type cliOptions struct {
	verbose       bool
	periodMinutes int
	schoolDays    int
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "timetabler",
		Short:         "Generate school timetables offline",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")
	root.PersistentFlags().IntVar(&opts.periodMinutes, "period-minutes", timetable.DefaultPeriodLength, "period length used when the input leaves it unset")
	root.PersistentFlags().IntVar(&opts.schoolDays, "school-days", 5, "days of the default week (5 or 6)")

	root.AddCommand(newGenerateCmd(opts), newClassifyCmd(opts), newDefaultConfigCmd(opts))
	return root
}

// newService builds an in-process engine without persistence or cache.
func (o *cliOptions) newService() (*service.TimetableService, *zap.Logger, error) {
	logr, err := logger.NewCLI(o.verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	svc := service.NewTimetableService(nil, nil, nil, nil, nil, validator.New(), logr, service.TimetableConfig{
		PeriodMinutes: o.periodMinutes,
		SchoolDays:    o.schoolDays,
	})
	return svc, logr, nil
}

// readInput decodes JSON from path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string, dest interface{}) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

// writeOutput writes body to path, or the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, body []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, path string, v interface{}) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cmd, path, append(body, '\n'))
}
