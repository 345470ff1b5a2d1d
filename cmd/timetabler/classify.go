package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-timetable/internal/dto"
)

func newClassifyCmd(root *cliOptions) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print weekly period counts for a list of subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req dto.ClassifySubjectsRequest
			if err := readInput(cmd, input, &req); err != nil {
				return err
			}
			svc, logr, err := root.newService()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck
			result, err := svc.Classify(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, output, result)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "subjects file, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, stdout when empty")
	return cmd
}

func newDefaultConfigCmd(root *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "default-config",
		Short: "Print the default school week as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := root.newService()
			if err != nil {
				return err
			}
			return writeJSON(cmd, "", svc.DefaultConfig(root.schoolDays))
		},
	}
}
