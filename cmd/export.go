package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/loanocr/internal/compare"
	"github.com/sells-group/loanocr/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <application-id>",
	Short: "Export an application's reconciliation report to xlsx",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		applicationID := args[0]

		registry, err := initRegistry()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		results, err := st.ResultsForApplication(ctx, applicationID)
		if err != nil {
			return err
		}

		cmpResult := compare.NewComparator(registry).Compare(results)

		out := exportOut
		if out == "" {
			out = applicationID + "-reconciliation.xlsx"
		}
		if err := export.WriteComparison(out, registry, cmpResult); err != nil {
			return err
		}

		zap.L().Info("report written",
			zap.String("application_id", applicationID),
			zap.String("path", out),
			zap.Int("mismatch_flags", len(cmpResult.MismatchFlags)),
			zap.Int("missing_fields", len(cmpResult.MissingRequiredFields)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default <application-id>-reconciliation.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
