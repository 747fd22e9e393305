package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs <document-id>",
	Short: "Show the extraction run history for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		documentID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.RunsForDocument(ctx, documentID)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Printf("no runs for document %s\n", documentID)
			return nil
		}

		fmt.Printf("%-8s %-10s %-20s %s\n", "VERSION", "TRIGGER", "EXTRACTED AT", "RUN ID")
		for _, r := range runs {
			fmt.Printf("%-8d %-10s %-20s %s\n",
				r.Version, r.Trigger, r.ExtractedAt.Format(time.RFC3339), r.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
