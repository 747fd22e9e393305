package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/loanocr/internal/compare"
)

var compareCmd = &cobra.Command{
	Use:   "compare <application-id>",
	Short: "Reconcile extracted field values across an application's documents",
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

		p := message.NewPrinter(language.English)
		p.Fprintf(os.Stdout, "Application %s: %d results, %d mismatch flags, %d missing fields\n\n",
			applicationID, len(results), len(cmpResult.MismatchFlags), len(cmpResult.MissingRequiredFields))

		if len(cmpResult.MismatchFlags) > 0 {
			fmt.Println("Mismatches:")
			for _, flag := range cmpResult.MismatchFlags {
				fmt.Printf("  %-24s %-16s %-20q vs %v\n",
					registry.Label(flag.FieldKey), flag.DocumentID, flag.Value, flag.ComparisonValues)
			}
			fmt.Println()
		}

		if len(cmpResult.MissingRequiredFields) > 0 {
			fmt.Println("Missing required fields:")
			for _, key := range cmpResult.MissingRequiredFields {
				fmt.Printf("  %s (%s)\n", registry.Label(key), key)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
