package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/loanocr/internal/model"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the extractable field catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := initRegistry()
		if err != nil {
			return err
		}

		fmt.Printf("%-20s %-22s %-8s %-10s %s\n", "KEY", "LABEL", "TYPE", "TOLERANCE", "DOCUMENT TYPES")
		for _, f := range registry.Fields {
			tolerance := "-"
			if f.Type == model.ValueNumeric {
				tolerance = fmt.Sprintf("%g", f.Tolerance)
			}
			fmt.Printf("%-20s %-22s %-8s %-10s %s\n",
				f.Key, f.Label, f.Type, tolerance, strings.Join(f.DocumentTypes, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
