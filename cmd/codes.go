package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Print the postal codes a scan would process",
	RunE: func(cmd *cobra.Command, args []string) error {
		codes, err := resolveCodes()
		if err != nil {
			return err
		}
		for _, code := range codes {
			fmt.Fprintln(cmd.OutOrStdout(), code)
		}
		return nil
	},
}

func init() {
	codesCmd.Flags().StringVar(&scanCodes, "codes", "", "comma-separated postal codes (overrides seed list)")
	codesCmd.Flags().IntVar(&scanStartIndex, "start-index", 0, "skip the first N postal codes")
	codesCmd.Flags().IntVar(&scanLimit, "limit", 0, "process at most N postal codes")
	rootCmd.AddCommand(codesCmd)
}
