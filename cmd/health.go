package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Print configuration health as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(newHealthFunc(cfg, nil)())
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
