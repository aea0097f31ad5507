package main

import (
	"fmt"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/aretw0/chatflow/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow-file]",
	Short: "Check the flow for mistakes",
	Long: `Reports duplicate ids and missing or repeated start steps as errors, and dangling
connections, unreachable steps and cycles that never wait for a reply as warnings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, owner, storeDir := flowSource(cmd, args)
		g, err := cli.LoadFlow(cmd.Context(), path, owner, storeDir)
		if err != nil {
			return err
		}

		report := validator.ValidateGraph(g)
		out := cmd.OutOrStdout()
		for _, issue := range report.Warnings() {
			fmt.Fprintln(out, issue)
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(out, "Flow is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
