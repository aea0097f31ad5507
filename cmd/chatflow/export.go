package main

import (
	"fmt"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [flow-file]",
	Short: "Print the flow snapshot as JSON or YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, owner, storeDir := flowSource(cmd, args)
		format, _ := cmd.Flags().GetString("format")

		g, err := cli.LoadFlow(cmd.Context(), path, owner, storeDir)
		if err != nil {
			return err
		}
		data, err := cli.ExportFlow(g, format)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "json", "Output format (json or yaml)")
}
