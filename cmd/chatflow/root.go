package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatflow",
	Short: "chatflow designs and previews conversational flows",
	Long: `chatflow stores chatbot flow graphs, checks them for mistakes and plays them
back as a conversation, in the terminal or over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("store-dir", ".chatflow/flows", "Directory of the file flow store")
	rootCmd.PersistentFlags().String("owner", "", "Load the flow saved under this owner instead of a file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// flowSource resolves the flow file argument and the store flags shared by the commands.
func flowSource(cmd *cobra.Command, args []string) (path, owner, storeDir string) {
	if len(args) > 0 {
		path = args[0]
	}
	owner, _ = cmd.Flags().GetString("owner")
	storeDir, _ = cmd.Flags().GetString("store-dir")
	return path, owner, storeDir
}
