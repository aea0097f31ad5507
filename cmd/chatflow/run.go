package main

import (
	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flow-file]",
	Short: "Preview a flow as a conversation",
	Long: `Plays the flow back in the terminal. Bot messages appear with the preview delay,
questions wait for your reply. Type exit or quit to leave.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, owner, storeDir := flowSource(cmd, args)
		opts := cli.RunOptions{
			FlowPath: path,
			Owner:    owner,
			StoreDir: storeDir,
		}
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.NoBanner, _ = cmd.Flags().GetBool("no-banner")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Delay, _ = cmd.Flags().GetDuration("delay")
		opts.MaxSteps, _ = cmd.Flags().GetInt("max-steps")

		return cli.Execute(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().BoolP("watch", "w", false, "Restart the preview whenever the flow file changes")
	runCmd.Flags().Bool("no-banner", false, "Do not print the banner")
	runCmd.Flags().Duration("delay", chatflow.DefaultDelay, "Pause before each bot message")
	runCmd.Flags().Int("max-steps", 0, "Abort flows that auto-continue more than this many steps (0 keeps the default)")
}
