package cmd

import (
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [instance-id]",
	Short: "Start a stopped instance",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runLifecycle(cmd, args[0], "start")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [instance-id]",
	Short: "Stop a running instance",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runLifecycle(cmd, args[0], "stop")
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart [instance-id]",
	Short: "Restart an instance and renegotiate its SSH session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runLifecycle(cmd, args[0], "restart")
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove [instance-id]",
	Aliases: []string{"rm"},
	Short:   "Remove an instance and free its quota slot",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		resp, err := client.RemoveInstance(args[0])
		if err != nil {
			cmd.Printf("Remove failed: %v\n", err)
			return
		}
		cmd.Printf("Instance %s removed\n", resp.ShortID)
	},
}

func runLifecycle(cmd *cobra.Command, ref, action string) {
	client, ok := clientFromConfig(cmd)
	if !ok {
		return
	}

	resp, err := client.Lifecycle(ref, action)
	if err != nil {
		cmd.Printf("Failed to %s instance: %v\n", action, err)
		return
	}

	cmd.Printf("Instance %s is %s\n", resp.ShortID, resp.Status)
	if resp.Warning != "" {
		cmd.Printf("Warning: %s\n", resp.Warning)
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(removeCmd)
}
