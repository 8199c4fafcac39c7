package cmd

import (
	"github.com/spf13/cobra"
)

var regenCmd = &cobra.Command{
	Use:   "regen-ssh [instance-id]",
	Short: "Negotiate a fresh SSH session endpoint for a running instance",
	Long: `Launch a new session inside a running instance and print the fresh
SSH endpoint. The old endpoint stops working. Fails if the instance is
not running.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		resp, err := client.RegenerateSession(args[0])
		if err != nil {
			cmd.Printf("Failed to regenerate session: %v\n", err)
			return
		}

		cmd.Printf("Connect: %s\n", resp.SessionEndpoint)
	},
}

func init() {
	rootCmd.AddCommand(regenCmd)
}
