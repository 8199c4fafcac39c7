package cmd

import (
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [instance-id]",
	Short: "Show details and live resource usage for an instance",
	Long: `Show the stored record for an instance together with a live CPU and
memory reading. Short id prefixes are accepted as long as they are
unambiguous.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		resp, err := client.DescribeInstance(args[0])
		if err != nil {
			cmd.Printf("Failed to describe instance: %v\n", err)
			return
		}

		inst := resp.Instance
		cmd.Printf("Instance %s\n", inst.ShortID)
		cmd.Println("──────────────────────────────")
		cmd.Printf("ID:       %s\n", inst.ID)
		cmd.Printf("Image:    %s\n", inst.Image)
		cmd.Printf("Status:   %s\n", inst.Status)
		cmd.Printf("Created:  %s (%s ago)\n", inst.CreatedAt.Format("Mon, 02 Jan 2006 15:04:05 MST"), age(inst.CreatedAt))
		if inst.SessionEndpoint != "" {
			cmd.Printf("Connect:  %s\n", inst.SessionEndpoint)
		}

		cmd.Println()
		if resp.Stats.Running {
			cmd.Printf("CPU:      %.1f%%\n", resp.Stats.CPUPercent)
			cmd.Printf("Memory:   %.1f%% (%d / %d bytes)\n",
				resp.Stats.MemPercent, resp.Stats.MemUsedBytes, resp.Stats.MemLimitBytes)
		} else {
			cmd.Println("Container is not running, no live stats.")
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
