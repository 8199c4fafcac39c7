package cmd

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show host resource usage and container counts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		resp, err := client.SystemStats()
		if err != nil {
			cmd.Printf("Failed to fetch system stats: %v\n", err)
			return
		}

		cmd.Println("Host")
		cmd.Println("──────────────────────────────")
		cmd.Printf("CPU:        %.1f%%\n", resp.CPUPercent)
		cmd.Printf("Memory:     %.1f%% (%d / %d bytes)\n", resp.MemPercent, resp.MemUsedBytes, resp.MemTotalBytes)
		cmd.Printf("Disk:       %.1f%%\n", resp.DiskPercent)
		cmd.Println()
		cmd.Printf("Containers: %d running, %d total\n", resp.RunningContainers, resp.TotalContainers)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
