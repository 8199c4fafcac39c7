package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your sandbox instances",
	Long: `List your sandbox instances with their status and SSH endpoints.
With --all, list every owner's instances (requires admin).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		if listAll {
			resp, err := client.ListAllInstances()
			if err != nil {
				cmd.Printf("Failed to list instances: %v\n", err)
				return
			}

			cmd.Printf("%d instances\n", resp.Total)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			defer w.Flush()
			w.Write([]byte("OWNER\tID\tIMAGE\tSTATUS\tAGE\n"))
			for owner, instances := range resp.Owners {
				for _, inst := range instances {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						owner, inst.ShortID, inst.Image, inst.Status, age(inst.CreatedAt))
				}
			}
			return
		}

		resp, err := client.ListInstances()
		if err != nil {
			cmd.Printf("Failed to list instances: %v\n", err)
			return
		}

		if len(resp.Instances) == 0 {
			cmd.Printf("No instances. You can deploy up to %d.\n", resp.Quota)
			return
		}

		cmd.Printf("%d of %d instances in use\n", len(resp.Instances), resp.Quota)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		defer w.Flush()
		w.Write([]byte("ID\tIMAGE\tSTATUS\tAGE\tCONNECT\n"))
		for _, inst := range resp.Instances {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				inst.ShortID, inst.Image, inst.Status, age(inst.CreatedAt), inst.SessionEndpoint)
		}
	},
}

func age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "list all owners' instances (admin)")
	rootCmd.AddCommand(listCmd)
}
