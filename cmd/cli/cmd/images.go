package cmd

import (
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List the sandbox images offered by the platform",
	Long:  `List the image catalog. Only listed image keys can be deployed.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		resp, err := client.ListImages()
		if err != nil {
			cmd.Printf("Failed to list images: %v\n", err)
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		defer w.Flush()

		w.Write([]byte("KEY\tNAME\tRAM\tCPU\tDESCRIPTION\n"))
		for _, img := range resp.Images {
			w.Write([]byte(img.Key + "\t" + img.DisplayName + "\t" + img.RAM + "\t" + img.CPU + "\t" + img.Description + "\n"))
		}
	},
}

func init() {
	rootCmd.AddCommand(imagesCmd)
}
