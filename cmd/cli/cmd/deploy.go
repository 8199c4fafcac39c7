package cmd

import (
	"github.com/spf13/cobra"
)

var deployImage string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a new sandbox instance",
	Long: `Provision a new sandbox container from a catalog image and print its
SSH session endpoint. The deploy fails if you are already at your
instance quota.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		if deployImage == "" {
			cmd.Println("Image is required. Use --image with a key from 'sandctl images'")
			return
		}

		cmd.Printf("Deploying %s, this can take a minute...\n", deployImage)
		resp, err := client.Deploy(deployImage)
		if err != nil {
			cmd.Printf("Deploy failed: %v\n", err)
			return
		}

		cmd.Printf("Instance %s deployed\n", resp.ShortID)
		cmd.Printf("  Image:   %s\n", resp.Image)
		cmd.Printf("  Connect: %s\n", resp.SessionEndpoint)
	},
}

func init() {
	deployCmd.Flags().StringVarP(&deployImage, "image", "i", "", "catalog image key to deploy")
	rootCmd.AddCommand(deployCmd)
}
