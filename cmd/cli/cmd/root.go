package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sandctl",
	Short: "Sandctl is a command line tool for managing sandbox instances",
	Long: `sandctl is the command-line interface for the Sandplane sandbox platform.

Sandplane provisions per-user Linux sandbox containers and hands out SSH
session endpoints for them. Each user holds at most a fixed number of live
instances; containers are resource-capped and tracked in a durable
instance table.

Common workflows:

  See what images are offered:
    sandctl images

  Deploy a sandbox and get its SSH endpoint:
    sandctl deploy --image ubuntu-22

  List your instances:
    sandctl list

  Stop, restart or remove an instance (short id prefixes work):
    sandctl stop 4f5c1a2b3d4e
    sandctl restart 4f5c1a2b3d4e
    sandctl remove 4f5c1a2b3d4e

  Get a fresh SSH endpoint for a running instance:
    sandctl regen-ssh 4f5c1a2b3d4e

  Inspect host load:
    sandctl stats

Configuration:
  Set the API endpoint and identity via flags, environment variables or a
  config file:
    SANDPLANE_URL            API endpoint (default: http://localhost:7070)
    SANDPLANE_USER           User id sent with every request
    SANDPLANE_ADMIN_TOKEN    Optional administrative override token`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".sandctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".sandctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "SANDPLANE_VARNAME"
	viper.SetEnvPrefix("SANDPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sandctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:7070", "Sandplane Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("user", "u", "", "User id sent with every request")
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))

	rootCmd.PersistentFlags().String("admin-token", "", "Administrative override token")
	viper.BindPFlag("admin_token", rootCmd.PersistentFlags().Lookup("admin-token"))
}

// clientFromConfig builds an API client from the resolved configuration.
// It reports a usage message and false when the user id is missing.
func clientFromConfig(cmd *cobra.Command) (*InstanceClient, bool) {
	user := viper.GetString("user")
	if user == "" {
		cmd.Println("User id not found. Please set it using the --user flag or the SANDPLANE_USER environment variable")
		return nil, false
	}
	return NewInstanceClient(viper.GetString("url"), user, viper.GetString("admin_token")), true
}
