// Package commands implements the taskmesh CLI commands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmesh/marketplace/pkg/api/v1/client"
	"github.com/taskmesh/marketplace/pkg/api/v1/routes"
)

// flag names
const (
	flagAs            = "as"
	flagServerAddress = "server-address"
)

// environment variable names
const (
	envServerAddress = "TASKMESH_SERVER_ADDRESS"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
	// actingAccount is the account operations are performed as.
	actingAccount string
)

// initClient initializes the API client
func initClient() error {
	var err error
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress

	apiClient, err = client.NewClient(opts)
	return err
}

func init() {
	// Set a basic default for the flag. PersistentPreRunE handles the env var override.
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", routes.DefaultBaseURL, "Address of the marketplace API server (env: TASKMESH_SERVER_ADDRESS)")
	RootCmd.PersistentFlags().StringVarP(&actingAccount, flagAs, "a", "", "Account to act as")

	RootCmd.AddCommand(GetAdvertisementsCmd())
	RootCmd.AddCommand(GetJobsCmd())
	RootCmd.AddCommand(GetMatchesCmd())
	RootCmd.AddCommand(GetAccountsCmd())
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "taskmesh",
	Short: "taskmesh CLI - A command line interface for the marketplace API",
	Long: `taskmesh CLI is a command line tool for advertising resources, registering jobs
and proposing matches through the marketplace API.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Check if the server address flag was explicitly set by the user.
		if !cmd.Flags().Changed(flagServerAddress) {
			if envAddr := os.Getenv(envServerAddress); envAddr != "" {
				serverAddress = envAddr
			}
		}

		// Now serverAddress has the correct precedence: Flag > Env Var > Default
		if serverAddress == "" {
			return fmt.Errorf("server address cannot be empty")
		}
		return initClient()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// getActingAccount returns the account to act as, failing when the flag
// was not provided.
func getActingAccount() (string, error) {
	if actingAccount == "" {
		return "", fmt.Errorf("required flag \"%s\" not set", flagAs)
	}
	return actingAccount, nil
}
