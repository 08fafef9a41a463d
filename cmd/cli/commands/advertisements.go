package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmesh/marketplace/internal/marketplace"
)

func init() {
	advertisementsCmd.AddCommand(createAdvertisementCmd)
	advertisementsCmd.AddCommand(getAdvertisementCmd)
	advertisementsCmd.AddCommand(deleteAdvertisementCmd)

	createAdvertisementCmd.Flags().StringP("file", "f", "", "JSON file with the advertisement")
	_ = createAdvertisementCmd.MarkFlagRequired("file")

	getAdvertisementCmd.Flags().StringP("provider", "p", "", "Provider account")
	_ = getAdvertisementCmd.MarkFlagRequired("provider")
}

var advertisementsCmd = &cobra.Command{
	Use:   "advertisements",
	Short: "Manage resource advertisements",
}

var createAdvertisementCmd = &cobra.Command{
	Use:   "create",
	Short: "Store or update an advertisement",
	RunE: func(cmd *cobra.Command, _ []string) error {
		as, err := getActingAccount()
		if err != nil {
			return err
		}

		file, _ := cmd.Flags().GetString("file")
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("error reading advertisement file: %w", err)
		}

		var ad marketplace.Advertisement
		if err := json.Unmarshal(data, &ad); err != nil {
			return fmt.Errorf("error parsing advertisement file: %w", err)
		}

		if err := apiClient.Advertise(context.Background(), as, ad); err != nil {
			return fmt.Errorf("error storing advertisement: %w", err)
		}

		fmt.Println("Advertisement stored")
		return nil
	},
}

var getAdvertisementCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a provider's advertisement",
	RunE: func(cmd *cobra.Command, _ []string) error {
		provider, _ := cmd.Flags().GetString("provider")

		ad, err := apiClient.GetAdvertisement(context.Background(), provider)
		if err != nil {
			return fmt.Errorf("error fetching advertisement: %w", err)
		}

		prettyJSON, err := json.MarshalIndent(ad, "", "  ")
		if err != nil {
			return fmt.Errorf("error formatting response: %w", err)
		}
		fmt.Println(string(prettyJSON))
		return nil
	},
}

var deleteAdvertisementCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the acting provider's advertisement",
	RunE: func(_ *cobra.Command, _ []string) error {
		as, err := getActingAccount()
		if err != nil {
			return err
		}

		if err := apiClient.DeleteAdvertisement(context.Background(), as); err != nil {
			return fmt.Errorf("error deleting advertisement: %w", err)
		}

		fmt.Println("Advertisement removed")
		return nil
	},
}

// GetAdvertisementsCmd returns the advertisements command
func GetAdvertisementsCmd() *cobra.Command {
	return advertisementsCmd
}
