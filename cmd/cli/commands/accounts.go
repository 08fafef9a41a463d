package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmesh/marketplace/internal/types"
)

func init() {
	accountsCmd.AddCommand(depositCmd)
	accountsCmd.AddCommand(balanceCmd)
	accountsCmd.AddCommand(verifySourceCmd)
	accountsCmd.AddCommand(revokeSourceCmd)

	depositCmd.Flags().String("account", "", "Account to credit")
	_ = depositCmd.MarkFlagRequired("account")
	depositCmd.Flags().String("asset", "", "Asset to credit")
	_ = depositCmd.MarkFlagRequired("asset")
	depositCmd.Flags().Uint64("amount", 0, "Amount to credit")
	_ = depositCmd.MarkFlagRequired("amount")

	balanceCmd.Flags().String("account", "", "Account to read")
	_ = balanceCmd.MarkFlagRequired("account")
	balanceCmd.Flags().String("asset", "", "Asset to read")
	_ = balanceCmd.MarkFlagRequired("asset")

	verifySourceCmd.Flags().StringP("provider", "p", "", "Provider to verify")
	_ = verifySourceCmd.MarkFlagRequired("provider")

	revokeSourceCmd.Flags().StringP("provider", "p", "", "Provider to revoke")
	_ = revokeSourceCmd.MarkFlagRequired("provider")
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage ledger accounts and attestations",
}

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Credit an account on the ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		account, _ := cmd.Flags().GetString("account")
		asset, _ := cmd.Flags().GetString("asset")
		amount, _ := cmd.Flags().GetUint64("amount")

		req := types.DepositRequest{Asset: asset, Amount: amount}
		if err := apiClient.Deposit(context.Background(), account, req); err != nil {
			return fmt.Errorf("error depositing: %w", err)
		}

		fmt.Printf("Credited %d %s to %s\n", amount, asset, account)
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Read an account's balance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		account, _ := cmd.Flags().GetString("account")
		asset, _ := cmd.Flags().GetString("asset")

		balance, err := apiClient.GetBalance(context.Background(), account, asset)
		if err != nil {
			return fmt.Errorf("error fetching balance: %w", err)
		}

		prettyJSON, err := json.MarshalIndent(balance, "", "  ")
		if err != nil {
			return fmt.Errorf("error formatting response: %w", err)
		}
		fmt.Println(string(prettyJSON))
		return nil
	},
}

var verifySourceCmd = &cobra.Command{
	Use:   "verify",
	Short: "Accept a provider's attestation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		provider, _ := cmd.Flags().GetString("provider")

		if err := apiClient.VerifySource(context.Background(), provider); err != nil {
			return fmt.Errorf("error verifying source: %w", err)
		}

		fmt.Println("Verified source:", provider)
		return nil
	},
}

var revokeSourceCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a provider's attestation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		provider, _ := cmd.Flags().GetString("provider")

		if err := apiClient.RevokeSource(context.Background(), provider); err != nil {
			return fmt.Errorf("error revoking source: %w", err)
		}

		fmt.Println("Revoked source:", provider)
		return nil
	},
}

// GetAccountsCmd returns the accounts command
func GetAccountsCmd() *cobra.Command {
	return accountsCmd
}
