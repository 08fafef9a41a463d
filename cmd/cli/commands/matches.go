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
	matchesCmd.AddCommand(proposeMatchingCmd)

	proposeMatchingCmd.Flags().StringP("file", "f", "", "JSON file with the proposed matches")
	_ = proposeMatchingCmd.MarkFlagRequired("file")
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Propose provider-job matches",
}

var proposeMatchingCmd = &cobra.Command{
	Use:   "propose",
	Short: "Propose matches and collect the matcher reward",
	RunE: func(cmd *cobra.Command, _ []string) error {
		as, err := getActingAccount()
		if err != nil {
			return err
		}

		file, _ := cmd.Flags().GetString("file")
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("error reading matches file: %w", err)
		}

		var matches []marketplace.Match
		if err := json.Unmarshal(data, &matches); err != nil {
			return fmt.Errorf("error parsing matches file: %w", err)
		}

		remainder, err := apiClient.ProposeMatching(context.Background(), as, matches)
		if err != nil {
			return fmt.Errorf("error proposing matches: %w", err)
		}

		fmt.Printf("Matched %d job(s), matcher reward: %d %s\n",
			len(matches), remainder.RemainderAmount, remainder.RemainderAsset)
		return nil
	},
}

// GetMatchesCmd returns the matches command
func GetMatchesCmd() *cobra.Command {
	return matchesCmd
}
