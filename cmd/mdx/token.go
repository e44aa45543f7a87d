package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/media-indexer/internal/auth"
	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/link"
	"github.com/franz/media-indexer/internal/util"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage access tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <user-id>",
	Short: "Issue an access token for a user",
	Long: `Issue a fresh 24-hour access token for the given user and print
the token id together with its redemption deep link. With --reuse, an
unexpired existing token is returned instead of minting a new one.`,
	Args: cobra.ExactArgs(1),
	RunE: runTokenIssue,
}

var tokenSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired tokens and grants now",
	RunE:  runTokenSweep,
}

func init() {
	tokenIssueCmd.Flags().Bool("reuse", false, "return an existing valid token if one exists")
	tokenIssueCmd.Flags().String("bot", "", "bot username for the deep link")
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenCmd.AddCommand(tokenSweepCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	store, err := catalog.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	svc := auth.NewService(store, viper.GetInt64("owner_id"))

	var tokenID string
	if reuse, _ := cmd.Flags().GetBool("reuse"); reuse {
		tokenID, err = svc.ReusableToken(userID)
	} else {
		tokenID, err = svc.Issue(userID)
	}
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}

	fmt.Println(tokenID)
	if bot, _ := cmd.Flags().GetString("bot"); bot != "" {
		fmt.Println(link.TokenDeepLink(bot, tokenID))
	}
	return nil
}

func runTokenSweep(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	store, err := catalog.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	sw := auth.NewSweeper(store, auth.DefaultSweepInterval, nil)
	sw.Sweep()
	util.SuccessLog("sweep complete")
	return nil
}
