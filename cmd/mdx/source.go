package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/util"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage registered sources",
}

var sourceAddCmd = &cobra.Command{
	Use:   "add <source-id> <name>",
	Short: "Register a source channel",
	Args:  cobra.ExactArgs(2),
	RunE:  runSourceAdd,
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove <source-id>",
	Short: "Remove a registered source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceRemove,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	RunE:  runSourceList,
}

func init() {
	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	sourceCmd.AddCommand(sourceListCmd)
	rootCmd.AddCommand(sourceCmd)
}

func openStore() (*catalog.Store, error) {
	store, err := catalog.Open(viper.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return store, nil
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	sourceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid source id %q", args[0])
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.AddSource(sourceID, args[1]); err != nil {
		return fmt.Errorf("adding source: %w", err)
	}
	util.SuccessLog("registered source %d (%s)", sourceID, args[1])
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	sourceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid source id %q", args[0])
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RemoveSource(sourceID); err != nil {
		return fmt.Errorf("removing source: %w", err)
	}
	util.SuccessLog("removed source %d", sourceID)
	return nil
}

func runSourceList(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sources, err := store.ListSources()
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}
	if len(sources) == 0 {
		util.InfoLog("no sources registered")
		return nil
	}
	for _, src := range sources {
		fmt.Printf("%d\t%s\n", src.SourceID, src.Name)
	}
	return nil
}
