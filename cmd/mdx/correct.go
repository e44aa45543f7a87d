package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/link"
	"github.com/franz/media-indexer/internal/search"
	"github.com/franz/media-indexer/internal/util"
)

var correctCmd = &cobra.Command{
	Use:   "correct <handle> [<to-handle>]",
	Short: "Remove wrongly indexed files from the catalog",
	Long: `Remove a wrongly indexed file, or an inclusive range of files, from
the catalog and the search index.

Arguments are shareable file handles as they appear in search results,
or t.me/c/ message links. With two arguments, both must point at the
same source; every item between them (inclusive) is removed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCorrect,
}

func init() {
	rootCmd.AddCommand(correctCmd)
}

// parseTarget accepts either an opaque handle or a message link
func parseTarget(arg string) (sourceID, itemID int64, err error) {
	if sourceID, itemID, err = link.Decode(arg); err == nil {
		return sourceID, itemID, nil
	}
	return link.ParseMessageLink(arg)
}

func runCorrect(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	sourceID, fromItem, err := parseTarget(args[0])
	if err != nil {
		return fmt.Errorf("bad handle %q: %w", args[0], err)
	}
	toItem := fromItem
	if len(args) == 2 {
		toSource, to, err := parseTarget(args[1])
		if err != nil {
			return fmt.Errorf("bad handle %q: %w", args[1], err)
		}
		if toSource != sourceID {
			return fmt.Errorf("handles point at different sources (%d vs %d)", sourceID, toSource)
		}
		toItem = to
	}
	if toItem < fromItem {
		fromItem, toItem = toItem, fromItem
	}

	store, err := catalog.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	index, err := search.OpenIndex(viper.GetString("index"))
	if err != nil {
		return fmt.Errorf("opening search index: %w", err)
	}
	defer index.Close()

	removed, err := store.DeleteFileRange(sourceID, fromItem, toItem)
	if err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	for item := fromItem; item <= toItem; item++ {
		if err := index.DeleteFile(sourceID, item); err != nil {
			util.WarnLog("could not drop %s from index: %v",
				strconv.FormatInt(item, 10), err)
		}
	}

	util.SuccessLog("removed %d record(s) from source %d", removed, sourceID)
	return nil
}
