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

var relinkCmd = &cobra.Command{
	Use:   "relink <handle> <metadata-id> <movie|series>",
	Short: "Reassign a file's metadata link",
	Long: `Point a wrongly resolved file at the correct metadata entry.

The file keeps its catalog record; only the metadata link changes. With
--poster, the stored poster reference is replaced as well. The search
index entry is rewritten so result listings pick up the change.`,
	Args: cobra.ExactArgs(3),
	RunE: runRelink,
}

func init() {
	relinkCmd.Flags().String("poster", "", "replacement poster reference")
	rootCmd.AddCommand(relinkCmd)
}

func runRelink(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	sourceID, itemID, err := link.Decode(args[0])
	if err != nil {
		return fmt.Errorf("bad handle %q: %w", args[0], err)
	}
	metadataID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid metadata id %q", args[1])
	}
	metadataType := args[2]
	if metadataType != catalog.EntryMovie && metadataType != catalog.EntrySeries {
		return fmt.Errorf("metadata type must be %q or %q", catalog.EntryMovie, catalog.EntrySeries)
	}

	store, err := catalog.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	rec, err := store.GetFile(sourceID, itemID)
	if err != nil {
		return fmt.Errorf("looking up file: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("no record for handle %q", args[0])
	}

	if err := store.SetFileMetadata(sourceID, itemID, metadataID, metadataType); err != nil {
		return fmt.Errorf("relinking: %w", err)
	}
	if poster, _ := cmd.Flags().GetString("poster"); poster != "" {
		if err := store.SetFilePoster(sourceID, itemID, poster); err != nil {
			return fmt.Errorf("setting poster: %w", err)
		}
	}

	// Re-read and rewrite the index document so listings reflect the change
	rec, err = store.GetFile(sourceID, itemID)
	if err != nil {
		return fmt.Errorf("rereading file: %w", err)
	}
	index, err := search.OpenIndex(viper.GetString("index"))
	if err != nil {
		return fmt.Errorf("opening search index: %w", err)
	}
	defer index.Close()
	if err := index.IndexFile(rec); err != nil {
		util.WarnLog("could not rewrite index entry: %v", err)
	}

	util.SuccessLog("relinked %s to %s/%d", args[0], metadataType, metadataID)
	return nil
}
