package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/search"
	"github.com/franz/media-indexer/internal/util"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the catalog",
	Long: `Rebuild the full-text search index from the catalog database.

Every stored file record is re-fed to the index. Run this after
restoring a database backup or when the index directory was lost.
Do not run it while the service is serving from the same index
directory.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	applyLogLevel()

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

	total, err := store.CountFiles()
	if err != nil {
		return fmt.Errorf("counting files: %w", err)
	}
	if total == 0 {
		util.InfoLog("catalog is empty, nothing to index")
		return nil
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Reindexing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	indexed := 0
	failed := 0
	err = store.ListAllFiles(func(rec *catalog.FileRecord) error {
		if err := index.IndexFile(rec); err != nil {
			util.WarnLog("could not index %q: %v", rec.Name, err)
			failed++
		} else {
			indexed++
		}
		bar.Add(1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking catalog: %w", err)
	}

	util.SuccessLog("reindexed %d files (%d failed)", indexed, failed)
	return nil
}
