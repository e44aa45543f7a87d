package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/media-indexer/internal/app"
	"github.com/franz/media-indexer/internal/auth"
	"github.com/franz/media-indexer/internal/util"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the indexer service",
	Long: `Run the long-lived indexer service: the ingest worker, the token
sweeper, the optional drop-folder watcher, and the HTTP API.

The service shuts down cleanly on SIGINT/SIGTERM, draining any queued
files before exit.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("watch-dir", "", "local drop folder to ingest from")
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("watch_dir", serveCmd.Flags().Lookup("watch-dir"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	cfg := app.Config{
		DatabasePath:  viper.GetString("db"),
		IndexPath:     viper.GetString("index"),
		ListenAddr:    GetConfigString("listen", ":8080"),
		TMDBAPIKey:    viper.GetString("tmdb_api_key"),
		OwnerID:       viper.GetInt64("owner_id"),
		SendUpdates:   GetConfigBool("send_updates"),
		BotName:       viper.GetString("bot_name"),
		PageSize:      GetConfigInt("page_size", 10),
		SweepInterval: viper.GetDuration("sweep_interval"),
		WatchDir:      viper.GetString("watch_dir"),
		WatchSourceID: viper.GetInt64("watch_source_id"),
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = auth.DefaultSweepInterval
	}
	for _, id := range viper.GetIntSlice("eligible_sources") {
		cfg.EligibleSources = append(cfg.EligibleSources, int64(id))
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	util.InfoLog("media indexer starting")
	if err := a.Run(ctx); err != nil {
		return err
	}
	util.SuccessLog("shut down cleanly after %s", time.Since(start).Round(time.Second))
	return nil
}
