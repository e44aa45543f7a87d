// Package app assembles the long-running service: catalog store,
// search index, ingest pipeline, token sweeper, drop-folder watcher,
// and the HTTP listener. Construction is explicit so every component's
// dependencies are visible in one place.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/franz/media-indexer/internal/api"
	"github.com/franz/media-indexer/internal/auth"
	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/ingest"
	"github.com/franz/media-indexer/internal/metrics"
	"github.com/franz/media-indexer/internal/notify"
	"github.com/franz/media-indexer/internal/query"
	"github.com/franz/media-indexer/internal/search"
	"github.com/franz/media-indexer/internal/tmdb"
	"github.com/franz/media-indexer/internal/util"
)

// Config carries everything the service needs to start
type Config struct {
	DatabasePath    string
	IndexPath       string
	ListenAddr      string
	TMDBAPIKey      string
	OwnerID         int64
	EligibleSources []int64
	SendUpdates     bool
	BotName         string
	PageSize        int
	SweepInterval   time.Duration
	WatchDir        string
	WatchSourceID   int64
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database path is required", util.ErrInvalidConfig)
	}
	if c.IndexPath == "" {
		return fmt.Errorf("%w: index path is required", util.ErrInvalidConfig)
	}
	if c.OwnerID == 0 {
		return fmt.Errorf("%w: owner id is required", util.ErrInvalidConfig)
	}
	if c.WatchDir != "" && c.WatchSourceID == 0 {
		return fmt.Errorf("%w: watch dir needs a source id", util.ErrInvalidConfig)
	}
	return nil
}

// App owns the assembled components and their lifecycle
type App struct {
	cfg Config

	Store    *catalog.Store
	Index    *search.Index
	Cache    *search.Cache
	Registry *query.Registry
	Queue    *ingest.Queue
	Auth     *auth.Service
	Metrics  *metrics.Metrics

	worker  *ingest.Worker
	sweeper *auth.Sweeper
	watcher *ingest.Watcher
	httpsrv *http.Server
}

// New builds the full component graph from cfg. Nothing runs yet;
// call Run to start the background loops and the listener.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := catalog.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	index, err := search.OpenIndex(cfg.IndexPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening search index: %w", err)
	}

	cache, err := search.NewCache()
	if err != nil {
		store.Close()
		index.Close()
		return nil, fmt.Errorf("building search cache: %w", err)
	}

	registry, err := query.NewDefaultRegistry()
	if err != nil {
		store.Close()
		index.Close()
		return nil, fmt.Errorf("building query registry: %w", err)
	}

	m := metrics.New()
	notifier := &notify.LogNotifier{}
	authSvc := auth.NewService(store, cfg.OwnerID)

	var provider ingest.Provider
	if cfg.TMDBAPIKey != "" {
		provider = tmdb.NewClient(cfg.TMDBAPIKey)
	}
	enricher := ingest.NewEnricher(provider, store, notifier, cfg.EligibleSources, cfg.SendUpdates)

	queue := ingest.NewQueue()
	worker := ingest.NewWorker(queue, store, enricher, index, cache, notifier, m)
	sweeper := auth.NewSweeper(store, cfg.SweepInterval, m)

	a := &App{
		cfg:      cfg,
		Store:    store,
		Index:    index,
		Cache:    cache,
		Registry: registry,
		Queue:    queue,
		Auth:     authSvc,
		Metrics:  m,
		worker:   worker,
		sweeper:  sweeper,
	}

	if cfg.WatchDir != "" {
		a.watcher = ingest.NewWatcher(cfg.WatchDir, cfg.WatchSourceID, queue)
	}

	if cfg.ListenAddr != "" {
		srv := api.NewServer(store, index, cache, registry, authSvc, m, cfg.PageSize, cfg.BotName)
		a.httpsrv = &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return a, nil
}

// Run starts all background loops and blocks until ctx is cancelled,
// then shuts everything down in dependency order.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup

	// The worker ignores cancellation so queued items still drain after
	// shutdown begins; closing the queue is what stops it.
	wg.Go(func() { a.worker.Run(context.WithoutCancel(ctx)) })
	wg.Go(func() { a.sweeper.Run(ctx) })

	if a.watcher != nil {
		wg.Go(func() {
			if err := a.watcher.Run(ctx); err != nil {
				util.ErrorLog("watcher stopped: %v", err)
			}
		})
	}

	var httpErr error
	if a.httpsrv != nil {
		wg.Go(func() {
			util.InfoLog("listening on %s", a.cfg.ListenAddr)
			if err := a.httpsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpErr = err
				cancel()
			}
		})
	}

	<-ctx.Done()

	if a.httpsrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.httpsrv.Shutdown(shutdownCtx); err != nil {
			util.WarnLog("http shutdown: %v", err)
		}
		shutdownCancel()
	}

	// Stop accepting work, let the worker drain what is queued
	a.Queue.Close()
	wg.Wait()

	return httpErr
}

// Close releases the storage handles. Call after Run returns.
func (a *App) Close() error {
	var first error
	if err := a.Index.Close(); err != nil {
		first = err
	}
	if err := a.Store.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
