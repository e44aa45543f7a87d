package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/link"
	"github.com/franz/media-indexer/internal/metrics"
	"github.com/franz/media-indexer/internal/notify"
	"github.com/franz/media-indexer/internal/search"
	"github.com/franz/media-indexer/internal/util"
)

// Worker is the queue's single consumer. Per item, in order: duplicate
// check, metadata enrichment, idempotent persist, search-index update,
// best-effort audio side-processing. One item's failure never stops the
// loop and items are never retried.
type Worker struct {
	queue    *Queue
	store    *catalog.Store
	enricher *Enricher
	index    *search.Index
	cache    *search.Cache
	notifier notify.Notifier
	metrics  *metrics.Metrics
}

// NewWorker wires a worker to its collaborators
func NewWorker(queue *Queue, store *catalog.Store, enricher *Enricher, index *search.Index, cache *search.Cache, notifier notify.Notifier, m *metrics.Metrics) *Worker {
	return &Worker{
		queue:    queue,
		store:    store,
		enricher: enricher,
		index:    index,
		cache:    cache,
		notifier: notifier,
		metrics:  m,
	}
}

// Run consumes the queue until it is closed or ctx is cancelled. Every
// dequeued item is marked done exactly once, whatever happens to it.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, ok := w.queue.Dequeue()
		if !ok {
			return
		}
		if w.metrics != nil {
			w.metrics.QueueDepth.Set(float64(w.queue.Len()))
		}

		if err := w.process(ctx, item); err != nil {
			if item.Record != nil {
				util.ErrorLog("worker: failed to process item %d/%d: %v",
					item.Record.SourceID, item.Record.ItemID, err)
			} else {
				util.ErrorLog("worker: failed to process item: %v", err)
			}
			if w.metrics != nil {
				w.metrics.ItemsFailed.Inc()
			}
			if item.Reply != nil {
				item.Reply("Error saving file: %v", err)
			}
		}
		if w.metrics != nil {
			w.metrics.ItemsProcessed.Inc()
		}
		w.queue.Done()

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (w *Worker) process(ctx context.Context, item Item) error {
	rec := item.Record
	if rec == nil || rec.Name == "" {
		return fmt.Errorf("item carries no usable record")
	}
	if item.SourceOverride != 0 {
		rec.SourceID = item.SourceOverride
	}

	if item.CheckDuplicates {
		dup, err := w.isDuplicate(rec)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
	}

	// Enrichment failure (provider down, nothing resolves) yields no
	// metadata link; the record is persisted regardless.
	if metadataID, metadataType, ok := w.enricher.Enrich(ctx, rec); ok {
		rec.MetadataID = metadataID
		rec.MetadataType = metadataType
	} else if w.enricher.Eligible(rec.SourceID) && w.metrics != nil {
		w.metrics.EnrichmentMisses.Inc()
	}

	if err := w.store.UpsertFile(rec); err != nil {
		return err
	}
	if err := w.index.IndexFile(rec); err != nil {
		util.WarnLog("worker: index update failed for %d/%d: %v", rec.SourceID, rec.ItemID, err)
	}
	w.cache.InvalidateAll()

	// Best effort: a failed extraction never affects the persisted record
	if isAudio(rec.Format) && item.LocalPath != "" {
		w.extractAudioArt(item.LocalPath, rec)
	}

	return nil
}

// isDuplicate reports whether a record with the same normalized display
// name already exists anywhere in the catalog. Name-only matching is
// intentionally coarse and can flag unrelated sources; the audit notice
// carries the source link so an operator can judge.
func (w *Worker) isDuplicate(rec *catalog.FileRecord) (bool, error) {
	existing, err := w.store.FindFileByName(rec.Name)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	if w.metrics != nil {
		w.metrics.DuplicatesSkipped.Inc()
	}
	w.notifier.Audit("Duplicate file. Link: %s", link.MessageLink(rec.SourceID, rec.ItemID))
	return true, nil
}

func (w *Worker) extractAudioArt(path string, rec *catalog.FileRecord) {
	art, err := ExtractCoverArt(path)
	if err != nil {
		util.DebugLog("worker: no cover art for %s: %v", path, err)
		return
	}
	err = w.notifier.Announce(notify.Announcement{
		PosterURL: art,
		Caption:   "Title: " + rec.Name,
	})
	if err != nil {
		util.WarnLog("worker: audio announcement failed: %v", err)
	}
}

func isAudio(format string) bool {
	return strings.HasPrefix(format, "audio/")
}
