package ingest

import (
	"context"
	"fmt"

	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/meta"
	"github.com/franz/media-indexer/internal/notify"
	"github.com/franz/media-indexer/internal/tmdb"
	"github.com/franz/media-indexer/internal/util"
)

// Provider resolves release titles against the external metadata service.
// *tmdb.Client satisfies this; tests substitute a fake.
type Provider interface {
	SearchMovie(ctx context.Context, title string, year int) (*tmdb.Candidate, error)
	SearchSeries(ctx context.Context, title string, year int) (*tmdb.Candidate, error)
	Details(ctx context.Context, mediaType string, id int64) (*tmdb.Details, error)
}

// Enricher derives catalog-grade metadata for records from
// enrichment-eligible sources.
type Enricher struct {
	provider    Provider
	store       *catalog.Store
	notifier    notify.Notifier
	eligible    map[int64]bool
	sendUpdates bool
}

// NewEnricher creates an enricher. eligibleSources lists the sources whose
// records are resolved; sendUpdates gates announcement publishing.
func NewEnricher(provider Provider, store *catalog.Store, notifier notify.Notifier, eligibleSources []int64, sendUpdates bool) *Enricher {
	eligible := make(map[int64]bool, len(eligibleSources))
	for _, id := range eligibleSources {
		eligible[id] = true
	}
	return &Enricher{
		provider:    provider,
		store:       store,
		notifier:    notifier,
		eligible:    eligible,
		sendUpdates: sendUpdates,
	}
}

// Eligible reports whether records from the source are enriched
func (e *Enricher) Eligible(sourceID int64) bool {
	return e.eligible[sourceID]
}

// Enrich resolves a record's display name to a catalog entry and returns
// the (metadataID, metadataType) link, or ok=false when the record is from
// an ineligible source or nothing resolves. Provider failures are logged
// and reported as a miss, never retried; the caller persists the record
// either way.
func (e *Enricher) Enrich(ctx context.Context, rec *catalog.FileRecord) (metadataID int64, metadataType string, ok bool) {
	if e.provider == nil || !e.eligible[rec.SourceID] {
		return 0, "", false
	}

	cleaned := meta.StripUploaderTags(rec.Name)
	release := meta.ParseRelease(cleaned)
	if release.Title == "" {
		util.DebugLog("enrich: no title parsed from %q", rec.Name)
		return 0, "", false
	}

	candidate, err := e.resolve(ctx, release)
	if err != nil {
		util.WarnLog("enrich: provider lookup failed for %q: %v", release.Title, err)
		e.notifier.Audit("Metadata not found for %s: %v", rec.Name, err)
		return 0, "", false
	}
	if candidate == nil {
		util.DebugLog("enrich: no candidate for %q (%d)", release.Title, release.Year)
		e.notifier.Audit("Metadata not found for %s", rec.Name)
		return 0, "", false
	}

	entryType := entryTypeFor(candidate.MediaType)
	if err := e.ensureEntry(ctx, candidate.ID, entryType); err != nil {
		util.WarnLog("enrich: %v", err)
		// The resolution itself succeeded; the link is still usable
	}

	return candidate.ID, entryType, true
}

func (e *Enricher) resolve(ctx context.Context, release *meta.Release) (*tmdb.Candidate, error) {
	if release.IsSeries() {
		return e.provider.SearchSeries(ctx, release.Title, release.Year)
	}
	return e.provider.SearchMovie(ctx, release.Title, release.Year)
}

// ensureEntry upserts the catalog entry for a resolved identity on first
// sight. Existing entries are left alone, so the details fetch runs at
// most once per identity.
func (e *Enricher) ensureEntry(ctx context.Context, metadataID int64, entryType string) error {
	exists, err := e.store.EntryExists(metadataID, entryType)
	if err != nil {
		return fmt.Errorf("entry check failed: %w", err)
	}
	if exists {
		return nil
	}

	details, err := e.provider.Details(ctx, mediaTypeFor(entryType), metadataID)
	if err != nil {
		return fmt.Errorf("details fetch failed for %s/%d: %w", entryType, metadataID, err)
	}

	err = e.store.UpsertEntry(&catalog.CatalogEntry{
		MetadataID:   metadataID,
		MetadataType: entryType,
		Title:        details.Title,
		Year:         details.Year,
		Rating:       details.Rating,
		Plot:         details.Plot,
		PosterPath:   details.PosterPath,
		TrailerURL:   details.TrailerURL,
		ExternalID:   details.IMDBID,
	})
	if err != nil {
		return fmt.Errorf("entry upsert failed: %w", err)
	}

	if e.sendUpdates && details.PosterURL != "" {
		err := e.notifier.Announce(notify.Announcement{
			PosterURL:  details.PosterURL,
			Caption:    formatCaption(details),
			TrailerURL: details.TrailerURL,
		})
		if err != nil {
			util.WarnLog("enrich: announcement failed: %v", err)
		}
	}

	return nil
}

func entryTypeFor(mediaType string) string {
	if mediaType == tmdb.MediaSeries {
		return catalog.EntrySeries
	}
	return catalog.EntryMovie
}

func mediaTypeFor(entryType string) string {
	if entryType == catalog.EntrySeries {
		return tmdb.MediaSeries
	}
	return tmdb.MediaMovie
}

func formatCaption(d *tmdb.Details) string {
	caption := "Title: " + d.Title
	if d.Year != "" {
		caption += "\nRelease: " + d.Year
	}
	if d.Rating != "" {
		caption += "\nRating: " + d.Rating + " / 10"
	}
	if d.Plot != "" {
		caption += "\n\nStory: " + d.Plot
	}
	return caption
}
