package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/notify"
	"github.com/franz/media-indexer/internal/search"
	"github.com/franz/media-indexer/internal/tmdb"
)

// fakeProvider satisfies Provider with canned responses
type fakeProvider struct {
	mu          sync.Mutex
	movieCand   *tmdb.Candidate
	seriesCand  *tmdb.Candidate
	details     *tmdb.Details
	err         error
	movieCalls  int
	seriesCalls int
	detailCalls int
	lastTitle   string
	lastYear    int
}

func (f *fakeProvider) SearchMovie(ctx context.Context, title string, year int) (*tmdb.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movieCalls++
	f.lastTitle, f.lastYear = title, year
	return f.movieCand, f.err
}

func (f *fakeProvider) SearchSeries(ctx context.Context, title string, year int) (*tmdb.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seriesCalls++
	f.lastTitle, f.lastYear = title, year
	return f.seriesCand, f.err
}

func (f *fakeProvider) Details(ctx context.Context, mediaType string, id int64) (*tmdb.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.details == nil {
		return nil, errors.New("no details configured")
	}
	return f.details, nil
}

// recordingNotifier captures audit notices and announcements
type recordingNotifier struct {
	mu            sync.Mutex
	audits        []string
	announcements []notify.Announcement
}

func (n *recordingNotifier) Audit(format string, args ...interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.audits = append(n.audits, fmt.Sprintf(format, args...))
}

func (n *recordingNotifier) Announce(a notify.Announcement) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.announcements = append(n.announcements, a)
	return nil
}

func (n *recordingNotifier) auditCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.audits)
}

type workerFixture struct {
	queue    *Queue
	store    *catalog.Store
	index    *search.Index
	cache    *search.Cache
	notifier *recordingNotifier
	provider *fakeProvider
	worker   *Worker
	cancel   context.CancelFunc
}

func newWorkerFixture(t *testing.T, eligible []int64, sendUpdates bool) *workerFixture {
	t.Helper()

	store, err := catalog.Open(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	index, err := search.NewMemIndex()
	if err != nil {
		t.Fatalf("failed to build index: %v", err)
	}
	t.Cleanup(func() { index.Close() })

	cache, err := search.NewCache()
	if err != nil {
		t.Fatalf("failed to build cache: %v", err)
	}

	notifier := &recordingNotifier{}
	provider := &fakeProvider{}
	enricher := NewEnricher(provider, store, notifier, eligible, sendUpdates)
	queue := NewQueue()
	worker := NewWorker(queue, store, enricher, index, cache, notifier, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	t.Cleanup(func() {
		queue.Close()
		cancel()
	})

	return &workerFixture{
		queue: queue, store: store, index: index, cache: cache,
		notifier: notifier, provider: provider, worker: worker, cancel: cancel,
	}
}

func TestWorkerPersistsAndIndexes(t *testing.T) {
	fx := newWorkerFixture(t, nil, false)

	fx.cache.Put("warm", 1, "", nil, 0)

	fx.queue.Enqueue(Item{Record: &catalog.FileRecord{
		SourceID: 1, ItemID: 10, Name: "some film 2020", Size: 99,
	}})
	fx.queue.Join()

	rec, err := fx.store.GetFile(1, 10)
	if err != nil || rec == nil {
		t.Fatalf("expected record persisted, got (%+v, %v)", rec, err)
	}
	if rec.Size != 99 {
		t.Errorf("size lost: %d", rec.Size)
	}

	_, total, err := fx.index.Execute(search.BuildPlan("some film", search.Scope{}, 0, 10))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 {
		t.Errorf("expected record indexed, total = %d", total)
	}

	// Any catalog change clears the whole result cache
	if fx.cache.Len() != 0 {
		t.Error("expected cache invalidated after ingest")
	}
}

func TestWorkerSkipsDuplicateByName(t *testing.T) {
	fx := newWorkerFixture(t, nil, false)

	seed := &catalog.FileRecord{SourceID: 1, ItemID: 1, Name: "already here"}
	if err := fx.store.UpsertFile(seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Same name from a different source is still skipped
	fx.queue.Enqueue(Item{
		Record:          &catalog.FileRecord{SourceID: 2, ItemID: 5, Name: "already here"},
		CheckDuplicates: true,
	})
	fx.queue.Join()

	count, _ := fx.store.CountFiles()
	if count != 1 {
		t.Errorf("expected duplicate skipped, count = %d", count)
	}
	if fx.notifier.auditCount() != 1 {
		t.Errorf("expected one duplicate audit, got %d", fx.notifier.auditCount())
	}
}

func TestWorkerWithoutDuplicateCheckUpserts(t *testing.T) {
	fx := newWorkerFixture(t, nil, false)

	seed := &catalog.FileRecord{SourceID: 1, ItemID: 1, Name: "already here"}
	if err := fx.store.UpsertFile(seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	fx.queue.Enqueue(Item{
		Record: &catalog.FileRecord{SourceID: 2, ItemID: 5, Name: "already here"},
	})
	fx.queue.Join()

	count, _ := fx.store.CountFiles()
	if count != 2 {
		t.Errorf("expected both records kept without the duplicate check, count = %d", count)
	}
}

func TestWorkerSourceOverride(t *testing.T) {
	fx := newWorkerFixture(t, nil, false)

	fx.queue.Enqueue(Item{
		Record:         &catalog.FileRecord{SourceID: 1, ItemID: 3, Name: "copied file"},
		SourceOverride: 42,
	})
	fx.queue.Join()

	if rec, _ := fx.store.GetFile(42, 3); rec == nil {
		t.Error("expected record stored under the override source")
	}
	if rec, _ := fx.store.GetFile(1, 3); rec != nil {
		t.Error("record must not remain under the original source")
	}
}

func TestWorkerSurvivesBadItem(t *testing.T) {
	fx := newWorkerFixture(t, nil, false)

	var replyMu sync.Mutex
	var replies []string
	fx.queue.Enqueue(Item{
		Record: nil,
		Reply: func(format string, args ...interface{}) {
			replyMu.Lock()
			defer replyMu.Unlock()
			replies = append(replies, fmt.Sprintf(format, args...))
		},
	})
	fx.queue.Enqueue(Item{Record: &catalog.FileRecord{SourceID: 1, ItemID: 1, Name: "good item"}})
	fx.queue.Join()

	replyMu.Lock()
	if len(replies) != 1 {
		t.Errorf("expected one failure reply, got %d", len(replies))
	}
	replyMu.Unlock()

	// The bad item must not stall the loop
	if rec, _ := fx.store.GetFile(1, 1); rec == nil {
		t.Error("expected the following item still processed")
	}
}

func TestWorkerEnrichesEligibleSource(t *testing.T) {
	fx := newWorkerFixture(t, []int64{1}, false)
	fx.provider.movieCand = &tmdb.Candidate{ID: 603, MediaType: tmdb.MediaMovie}
	fx.provider.details = &tmdb.Details{Title: "The Matrix", Year: "1999"}

	fx.queue.Enqueue(Item{Record: &catalog.FileRecord{
		SourceID: 1, ItemID: 1, Name: "The Matrix 1999 1080p",
	}})
	fx.queue.Join()

	rec, _ := fx.store.GetFile(1, 1)
	if rec == nil {
		t.Fatal("expected record persisted")
	}
	if rec.MetadataID != 603 || rec.MetadataType != catalog.EntryMovie {
		t.Errorf("expected metadata link (603, movie), got (%d, %q)", rec.MetadataID, rec.MetadataType)
	}

	entry, _ := fx.store.GetEntry(603, catalog.EntryMovie)
	if entry == nil || entry.Title != "The Matrix" {
		t.Errorf("expected catalog entry created, got %+v", entry)
	}
	if fx.provider.lastTitle != "The Matrix" || fx.provider.lastYear != 1999 {
		t.Errorf("expected parsed (title, year) passed to provider, got (%q, %d)",
			fx.provider.lastTitle, fx.provider.lastYear)
	}
}

func TestWorkerIneligibleSourceNotEnriched(t *testing.T) {
	fx := newWorkerFixture(t, []int64{1}, false)
	fx.provider.movieCand = &tmdb.Candidate{ID: 603, MediaType: tmdb.MediaMovie}

	fx.queue.Enqueue(Item{Record: &catalog.FileRecord{
		SourceID: 2, ItemID: 1, Name: "The Matrix 1999",
	}})
	fx.queue.Join()

	rec, _ := fx.store.GetFile(2, 1)
	if rec == nil {
		t.Fatal("expected record persisted")
	}
	if rec.MetadataID != 0 {
		t.Errorf("ineligible source must not be enriched, got metadata %d", rec.MetadataID)
	}
	if fx.provider.movieCalls != 0 {
		t.Errorf("provider should not be called, got %d calls", fx.provider.movieCalls)
	}
}

func TestWorkerProviderFailureStillPersists(t *testing.T) {
	fx := newWorkerFixture(t, []int64{1}, false)
	fx.provider.err = errors.New("provider down")

	fx.queue.Enqueue(Item{Record: &catalog.FileRecord{
		SourceID: 1, ItemID: 1, Name: "Unresolvable Film 2020",
	}})
	fx.queue.Join()

	rec, _ := fx.store.GetFile(1, 1)
	if rec == nil {
		t.Fatal("record must be persisted despite the provider failure")
	}
	if rec.MetadataID != 0 {
		t.Errorf("expected no metadata link, got %d", rec.MetadataID)
	}
	if fx.notifier.auditCount() != 1 {
		t.Errorf("expected a metadata-miss audit, got %d", fx.notifier.auditCount())
	}
}

func TestWorkerSeriesRouting(t *testing.T) {
	fx := newWorkerFixture(t, []int64{1}, false)
	fx.provider.seriesCand = &tmdb.Candidate{ID: 1396, MediaType: tmdb.MediaSeries}
	fx.provider.details = &tmdb.Details{Title: "Breaking Bad", Year: "2008"}

	fx.queue.Enqueue(Item{Record: &catalog.FileRecord{
		SourceID: 1, ItemID: 1, Name: "Breaking.Bad.S01E05.720p",
	}})
	fx.queue.Join()

	if fx.provider.seriesCalls != 1 || fx.provider.movieCalls != 0 {
		t.Errorf("expected the series search path, got series=%d movie=%d",
			fx.provider.seriesCalls, fx.provider.movieCalls)
	}
	rec, _ := fx.store.GetFile(1, 1)
	if rec == nil || rec.MetadataType != catalog.EntrySeries {
		t.Errorf("expected series metadata link, got %+v", rec)
	}
}

func TestWorkerExistingEntrySkipsDetailsFetch(t *testing.T) {
	fx := newWorkerFixture(t, []int64{1}, false)
	fx.provider.movieCand = &tmdb.Candidate{ID: 603, MediaType: tmdb.MediaMovie}

	if err := fx.store.UpsertEntry(&catalog.CatalogEntry{
		MetadataID: 603, MetadataType: catalog.EntryMovie, Title: "The Matrix",
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	fx.queue.Enqueue(Item{Record: &catalog.FileRecord{
		SourceID: 1, ItemID: 1, Name: "The Matrix 1999",
	}})
	fx.queue.Join()

	if fx.provider.detailCalls != 0 {
		t.Errorf("details should not be refetched for a known entry, got %d calls", fx.provider.detailCalls)
	}
}

func TestWorkerAnnouncesNewEntries(t *testing.T) {
	fx := newWorkerFixture(t, []int64{1}, true)
	fx.provider.movieCand = &tmdb.Candidate{ID: 603, MediaType: tmdb.MediaMovie}
	fx.provider.details = &tmdb.Details{
		Title: "The Matrix", Year: "1999", Rating: "8.2",
		PosterURL: "https://image.tmdb.org/t/p/original/matrix.jpg",
	}

	fx.queue.Enqueue(Item{Record: &catalog.FileRecord{
		SourceID: 1, ItemID: 1, Name: "The Matrix 1999",
	}})
	fx.queue.Join()

	fx.notifier.mu.Lock()
	defer fx.notifier.mu.Unlock()
	if len(fx.notifier.announcements) != 1 {
		t.Fatalf("expected one announcement, got %d", len(fx.notifier.announcements))
	}
	a := fx.notifier.announcements[0]
	if a.PosterURL == "" {
		t.Error("announcement must carry the poster")
	}
}

func TestWorkerNoAnnouncementWithoutPoster(t *testing.T) {
	fx := newWorkerFixture(t, []int64{1}, true)
	fx.provider.movieCand = &tmdb.Candidate{ID: 604, MediaType: tmdb.MediaMovie}
	fx.provider.details = &tmdb.Details{Title: "Obscure Film"}

	fx.queue.Enqueue(Item{Record: &catalog.FileRecord{
		SourceID: 1, ItemID: 1, Name: "Obscure Film 2021",
	}})
	fx.queue.Join()

	fx.notifier.mu.Lock()
	defer fx.notifier.mu.Unlock()
	if len(fx.notifier.announcements) != 0 {
		t.Errorf("expected no announcement without a poster, got %d", len(fx.notifier.announcements))
	}
}
