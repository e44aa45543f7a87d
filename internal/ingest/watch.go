package ingest

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/meta"
	"github.com/franz/media-indexer/internal/util"
)

// Watcher is an ingestion source adapter: it turns files dropped into a
// local directory into queue submissions, as if they had been announced by
// the configured source.
type Watcher struct {
	dir      string
	sourceID int64
	queue    *Queue
}

// NewWatcher creates a drop-folder watcher feeding the queue under the
// given source identity.
func NewWatcher(dir string, sourceID int64, queue *Queue) *Watcher {
	return &Watcher{dir: dir, sourceID: sourceID, queue: queue}
}

// Run watches the directory until ctx is cancelled. Submission never
// blocks; the queue is unbounded.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	util.InfoLog("watching %s as source %d", w.dir, w.sourceID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.submit(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			util.WarnLog("watcher: %v", err)
		}
	}
}

func (w *Watcher) submit(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	base := filepath.Base(path)
	name := meta.NormalizeDisplayName(base)
	if name == "" {
		return
	}

	rec := &catalog.FileRecord{
		SourceID: w.sourceID,
		// Drop-folder files have no upstream message id; microsecond
		// arrival time stands in and stays unique per drop
		ItemID: time.Now().UnixMicro(),
		Name:   name,
		Size:   info.Size(),
		Format: mime.TypeByExtension(filepath.Ext(base)),
	}

	w.queue.Enqueue(Item{
		Record:          rec,
		CheckDuplicates: true,
		LocalPath:       path,
	})
	util.DebugLog("watcher: queued %s", name)
}
