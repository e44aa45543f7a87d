// Package ingest contains the ingestion pipeline: the FIFO queue of
// processing requests, the single worker that drains it, and the
// deduplication and enrichment steps the worker runs per item.
package ingest

import (
	"sync"

	"github.com/franz/media-indexer/internal/catalog"
)

// Item is one file-processing request
type Item struct {
	// Record is the raw file record extracted from the source event
	Record *catalog.FileRecord

	// Reply, when set, receives user-facing failure notices
	Reply func(format string, args ...interface{})

	// SourceOverride retargets the record to another source (copy
	// operations). Zero means no override.
	SourceOverride int64

	// CheckDuplicates runs the duplicate check before persisting
	CheckDuplicates bool

	// LocalPath points at a local copy of the file, when one exists,
	// for binary side-processing
	LocalPath string
}

// Queue is an unbounded strict-FIFO queue with exactly one consumer.
// Because there is a single consumer, two queued events can never race on
// the same (source, item) upsert; enqueue order is processing order.
// Unbounded means sustained ingestion grows memory instead of blocking
// producers.
type Queue struct {
	mu          sync.Mutex
	cond        *sync.Cond
	items       []Item
	outstanding int // queued plus in-flight
	closed      bool
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends an item. Never blocks.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, item)
	q.outstanding++
	q.cond.Broadcast()
}

// Dequeue removes the oldest item, blocking while the queue is empty.
// Returns ok=false once the queue is closed and drained of items.
func (q *Queue) Dequeue() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return Item{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Done marks one dequeued item complete. The worker calls this exactly
// once per item regardless of processing outcome.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.outstanding > 0 {
		q.outstanding--
	}
	if q.outstanding == 0 {
		q.cond.Broadcast()
	}
}

// Join blocks until every enqueued item has been processed. Only safe
// because there is exactly one worker and callers do not overlap drains.
func (q *Queue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.outstanding > 0 {
		q.cond.Wait()
	}
}

// Close wakes the consumer and stops further submissions. Queued items are
// still handed out before Dequeue starts reporting ok=false.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the number of items waiting (not in-flight)
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
