// Package query maps short random handles to full search-query strings.
// Callback payloads have a strict length limit and cannot carry arbitrary
// query text, so the first page render stores the query here and later
// pages resolve it by handle.
package query

import (
	"math/rand"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// HandleLength is the length of generated query handles
	HandleLength = 8

	// DefaultTTL is how long a stored query stays resolvable
	DefaultTTL = 5 * time.Minute

	// DefaultCapacity bounds the registry; least-recently-touched
	// entries are evicted beyond this
	DefaultCapacity = 1000
)

const handleAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type entry struct {
	query    string
	storedAt time.Time
}

// Registry is a TTL and capacity bounded store of query strings keyed by
// short random handles. A handle that has expired or been evicted resolves
// to the not-found sentinel, never an error: callers ask the user to resend
// their search.
type Registry struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry]
	ttl time.Duration
}

// NewRegistry creates a registry with the given capacity and TTL.
func NewRegistry(capacity int, ttl time.Duration) (*Registry, error) {
	c, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Registry{lru: c, ttl: ttl}, nil
}

// NewDefaultRegistry creates a registry with the standard bounds.
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(DefaultCapacity, DefaultTTL)
}

// Store associates a fresh handle with the query text and returns it.
// Handle generation retries on collision with a live entry.
func (r *Registry) Store(query string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := randomHandle()
	for r.lru.Contains(handle) {
		handle = randomHandle()
	}
	r.lru.Add(handle, entry{query: query, storedAt: time.Now()})
	return handle
}

// Lookup resolves a handle to its query text. The second return is false
// when the handle is absent, evicted, or expired.
func (r *Registry) Lookup(handle string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lru.Get(handle)
	if !ok {
		return "", false
	}
	if time.Since(e.storedAt) >= r.ttl {
		r.lru.Remove(handle)
		return "", false
	}
	return e.query, true
}

// Len reports the number of live entries, expired ones included until read.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lru.Len()
}

func randomHandle() string {
	b := make([]byte, HandleLength)
	for i := range b {
		b[i] = handleAlphabet[rand.Intn(len(handleAlphabet))]
	}
	return string(b)
}
