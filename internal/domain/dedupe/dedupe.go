// Package dedupe tracks processed workout event IDs for idempotent ingestion.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 50000

// Deduper records seen event IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a failed event can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type lruDeduper struct {
	maxSize int

	cache *lru.Cache[string, struct{}]

	mu        sync.Mutex
	unbounded map[string]struct{}
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &lruDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	if d.maxSize <= 0 {
		d.unbounded = make(map[string]struct{})
		return d
	}
	cache, err := lru.New[string, struct{}](d.maxSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	d.cache = cache
	return d
}

func (d *lruDeduper) SeenAndRecord(_ context.Context, id string) bool {
	if d.cache != nil {
		seen, _ := d.cache.ContainsOrAdd(id, struct{}{})
		return seen
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.unbounded[id]; ok {
		return true
	}
	d.unbounded[id] = struct{}{}
	return false
}

func (d *lruDeduper) Unrecord(_ context.Context, id string) {
	if d.cache != nil {
		d.cache.Remove(id)
		return
	}
	d.mu.Lock()
	delete(d.unbounded, id)
	d.mu.Unlock()
}

func (d *lruDeduper) Size() int64 {
	if d.cache != nil {
		return int64(d.cache.Len())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.unbounded))
}
