// Package dedupe maps client idempotency keys to the event they created.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// defaultMaxSize bounds the cache when no option is given.
const defaultMaxSize = 10_000

// Deduper remembers which event an idempotency key produced so a retried
// request returns the original event instead of creating another one.
type Deduper interface {
	// Recall returns the event id recorded for key, if any.
	Recall(ctx context.Context, key string) (string, bool)

	// Remember records eventID for key, replacing any previous value.
	Remember(ctx context.Context, key, eventID string)

	// Forget drops key so the next request with it is treated as new.
	Forget(ctx context.Context, key string)

	Size() int64
}

// node is one entry of the insertion-ordered list, newest at head.
type node struct {
	key     string
	eventID string
	prev    *node
	next    *node
}

func (n *node) reset() {
	n.key = ""
	n.eventID = ""
	n.prev = nil
	n.next = nil
}

// inMemoryDeduper implements Deduper with a map plus a doubly linked list.
// Bounded mode (maxSize > 0) evicts the oldest key when full.
// Unbounded mode (maxSize <= 0) never evicts.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]*node
	head     *node // newest
	tail     *node // oldest
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// Option configures the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize caps the number of remembered keys; the oldest key is evicted
// first. Zero or less disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*node)
	d.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return d
}

// Recall returns the event id recorded for key.
func (d *inMemoryDeduper) Recall(_ context.Context, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.seen[key]
	if !ok {
		return "", false
	}
	return n.eventID, true
}

// Remember records eventID for key.
func (d *inMemoryDeduper) Remember(_ context.Context, key, eventID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[key]; ok {
		n.eventID = eventID
		return
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.key = key
	n.eventID = eventID
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.seen[key] = n
	d.size.Add(1)
}

// Forget drops key.
func (d *inMemoryDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.seen[key]; ok {
		d.unlink(n)
	}
}

// evictOldest removes the tail entry. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.tail != nil {
		d.unlink(d.tail)
	}
}

// unlink removes n from the list and map. Must be called with d.mu held.
func (d *inMemoryDeduper) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	delete(d.seen, n.key)
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
