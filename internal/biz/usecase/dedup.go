package usecase

import "sync"

// DefaultDedupCapacity bounds the resident dedup set.
const DefaultDedupCapacity = 1000

// Deduplicator suppresses repeated delivery of the same webhook event.
// The platform delivers at-least-once; replies must be at-most-once, so
// every event key is checked here before any rule work happens.
//
// The set is bounded: past capacity, the oldest half is evicted in one bulk
// operation. Amortized recency, not strict LRU.
type Deduplicator struct {
	mu       sync.Mutex
	capacity int
	keys     map[string]struct{}
	order    []string
}

// NewDeduplicator creates a deduplicator with the given capacity.
// Non-positive capacity falls back to the default.
func NewDeduplicator(capacity int) *Deduplicator {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &Deduplicator{
		capacity: capacity,
		keys:     make(map[string]struct{}, capacity),
	}
}

// IsProcessed reports whether the key was already marked.
func (d *Deduplicator) IsProcessed(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.keys[key]
	return ok
}

// MarkProcessed records the key, evicting the oldest half when the set
// exceeds capacity.
func (d *Deduplicator) MarkProcessed(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.keys[key]; ok {
		return
	}
	d.keys[key] = struct{}{}
	d.order = append(d.order, key)

	if len(d.order) > d.capacity {
		drop := len(d.order) / 2
		for _, old := range d.order[:drop] {
			delete(d.keys, old)
		}
		d.order = append(d.order[:0:0], d.order[drop:]...)
	}
}

// Len returns the resident key count.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.keys)
}
