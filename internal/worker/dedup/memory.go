package dedup

import (
	"container/list"
	"context"
	"sync"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

// MemoryTracker keeps processed ids in memory. With a positive capacity the
// oldest entries are evicted first; zero means unbounded.
type MemoryTracker struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type memoryEntry struct {
	photoID string
	status  domain.Status
}

var _ Tracker = (*MemoryTracker)(nil)

// NewMemoryTracker creates an in-memory tracker
func NewMemoryTracker(capacity int) *MemoryTracker {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryTracker{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (m *MemoryTracker) Seen(_ context.Context, photoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[photoID]
	return ok, nil
}

func (m *MemoryTracker) Mark(_ context.Context, decision domain.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[decision.PhotoID]; ok {
		el.Value.(*memoryEntry).status = decision.Status
		return nil
	}

	m.entries[decision.PhotoID] = m.order.PushBack(&memoryEntry{
		photoID: decision.PhotoID,
		status:  decision.Status,
	})

	for m.capacity > 0 && m.order.Len() > m.capacity {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).photoID)
	}
	return nil
}

func (m *MemoryTracker) Len(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len(), nil
}

// Snapshot returns the processed view: every remembered id maps to true
func (m *MemoryTracker) Snapshot() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]bool, len(m.entries))
	for id := range m.entries {
		out[id] = true
	}
	return out
}

// Status returns the recorded outcome for a photo
func (m *MemoryTracker) Status(photoID string) (domain.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[photoID]
	if !ok {
		return "", false
	}
	return el.Value.(*memoryEntry).status, true
}

func (m *MemoryTracker) Close() error {
	return nil
}
