package snapshot

import (
	"context"
	"sync"

	"github.com/hpungsan/inkwell/internal/db"
)

// Sequencer hands out version numbers. Reserve must return a value greater
// than floor and greater than anything it returned before for store.
type Sequencer interface {
	Reserve(ctx context.Context, store string, floor int) (int, error)
}

// Journal receives an event for every committed save, restore, and eviction.
type Journal interface {
	Record(ctx context.Context, e db.Event) error
}

// memorySequencer keeps sequences in process memory. Versions stay unique
// across restarts only as far as records remain on disk to raise the floor.
type memorySequencer struct {
	mu   sync.Mutex
	last map[string]int
}

func newMemorySequencer() *memorySequencer {
	return &memorySequencer{last: make(map[string]int)}
}

func (m *memorySequencer) Reserve(_ context.Context, store string, floor int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := max(m.last[store], floor) + 1
	m.last[store] = next
	return next, nil
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, db.Event) error { return nil }
