package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/quarrylabs/packgate/pkg/store"
)

// SequenceAllocator hands out the next sequence number for a run's audit
// stream. Implementations must guarantee that two decisions for the same
// run can never receive the same or an out-of-order number; that is the
// single-writer discipline made into a checkable contract instead of
// caller folklore.
type SequenceAllocator interface {
	NextSequence(runID string) uint64

	// Release hands seq back after a failed append so the next
	// allocation reuses it. Only the most recently allocated number
	// can be returned; anything older is ignored.
	Release(runID string, seq uint64)
}

// RunSequencer is the default allocator: a per-process mutex over per-run
// counters. Each run owns its own counter; numbers start at 1.
type RunSequencer struct {
	mu   sync.Mutex
	next map[string]uint64
}

// NewRunSequencer creates an allocator with all runs starting at 1.
func NewRunSequencer() *RunSequencer {
	return &RunSequencer{next: make(map[string]uint64)}
}

// NextSequence returns the next number for runID, never reusing or
// skipping one.
func (s *RunSequencer) NextSequence(runID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[runID]++
	return s.next[runID]
}

// Release rolls the counter for runID back to seq-1 when seq was the
// last number handed out. A failed append must return its number this
// way, otherwise the stream would record a gap that never corresponds
// to an entry.
func (s *RunSequencer) Release(runID string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next[runID] == seq {
		s.next[runID] = seq - 1
	}
}

// Seed raises the high-water mark for runID so the next allocation is
// last+1. Lower marks are ignored; seeding never moves a counter
// backwards.
func (s *RunSequencer) Seed(runID string, last uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last > s.next[runID] {
		s.next[runID] = last
	}
}

// SeedFromStore scans a run's existing audit entries and seeds the
// allocator past the highest recorded sequence, so a restarted recorder
// continues the stream instead of colliding with it.
func (s *RunSequencer) SeedFromStore(ctx context.Context, src EventSource, tenantID, runID string) error {
	events, err := src.History(ctx, tenantID, runID, 0)
	if err != nil {
		return fmt.Errorf("seed sequencer: %w", err)
	}
	var last uint64
	for _, evt := range events {
		if evt.Type != TrailEventType {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(evt.Payload, &entry); err != nil {
			return fmt.Errorf("seed sequencer: event %d: %w", evt.ID, err)
		}
		if entry.Sequence > last {
			last = entry.Sequence
		}
	}
	s.Seed(runID, last)
	return nil
}

// EventSource is the read side of the run event stream.
type EventSource interface {
	History(ctx context.Context, tenantID, runID string, afterID int64) ([]store.Event, error)
}
