// Package store persists run events. A run's audit ledger is physically
// multiplexed into the same stream as its other events; consumers filter
// by event type and must pass unknown types through untouched.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrEmptyRun identifies an event missing its tenant/run scoping.
var ErrEmptyRun = errors.New("event requires tenant_id and run_id")

// Event is the persistence envelope for one run event. PayloadHash is the
// canonical content hash of Payload, recorded at append time so readers
// can detect payload tampering without trusting the writer.
type Event struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	RunID       string    `json:"run_id"`
	Type        string    `json:"type"`
	Payload     []byte    `json:"payload"`
	PayloadHash string    `json:"payload_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventStore is the storage seam for run events.
type EventStore interface {
	// Append persists one event and returns its storage id.
	Append(ctx context.Context, e Event) (int64, error)

	// History returns a run's events with id > afterID, in storage order.
	History(ctx context.Context, tenantID, runID string, afterID int64) ([]Event, error)

	Close() error
}

// MemoryEventStore keeps events in memory. Used by tests and dry runs.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []Event
	nextID int64
}

// NewMemoryEventStore creates an empty in-memory store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{nextID: 1}
}

func (s *MemoryEventStore) Append(ctx context.Context, e Event) (int64, error) {
	if e.TenantID == "" || e.RunID == "" {
		return 0, ErrEmptyRun
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextID
	s.nextID++
	s.events = append(s.events, e)
	return e.ID, nil
}

func (s *MemoryEventStore) History(ctx context.Context, tenantID, runID string, afterID int64) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if e.TenantID == tenantID && e.RunID == runID && e.ID > afterID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryEventStore) Close() error { return nil }
