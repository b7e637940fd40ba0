package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quarrylabs/packgate/pkg/canonicalize"
	"github.com/quarrylabs/packgate/pkg/policy"
	"github.com/quarrylabs/packgate/pkg/store"
)

// EventWriter is the append side of the run event stream.
type EventWriter interface {
	Append(ctx context.Context, e store.Event) (int64, error)
}

// Recorder appends exactly one ledger entry per admission decision,
// stamped with the run's next sequence number. Entries are never edited
// or deleted after the append.
type Recorder struct {
	writer EventWriter
	seq    SequenceAllocator
	clock  func() time.Time
}

// NewRecorder creates a recorder over the given stream and allocator.
func NewRecorder(writer EventWriter, seq SequenceAllocator) *Recorder {
	return &Recorder{
		writer: writer,
		seq:    seq,
		clock:  time.Now,
	}
}

// WithClock overrides the envelope timestamp source for tests. The clock
// never participates in the decision or the entry payload.
func (r *Recorder) WithClock(clock func() time.Time) *Recorder {
	r.clock = clock
	return r
}

// Record builds the ledger entry for one decision and appends it. The
// decision itself is performed elsewhere; Record runs regardless of
// outcome — denials are receipted the same as admissions.
func (r *Recorder) Record(ctx context.Context, tenantID, runID string, pack policy.ExecutionPack, pol policy.OrgPolicy, dec policy.Decision) (Entry, error) {
	eventType := EventPackDenied
	decision := DecisionDenied
	if dec.Allowed {
		eventType = EventPackAdmitted
		decision = DecisionAllowed
	}

	reasons := make([]string, len(dec.Reasons))
	copy(reasons, dec.Reasons)

	entry := Entry{
		Sequence:         r.seq.NextSequence(runID),
		EventType:        string(eventType),
		RunID:            runID,
		PackID:           pack.ID,
		PackVersion:      pack.Version,
		PackHash:         pack.Hash,
		PackSigned:       pack.Signed,
		PackCapabilities: pack.Capabilities,
		PinnedVersion:    pack.PinnedVersion,
		PinnedHash:       pack.PinnedHash,
		PolicyVersion:    pol.Version,
		Decision:         decision,
		Reasons:          reasons,
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		r.seq.Release(runID, entry.Sequence)
		return Entry{}, fmt.Errorf("serialize audit entry: %w", err)
	}
	payloadHash, err := canonicalize.HashJSON(payload)
	if err != nil {
		r.seq.Release(runID, entry.Sequence)
		return Entry{}, fmt.Errorf("hash audit entry: %w", err)
	}

	if _, err := r.writer.Append(ctx, store.Event{
		TenantID:    tenantID,
		RunID:       runID,
		Type:        TrailEventType,
		Payload:     payload,
		PayloadHash: payloadHash,
		CreatedAt:   r.clock().UTC(),
	}); err != nil {
		// Hand the number back: a failed append must not leave a hole
		// for the next entry to skip over.
		r.seq.Release(runID, entry.Sequence)
		return Entry{}, fmt.Errorf("append audit entry seq %d: %w", entry.Sequence, err)
	}
	return entry, nil
}
