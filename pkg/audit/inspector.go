package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/quarrylabs/packgate/pkg/canonicalize"
	"github.com/quarrylabs/packgate/pkg/policy"
)

// PolicyResolver maps a recorded policy version back to the rule set that
// was in force under it. policy.PolicySet satisfies this.
type PolicyResolver interface {
	Lookup(version string) (policy.OrgPolicy, bool)
}

// Inspector replays a run's audit ledger offline: it checks sequence
// integrity and independently recomputes every recorded decision. It only
// reads; the caller must hand it a frozen snapshot of the run (no append
// in flight).
type Inspector struct {
	source   EventSource
	policies PolicyResolver
}

// NewInspector creates an inspector over an event source and the policy
// documents recorded histories reference.
func NewInspector(source EventSource, policies PolicyResolver) *Inspector {
	return &Inspector{source: source, policies: policies}
}

// ReportLine is one verified ledger entry, in trail order.
type ReportLine struct {
	Sequence    uint64   `json:"sequence"`
	EventType   string   `json:"event_type"`
	PackID      string   `json:"pack_id"`
	PackVersion string   `json:"pack_version"`
	Decision    string   `json:"decision"`
	Reasons     []string `json:"reasons"`
}

// String renders the fixed line format consumed by audit reviews.
func (l ReportLine) String() string {
	return fmt.Sprintf("%06d %s pack=%s@%s decision=%s reasons=%v",
		l.Sequence, l.EventType, l.PackID, l.PackVersion, l.Decision, l.Reasons)
}

// Report is the outcome of a clean inspection pass. A report is only ever
// produced for a fully verified ledger; there are no partial reports.
type Report struct {
	TenantID string       `json:"tenant_id"`
	RunID    string       `json:"run_id"`
	Lines    []ReportLine `json:"lines"`
}

// Inspect loads all of a run's audit entries, verifies strict sequence
// monotonicity (increase-by-one, starting at 1), re-verifies payload
// hashes, and recomputes each pack.admitted / pack.denied decision from
// the entry's recorded facts. Any violation aborts with a typed error and
// no report.
func (in *Inspector) Inspect(ctx context.Context, tenantID, runID string) (*Report, error) {
	events, err := in.source.History(ctx, tenantID, runID, 0)
	if err != nil {
		return nil, fmt.Errorf("load ledger for run %s: %w", runID, err)
	}

	type parsed struct {
		eventID int64
		entry   Entry
	}
	var entries []parsed
	for _, evt := range events {
		if evt.Type != TrailEventType {
			continue
		}
		if evt.PayloadHash != "" {
			recomputed, err := canonicalize.HashJSON(evt.Payload)
			if err != nil {
				return nil, &MalformedEntryError{EventID: evt.ID, Err: err}
			}
			if recomputed != evt.PayloadHash {
				return nil, &MalformedEntryError{EventID: evt.ID,
					Err: fmt.Errorf("payload hash mismatch: recorded %s, recomputed %s", evt.PayloadHash, recomputed)}
			}
		}
		var entry Entry
		if err := json.Unmarshal(evt.Payload, &entry); err != nil {
			return nil, &MalformedEntryError{EventID: evt.ID, Err: err}
		}
		entries = append(entries, parsed{eventID: evt.ID, entry: entry})
	}

	// Storage order should already match sequence order, but the ledger
	// is the thing under audit. Never assume.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].entry.Sequence < entries[j].entry.Sequence
	})

	report := &Report{TenantID: tenantID, RunID: runID}
	var previous uint64
	for _, p := range entries {
		entry := p.entry
		if entry.Sequence != previous+1 {
			return nil, &SequenceError{Sequence: entry.Sequence, Previous: previous}
		}
		previous = entry.Sequence

		if entry.EventType == string(EventPackAdmitted) || entry.EventType == string(EventPackDenied) {
			if err := in.recheck(entry); err != nil {
				return nil, err
			}
		}

		report.Lines = append(report.Lines, ReportLine{
			Sequence:    entry.Sequence,
			EventType:   entry.EventType,
			PackID:      entry.PackID,
			PackVersion: entry.PackVersion,
			Decision:    entry.Decision,
			Reasons:     entry.Reasons,
		})
	}
	return report, nil
}

// recheck recomputes one recorded decision and compares it with what the
// ledger claims happened.
func (in *Inspector) recheck(entry Entry) error {
	recordedAllowed := entry.Decision == DecisionAllowed

	// event_type and decision are redundant encodings of the same fact;
	// disagreement between them is drift-class corruption.
	typeSaysAllowed := entry.EventType == string(EventPackAdmitted)
	if recordedAllowed != typeSaysAllowed {
		return &DriftError{
			Sequence:      entry.Sequence,
			PackID:        entry.PackID,
			PackVersion:   entry.PackVersion,
			PolicyVersion: entry.PolicyVersion,
			Recorded:      recordedAllowed,
			Recomputed:    typeSaysAllowed,
		}
	}

	pol, ok := in.policies.Lookup(entry.PolicyVersion)
	if !ok {
		return &UnknownPolicyError{Sequence: entry.Sequence, PolicyVersion: entry.PolicyVersion}
	}

	recomputed := policy.Evaluate(entry.Pack(), pol)
	if recomputed.Allowed != recordedAllowed {
		return &DriftError{
			Sequence:      entry.Sequence,
			PackID:        entry.PackID,
			PackVersion:   entry.PackVersion,
			PolicyVersion: entry.PolicyVersion,
			Recorded:      recordedAllowed,
			Recomputed:    recomputed.Allowed,
		}
	}
	return nil
}
