// Package audit maintains the tamper-evident admission ledger: one
// immutable, strictly sequenced entry per admission or denial decision,
// plus the offline inspector that re-verifies a recorded history against
// the policy that was supposedly in force.
package audit

import (
	"github.com/quarrylabs/packgate/pkg/policy"
)

// EventType categorizes audit trail entries. Consumers outside this core
// must treat unknown values as opaque pass-through, never as errors.
type EventType string

const (
	EventPackAdmitted EventType = "pack.admitted"
	EventPackDenied   EventType = "pack.denied"
)

// TrailEventType is the envelope type audit entries are multiplexed under
// in the run event stream.
const TrailEventType = "audit.trail"

// Decision strings recorded on entries.
const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
)

// Entry is the wire shape of one ledger record. Beyond the distilled
// minimum it carries every fact the decision was computed from
// (pack_signed, pack_capabilities, pin facts) so the inspector can
// recompute the decision from the entry alone, without ambient state.
type Entry struct {
	Sequence         uint64   `json:"sequence"`
	EventType        string   `json:"event_type"`
	RunID            string   `json:"run_id"`
	PackID           string   `json:"pack_id"`
	PackVersion      string   `json:"pack_version"`
	PackHash         string   `json:"pack_hash"`
	PackSigned       bool     `json:"pack_signed"`
	PackCapabilities []string `json:"pack_capabilities,omitempty"`
	PinnedVersion    string   `json:"pinned_version,omitempty"`
	PinnedHash       string   `json:"pinned_hash,omitempty"`
	PolicyVersion    string   `json:"policy_version"`
	Decision         string   `json:"decision"`
	Reasons          []string `json:"reasons"`
}

// Pack reconstructs the admission input this entry recorded.
func (e Entry) Pack() policy.ExecutionPack {
	return policy.ExecutionPack{
		ID:            e.PackID,
		Version:       e.PackVersion,
		Hash:          e.PackHash,
		Signed:        e.PackSigned,
		Capabilities:  e.PackCapabilities,
		PinnedVersion: e.PinnedVersion,
		PinnedHash:    e.PinnedHash,
	}
}
