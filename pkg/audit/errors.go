package audit

import "fmt"

// Inspection failures are intentionally fatal and loud: a partial report
// could be mistaken for "probably fine", which is exactly what this
// component exists to prevent. There is no repair path — a ledger that
// fails inspection needs out-of-band remediation, never in-place patching.

// MalformedEntryError reports an audit event whose payload cannot be
// parsed or whose recorded payload hash no longer matches its bytes.
type MalformedEntryError struct {
	EventID int64
	Err     error
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed audit entry (event %d): %v", e.EventID, e.Err)
}

func (e *MalformedEntryError) Unwrap() error { return e.Err }

// SequenceError reports a non-increasing or gapped sequence. Everything
// after a broken sequence is unverifiable, so inspection aborts here.
type SequenceError struct {
	Sequence uint64
	Previous uint64
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("sequence violation at %d (previous %d): audit stream must increase by exactly one", e.Sequence, e.Previous)
}

// DriftError reports that recomputing a recorded decision from the
// entry's own facts disagrees with what was recorded. An admitted entry
// that recomputes to denied is the tamper case this design protects
// against.
type DriftError struct {
	Sequence      uint64
	PackID        string
	PackVersion   string
	PolicyVersion string
	Recorded      bool
	Recomputed    bool
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("decision drift at sequence %d: pack %s@%s recorded %s but policy %q recomputes %s",
		e.Sequence, e.PackID, e.PackVersion, decisionWord(e.Recorded), e.PolicyVersion, decisionWord(e.Recomputed))
}

// UnknownPolicyError reports an entry whose policy version the inspector
// cannot resolve. A history that cannot be recomputed cannot be
// certified.
type UnknownPolicyError struct {
	Sequence      uint64
	PolicyVersion string
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("unknown policy version %q at sequence %d: cannot recompute decision", e.PolicyVersion, e.Sequence)
}

func decisionWord(allowed bool) string {
	if allowed {
		return DecisionAllowed
	}
	return DecisionDenied
}
