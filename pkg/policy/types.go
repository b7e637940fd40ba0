// Package policy implements the admission engine: a pure, total function
// from (pack, policy) to an allow/deny decision with machine-readable
// reasons. Evaluation touches no I/O and no clock so the audit inspector
// can replay it offline, long after the original decision, with identical
// results.
package policy

import "sort"

// ExecutionPack is the concrete, already-resolved unit considered for
// admission. Signed reflects an externally-verified signature check; this
// package never verifies signatures itself. PinnedVersion/PinnedHash carry
// what the resolver and lockfile recorded, so the no-silent-substitution
// rule can be checked from explicit facts.
type ExecutionPack struct {
	ID            string   `json:"id"`
	Version       string   `json:"version"`
	Hash          string   `json:"hash"`
	Signed        bool     `json:"signed"`
	Capabilities  []string `json:"capabilities,omitempty"`
	PinnedVersion string   `json:"pinned_version,omitempty"`
	PinnedHash    string   `json:"pinned_hash,omitempty"`
}

// OrgPolicy is an org's versioned rule set. The version string is echoed
// verbatim into every audit entry produced under the policy.
type OrgPolicy struct {
	Version             string   `json:"version"`
	RequireSigned       bool     `json:"require_signed"`
	CapabilityAllowlist []string `json:"capability_allowlist,omitempty"`
	CapabilityDenylist  []string `json:"capability_denylist,omitempty"`

	// UnknownRules carries rule identifiers the loader did not recognize.
	// They are ignored by evaluation (forward compatibility) but echoed
	// back as warnings, never silently dropped.
	UnknownRules []string `json:"unknown_rules,omitempty"`
}

// Reason identifies a single admission rule outcome.
type Reason string

const (
	// Denial reasons, in priority order (see rulePriority).
	ReasonNotSigned            Reason = "not_signed"
	ReasonCapabilityDenied     Reason = "capability_denied"
	ReasonCapabilityNotAllowed Reason = "capability_not_allowed"
	ReasonHashMismatch         Reason = "hash_mismatch"
	ReasonVersionMismatch      Reason = "version_mismatch"

	// Allowance justifications.
	ReasonPackSigned      Reason = "pack_signed"
	ReasonPolicySatisfied Reason = "policy_satisfied"
)

func (r Reason) String() string { return string(r) }

// Decision is the admission outcome. Reasons is never empty: on denial it
// names exactly the first failing rule; on allowance the positive
// justification. Warnings report ignored unknown rules.
type Decision struct {
	Allowed  bool     `json:"allowed"`
	Reasons  []string `json:"reasons"`
	Warnings []string `json:"warnings,omitempty"`
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
