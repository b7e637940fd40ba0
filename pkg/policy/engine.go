package policy

import "slices"

// admissionRule pairs a denial reason with its failure predicate. The
// slice order below IS the contract: the first failing rule names the
// decision, and the audit inspector depends on that ordering staying
// stable across refactors, which is why it is encoded as data rather than
// control flow.
type admissionRule struct {
	reason Reason
	failed func(pack ExecutionPack, pol OrgPolicy) bool
}

// rulePriority: provenance first, then capability governance, then pin
// consistency. A denylist hit forces rejection regardless of the
// allowlist, but still reports in this fixed order.
var rulePriority = []admissionRule{
	{ReasonNotSigned, func(p ExecutionPack, pol OrgPolicy) bool {
		return pol.RequireSigned && !p.Signed
	}},
	{ReasonCapabilityDenied, func(p ExecutionPack, pol OrgPolicy) bool {
		for _, c := range p.Capabilities {
			if slices.Contains(pol.CapabilityDenylist, c) {
				return true
			}
		}
		return false
	}},
	{ReasonCapabilityNotAllowed, func(p ExecutionPack, pol OrgPolicy) bool {
		if len(pol.CapabilityAllowlist) == 0 {
			return false
		}
		for _, c := range p.Capabilities {
			if !slices.Contains(pol.CapabilityAllowlist, c) {
				return true
			}
		}
		return false
	}},
	{ReasonHashMismatch, func(p ExecutionPack, pol OrgPolicy) bool {
		return p.PinnedHash != "" && p.Hash != p.PinnedHash
	}},
	{ReasonVersionMismatch, func(p ExecutionPack, pol OrgPolicy) bool {
		return p.PinnedVersion != "" && p.Version != p.PinnedVersion
	}},
}

// Evaluate decides whether pack is admitted under pol. Default posture is
// deny: a pack is admitted only when every rule in rulePriority passes.
// Total and side-effect free; identical inputs always yield bit-identical
// decisions.
func Evaluate(pack ExecutionPack, pol OrgPolicy) Decision {
	warnings := sortedCopy(pol.UnknownRules)

	for _, rule := range rulePriority {
		if rule.failed(pack, pol) {
			return Decision{
				Allowed:  false,
				Reasons:  []string{rule.reason.String()},
				Warnings: warnings,
			}
		}
	}

	justification := ReasonPolicySatisfied
	if pack.Signed {
		justification = ReasonPackSigned
	}
	return Decision{
		Allowed:  true,
		Reasons:  []string{justification.String()},
		Warnings: warnings,
	}
}
