//go:build property
// +build property

package policy_test

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/quarrylabs/packgate/pkg/policy"
)

// TestEvaluateDeterminism verifies admission decisions are a pure function
// of their inputs.
// Property: Evaluate(pack, pol) == Evaluate(pack, pol) for any inputs
func TestEvaluateDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("evaluation is deterministic", prop.ForAll(
		func(id, version, hash string, signed, requireSigned bool, caps, allow, deny []string) bool {
			pack := policy.ExecutionPack{
				ID: id, Version: version, Hash: hash,
				Signed: signed, Capabilities: caps,
			}
			pol := policy.OrgPolicy{
				Version:             "prop",
				RequireSigned:       requireSigned,
				CapabilityAllowlist: allow,
				CapabilityDenylist:  deny,
			}
			a := policy.Evaluate(pack, pol)
			b := policy.Evaluate(pack, pol)
			return reflect.DeepEqual(a, b)
		},
		gen.AlphaString(), gen.AlphaString(), gen.AlphaString(),
		gen.Bool(), gen.Bool(),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestEvaluateReasonsNeverEmpty verifies every decision carries at least
// one reason.
func TestEvaluateReasonsNeverEmpty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("reasons are never empty", prop.ForAll(
		func(signed, requireSigned bool, caps, allow, deny []string) bool {
			dec := policy.Evaluate(
				policy.ExecutionPack{ID: "p", Version: "1.0.0", Signed: signed, Capabilities: caps},
				policy.OrgPolicy{Version: "prop", RequireSigned: requireSigned, CapabilityAllowlist: allow, CapabilityDenylist: deny},
			)
			return len(dec.Reasons) == 1
		},
		gen.Bool(), gen.Bool(),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
