package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/quarrylabs/packgate/pkg/canonicalize"
)

// policySchema constrains the governance document. Unknown rule keys are
// deliberately permitted by the schema; they surface as warnings instead.
const policySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "rules": {
      "type": "object",
      "properties": {
        "require_signed": {"type": "boolean"},
        "capability_allowlist": {"type": "array", "items": {"type": "string"}},
        "capability_denylist": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

const policySchemaURL = "https://packgate.schemas.local/policy/policy.schema.json"

var compiledPolicySchema = mustCompilePolicySchema()

func mustCompilePolicySchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(policySchemaURL, strings.NewReader(policySchema)); err != nil {
		panic(fmt.Sprintf("policy: schema load failed: %v", err))
	}
	compiled, err := c.Compile(policySchemaURL)
	if err != nil {
		panic(fmt.Sprintf("policy: schema compile failed: %v", err))
	}
	return compiled
}

// knownRules are the rule identifiers this generation of the engine
// understands. Everything else in the rules block is carried as an
// unknown rule.
var knownRules = map[string]bool{
	"require_signed":       true,
	"capability_allowlist": true,
	"capability_denylist":  true,
}

// ParseDocument parses a versioned policy document (YAML or JSON) into an
// OrgPolicy. Unknown rule identifiers never fail the parse; they are
// collected onto OrgPolicy.UnknownRules for warning telemetry.
func ParseDocument(data []byte) (OrgPolicy, error) {
	var doc struct {
		Version string         `yaml:"version" json:"version"`
		Rules   map[string]any `yaml:"rules" json:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return OrgPolicy{}, fmt.Errorf("parse policy document: %w", err)
	}
	if err := validatePolicyDoc(doc.Version, doc.Rules); err != nil {
		return OrgPolicy{}, err
	}

	pol := OrgPolicy{Version: doc.Version}
	for key, value := range doc.Rules {
		switch key {
		case "require_signed":
			b, ok := value.(bool)
			if !ok {
				return OrgPolicy{}, fmt.Errorf("policy rule require_signed: expected bool, got %T", value)
			}
			pol.RequireSigned = b
		case "capability_allowlist":
			list, err := stringList(key, value)
			if err != nil {
				return OrgPolicy{}, err
			}
			pol.CapabilityAllowlist = list
		case "capability_denylist":
			list, err := stringList(key, value)
			if err != nil {
				return OrgPolicy{}, err
			}
			pol.CapabilityDenylist = list
		default:
			pol.UnknownRules = append(pol.UnknownRules, key)
		}
	}
	pol.UnknownRules = sortedCopy(pol.UnknownRules)
	return pol, nil
}

// LoadDocument reads and parses a policy document from disk.
func LoadDocument(path string) (OrgPolicy, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return OrgPolicy{}, fmt.Errorf("load policy: %w", err)
	}
	return ParseDocument(data)
}

// Fingerprint ties evaluation results back to the exact policy source
// text that was in force.
func Fingerprint(data []byte) string {
	return canonicalize.HashBytes(data)
}

func validatePolicyDoc(version string, rules map[string]any) error {
	// Round-trip through JSON so the schema validator sees JSON-typed
	// values regardless of the YAML decoder's choices.
	raw, err := json.Marshal(map[string]any{"version": version, "rules": rules})
	if err != nil {
		return fmt.Errorf("policy document not serializable: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("policy document decode: %w", err)
	}
	if err := compiledPolicySchema.Validate(generic); err != nil {
		return fmt.Errorf("policy document invalid: %w", err)
	}
	return nil
}

func stringList(key string, value any) ([]string, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("policy rule %s: expected list of strings, got %T", key, value)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("policy rule %s: expected string item, got %T", key, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// DefaultPolicy is permissive, suitable for local development.
func DefaultPolicy() OrgPolicy {
	return OrgPolicy{Version: "default"}
}

// StrictPolicy enables every safeguard this engine understands.
func StrictPolicy() OrgPolicy {
	return OrgPolicy{
		Version:       "strict",
		RequireSigned: true,
	}
}

// PolicySet maps policy versions to rule sets so offline consumers (the
// audit inspector) can recompute decisions recorded under older policies.
type PolicySet map[string]OrgPolicy

// Add indexes pol by its version.
func (s PolicySet) Add(pol OrgPolicy) { s[pol.Version] = pol }

// Lookup returns the policy recorded under version.
func (s PolicySet) Lookup(version string) (OrgPolicy, bool) {
	pol, ok := s[version]
	return pol, ok
}
