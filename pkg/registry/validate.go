package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// indexSchema is the Draft 2020 schema the index document must satisfy.
// Shape changes here are a registry contract change, not a packgate one.
const indexSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["packages"],
  "properties": {
    "packages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "versions"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "versions": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["version", "hash"],
              "properties": {
                "version": {"type": "string", "minLength": 1},
                "hash": {"type": "string"},
                "metadata": {
                  "type": "object",
                  "additionalProperties": {"type": "string"}
                }
              }
            }
          }
        }
      }
    }
  }
}`

const indexSchemaURL = "https://packgate.schemas.local/registry/index.schema.json"

var compiledIndexSchema = mustCompileIndexSchema()

func mustCompileIndexSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(indexSchemaURL, strings.NewReader(indexSchema)); err != nil {
		panic(fmt.Sprintf("registry: index schema load failed: %v", err))
	}
	compiled, err := c.Compile(indexSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("registry: index schema compile failed: %v", err))
	}
	return compiled
}

// ValidateDocument checks a raw index document against the index schema
// before it is handed to the resolver.
func ValidateDocument(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("index document is not valid JSON: %w", err)
	}
	if err := compiledIndexSchema.Validate(doc); err != nil {
		return fmt.Errorf("index document invalid: %w", err)
	}
	return nil
}

// Lint reports advisory problems with an index snapshot. Resolution does
// not depend on semver well-formedness, so these are warnings, never
// errors.
func Lint(idx Index) []string {
	var warnings []string
	for _, p := range idx.Packages {
		if p.ID == "" {
			warnings = append(warnings, "package with empty id")
			continue
		}
		if len(p.Versions) == 0 {
			warnings = append(warnings, fmt.Sprintf("package %s has no versions", p.ID))
		}
		for _, v := range p.Versions {
			if _, err := semver.StrictNewVersion(v.Version); err != nil {
				warnings = append(warnings, fmt.Sprintf("package %s version %q is not strict semver", p.ID, v.Version))
			}
			if v.Hash == "" {
				warnings = append(warnings, fmt.Sprintf("package %s version %s has no content hash", p.ID, v.Version))
			}
		}
	}
	return warnings
}
