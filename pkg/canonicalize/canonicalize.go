// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme)
// serialization and content hashing for packgate artifacts. Anything that
// gets hashed for the audit trail goes through here so the inspector can
// recompute the same digests offline.
package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// JCS returns the RFC 8785 canonical JSON representation of v. Struct tags
// are respected (v is marshaled first, then canonicalized).
func JCS(v any) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jcs: pre-marshal failed: %w", err)
	}
	canonical, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("jcs: transform failed: %w", err)
	}
	return canonical, nil
}

// Hash returns the sha256:-prefixed hex digest of the canonical JSON
// representation of v.
func Hash(v any) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes digests raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// HashJSON canonicalizes a raw JSON document and digests it. Readers use
// this to re-verify a payload hash without re-marshaling through Go types,
// which would drop fields they don't know about.
func HashJSON(data []byte) (string, error) {
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("jcs: transform failed: %w", err)
	}
	return HashBytes(canonical), nil
}
