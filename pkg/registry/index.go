// Package registry defines the read-only registry index document that
// version resolution consumes. The index is owned by an external registry
// collaborator; this package only parses and sanity-checks it.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PackageVersion is one published version of a package.
type PackageVersion struct {
	Version  string            `json:"version"`
	Hash     string            `json:"hash"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Package groups all published versions of one package identifier.
type Package struct {
	ID       string           `json:"id"`
	Versions []PackageVersion `json:"versions"`
}

// Index is a snapshot of the registry at resolution time.
type Index struct {
	Packages []Package `json:"packages"`
}

// ParseIndex decodes an index document.
func ParseIndex(data []byte) (Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, fmt.Errorf("parse index: %w", err)
	}
	return idx, nil
}

// ReadIndex loads an index snapshot from disk.
func ReadIndex(path string) (Index, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Index{}, fmt.Errorf("read index: %w", err)
	}
	return ParseIndex(data)
}

// Versions returns all published versions of id, or nil if the package is
// absent from the snapshot.
func (idx Index) Versions(id string) []PackageVersion {
	for _, p := range idx.Packages {
		if p.ID == id {
			return p.Versions
		}
	}
	return nil
}
