// Package lockfile persists resolved (package, version, hash) triples for
// a workspace so later resolutions can be pinned and re-verified.
//
// The store assumes a single writer per workspace file; callers serialize
// concurrent writers themselves. Writes are whole-file atomic replaces.
package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CurrentSchemaVersion is the schema generation this package writes.
// Bump it whenever the on-disk shape changes; readers of older generations
// upgrade in place without error.
const CurrentSchemaVersion = 1

// Entry pins a single package to an exact version and content hash.
type Entry struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Hash    string `json:"hash"`
}

// Lockfile is the on-disk artifact: a schema version plus pinned packages.
type Lockfile struct {
	SchemaVersion int     `json:"schema_version,omitempty"`
	Packages      []Entry `json:"packages"`
}

// Pin adds or replaces the entry for e.ID.
func (lf *Lockfile) Pin(e Entry) {
	for i := range lf.Packages {
		if lf.Packages[i].ID == e.ID {
			lf.Packages[i] = e
			return
		}
	}
	lf.Packages = append(lf.Packages, e)
}

// Lookup returns the pinned entry for id, if any.
func (lf Lockfile) Lookup(id string) (Entry, bool) {
	for _, e := range lf.Packages {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Store reads and writes lockfiles under an explicit schema version. The
// version is injected at construction so tests can exercise multiple
// schema generations side by side.
type Store struct {
	schemaVersion int
}

// NewStore returns a store stamped with CurrentSchemaVersion.
func NewStore() *Store {
	return NewStoreWithSchemaVersion(CurrentSchemaVersion)
}

// NewStoreWithSchemaVersion returns a store stamped with an explicit
// schema generation.
func NewStoreWithSchemaVersion(v int) *Store {
	if v <= 0 {
		v = CurrentSchemaVersion
	}
	return &Store{schemaVersion: v}
}

// SchemaVersion reports the generation this store stamps on writes.
func (s *Store) SchemaVersion() int { return s.schemaVersion }

// Read loads a lockfile. A missing file is not an error: it yields a fresh
// lockfile stamped with the store's schema version. A zero schema_version
// on disk (files written before schema versioning existed) is defaulted
// the same way — a migration-free upgrade path, not a format change.
func (s *Store) Read(path string) (Lockfile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if os.IsNotExist(err) {
		return Lockfile{SchemaVersion: s.schemaVersion}, nil
	}
	if err != nil {
		return Lockfile{}, fmt.Errorf("read lockfile: %w", err)
	}
	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return Lockfile{}, fmt.Errorf("parse lockfile %s: %w", path, err)
	}
	if lf.SchemaVersion == 0 {
		lf.SchemaVersion = s.schemaVersion
	}
	return lf, nil
}

// Write persists a lockfile with a whole-file atomic replace. It stamps
// the schema version if unset and normalizes packages to an empty list so
// every file this store writes is self-describing regardless of caller
// diligence.
func (s *Store) Write(path string, lf Lockfile) error {
	if lf.SchemaVersion == 0 {
		lf.SchemaVersion = s.schemaVersion
	}
	if lf.Packages == nil {
		lf.Packages = []Entry{}
	}
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lockfile: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".packgate-lock-*")
	if err != nil {
		return fmt.Errorf("write lockfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write lockfile: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write lockfile: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Clean(path)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write lockfile: %w", err)
	}
	return nil
}
