package lockfile_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/packgate/pkg/lockfile"
)

func TestStore_ReadMissingFileIsFresh(t *testing.T) {
	store := lockfile.NewStore()
	lf, err := store.Read(filepath.Join(t.TempDir(), "nope.lock.json"))
	require.NoError(t, err)

	assert.Equal(t, lockfile.CurrentSchemaVersion, lf.SchemaVersion)
	assert.Empty(t, lf.Packages)
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packgate.lock.json")
	store := lockfile.NewStore()

	lf := lockfile.Lockfile{}
	lf.Pin(lockfile.Entry{ID: "tools/http-fetch", Version: "1.2.0", Hash: "sha256:abc"})
	lf.Pin(lockfile.Entry{ID: "tools/sql-query", Version: "2.0.0", Hash: "sha256:def"})
	require.NoError(t, store.Write(path, lf))

	got, err := store.Read(path)
	require.NoError(t, err)

	assert.Equal(t, lockfile.CurrentSchemaVersion, got.SchemaVersion)
	require.Len(t, got.Packages, 2)

	entry, ok := got.Lookup("tools/http-fetch")
	require.True(t, ok)
	assert.Equal(t, "1.2.0", entry.Version)
	assert.Equal(t, "sha256:abc", entry.Hash)
}

func TestStore_PinReplacesExisting(t *testing.T) {
	lf := lockfile.Lockfile{}
	lf.Pin(lockfile.Entry{ID: "tools/http-fetch", Version: "1.0.0", Hash: "sha256:old"})
	lf.Pin(lockfile.Entry{ID: "tools/http-fetch", Version: "1.2.0", Hash: "sha256:new"})

	require.Len(t, lf.Packages, 1)
	entry, ok := lf.Lookup("tools/http-fetch")
	require.True(t, ok)
	assert.Equal(t, "sha256:new", entry.Hash)
}

func TestStore_ZeroSchemaVersionDefaulted(t *testing.T) {
	// Files written before schema versioning existed carry no
	// schema_version field. Reading one upgrades it in place.
	path := filepath.Join(t.TempDir(), "legacy.lock.json")
	legacy := `{"packages":[{"id":"a","version":"1.0.0","hash":"sha256:x"}]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	lf, err := lockfile.NewStore().Read(path)
	require.NoError(t, err)

	assert.Equal(t, lockfile.CurrentSchemaVersion, lf.SchemaVersion)
	_, ok := lf.Lookup("a")
	assert.True(t, ok)
}

func TestStore_WriteNormalizesNilPackages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.lock.json")
	require.NoError(t, lockfile.NewStore().Write(path, lockfile.Lockfile{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// packages must serialize as [], never null
	assert.Contains(t, string(data), `"packages": []`)
	assert.NotContains(t, string(data), "null")

	var lf lockfile.Lockfile
	require.NoError(t, json.Unmarshal(data, &lf))
	assert.Equal(t, lockfile.CurrentSchemaVersion, lf.SchemaVersion)
}

func TestStore_SchemaGenerations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gen.lock.json")

	v2 := lockfile.NewStoreWithSchemaVersion(2)
	require.NoError(t, v2.Write(path, lockfile.Lockfile{}))

	// A current-generation store preserves the newer stamp on read.
	lf, err := lockfile.NewStore().Read(path)
	require.NoError(t, err)
	assert.Equal(t, 2, lf.SchemaVersion)
}

func TestStore_InvalidSchemaVersionFallsBack(t *testing.T) {
	s := lockfile.NewStoreWithSchemaVersion(-1)
	assert.Equal(t, lockfile.CurrentSchemaVersion, s.SchemaVersion())
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.lock.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := lockfile.NewStore().Read(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse lockfile"))
}

func TestStore_WriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clean.lock.json")
	require.NoError(t, lockfile.NewStore().Write(path, lockfile.Lockfile{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "clean.lock.json", entries[0].Name())
}
