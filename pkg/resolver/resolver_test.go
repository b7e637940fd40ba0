package resolver_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/packgate/pkg/registry"
	"github.com/quarrylabs/packgate/pkg/resolver"
)

func testIndex() registry.Index {
	return registry.Index{
		Packages: []registry.Package{
			{
				ID: "tools/http-fetch",
				Versions: []registry.PackageVersion{
					{Version: "1.0.0", Hash: "sha256:aaa"},
					{Version: "1.2.0", Hash: "sha256:bbb"},
					{Version: "1.10.0", Hash: "sha256:ccc"},
					{Version: "0.9.0", Hash: "sha256:ddd"},
				},
			},
			{
				ID: "tools/sql-query",
				Versions: []registry.PackageVersion{
					{Version: "2.0.0", Hash: "sha256:eee"},
				},
			},
		},
	}
}

func TestResolve_PicksMaximalVersion(t *testing.T) {
	got, err := resolver.Resolve("tools/http-fetch", "", testIndex())
	require.NoError(t, err)

	// 1.10.0 beats 1.2.0: numeric component ordering, not lexicographic
	assert.Equal(t, "1.10.0", got.Version)
	assert.Equal(t, "sha256:ccc", got.Hash)
	assert.Equal(t, "tools/http-fetch", got.ID)
}

func TestResolve_ExactConstraint(t *testing.T) {
	got, err := resolver.Resolve("tools/http-fetch", "=1.2.0", testIndex())
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", got.Version)
}

func TestResolve_LowerBoundConstraint(t *testing.T) {
	got, err := resolver.Resolve("tools/http-fetch", ">=1.2.0", testIndex())
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", got.Version)
}

func TestResolve_AnyConstraintForms(t *testing.T) {
	// "" and ">=0.0.0" are both "anything"
	a, err := resolver.Resolve("tools/http-fetch", "", testIndex())
	require.NoError(t, err)
	b, err := resolver.Resolve("tools/http-fetch", ">=0.0.0", testIndex())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolve_UnrecognizedConstraintFallsBackToExactString(t *testing.T) {
	// "~1.0.0" is not part of the grammar; it matches only a version
	// whose literal string equals it, so nothing here.
	_, err := resolver.Resolve("tools/http-fetch", "~1.0.0", testIndex())

	var notFound *resolver.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "tools/http-fetch", notFound.ID)
	assert.Equal(t, "~1.0.0", notFound.Constraint)
}

func TestResolve_UnknownPackage(t *testing.T) {
	_, err := resolver.Resolve("tools/ghost", "", testIndex())

	var notFound *resolver.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.EqualError(t, err, "package not found: tools/ghost ")
}

func TestResolve_NoVersionSatisfies(t *testing.T) {
	_, err := resolver.Resolve("tools/sql-query", ">=3.0.0", testIndex())

	var notFound *resolver.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestResolve_TieKeepsFirstSeen(t *testing.T) {
	// Two entries with equal version but different hashes. The index is
	// malformed, but resolution must still be deterministic: first wins.
	idx := registry.Index{
		Packages: []registry.Package{
			{
				ID: "tools/dup",
				Versions: []registry.PackageVersion{
					{Version: "1.0.0", Hash: "sha256:first"},
					{Version: "1.0.0", Hash: "sha256:second"},
				},
			},
		},
	}

	got, err := resolver.Resolve("tools/dup", "", idx)
	require.NoError(t, err)
	assert.Equal(t, "sha256:first", got.Hash)
}

func TestResolve_NonNumericComponentsCompareAsZero(t *testing.T) {
	idx := registry.Index{
		Packages: []registry.Package{
			{
				ID: "tools/odd",
				Versions: []registry.PackageVersion{
					{Version: "abc", Hash: "sha256:junk"},
					{Version: "0.0.1", Hash: "sha256:real"},
				},
			},
		},
	}

	// "abc" parses as 0.0.0, so 0.0.1 is strictly greater.
	got, err := resolver.Resolve("tools/odd", "", idx)
	require.NoError(t, err)
	assert.Equal(t, "0.0.1", got.Version)
}

func TestResolve_Deterministic(t *testing.T) {
	idx := testIndex()
	first, err := resolver.Resolve("tools/http-fetch", ">=1.0.0", idx)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := resolver.Resolve("tools/http-fetch", ">=1.0.0", idx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
