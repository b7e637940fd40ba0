// Package resolver selects exactly one version of a package from a
// registry index snapshot, deterministically. Given the same inputs it
// always returns the same candidate, which is what lets the lockfile pin
// resolutions and the audit trail replay them later.
package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quarrylabs/packgate/pkg/registry"
)

// ResolvedPackage is the unique maximal version of a package satisfying a
// constraint. Immutable once returned.
type ResolvedPackage struct {
	ID string
	registry.PackageVersion
}

// NotFoundError reports that no version of a package satisfies the
// constraint. It carries both inputs for diagnosability.
type NotFoundError struct {
	ID         string
	Constraint string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("package not found: %s %s", e.ID, e.Constraint)
}

// Resolve scans every version of id in the index, filters by constraint,
// and keeps the strictly greater candidate. Ties keep the first-seen
// candidate. Pure: safe to call concurrently and repeatedly.
//
// Constraint grammar: empty or ">=0.0.0" matches anything, "=X.Y.Z" is an
// exact match, ">=X.Y.Z" is an inclusive lower bound. Anything else falls
// back to exact-string equality against the version.
func Resolve(id, constraint string, idx registry.Index) (ResolvedPackage, error) {
	var match *ResolvedPackage
	for _, v := range idx.Versions(id) {
		if !matchesConstraint(v.Version, constraint) {
			continue
		}
		if match == nil || compareVersion(v.Version, match.Version) > 0 {
			candidate := ResolvedPackage{ID: id, PackageVersion: v}
			match = &candidate
		}
	}
	if match == nil {
		return ResolvedPackage{}, &NotFoundError{ID: id, Constraint: constraint}
	}
	return *match, nil
}

func matchesConstraint(version, constraint string) bool {
	if constraint == "" || constraint == ">=0.0.0" {
		return true
	}
	if strings.HasPrefix(constraint, "=") {
		return strings.TrimPrefix(constraint, "=") == version
	}
	if strings.HasPrefix(constraint, ">=") {
		return compareVersion(version, strings.TrimPrefix(constraint, ">=")) >= 0
	}
	// Unrecognized operator: exact-string fallback, never a parse error.
	return version == constraint
}

// compareVersion orders versions by up to three dot-separated numeric
// components. Missing or non-numeric components compare as 0, so the
// ordering is total and never panics on junk input.
func compareVersion(a, b string) int {
	aMajor, aMinor, aPatch := parseVersion(a)
	bMajor, bMinor, bPatch := parseVersion(b)
	if aMajor != bMajor {
		return cmpInt(aMajor, bMajor)
	}
	if aMinor != bMinor {
		return cmpInt(aMinor, bMinor)
	}
	return cmpInt(aPatch, bPatch)
}

func parseVersion(s string) (major, minor, patch int) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) > 0 {
		major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		patch, _ = strconv.Atoi(parts[2])
	}
	return major, minor, patch
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
