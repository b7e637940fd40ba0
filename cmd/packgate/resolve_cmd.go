package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/quarrylabs/packgate/pkg/config"
	"github.com/quarrylabs/packgate/pkg/lockfile"
	"github.com/quarrylabs/packgate/pkg/registry"
	"github.com/quarrylabs/packgate/pkg/resolver"
)

// runResolveCmd implements `packgate resolve`.
//
// Resolves a pack id + version constraint against a registry index
// snapshot, optionally pinning the result into the lockfile.
//
// Exit codes:
//
//	0 = resolved
//	1 = no version satisfies the constraint
//	2 = runtime error
func runResolveCmd(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	cmd := flag.NewFlagSet("resolve", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		indexPath   string
		packID      string
		constraint  string
		pin         bool
		lockPath    string
		tenantID    string
		profilesDir string
		jsonOutput  bool
	)

	cmd.StringVar(&indexPath, "index", cfg.IndexPath, "Path to registry index JSON")
	cmd.StringVar(&packID, "pack", "", "Pack identifier (REQUIRED)")
	cmd.StringVar(&constraint, "constraint", "", "Version constraint (empty = any)")
	cmd.BoolVar(&pin, "pin", false, "Pin the resolved version into the lockfile")
	cmd.StringVar(&lockPath, "lockfile", cfg.LockfilePath, "Path to lockfile")
	cmd.StringVar(&tenantID, "tenant", cfg.TenantID, "Tenant identifier")
	cmd.StringVar(&profilesDir, "profiles", cfg.ProfilesDir, "Directory of per-tenant profile YAMLs")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if packID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --pack is required")
		return 2
	}

	// The tenant's profile can point at its own index snapshot and
	// lockfile; explicit flags still win.
	profile, err := tenantProfileFor(profilesDir, tenantID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if profile != nil {
		explicit := explicitFlags(cmd)
		overlay := profile.Apply(*cfg)
		if !explicit["index"] && profile.IndexPath != "" {
			indexPath = overlay.IndexPath
		}
		if !explicit["lockfile"] && profile.LockfilePath != "" {
			lockPath = overlay.LockfilePath
		}
	}

	logger := newLogger(stderr, cfg.LogLevel)

	data, err := os.ReadFile(indexPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot read index: %v\n", err)
		return 2
	}
	if err := registry.ValidateDocument(data); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: invalid index document: %v\n", err)
		return 2
	}
	idx, err := registry.ParseIndex(data)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot parse index: %v\n", err)
		return 2
	}
	for _, warning := range registry.Lint(idx) {
		logger.Warn("index lint", "warning", warning)
	}

	resolved, err := resolver.Resolve(packID, constraint, idx)
	if err != nil {
		var notFound *resolver.NotFoundError
		if errors.As(err, &notFound) {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if pin {
		store := lockfile.NewStore()
		lf, err := store.Read(lockPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot read lockfile: %v\n", err)
			return 2
		}
		lf.Pin(lockfile.Entry{ID: resolved.ID, Version: resolved.Version, Hash: resolved.Hash})
		if err := store.Write(lockPath, lf); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot write lockfile: %v\n", err)
			return 2
		}
		logger.Info("pinned pack", "pack", resolved.ID, "version", resolved.Version, "lockfile", lockPath)
	}

	if jsonOutput {
		out, _ := json.MarshalIndent(resolved, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(out))
	} else {
		_, _ = fmt.Fprintf(stdout, "%s@%s %s\n", resolved.ID, resolved.Version, resolved.Hash)
	}
	return 0
}
