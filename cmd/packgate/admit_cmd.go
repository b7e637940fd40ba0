package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/quarrylabs/packgate/pkg/audit"
	"github.com/quarrylabs/packgate/pkg/config"
	"github.com/quarrylabs/packgate/pkg/lockfile"
	"github.com/quarrylabs/packgate/pkg/policy"
	"github.com/quarrylabs/packgate/pkg/store"
)

// runAdmitCmd implements `packgate admit`.
//
// Evaluates one execution pack against the tenant's policy, records the
// decision in the audit ledger, and reports it. Denials are a normal
// outcome, not an error: the command still records and exits 1.
//
// Exit codes:
//
//	0 = admitted
//	1 = denied
//	2 = runtime error (nothing recorded)
func runAdmitCmd(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	cmd := flag.NewFlagSet("admit", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		packID       string
		version      string
		hash         string
		signed       bool
		capabilities string
		policyPath   string
		preset       string
		lockPath     string
		dbPath       string
		tenantID     string
		runID        string
		profilesDir  string
		jsonOutput   bool
	)

	cmd.StringVar(&packID, "pack", "", "Pack identifier (REQUIRED)")
	cmd.StringVar(&version, "version", "", "Pack version (REQUIRED)")
	cmd.StringVar(&hash, "hash", "", "Pack content hash (sha256:..)")
	cmd.BoolVar(&signed, "signed", false, "Pack carries a verified signature")
	cmd.StringVar(&capabilities, "capabilities", "", "Comma-separated capability list")
	cmd.StringVar(&policyPath, "policy", cfg.PolicyPath, "Path to policy document YAML")
	cmd.StringVar(&preset, "preset", "", "Built-in policy preset (default|strict)")
	cmd.StringVar(&lockPath, "lockfile", cfg.LockfilePath, "Path to lockfile (pin checks)")
	cmd.StringVar(&dbPath, "db", cfg.DatabasePath, "Path to the event store database")
	cmd.StringVar(&tenantID, "tenant", cfg.TenantID, "Tenant identifier")
	cmd.StringVar(&runID, "run", "", "Run identifier (generated if empty)")
	cmd.StringVar(&profilesDir, "profiles", cfg.ProfilesDir, "Directory of per-tenant profile YAMLs")
	cmd.BoolVar(&jsonOutput, "json", false, "Output decision as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if packID == "" || version == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --pack and --version are required")
		return 2
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	// The tenant's profile supplies the policy and lockfile the tenant
	// admits under; explicit flags still win.
	profile, err := tenantProfileFor(profilesDir, tenantID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if profile != nil {
		explicit := explicitFlags(cmd)
		overlay := profile.Apply(*cfg)
		tenantID = overlay.TenantID
		if !explicit["policy"] && profile.PolicyPath != "" {
			policyPath = overlay.PolicyPath
		}
		if !explicit["lockfile"] && profile.LockfilePath != "" {
			lockPath = overlay.LockfilePath
		}
		if !explicit["preset"] && profile.PolicyPreset != "" {
			preset = profile.PolicyPreset
		}
	}

	logger := newLogger(stderr, cfg.LogLevel)

	pol, err := loadPolicy(policyPath, preset)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	pack := policy.ExecutionPack{
		ID:      packID,
		Version: version,
		Hash:    hash,
		Signed:  signed,
	}
	if capabilities != "" {
		for _, c := range strings.Split(capabilities, ",") {
			if c = strings.TrimSpace(c); c != "" {
				pack.Capabilities = append(pack.Capabilities, c)
			}
		}
	}

	// Pin facts come from the lockfile when one exists. A missing
	// lockfile means nothing is pinned, which is not an error.
	if lf, err := lockfile.NewStore().Read(lockPath); err == nil {
		if entry, ok := lf.Lookup(packID); ok {
			pack.PinnedVersion = entry.Version
			pack.PinnedHash = entry.Hash
		}
	} else {
		_, _ = fmt.Fprintf(stderr, "Error: cannot read lockfile: %v\n", err)
		return 2
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot create data directory: %v\n", err)
		return 2
	}
	events, err := store.NewSQLiteEventStore(dbPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot open event store: %v\n", err)
		return 2
	}
	defer events.Close()

	ctx := context.Background()
	seq := audit.NewRunSequencer()
	if err := seq.SeedFromStore(ctx, events, tenantID, runID); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	decision := policy.Evaluate(pack, pol)
	for _, warning := range decision.Warnings {
		logger.Warn("policy warning", "warning", warning)
	}

	entry, err := audit.NewRecorder(events, seq).Record(ctx, tenantID, runID, pack, pol, decision)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	logger.Info("decision recorded",
		"tenant", tenantID, "run", runID, "seq", entry.Sequence,
		"pack", packID, "version", version, "decision", entry.Decision)

	if jsonOutput {
		out, _ := json.MarshalIndent(entry, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(out))
	} else {
		_, _ = fmt.Fprintf(stdout, "%s pack=%s@%s decision=%s reasons=%v\n",
			entry.EventType, packID, version, entry.Decision, entry.Reasons)
	}

	if decision.Allowed {
		return 0
	}
	return 1
}

// loadPolicy resolves the policy the command evaluates under: an explicit
// document wins, then a named preset, then the default policy.
func loadPolicy(path, preset string) (policy.OrgPolicy, error) {
	if path != "" {
		return policy.LoadDocument(path)
	}
	switch preset {
	case "", "default":
		return policy.DefaultPolicy(), nil
	case "strict":
		return policy.StrictPolicy(), nil
	default:
		return policy.OrgPolicy{}, fmt.Errorf("unknown policy preset %q", preset)
	}
}
