package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/quarrylabs/packgate/pkg/audit"
	"github.com/quarrylabs/packgate/pkg/config"
	"github.com/quarrylabs/packgate/pkg/policy"
	"github.com/quarrylabs/packgate/pkg/store"
)

// runInspectCmd implements `packgate inspect`.
//
// Replays one run's audit ledger offline: verifies sequence integrity
// and payload hashes, then recomputes every recorded decision under the
// policy version each entry names. A violation prints a structured
// finding to stderr and nothing else; there are no partial reports.
//
// Exit codes:
//
//	0 = ledger verified
//	1 = violation found (drift, gap, malformed entry, unknown policy)
//	2 = runtime error
func runInspectCmd(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	cmd := flag.NewFlagSet("inspect", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		runID       string
		tenantID    string
		dbPath      string
		policyDocs  string
		profilesDir string
		jsonOutput  bool
	)

	cmd.StringVar(&runID, "run", "", "Run identifier (REQUIRED)")
	cmd.StringVar(&tenantID, "tenant", cfg.TenantID, "Tenant identifier")
	cmd.StringVar(&dbPath, "db", cfg.DatabasePath, "Path to the event store database")
	cmd.StringVar(&policyDocs, "policies", cfg.PolicyPath, "Comma-separated policy document paths")
	cmd.StringVar(&profilesDir, "profiles", cfg.ProfilesDir, "Directory of per-tenant profile YAMLs")
	cmd.BoolVar(&jsonOutput, "json", false, "Output report as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if runID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --run is required")
		return 2
	}

	// The tenant's profile names the policy document its runs were
	// admitted under, so the inspector can recompute without the caller
	// repeating it on every invocation.
	profile, err := tenantProfileFor(profilesDir, tenantID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if profile != nil {
		tenantID = profile.Apply(*cfg).TenantID
		if profile.PolicyPath != "" {
			policyDocs = strings.Join([]string{policyDocs, profile.PolicyPath}, ",")
		}
	}

	policies, err := loadPolicySet(policyDocs)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	events, err := store.NewSQLiteEventStore(dbPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot open event store: %v\n", err)
		return 2
	}
	defer events.Close()

	report, err := audit.NewInspector(events, policies).Inspect(context.Background(), tenantID, runID)
	if err != nil {
		var (
			seqErr       *audit.SequenceError
			driftErr     *audit.DriftError
			malformedErr *audit.MalformedEntryError
			policyErr    *audit.UnknownPolicyError
		)
		switch {
		case errors.As(err, &seqErr), errors.As(err, &driftErr),
			errors.As(err, &malformedErr), errors.As(err, &policyErr):
			_, _ = fmt.Fprintf(stderr, "VIOLATION run=%s: %v\n", runID, err)
			return 1
		default:
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}

	if jsonOutput {
		out, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(out))
		return 0
	}
	for _, line := range report.Lines {
		_, _ = fmt.Fprintln(stdout, line.String())
	}
	_, _ = fmt.Fprintf(stdout, "OK run=%s entries=%d\n", runID, len(report.Lines))
	return 0
}

// loadPolicySet builds the version-keyed policy set the inspector
// recomputes against. Built-in presets are always resolvable; documents
// add or override versions.
func loadPolicySet(docs string) (policy.PolicySet, error) {
	set := policy.PolicySet{}
	set.Add(policy.DefaultPolicy())
	set.Add(policy.StrictPolicy())
	for _, path := range strings.Split(docs, ",") {
		if path = strings.TrimSpace(path); path == "" {
			continue
		}
		pol, err := policy.LoadDocument(path)
		if err != nil {
			return nil, err
		}
		set.Add(pol)
	}
	return set, nil
}
