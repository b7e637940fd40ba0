package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/quarrylabs/packgate/pkg/policy"
)

// runPolicyCmd implements `packgate policy lint` and `packgate policy show`.
//
// lint validates a policy document and reports unknown rule identifiers
// as warnings (exit 0; unknown rules are forward compatibility, not
// errors). show prints the effective parsed policy plus its fingerprint.
func runPolicyCmd(args []string, stdout, stderr io.Writer) int {
	sub := args[0]
	cmd := flag.NewFlagSet("policy "+sub, flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var file string
	cmd.StringVar(&file, "file", "", "Path to policy document YAML (REQUIRED)")

	if err := cmd.Parse(args[1:]); err != nil {
		return 2
	}
	if file == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --file is required")
		return 2
	}

	data, err := os.ReadFile(file)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	pol, err := policy.ParseDocument(data)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: invalid policy document: %v\n", err)
		return 1
	}

	switch sub {
	case "lint":
		for _, rule := range pol.UnknownRules {
			_, _ = fmt.Fprintf(stdout, "warning: unknown rule %q (ignored at evaluation)\n", rule)
		}
		_, _ = fmt.Fprintf(stdout, "OK policy version=%s fingerprint=%s\n",
			pol.Version, policy.Fingerprint(data))
		return 0
	case "show":
		out, _ := json.MarshalIndent(struct {
			policy.OrgPolicy
			Fingerprint string `json:"fingerprint"`
		}{pol, policy.Fingerprint(data)}, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(out))
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown policy subcommand: %s\n", sub)
		return 2
	}
}
