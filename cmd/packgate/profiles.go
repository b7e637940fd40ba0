package main

import (
	"errors"
	"flag"
	"io/fs"

	"github.com/quarrylabs/packgate/pkg/config"
)

// tenantProfileFor loads the tenant's profile from dir. A tenant that
// ships no profile falls back to the process-wide config, so a missing
// profile file is nil, not an error. An empty dir disables profiles.
func tenantProfileFor(dir, tenantID string) (*config.TenantProfile, error) {
	if dir == "" {
		return nil, nil
	}
	profile, err := config.LoadTenantProfile(dir, tenantID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// explicitFlags reports which flags were set on the command line.
// Profile values only fill in what the caller left to defaults.
func explicitFlags(cmd *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	cmd.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
