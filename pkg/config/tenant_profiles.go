package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TenantProfile is a per-tenant configuration profile. Tenants that ship
// no profile fall back to the process-wide Config.
type TenantProfile struct {
	Name         string `yaml:"name" json:"name"`
	Code         string `yaml:"code" json:"code"`
	PolicyPath   string `yaml:"policy_path,omitempty" json:"policy_path,omitempty"`
	PolicyPreset string `yaml:"policy_preset,omitempty" json:"policy_preset,omitempty"` // "default" | "strict"
	LockfilePath string `yaml:"lockfile_path,omitempty" json:"lockfile_path,omitempty"`
	IndexPath    string `yaml:"index_path,omitempty" json:"index_path,omitempty"`
}

// LoadTenantProfile loads a tenant profile YAML by tenant code.
// It searches the profiles directory for profile_<code>.yaml.
func LoadTenantProfile(profilesDir, code string) (*TenantProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tenant profile %q: %w", code, err)
	}

	var profile TenantProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse tenant profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}

	return &profile, nil
}

// LoadAllTenantProfiles loads all profile_*.yaml files from the profiles
// directory, keyed by tenant code.
func LoadAllTenantProfiles(profilesDir string) (map[string]*TenantProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*TenantProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile TenantProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			// Extract code from filename: profile_acme.yaml -> acme
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}

		profiles[profile.Code] = &profile
	}

	return profiles, nil
}

// Apply overlays the profile's non-empty fields onto a base config and
// returns the result. The base is never mutated.
func (p *TenantProfile) Apply(base Config) Config {
	out := base
	out.TenantID = p.Code
	if p.PolicyPath != "" {
		out.PolicyPath = p.PolicyPath
	}
	if p.LockfilePath != "" {
		out.LockfilePath = p.LockfilePath
	}
	if p.IndexPath != "" {
		out.IndexPath = p.IndexPath
	}
	return out
}
