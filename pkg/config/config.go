package config

import "os"

// Config holds CLI and store configuration.
type Config struct {
	TenantID     string
	DatabasePath string
	LockfilePath string
	IndexPath    string
	PolicyPath   string
	ProfilesDir  string
	LogLevel     string
}

// Load loads configuration from environment variables. Flags override
// these values; environment is the baseline for scripted use.
func Load() *Config {
	tenant := os.Getenv("PACKGATE_TENANT")
	if tenant == "" {
		tenant = "default"
	}

	dbPath := os.Getenv("PACKGATE_DB")
	if dbPath == "" {
		dbPath = "data/packgate.sqlite"
	}

	lockfilePath := os.Getenv("PACKGATE_LOCKFILE")
	if lockfilePath == "" {
		lockfilePath = "packgate.lock.json"
	}

	indexPath := os.Getenv("PACKGATE_INDEX")
	if indexPath == "" {
		indexPath = "index.json"
	}

	policyPath := os.Getenv("PACKGATE_POLICY")
	profilesDir := os.Getenv("PACKGATE_PROFILES")

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	return &Config{
		TenantID:     tenant,
		DatabasePath: dbPath,
		LockfilePath: lockfilePath,
		IndexPath:    indexPath,
		PolicyPath:   policyPath,
		ProfilesDir:  profilesDir,
		LogLevel:     logLevel,
	}
}
