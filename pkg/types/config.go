package types

import (
	"fmt"
	"path/filepath"
	"time"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultBackupKeep       = 5
	DefaultCacheTTL         = 24 * time.Hour
	DefaultDiscoveryTimeout = 30 * time.Second
)

// Config holds the engine settings loaded from config.yaml and flags.
type Config struct {
	// DataDir holds the SSOT database, the backup directory, and the
	// instance lock file.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// BackupDir defaults to <DataDir>/backups.
	BackupDir string `json:"backup_dir" yaml:"backup_dir"`

	// BackupKeep is the number of rotated backups retained per target file.
	BackupKeep int `json:"backup_keep" yaml:"backup_keep"`

	// CacheTTL bounds the freshness of discovery cache entries.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// GitHubToken is an optional personal access token raising the
	// discovery rate limit.
	GitHubToken string `json:"github_token" yaml:"github_token"`

	// DiscoveryTimeout bounds a single remote fetch.
	DiscoveryTimeout time.Duration `json:"discovery_timeout" yaml:"discovery_timeout"`

	// StaleCacheFallback serves an expired cache entry when a refresh
	// fetch fails, instead of surfacing the error with no data.
	StaleCacheFallback bool `json:"stale_cache_fallback" yaml:"stale_cache_fallback"`
}

// ApplyDefaults fills zero-valued fields with engine defaults.
func (c *Config) ApplyDefaults() {
	if c.BackupDir == "" && c.DataDir != "" {
		c.BackupDir = filepath.Join(c.DataDir, "backups")
	}
	if c.BackupKeep == 0 {
		c.BackupKeep = DefaultBackupKeep
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.DiscoveryTimeout == 0 {
		c.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrValidation)
	}
	if c.BackupKeep < 0 {
		return fmt.Errorf("%w: backup_keep must not be negative", ErrValidation)
	}
	return nil
}
