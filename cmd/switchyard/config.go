// Config loading for the switchyard CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/tangentlab/switchyard/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataDir          = "data_dir"
	cfgKeyBackupDir        = "backup_dir"
	cfgKeyBackupKeep       = "backup_keep"
	cfgKeyCacheTTL         = "cache_ttl"
	cfgKeyGitHubToken      = "github_token"
	cfgKeyDiscoveryTimeout = "discovery_timeout"
	cfgKeyStaleFallback    = "stale_cache_fallback"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Switchyard configuration

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Backup rotation depth per managed file
backup_keep: 5

# Discovery cache time-to-live
cache_ttl: 24h

# GitHub personal access token for discovery (also SWITCHYARD_GITHUB_TOKEN env)
# github_token:

# Serve an expired discovery cache entry when the fetch fails
stale_cache_fallback: false
`

// loadConfig reads config.yaml from the resolved config directory, creating
// the directory and a default file on first run. A missing config.yaml is
// not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackupKeep, 5)
	v.SetDefault(cfgKeyCacheTTL, "24h")
	v.SetDefault(cfgKeyDiscoveryTimeout, "30s")
	v.SetEnvPrefix("SWITCHYARD")
	v.BindEnv(cfgKeyGitHubToken)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// engineConfig builds the engine configuration from flags, config.yaml,
// and environment.
func engineConfig() (types.Config, error) {
	configDir, err := resolveConfigDir()
	if err != nil {
		return types.Config{}, err
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, err
	}
	dataDir, err := resolveDataDir(v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, err
	}

	cfg := types.Config{
		DataDir:            dataDir,
		BackupDir:          v.GetString(cfgKeyBackupDir),
		BackupKeep:         v.GetInt(cfgKeyBackupKeep),
		GitHubToken:        v.GetString(cfgKeyGitHubToken),
		StaleCacheFallback: v.GetBool(cfgKeyStaleFallback),
	}
	if ttl := v.GetString(cfgKeyCacheTTL); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return types.Config{}, fmt.Errorf("%w: %s: %v", types.ErrValidation, cfgKeyCacheTTL, err)
		}
		cfg.CacheTTL = d
	}
	if timeout := v.GetString(cfgKeyDiscoveryTimeout); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return types.Config{}, fmt.Errorf("%w: %s: %v", types.ErrValidation, cfgKeyDiscoveryTimeout, err)
		}
		cfg.DiscoveryTimeout = d
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
