package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
)

// Default profile name when --profile is omitted.
const defaultProfileName = "default"

// Token store locations relative to the data directory.
const (
	tokenDirName = "tokens"
	tokenDBName  = "tokens.db"
)

// ErrNoProfiles is returned when a profile is requested from a config that
// defines none.
var ErrNoProfiles = errors.New("no profiles defined in config")

// ResolveProfile selects a profile and parses the global sections into a
// ResolvedProfile. If profileName is empty, the default profile is
// selected.
func ResolveProfile(cfg *Config, profileName string) (*ResolvedProfile, error) {
	name, err := resolveProfileName(cfg, profileName)
	if err != nil {
		return nil, err
	}

	profile := cfg.Profiles[name]

	resolved := &ResolvedProfile{
		Name:         name,
		Hostname:     profile.Hostname,
		ClientID:     profile.ClientID,
		ClientSecret: profile.ClientSecret,
		Username:     profile.Username,
		APIHost:      profile.APIHost,
		TokenStore:   cfg.Tokens.Store,
		LogLevel:     cfg.Logging.LogLevel,
		UserAgent:    cfg.Network.UserAgent,
	}

	if resolved.ChunkSize, err = ParseSize(cfg.Transfers.ChunkSize); err != nil {
		return nil, fmt.Errorf("chunk_size: %w", err)
	}

	if resolved.Timeout, err = time.ParseDuration(cfg.Network.Timeout); err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}

	resolved.TokenPath, err = resolveTokenPath(cfg.Tokens)
	if err != nil {
		return nil, err
	}

	return resolved, nil
}

// resolveTokenPath expands the configured token location or picks the
// default for the store type.
func resolveTokenPath(t TokensConfig) (string, error) {
	if t.Path != "" {
		expanded, err := homedir.Expand(t.Path)
		if err != nil {
			return "", fmt.Errorf("tokens.path: %w", err)
		}

		return expanded, nil
	}

	switch t.Store {
	case TokenStoreFile:
		return DefaultTokenDir(), nil
	case TokenStoreSQLite:
		return DefaultTokenDBPath(), nil
	default:
		return "", nil
	}
}

// resolveProfileName determines which profile to use.
func resolveProfileName(cfg *Config, profileName string) (string, error) {
	if len(cfg.Profiles) == 0 {
		return "", ErrNoProfiles
	}

	if profileName != "" {
		return lookupExplicitProfile(cfg, profileName)
	}

	return lookupDefaultProfile(cfg)
}

// lookupExplicitProfile validates that the named profile exists.
func lookupExplicitProfile(cfg *Config, name string) (string, error) {
	if _, ok := cfg.Profiles[name]; !ok {
		return "", fmt.Errorf("profile %q not found in config", name)
	}

	return name, nil
}

// lookupDefaultProfile finds the default profile when no name is given.
func lookupDefaultProfile(cfg *Config) (string, error) {
	if _, ok := cfg.Profiles[defaultProfileName]; ok {
		return defaultProfileName, nil
	}

	if len(cfg.Profiles) == 1 {
		for name := range cfg.Profiles {
			return name, nil
		}
	}

	return "", fmt.Errorf(
		"multiple profiles defined but none named %q; use --profile to select one",
		defaultProfileName)
}

// DefaultTokenDir returns the directory the file token store writes to.
// Format: {dataDir}/tokens
func DefaultTokenDir() string {
	dataDir := DefaultDataDir()
	if dataDir == "" {
		return ""
	}

	return filepath.Join(dataDir, tokenDirName)
}

// DefaultTokenDBPath returns the SQLite token database path.
// Format: {dataDir}/tokens.db
func DefaultTokenDBPath() string {
	dataDir := DefaultDataDir()
	if dataDir == "" {
		return ""
	}

	return filepath.Join(dataDir, tokenDBName)
}
