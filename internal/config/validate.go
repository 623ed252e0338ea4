package config

import (
	"errors"
	"fmt"
	"time"
)

// Validation range constants.
const (
	minChunkBytes = 64 * kibibyte
	maxChunkBytes = 1 * gibibyte
	minTimeout    = 1 * time.Second
)

// validLogLevels are accepted by [logging] log_level.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// validTokenStores are accepted by [tokens] store.
var validTokenStores = map[string]bool{
	TokenStoreFile: true, TokenStoreSQLite: true, TokenStoreNone: true,
}

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateChunkSize(cfg.Transfers.ChunkSize)...)
	errs = append(errs, validateTokens(&cfg.Tokens)...)
	errs = append(errs, validateLogLevel(cfg.Logging.LogLevel)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

// ValidateResolved checks the profile after the override chain has been
// applied. Account fields may legitimately be missing from the file when
// they are supplied later, so they are checked here rather than in
// Validate.
func ValidateResolved(rp *ResolvedProfile) error {
	var errs []error

	if rp.Hostname == "" {
		errs = append(errs, fmt.Errorf("profile %q: hostname: must not be empty", rp.Name))
	}

	if rp.ClientID == "" {
		errs = append(errs, fmt.Errorf("profile %q: client_id: must not be empty", rp.Name))
	}

	if rp.Username == "" {
		errs = append(errs, fmt.Errorf("profile %q: username: must not be empty", rp.Name))
	}

	errs = append(errs, validateChunkBytes(rp.ChunkSize)...)
	errs = append(errs, validateLogLevel(rp.LogLevel)...)

	return errors.Join(errs...)
}

func validateChunkSize(s string) []error {
	n, err := ParseSize(s)
	if err != nil {
		return []error{fmt.Errorf("chunk_size: %w", err)}
	}

	return validateChunkBytes(n)
}

func validateChunkBytes(n int64) []error {
	if n < minChunkBytes || n > maxChunkBytes {
		return []error{fmt.Errorf("chunk_size: must be between 64KiB and 1GiB, got %d bytes", n)}
	}

	return nil
}

func validateTokens(t *TokensConfig) []error {
	if !validTokenStores[t.Store] {
		return []error{fmt.Errorf("store: must be one of file, sqlite, none; got %q", t.Store)}
	}

	return nil
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		return []error{fmt.Errorf("timeout: invalid duration %q: %w", n.Timeout, err)}
	}

	if d < minTimeout {
		return []error{fmt.Errorf("timeout: must be at least %s, got %s", minTimeout, d)}
	}

	return nil
}
