// Package config implements TOML configuration loading for sharefile-go.
// Settings resolve through four layers: built-in defaults, the config file,
// environment variables and command-line flags.
package config

import "time"

// Config is the top-level configuration parsed from a TOML file. Account
// settings live in [profile.<name>] tables; everything else is global.
type Config struct {
	Profiles  map[string]Profile `toml:"profile"`
	Transfers TransfersConfig    `toml:"transfers"`
	Tokens    TokensConfig       `toml:"tokens"`
	Logging   LoggingConfig      `toml:"logging"`
	Network   NetworkConfig      `toml:"network"`
}

// Profile is one ShareFile account: the OAuth2 client and the user signing
// in with it.
type Profile struct {
	Hostname     string `toml:"hostname"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Username     string `toml:"username"`
	APIHost      string `toml:"api_host"`
}

// TransfersConfig controls uploads.
type TransfersConfig struct {
	ChunkSize string `toml:"chunk_size"`
}

// TokensConfig selects where access tokens are kept between runs.
type TokensConfig struct {
	Store string `toml:"store"`
	Path  string `toml:"path"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// NetworkConfig controls the HTTP client.
type NetworkConfig struct {
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// CLIOverrides holds values from command-line flags. Empty strings mean
// "not specified" and leave the lower layers in effect.
type CLIOverrides struct {
	ConfigPath string
	Profile    string
	ChunkSize  string
	LogLevel   string
}

// ResolvedProfile is the final product of the override chain: one profile
// with every global section parsed into the types the CLI consumes.
type ResolvedProfile struct {
	Name         string
	Hostname     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	APIHost      string

	ChunkSize  int64
	TokenStore string
	TokenPath  string
	LogLevel   string
	Timeout    time.Duration
	UserAgent  string
}
