package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "SHAREFILE_GO_CONFIG"
	EnvProfile      = "SHAREFILE_GO_PROFILE"
	EnvPassword     = "SHAREFILE_PASSWORD"
	EnvClientSecret = "SHAREFILE_CLIENT_SECRET"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string // SHAREFILE_GO_CONFIG: override config file path
	Profile      string // SHAREFILE_GO_PROFILE: active profile name
	Password     string // SHAREFILE_PASSWORD: password for the password grant
	ClientSecret string // SHAREFILE_CLIENT_SECRET: overrides client_secret
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		Profile:      os.Getenv(EnvProfile),
		Password:     os.Getenv(EnvPassword),
		ClientSecret: os.Getenv(EnvClientSecret),
	}
}
