package config

// Default values for configuration options.
const (
	defaultChunkSize  = "8MiB"
	defaultTokenStore = TokenStoreFile
	defaultLogLevel   = "info"
	defaultTimeout    = "30s"
)

// Token store backends.
const (
	TokenStoreFile   = "file"
	TokenStoreSQLite = "sqlite"
	TokenStoreNone   = "none"
)

// DefaultConfig returns a Config populated with all default values. Used as
// the base layer before the config file is decoded on top of it.
func DefaultConfig() *Config {
	return &Config{
		Profiles: make(map[string]Profile),
		Transfers: TransfersConfig{
			ChunkSize: defaultChunkSize,
		},
		Tokens: TokensConfig{
			Store: defaultTokenStore,
		},
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
		Network: NetworkConfig{
			Timeout: defaultTimeout,
		},
	}
}
