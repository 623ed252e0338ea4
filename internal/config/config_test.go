package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
	assert.Equal(t, "8MiB", cfg.Transfers.ChunkSize)
	assert.Equal(t, TokenStoreFile, cfg.Tokens.Store)
	assert.Empty(t, cfg.Tokens.Path)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "30s", cfg.Network.Timeout)
	assert.Empty(t, cfg.Network.UserAgent)
}
