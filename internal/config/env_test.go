package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/tmp/custom.toml")
	t.Setenv(EnvProfile, "work")
	t.Setenv(EnvPassword, "pw")
	t.Setenv(EnvClientSecret, "secret")

	assert.Equal(t, EnvOverrides{
		ConfigPath:   "/tmp/custom.toml",
		Profile:      "work",
		Password:     "pw",
		ClientSecret: "secret",
	}, ReadEnvOverrides())
}

func TestReadEnvOverrides_Empty(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvProfile, "")
	t.Setenv(EnvPassword, "")
	t.Setenv(EnvClientSecret, "")

	assert.Equal(t, EnvOverrides{}, ReadEnvOverrides())
}
