package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "typo in section key",
			content: "[network]\ntimout = \"10s\"\n",
			want:    []string{`unknown config key "network.timout"`, `did you mean "network.timeout"`},
		},
		{
			name:    "typo in profile key",
			content: "[profile.default]\nhostnme = \"a.sharefile.com\"\n",
			want:    []string{`unknown key "hostnme" in profile "default"`, `did you mean "hostname"`},
		},
		{
			name:    "misspelled section",
			content: "[loging]\nlog_level = \"info\"\n",
			want:    []string{`unknown config section "loging"`, `did you mean "logging"`},
		},
		{
			name:    "bare key outside its table",
			content: "log_level = \"debug\"\n",
			want:    []string{`unknown config key "log_level"`, `did you mean "logging.log_level"`},
		},
		{
			name:    "no close match",
			content: "[tokens]\nencryption_passphrase = \"x\"\n",
			want:    []string{`unknown config key "tokens.encryption_passphrase"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTestConfig(t, tt.content))
			require.Error(t, err)

			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestUnknownKeys_SectionReportedOnce(t *testing.T) {
	_, err := Load(writeTestConfig(t, "[transfer]\nchunk_size = \"1MiB\"\nextra = 1\n"))
	require.Error(t, err)
	assert.Equal(t, `unknown config section "transfer"; did you mean "transfers"?`, err.Error())
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "client_id", closestMatch("clientid", knownProfileKeys))
	assert.Equal(t, "", closestMatch("completely_different", knownProfileKeys))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("store", "store"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("abc", ""))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
