package tokenfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/sharefile-go/internal/sharefile"
)

func testToken() *sharefile.AccessToken {
	return &sharefile.AccessToken{
		AccessToken:     "access-123",
		RefreshToken:    "refresh-456",
		TokenType:       "bearer",
		Expiry:          time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
		Subdomain:       "acme",
		APIControlPlane: "sf-api.com",
		AppControlPlane: "sharefile.com",
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	tok, err := Load("/nonexistent/path/token.json")
	assert.Nil(t, tok)
	assert.NoError(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	original := testToken()

	require.NoError(t, Save(path, original))

	tok, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.AccessToken)
	assert.Equal(t, "refresh-456", tok.RefreshToken)
	assert.Equal(t, "acme", tok.Subdomain)
	assert.Equal(t, "sharefile.com", tok.AppControlPlane)
	assert.True(t, tok.Expiry.Equal(original.Expiry))
}

func TestLoad_MissingTokenField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"bare"}`), 0o600))

	tok, err := Load(path)
	assert.Nil(t, tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token field")
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokenfile: decoding")
}

func TestSave_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "token.json")

	require.NoError(t, Save(path, testToken()))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSave_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	require.NoError(t, Save(path, testToken()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestSave_NilToken(t *testing.T) {
	assert.Error(t, Save(filepath.Join(t.TempDir(), "token.json"), nil))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Save(filepath.Join(dir, "token.json"), testToken()))
	require.NoError(t, Save(filepath.Join(dir, "token.json"), testToken()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "token.json", entries[0].Name())
}

func TestStore_ImplementsTokenStore(t *testing.T) {
	var _ sharefile.TokenStore = New(t.TempDir())
}

func TestStore_LoadMissing(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.LoadToken(context.Background(), "sf-nobody")
	assert.ErrorIs(t, err, sharefile.ErrTokenNotFound)
}

func TestStore_StoreLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "tokens"))
	id := sharefile.TokenID("user@acme.com")

	require.NoError(t, s.StoreToken(ctx, testToken(), id))
	assert.FileExists(t, filepath.Join(s.Dir, "sf-user@acme.com.json"))

	tok, err := s.LoadToken(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.AccessToken)

	require.NoError(t, s.DeleteToken(ctx, id))
	_, err = s.LoadToken(ctx, id)
	assert.ErrorIs(t, err, sharefile.ErrTokenNotFound)

	// Deleting twice is fine.
	require.NoError(t, s.DeleteToken(ctx, id))
}

func TestFileName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"sf-user@acme.com", "sf-user@acme.com.json"},
		{"sf-a/b\\c", "sf-a%2Fb%5Cc.json"},
		{"..", "...json"},
		{"../escape", "..%2Fescape.json"},
		{"sf-c:d", "sf-c%3Ad.json"},
		{"sf-50%", "sf-50%25.json"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, fileName(tt.id))
			assert.Equal(t, tt.want, filepath.Base(tt.want), "stays inside the token directory")
		})
	}
}

func TestStore_DistinctIDsDoNotCollide(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	slashTok := testToken()
	slashTok.AccessToken = "slash"
	underscoreTok := testToken()
	underscoreTok.AccessToken = "underscore"

	require.NoError(t, s.StoreToken(ctx, slashTok, "sf-a/b"))
	require.NoError(t, s.StoreToken(ctx, underscoreTok, "sf-a_b"))

	tok, err := s.LoadToken(ctx, "sf-a/b")
	require.NoError(t, err)
	assert.Equal(t, "slash", tok.AccessToken)

	tok, err = s.LoadToken(ctx, "sf-a_b")
	require.NoError(t, err)
	assert.Equal(t, "underscore", tok.AccessToken)
}
