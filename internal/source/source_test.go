package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestIsURI(t *testing.T) {
	assert.True(t, IsURI("s3://bucket/key.txt"))
	assert.True(t, IsURI("file:///tmp/a.txt"))
	assert.False(t, IsURI("/tmp/a.txt"))
	assert.False(t, IsURI("relative/dir://odd"))
	assert.False(t, IsURI("://nothing"))
}

func TestOpen_LocalPath(t *testing.T) {
	path := writeFile(t, "report.txt", "hello world")
	mtime := time.Unix(1_650_000_000, 0)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "report.txt", f.Name())
	assert.Equal(t, int64(11), f.Size())
	assert.True(t, f.ModTime().Equal(mtime))
	assert.False(t, f.CreatedTime().IsZero())
	assert.Equal(t, path, f.URI())

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_Directory(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrIsDirectory)
}

func TestOpen_HomeExpansion(t *testing.T) {
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "notes.md"), []byte("# hi"), 0o600))

	f, err := Open("~/notes.md")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "notes.md", f.Name())
	assert.Equal(t, filepath.Join(home, "notes.md"), f.URI())
}

func TestOpen_FileURI(t *testing.T) {
	path := writeFile(t, "data.csv", "a,b,c\n")

	f, err := Open("file://" + filepath.ToSlash(path))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "data.csv", f.Name())
	assert.Equal(t, int64(6), f.Size())
	assert.False(t, f.ModTime().IsZero())

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c\n", string(data))
}

func TestOpen_FileURIMissing(t *testing.T) {
	_, err := Open("file://" + filepath.ToSlash(filepath.Join(t.TempDir(), "nope.csv")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_UnknownScheme(t *testing.T) {
	_, err := Open("bogus://host/file.txt")
	assert.Error(t, err)
}
