// Package tokenfile persists ShareFile access tokens as JSON files, one per
// token id, in a private directory. It implements sharefile.TokenStore.
package tokenfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tonimelisma/sharefile-go/internal/sharefile"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the tokens directory.
const DirPerms = 0o700

// File is the on-disk format of a token file.
type File struct {
	Token   *sharefile.AccessToken `json:"token"`
	SavedAt time.Time              `json:"saved_at,omitzero"`
}

// Store keeps one token file per id under Dir.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir. The directory is created on first
// write.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the file that holds id's token.
func (s *Store) Path(id string) string {
	return filepath.Join(s.Dir, fileName(id))
}

// LoadToken reads id's token. Returns sharefile.ErrTokenNotFound when no
// file exists.
func (s *Store) LoadToken(_ context.Context, id string) (*sharefile.AccessToken, error) {
	tok, err := Load(s.Path(id))
	if err != nil {
		return nil, err
	}

	if tok == nil {
		return nil, sharefile.ErrTokenNotFound
	}

	return tok, nil
}

// StoreToken writes tok as id's token, replacing any previous one.
func (s *Store) StoreToken(_ context.Context, tok *sharefile.AccessToken, id string) error {
	return Save(s.Path(id), tok)
}

// DeleteToken removes id's token. A missing file is not an error.
func (s *Store) DeleteToken(_ context.Context, id string) error {
	err := os.Remove(s.Path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenfile: removing token: %w", err)
	}

	return nil
}

// fileName maps a token id to a file name. The mapping is reversible:
// path separators and '%' are percent-escaped, so distinct ids never share
// a file. ':' is escaped too for filesystems that reject it.
func fileName(id string) string {
	return strings.ReplaceAll(url.PathEscape(id), ":", "%3A") + ".json"
}

// Load reads a token file. Returns (nil, nil) if the file does not exist.
func Load(path string) (*sharefile.AccessToken, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if tf.Token == nil {
		return nil, fmt.Errorf("tokenfile: %s missing token field (re-login required)", path)
	}

	return tf.Token, nil
}

// Save writes a token file atomically (write-to-temp + rename) with 0600
// permissions.
func Save(path string, tok *sharefile.AccessToken) error {
	if tok == nil {
		return errors.New("tokenfile: refusing to save nil token")
	}

	data, err := json.MarshalIndent(File{Token: tok, SavedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}
