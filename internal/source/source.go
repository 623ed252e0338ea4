// Package source opens upload sources: local paths or any URI the c2fo/vfs
// backends understand (file://, s3://, gs://, az://, sftp://, ftp://, mem://).
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c2fo/vfs/v7"
	"github.com/c2fo/vfs/v7/vfssimple"
	"github.com/mitchellh/go-homedir"

	"github.com/tonimelisma/sharefile-go/internal/fsmeta"
)

// ErrIsDirectory is returned when the source names a directory.
var ErrIsDirectory = errors.New("source: is a directory")

// File is an open upload source with the metadata the upload request
// needs.
type File struct {
	rc      io.ReadCloser
	uri     string
	name    string
	size    int64
	modTime time.Time
	created time.Time
}

// Read reads from the underlying file.
func (f *File) Read(p []byte) (int, error) {
	return f.rc.Read(p)
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.rc.Close()
}

// Name returns the base name.
func (f *File) Name() string { return f.name }

// Size returns the size in bytes, 0 when the backend cannot tell.
func (f *File) Size() int64 { return f.size }

// ModTime returns the last modification time, zero when unknown.
func (f *File) ModTime() time.Time { return f.modTime }

// CreatedTime returns the creation (or inode change) time, zero when
// unknown.
func (f *File) CreatedTime() time.Time { return f.created }

// URI returns the location the file was opened from.
func (f *File) URI() string { return f.uri }

// IsURI reports whether s carries a scheme and should be resolved through
// vfs instead of the local filesystem.
func IsURI(s string) bool {
	scheme, _, ok := strings.Cut(s, "://")

	return ok && scheme != "" && !strings.ContainsAny(scheme, `/\`)
}

// Open opens a local path or a vfs URI. A leading "~" is expanded to the
// home directory.
func Open(location string) (*File, error) {
	if IsURI(location) {
		return openVFS(location)
	}

	return openLocal(location)
}

func openLocal(path string) (*File, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("source: expanding %s: %w", path, err)
	}

	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("source: opening %s: %w", expanded, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("source: stat %s: %w", expanded, err)
	}

	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("source: %s: %w", expanded, ErrIsDirectory)
	}

	created := info.ModTime()
	if ct, ok := fsmeta.Created(expanded); ok {
		created = ct
	}

	return &File{
		rc:      f,
		uri:     expanded,
		name:    filepath.Base(expanded),
		size:    info.Size(),
		modTime: info.ModTime(),
		created: created,
	}, nil
}

func openVFS(uri string) (*File, error) {
	vf, err := vfssimple.NewFile(uri)
	if err != nil {
		return nil, fmt.Errorf("source: resolving %s: %w", uri, err)
	}

	return fromVFS(vf)
}

// fromVFS wraps an existing vfs file. Missing files are an error; size and
// time lookups that fail leave the field unknown.
func fromVFS(vf vfs.File) (*File, error) {
	exists, err := vf.Exists()
	if err != nil {
		return nil, fmt.Errorf("source: checking %s: %w", vf.URI(), err)
	}

	if !exists {
		return nil, fmt.Errorf("source: %s: %w", vf.URI(), os.ErrNotExist)
	}

	f := &File{
		rc:   vf,
		uri:  vf.URI(),
		name: vf.Name(),
	}

	if size, sizeErr := vf.Size(); sizeErr == nil {
		f.size = int64(size) //nolint:gosec // file sizes fit in int64
	}

	if mt, mtErr := vf.LastModified(); mtErr == nil && mt != nil {
		f.modTime = *mt
		f.created = *mt
	}

	return f, nil
}
