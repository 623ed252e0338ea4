package sharefile

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/sharefile-go/internal/fsmeta"
)

// FileInfo is the metadata sent when requesting an upload specification.
type FileInfo struct {
	Name     string
	Size     int64
	Created  time.Time
	Modified time.Time
}

// Interfaces an upload stream may implement to expose its backing
// resource's metadata.
type (
	statter interface {
		Stat() (os.FileInfo, error)
	}

	named interface {
		Name() string
	}

	// metadataSource is implemented by source.File.
	metadataSource interface {
		Size() int64
		ModTime() time.Time
	}

	createdSource interface {
		CreatedTime() time.Time
	}

	// vfsSource matches c2fo/vfs files.
	vfsSource interface {
		Size() (uint64, error)
		LastModified() (*time.Time, error)
	}

	sizer interface {
		Size() int64
	}

	lener interface {
		Len() int
	}
)

// describeSource reads what metadata r's backing resource offers. Unknown
// sizes are 0 and unknown timestamps are now.
func describeSource(r io.Reader, now time.Time) FileInfo {
	info := FileInfo{Created: now, Modified: now}

	if n, ok := r.(named); ok && n.Name() != "" {
		info.Name = filepath.Base(n.Name())
	}

	switch src := r.(type) {
	case statter:
		fi, err := src.Stat()
		if err != nil {
			break
		}

		info.Size = fi.Size()
		info.Modified = fi.ModTime()
		info.Created = fi.ModTime()

		if n, ok := r.(named); ok {
			if ct, ok := fsmeta.Created(n.Name()); ok {
				info.Created = ct
			}
		}

	case metadataSource:
		info.Size = src.Size()

		if mt := src.ModTime(); !mt.IsZero() {
			info.Modified = mt
			info.Created = mt
		}

		if cs, ok := r.(createdSource); ok && !cs.CreatedTime().IsZero() {
			info.Created = cs.CreatedTime()
		}

	case vfsSource:
		if size, err := src.Size(); err == nil {
			info.Size = int64(size) //nolint:gosec // file sizes fit in int64
		}

		if mt, err := src.LastModified(); err == nil && mt != nil {
			info.Modified = *mt
			info.Created = *mt
		}

	case sizer:
		info.Size = src.Size()

	case lener:
		info.Size = int64(src.Len())
	}

	return info
}

// resolveFilename picks the upload name: the explicit argument, else the
// backing resource's name, NFC-normalized.
func resolveFilename(explicit string, info FileInfo) (string, error) {
	name := explicit
	if name == "" {
		name = info.Name
	}

	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", ErrFilenameRequired
	}

	return norm.NFC.String(name), nil
}
