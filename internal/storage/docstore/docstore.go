// Package docstore persists generated documents and hands back retrievable
// URLs. The interface keeps remote object stores swappable; the kiosk ships
// a filesystem implementation served by the venue's static file host.
package docstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

// Store persists document bytes under a suggested name and returns the URL
// where the document can be retrieved.
type Store interface {
	Save(ctx context.Context, data []byte, name string) (string, error)
}

var _ Store = (*Filesystem)(nil)

// Filesystem stores documents in a local directory and derives URLs from a
// public base URL.
type Filesystem struct {
	dir     string
	baseURL string
}

// NewFilesystem creates a Filesystem store rooted at dir. baseURL is the
// public prefix under which dir is served.
func NewFilesystem(dir, baseURL string) *Filesystem {
	return &Filesystem{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Save writes the document, creating the directory on first use. Writing the
// same name twice overwrites in place, which keeps regeneration idempotent.
func (f *Filesystem) Save(_ context.Context, data []byte, name string) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create documents dir")
	}
	path := filepath.Join(f.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write document %s", name)
	}
	return f.baseURL + "/" + filepath.Base(name), nil
}
