package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStore keeps blobs in a local directory. The HTTP layer serves the
// directory statically under PublicPrefix.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the directory blobs are stored in.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save stores src under name inside the store directory. Only the last path
// element of name is used, so a name carrying separators cannot escape the
// directory.
func (s *DiskStore) Save(ctx context.Context, name string, src io.Reader) (string, error) {
	name = filepath.Base(name)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("writing file: %w", err)
	}
	return PublicPath(name), nil
}

func (s *DiskStore) Remove(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}
