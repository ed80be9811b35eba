package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements Store on the local filesystem. Each logical bucket is
// a directory under the root.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

// Compile-time interface check.
var _ Store = (*FSStore)(nil)

// Put writes data at path within bucket, overwriting any existing object.
func (s *FSStore) Put(_ context.Context, bucket, path string, data []byte, _ string) error {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

// Get retrieves the object bytes.
func (s *FSStore) Get(_ context.Context, bucket, path string) ([]byte, error) {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (s *FSStore) Delete(_ context.Context, bucket, path string) error {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// resolve joins bucket and path under the root and rejects traversal.
func (s *FSStore) resolve(bucket, path string) (string, error) {
	if bucket == "" || path == "" {
		return "", fmt.Errorf("bucket and path are required")
	}
	clean := filepath.Clean(filepath.Join(bucket, filepath.FromSlash(path)))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}
