// Package blobstore stores named binary objects, currently user avatars.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrTooLarge signals the object exceeds MaxObjectSize.
	ErrTooLarge = errors.New("object too large")
	// ErrUnsupportedType signals a content type outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported content type")
)

// MaxObjectSize caps uploads at 2 MiB, enforced before anything is written.
const MaxObjectSize = 2 << 20

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Store is the object-storage surface the application consumes.
type Store interface {
	// Put validates and stores an object, returning its name and public URL.
	Put(contentType string, r io.Reader) (name, url string, err error)
	// Delete removes an object; absent names are a no-op.
	Delete(name string) error
	// URL returns the public URL for a stored object name.
	URL(name string) string
}

// DiskStore keeps objects as files under a single directory, named by uuid.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates the backing directory if needed.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStore) Put(contentType string, r io.Reader) (string, string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	name := uuid.New().String() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("create blob: %w", err)
	}

	// One byte past the cap distinguishes "exactly at the limit" from over it.
	n, err := io.Copy(f, io.LimitReader(r, MaxObjectSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", "", fmt.Errorf("write blob: %w", err)
	}
	if n > MaxObjectSize {
		_ = os.Remove(path)
		return "", "", ErrTooLarge
	}

	return name, s.URL(name), nil
}

func (s *DiskStore) Delete(name string) error {
	if name == "" {
		return nil
	}
	// Reject anything that could escape the blob directory.
	if filepath.Base(name) != name {
		return fmt.Errorf("invalid object name %q", name)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *DiskStore) URL(name string) string {
	return s.baseURL + "/" + name
}

// Dir exposes the backing directory so the HTTP layer can serve it.
func (s *DiskStore) Dir() string {
	return s.dir
}
