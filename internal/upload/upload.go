// Package upload stores product images and hands back the reference kept in Product.ImageURL.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/google/uuid"
)

// PublicPrefix is the URL path the server mounts the upload directory under.
const PublicPrefix = "uploads"

// ErrUnsupportedType is returned for files whose extension is not an image type we serve.
var ErrUnsupportedType = apperr.Validation("image", "image must be a jpg, png, gif or webp file")

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// File is an incoming upload.
type File struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Store persists uploaded files. Save returns a reference that Remove accepts.
type Store interface {
	Save(ctx context.Context, f *File) (string, error)
	Remove(ctx context.Context, ref string) error
}

// storedName generates a safe unique filename (uuid + extension).
func storedName(original string) (string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	if !allowedExt[ext] {
		return "", ErrUnsupportedType
	}
	return uuid.New().String() + ext, nil
}

// DiskStore writes files into a local directory served at /uploads.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the upload directory if it doesn't exist.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the directory files are written to.
func (s *DiskStore) Dir() string { return s.dir }

// Save writes the file and returns "uploads/<name>".
func (s *DiskStore) Save(ctx context.Context, f *File) (string, error) {
	if f == nil || f.Content == nil {
		return "", apperr.Validation("image", "image is required")
	}
	name, err := storedName(f.Filename)
	if err != nil {
		return "", err
	}

	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, f.Content); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path.Join(PublicPrefix, name), nil
}

// Remove deletes the file behind ref. A file that is already gone is not an error.
func (s *DiskStore) Remove(ctx context.Context, ref string) error {
	name, err := nameFromRef(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// nameFromRef strips the public prefix and refuses anything that would escape the directory.
func nameFromRef(ref string) (string, error) {
	name := strings.TrimPrefix(strings.TrimPrefix(ref, "/"), PublicPrefix+"/")
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid upload reference %q", ref)
	}
	return name, nil
}

// MemoryStore keeps uploads in a map. Used by tests and the in-memory dev mode.
type MemoryStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

// Save reads the file into memory.
func (s *MemoryStore) Save(ctx context.Context, f *File) (string, error) {
	if f == nil || f.Content == nil {
		return "", apperr.Validation("image", "image is required")
	}
	name, err := storedName(f.Filename)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(f.Content)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ref := path.Join(PublicPrefix, name)
	s.files[ref] = data
	return ref, nil
}

// Remove forgets ref.
func (s *MemoryStore) Remove(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, ref)
	return nil
}

// Has reports whether ref is stored.
func (s *MemoryStore) Has(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[ref]
	return ok
}

// Len returns the number of stored files.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
