package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store is the blob port results and downloads are written through.
type Store interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

var (
	// ErrNotFound is returned by Read for missing keys.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidKey rejects empty keys and keys escaping the root.
	ErrInvalidKey = errors.New("storage: invalid key")

	errNoStore = errors.New("storage: no store configured")
)

// FileStore keeps blobs under a directory on local disk. The API serves the
// same directory under /static, so keys double as URL paths.
type FileStore struct {
	root string
}

// NewFileStore creates root when missing.
func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// BasePath returns the root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Write stores data under key and returns the normalized key. The blob is
// written to a temporary sibling first so readers never observe a partial file.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	target, clean, err := s.resolve(ctx, key)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create %s: %w", path.Dir(clean), err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: stage %s: %w", clean, err)
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: write %s: %w", clean, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: chmod %s: %w", clean, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: commit %s: %w", clean, err)
	}
	return clean, nil
}

// Read returns the blob stored under key, or ErrNotFound.
func (s *FileStore) Read(ctx context.Context, key string) ([]byte, error) {
	target, clean, err := s.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	case err != nil:
		return nil, fmt.Errorf("storage: read %s: %w", clean, err)
	}
	return data, nil
}

func (s *FileStore) resolve(ctx context.Context, key string) (string, string, error) {
	if s == nil {
		return "", "", errNoStore
	}
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), clean, nil
}

// PublicURL joins the public base URL with a storage key.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(key, "/")
}

// KeyFromURL maps a URL under baseURL back to its key. Foreign URLs and
// URLs that would escape the root report false.
func KeyFromURL(baseURL, rawURL string) (string, bool) {
	if baseURL == "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(rawURL, strings.TrimRight(baseURL, "/")+"/")
	if !ok {
		return "", false
	}
	key, err := cleanKey(rest)
	return key, err == nil
}

// cleanKey converts key to a slash separated path relative to the root.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), `\`, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	clean := path.Clean(strings.TrimLeft(key, "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
