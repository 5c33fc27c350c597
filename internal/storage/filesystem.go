package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FilesystemStore stores blobs under a root directory and serves them from
// a base URL (the /uploads static route by default).
type FilesystemStore struct {
	root    string
	baseURL string
}

// NewFilesystemStore creates the root directory when needed.
func NewFilesystemStore(root, baseURL string) (*FilesystemStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root %s: %w", root, err)
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &FilesystemStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Root returns the directory objects are written under.
func (s *FilesystemStore) Root() string { return s.root }

// BaseURL returns the URL prefix stored objects are served from.
func (s *FilesystemStore) BaseURL() string { return s.baseURL }

// Put writes the object to disk via a temp file rename so readers never see
// partial writes.
func (s *FilesystemStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cleanKey, err := s.cleanKey(key)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.root, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir for %s: %w", cleanKey, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("storage: write %s: %w", cleanKey, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", cleanKey, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("storage: finalise %s: %w", cleanKey, err)
	}

	return s.baseURL + "/" + cleanKey, nil
}

// Delete removes the object; a missing object is ignored.
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cleanKey, err := s.cleanKey(key)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(cleanKey)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", cleanKey, err)
	}
	return nil
}

// Open returns a reader over the stored object.
func (s *FilesystemStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleanKey, err := s.cleanKey(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(cleanKey)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", cleanKey, err)
	}
	return f, nil
}

// cleanKey normalises the key and refuses escapes outside the root.
func (s *FilesystemStore) cleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return cleaned, nil
}
