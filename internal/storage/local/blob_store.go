// Package local archives article pages on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	BaseDir string
}

// BlobStore writes archived pages below a base directory. All file access
// goes through an os.Root, so object paths cannot escape it.
type BlobStore struct {
	root *os.Root
	dir  string
}

// New opens BaseDir, creating it when missing.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, errors.New("local: base directory is required")
	}
	dir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("local: resolve %s: %w", cfg.BaseDir, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("local: create %s: %w", dir, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("local: open %s: %w", dir, err)
	}
	return &BlobStore{root: root, dir: dir}, nil
}

// Close releases the directory handle.
func (s *BlobStore) Close() error {
	return s.root.Close()
}

// PutObject writes r to path and returns a file:// URI. The object appears
// atomically: data goes to a .part file that is renamed once complete.
func (s *BlobStore) PutObject(ctx context.Context, path string, _ string, r io.Reader) (string, error) {
	name := filepath.FromSlash(strings.TrimLeft(strings.TrimSpace(path), "/"))
	if name == "" {
		return "", errors.New("local: object path is required")
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("local: put %s: %w", name, err)
	}
	if dir := filepath.Dir(name); dir != "." {
		if err := s.root.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("local: create %s: %w", dir, err)
		}
	}

	part := name + ".part"
	f, err := s.root.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("local: open %s: %w", part, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.root.Remove(part)
		return "", fmt.Errorf("local: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = s.root.Remove(part)
		return "", fmt.Errorf("local: close %s: %w", name, err)
	}
	if err := s.root.Rename(part, name); err != nil {
		return "", fmt.Errorf("local: rename %s: %w", name, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.dir, name))}
	return u.String(), nil
}
