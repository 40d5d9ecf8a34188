// Package filesystem serves session documents from a local directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Ensure Storage implements the interface.
var _ driven.ObjectStorage = (*Storage)(nil)

// Storage reads documents below a root directory.
type Storage struct {
	root string
}

// New creates a filesystem ObjectStorage rooted at root.
func New(root string) (*Storage, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: filesystem storage root is required", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	return &Storage{root: abs}, nil
}

// Root returns the absolute storage root.
func (s *Storage) Root() string {
	return s.root
}

// Download reads a file relative to the root. file:// prefixes are accepted
// and paths escaping the root are rejected.
func (s *Storage) Download(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (s *Storage) resolve(path string) (string, error) {
	path = strings.TrimPrefix(path, "file://")
	if path == "" {
		return "", fmt.Errorf("%w: empty document path", domain.ErrInvalidInput)
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.root, full)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the storage root", domain.ErrInvalidInput, path)
	}
	return full, nil
}
