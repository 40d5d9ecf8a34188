package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

func setupStorage(t *testing.T) *Storage {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "uploads", "a.txt"), []byte("hello"), 0o600))

	s, err := New(root)
	require.NoError(t, err)
	return s
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDownload(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"relative", "uploads/a.txt", "hello", nil},
		{"file url", "file://uploads/a.txt", "hello", nil},
		{"absolute inside root", filepath.Join(s.Root(), "uploads", "a.txt"), "hello", nil},
		{"missing", "uploads/b.txt", "", domain.ErrNotFound},
		{"escape", "../etc/passwd", "", domain.ErrInvalidInput},
		{"absolute outside root", "/etc/passwd", "", domain.ErrInvalidInput},
		{"empty", "", "", domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := s.Download(ctx, tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestDownload_CancelledContext(t *testing.T) {
	s := setupStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Download(ctx, "uploads/a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}
