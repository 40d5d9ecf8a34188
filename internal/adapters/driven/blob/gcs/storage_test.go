package gcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

func TestParseObjectPath(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		bucket     string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs url", "gs://docs/rto/assessment.pdf", "", "docs", "rto/assessment.pdf", false},
		{"gs url overrides default", "gs://other/a.pdf", "docs", "other", "a.pdf", false},
		{"relative", "rto/assessment.pdf", "docs", "docs", "rto/assessment.pdf", false},
		{"leading slash", "/a.pdf", "docs", "docs", "a.pdf", false},
		{"no bucket", "a.pdf", "", "", "", true},
		{"no object", "gs://docs/", "", "", "", true},
		{"empty", "", "docs", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := ParseObjectPath(tt.path, tt.bucket)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestDownload_InvalidPath(t *testing.T) {
	s, err := New(context.Background(), Config{Options: []option.ClientOption{option.WithoutAuthentication()}})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Download(context.Background(), "no-bucket.pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
