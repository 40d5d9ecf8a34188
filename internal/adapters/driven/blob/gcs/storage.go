// Package gcs downloads session documents from Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Ensure Storage implements the interface.
var _ driven.ObjectStorage = (*Storage)(nil)

// Config holds GCS configuration.
type Config struct {
	// Bucket is used for paths that do not carry a gs:// bucket.
	Bucket string

	// CredentialsFile is an optional service account key. Application
	// default credentials are used when empty.
	CredentialsFile string

	// Options are passed through to the storage client.
	Options []option.ClientOption
}

// Storage reads objects from a bucket.
type Storage struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed ObjectStorage.
func New(ctx context.Context, cfg Config) (*Storage, error) {
	opts := cfg.Options
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: creating storage client: %w", err)
	}

	return &Storage{client: client, bucket: cfg.Bucket}, nil
}

// Download returns the object's bytes. path is either gs://bucket/object
// or an object name within the configured bucket.
func (s *Storage) Download(ctx context.Context, path string) ([]byte, error) {
	bucket, object, err := ParseObjectPath(path, s.bucket)
	if err != nil {
		return nil, err
	}

	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, object, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs: opening gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gcs: reading gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// Close releases the storage client.
func (s *Storage) Close() error {
	return s.client.Close()
}

// ParseObjectPath splits a download path into bucket and object name.
func ParseObjectPath(path, defaultBucket string) (bucket, object string, err error) {
	if rest, ok := strings.CutPrefix(path, "gs://"); ok {
		bucket, object, _ = strings.Cut(rest, "/")
	} else {
		bucket, object = defaultBucket, strings.TrimPrefix(path, "/")
	}

	if bucket == "" {
		return "", "", fmt.Errorf("%w: no bucket for %q", domain.ErrInvalidInput, path)
	}
	if object == "" {
		return "", "", fmt.Errorf("%w: no object name in %q", domain.ErrInvalidInput, path)
	}
	return bucket, object, nil
}
