package driven

import (
	"context"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// ChunkStore persists extracted document content keyed by document URL.
// It is shared by every session referencing the same document.
type ChunkStore interface {
	// GetChunks returns stored chunks for a document URL in ordinal order.
	// An empty slice means the document has not been extracted yet.
	GetChunks(ctx context.Context, documentURL string) ([]domain.DocumentContentChunk, error)

	// UpsertChunks writes chunks idempotently on (document URL, ordinal).
	UpsertChunks(ctx context.Context, chunks []domain.DocumentContentChunk) error
}

// Extractor turns raw document bytes into text with paragraph structure.
type Extractor interface {
	// Extract returns the document text and, when available, its paragraphs.
	Extract(ctx context.Context, data []byte, filename, mimeType string) (*domain.ExtractionResult, error)
}

// ObjectStorage downloads uploaded documents.
type ObjectStorage interface {
	// Download returns the raw bytes stored at path.
	Download(ctx context.Context, path string) ([]byte, error)
}
