package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/logger"
	"github.com/custodia-labs/compliance-engine/internal/observability"
)

// DefaultWriteBackTimeout bounds one asynchronous chunk write.
const DefaultWriteBackTimeout = 30 * time.Second

// DocumentContentCache returns extracted document content, extracting and
// storing it on first use. Entries are keyed by document URL and shared
// across sessions.
type DocumentContentCache struct {
	chunks       driven.ChunkStore
	storage      driven.ObjectStorage
	extractor    driven.Extractor
	metrics      *observability.Metrics
	writeTimeout time.Duration

	pending sync.WaitGroup
}

// CacheOption configures a DocumentContentCache.
type CacheOption func(*DocumentContentCache)

// WithCacheMetrics records hits and misses.
func WithCacheMetrics(m *observability.Metrics) CacheOption {
	return func(c *DocumentContentCache) {
		c.metrics = m
	}
}

// WithWriteBackTimeout sets the timeout for asynchronous writes.
func WithWriteBackTimeout(d time.Duration) CacheOption {
	return func(c *DocumentContentCache) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// NewDocumentContentCache creates a cache over a chunk store, object storage
// and extractor.
func NewDocumentContentCache(
	chunks driven.ChunkStore,
	storage driven.ObjectStorage,
	extractor driven.Extractor,
	opts ...CacheOption,
) *DocumentContentCache {
	c := &DocumentContentCache{
		chunks:       chunks,
		storage:      storage,
		extractor:    extractor,
		writeTimeout: DefaultWriteBackTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observability.Discard()
	}
	return c
}

// GetOrExtract returns the chunks for doc. On a miss the document is
// downloaded and extracted, the chunks are returned immediately, and the
// write to the chunk store happens in the background.
func (c *DocumentContentCache) GetOrExtract(ctx context.Context, doc domain.SessionDocument) ([]domain.DocumentContentChunk, error) {
	key := doc.CacheKey()
	if key == "" {
		return nil, fmt.Errorf("%w: document %q has no storage path", domain.ErrInvalidInput, doc.Filename)
	}

	stored, err := c.chunks.GetChunks(ctx, key)
	if err != nil {
		logger.Warn("content cache lookup for %s failed, extracting: %v", key, err)
	}
	if len(stored) > 0 {
		c.metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		logger.Debug("content cache hit for %s (%d chunks)", key, len(stored))
		return stored, nil
	}
	c.metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	data, err := c.storage.Download(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %w", domain.ErrExtractionFailed, doc.Filename, err)
	}

	result, err := c.extractor.Extract(ctx, data, doc.Filename, doc.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s: %w", domain.ErrExtractionFailed, doc.Filename, err)
	}

	chunks := BuildContentChunks(doc, result)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s has no text content", domain.ErrExtractionFailed, doc.Filename)
	}
	logger.Debug("extracted %d chunks from %s", len(chunks), doc.Filename)

	c.writeBack(ctx, key, chunks)
	return chunks, nil
}

// Wait blocks until all background writes have finished.
func (c *DocumentContentCache) Wait() {
	c.pending.Wait()
}

func (c *DocumentContentCache) writeBack(ctx context.Context, key string, chunks []domain.DocumentContentChunk) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.writeTimeout)
		defer cancel()
		if err := c.chunks.UpsertChunks(writeCtx, chunks); err != nil {
			logger.Warn("content cache write for %s failed: %v", key, err)
		}
	}()
}

// BuildContentChunks converts an extraction result into ordered chunks.
// Paragraph structure is kept when present; otherwise the whole text becomes
// one document chunk.
func BuildContentChunks(doc domain.SessionDocument, result *domain.ExtractionResult) []domain.DocumentContentChunk {
	if result == nil {
		return nil
	}
	key := doc.CacheKey()

	var chunks []domain.DocumentContentChunk
	for _, p := range result.Paragraphs {
		text := strings.TrimSpace(p.Content)
		if text == "" {
			continue
		}
		chunks = append(chunks, domain.DocumentContentChunk{
			ID:          uuid.New().String(),
			DocumentURL: key,
			Filename:    doc.Filename,
			PageNumber:  p.PageNumber,
			Ordinal:     len(chunks),
			Text:        text,
			Kind:        domain.ChunkKindFromRole(p.Role),
		})
	}
	if len(chunks) > 0 {
		return chunks
	}

	text := strings.TrimSpace(result.Content)
	if text == "" {
		return nil
	}
	return []domain.DocumentContentChunk{{
		ID:          uuid.New().String(),
		DocumentURL: key,
		Filename:    doc.Filename,
		Ordinal:     0,
		Text:        text,
		Kind:        domain.ChunkKindDocument,
	}}
}
