// Package local extracts documents in-process using the normaliser registry
// followed by the post-processor pipeline.
package local

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/logger"
	"github.com/custodia-labs/compliance-engine/internal/normalisers"
	"github.com/custodia-labs/compliance-engine/internal/postprocessors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor runs a document through a normaliser and then the post-processors.
type Extractor struct {
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
}

// New creates an extractor. A nil pipeline leaves paragraphs untouched.
func New(registry driven.NormaliserRegistry, pipeline driven.PostProcessorPipeline) *Extractor {
	return &Extractor{registry: registry, pipeline: pipeline}
}

// NewDefault creates an extractor with the built-in normalisers and processors.
func NewDefault() *Extractor {
	return New(normalisers.NewDefaultRegistry(), postprocessors.NewDefaultPipeline())
}

// Extract normalises the document and post-processes its paragraphs.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename, mimeType string) (*domain.ExtractionResult, error) {
	result, err := e.registry.Normalise(ctx, data, filename, mimeType)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: %s produced no result", domain.ErrExtractionFailed, filename)
	}

	if e.pipeline != nil && len(result.Paragraphs) > 0 {
		paragraphs, err := e.pipeline.Process(ctx, result.Paragraphs)
		if err != nil {
			return nil, fmt.Errorf("post-processing %s: %w", filename, err)
		}
		result.Paragraphs = paragraphs
	}

	if strings.TrimSpace(result.Content) == "" && len(result.Paragraphs) == 0 {
		return nil, fmt.Errorf("%w: %s has no text content", domain.ErrExtractionFailed, filename)
	}

	logger.Debug("local extraction of %s produced %d paragraphs", filename, len(result.Paragraphs))
	return result, nil
}
