package driven

import (
	"context"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// Local extraction runs when no extraction service is configured. A
// NormaliserRegistry picks a Normaliser for the document, and a
// PostProcessorPipeline reshapes the paragraphs it produced.

// Normaliser extracts paragraphs from one family of document formats.
type Normaliser interface {
	SupportedMIMETypes() []string

	// SupportedExtensions are lower-case with a leading dot. They are
	// consulted when a document has no usable MIME type.
	SupportedExtensions() []string

	// Priority breaks ties between normalisers claiming the same type.
	// Format-specific normalisers use 50-89 and fallbacks 1-9.
	Priority() int

	Normalise(ctx context.Context, data []byte, filename string) (*domain.ExtractionResult, error)
}

// NormaliserRegistry dispatches on MIME type first, then file extension.
type NormaliserRegistry interface {
	Register(n Normaliser)
	Normalise(ctx context.Context, data []byte, filename, mimeType string) (*domain.ExtractionResult, error)
	SupportedMIMETypes() []string
}

// PostProcessor is one named step of paragraph reshaping, such as dropping
// page furniture or splitting long paragraphs.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, paragraphs []domain.ExtractedParagraph) ([]domain.ExtractedParagraph, error)
}

// PostProcessorPipeline applies PostProcessors in order.
type PostProcessorPipeline interface {
	Process(ctx context.Context, paragraphs []domain.ExtractedParagraph) ([]domain.ExtractedParagraph, error)
}
