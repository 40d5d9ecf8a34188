// Package furniture drops page furniture (running headers, footers and
// page numbers) from extracted paragraphs.
package furniture

import (
	"context"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// Processor removes paragraphs whose role marks them as page furniture.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a new furniture processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "furniture"
}

// Process returns the paragraphs without page headers and footers.
func (p *Processor) Process(_ context.Context, paragraphs []domain.ExtractedParagraph) ([]domain.ExtractedParagraph, error) {
	out := make([]domain.ExtractedParagraph, 0, len(paragraphs))
	for _, para := range paragraphs {
		switch domain.ChunkKindFromRole(para.Role) {
		case domain.ChunkKindPageHeader, domain.ChunkKindPageFooter:
			continue
		}
		out = append(out, para)
	}
	return out, nil
}
