// Package chunker splits oversized paragraphs so that no single prompt
// section exceeds a character budget.
package chunker

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Split points, coarsest first.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Config sets the chunk budget in characters.
type Config struct {
	Size    int
	Overlap int
}

// DefaultConfig returns the default budget.
func DefaultConfig() Config {
	return Config{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

// Validate checks that Size is positive and Overlap fits inside it.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("overlap must be in [0, %d), got %d", c.Size, c.Overlap)
	}
	return nil
}

// Processor splits paragraphs longer than the chunk size. Each piece keeps
// the page number and role of its paragraph.
type Processor struct {
	cfg      Config
	splitter textsplitter.TextSplitter
}

// New returns a chunker for cfg.
func New(cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Processor{
		cfg: cfg,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.Size),
			textsplitter.WithChunkOverlap(cfg.Overlap),
			textsplitter.WithSeparators(separators),
		),
	}, nil
}

// Name returns "chunker".
func (p *Processor) Name() string {
	return "chunker"
}

// Config returns the budget the processor was built with.
func (p *Processor) Config() Config {
	return p.cfg
}

// Process implements driven.PostProcessor.
func (p *Processor) Process(ctx context.Context, paragraphs []domain.ExtractedParagraph) ([]domain.ExtractedParagraph, error) {
	out := make([]domain.ExtractedParagraph, 0, len(paragraphs))
	for _, para := range paragraphs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if utf8.RuneCountInString(para.Content) <= p.cfg.Size {
			out = append(out, para)
			continue
		}

		pieces, err := p.splitter.SplitText(para.Content)
		if err != nil {
			return nil, fmt.Errorf("splitting paragraph on page %d: %w", para.PageNumber, err)
		}
		for _, piece := range pieces {
			if piece != "" {
				out = append(out, domain.ExtractedParagraph{Content: piece, PageNumber: para.PageNumber, Role: para.Role})
			}
		}
	}
	return out, nil
}
