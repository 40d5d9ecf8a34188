// Package postprocessors reshapes locally extracted paragraphs before caching.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/logger"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs processors in order, feeding each the previous output.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline returns a pipeline over processors.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Process runs paragraphs through every processor. Cancellation is checked
// between stages so a long document stops at the next boundary.
func (p *Pipeline) Process(ctx context.Context, paragraphs []domain.ExtractedParagraph) ([]domain.ExtractedParagraph, error) {
	for _, proc := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		before := len(paragraphs)
		out, err := proc.Process(ctx, paragraphs)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", proc.Name(), err)
		}
		logger.Debug("postprocessor %s: %d -> %d paragraphs", proc.Name(), before, len(out))
		paragraphs = out
	}
	return paragraphs, nil
}

// Add appends a processor.
func (p *Pipeline) Add(proc driven.PostProcessor) {
	p.processors = append(p.processors, proc)
}

// Len returns the number of processors.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}
