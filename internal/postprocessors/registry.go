package postprocessors

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/config"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/postprocessors/chunker"
	"github.com/custodia-labs/compliance-engine/internal/postprocessors/furniture"
)

// DefaultProcessors is the processor order used after local extraction.
var DefaultProcessors = []string{"furniture", "chunker"}

// BuilderFunc constructs a processor from its [pipeline.processor_configs]
// table. cfg may be nil.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps processor names used in settings to their builders. It is
// filled once at startup and read-only afterwards.
type Registry map[string]BuilderFunc

// NewRegistry returns a registry holding the built-in processors.
func NewRegistry() Registry {
	return Registry{
		"chunker": buildChunker,
		"furniture": func(map[string]any) (driven.PostProcessor, error) {
			return furniture.New(), nil
		},
	}
}

// Build constructs the processor registered under name.
func (r Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %q (available: %s)",
			domain.ErrInvalidInput, name, strings.Join(r.Names(), ", "))
	}
	proc, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("configuring processor %q: %w", name, err)
	}
	return proc, nil
}

// Names returns the registered names in sorted order.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// Pipeline builds the named processors in order, passing each its entry
// from cfg.
func (r Registry) Pipeline(names []string, cfg map[string]map[string]any) (*Pipeline, error) {
	pipeline := NewPipeline()
	for _, name := range names {
		proc, err := r.Build(name, cfg[name])
		if err != nil {
			return nil, fmt.Errorf("building pipeline: %w", err)
		}
		pipeline.Add(proc)
	}
	return pipeline, nil
}

// NewDefaultPipeline returns the default local extraction pipeline.
func NewDefaultPipeline() *Pipeline {
	pipeline, err := NewRegistry().Pipeline(DefaultProcessors, nil)
	if err != nil {
		panic(err)
	}
	return pipeline
}

// buildChunker reads chunk_size and overlap, both in characters. When only
// chunk_size is set the default overlap shrinks to a quarter of it.
func buildChunker(opts map[string]any) (driven.PostProcessor, error) {
	typed := config.Typed{Lookup: func(key string) (any, bool) {
		v, ok := opts[key]
		return v, ok
	}}

	cfg := chunker.DefaultConfig()
	if _, ok := opts["chunk_size"]; ok {
		cfg.Size = typed.GetInt("chunk_size")
	}
	if _, ok := opts["overlap"]; ok {
		cfg.Overlap = typed.GetInt("overlap")
	} else if cfg.Size > 0 && cfg.Overlap >= cfg.Size {
		cfg.Overlap = cfg.Size / 4
	}
	return chunker.New(cfg)
}
