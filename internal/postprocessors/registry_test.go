package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/postprocessors/chunker"
)

func stubBuilder(name string) BuilderFunc {
	return func(map[string]any) (driven.PostProcessor, error) {
		return &mockProcessor{name: name}, nil
	}
}

func TestRegistry_Build(t *testing.T) {
	var gotCfg map[string]any
	r := Registry{"alpha": func(cfg map[string]any) (driven.PostProcessor, error) {
		gotCfg = cfg
		return &mockProcessor{name: "alpha"}, nil
	}}

	proc, err := r.Build("alpha", map[string]any{"k": 1})
	require.NoError(t, err)
	assert.Equal(t, "alpha", proc.Name())
	assert.Equal(t, map[string]any{"k": 1}, gotCfg)
}

func TestRegistry_Build_Unknown(t *testing.T) {
	r := Registry{"beta": stubBuilder("beta"), "alpha": stubBuilder("alpha")}

	_, err := r.Build("stemmer", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), `"stemmer"`)
	assert.Contains(t, err.Error(), "available: alpha, beta")
}

func TestRegistry_Build_BuilderError(t *testing.T) {
	cause := errors.New("bad table")
	r := Registry{"broken": func(map[string]any) (driven.PostProcessor, error) {
		return nil, cause
	}}

	_, err := r.Build("broken", nil)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `configuring processor "broken"`)
}

func TestRegistry_Names(t *testing.T) {
	assert.Empty(t, Registry{}.Names())
	assert.Equal(t, []string{"chunker", "furniture"}, NewRegistry().Names())

	r := Registry{"gamma": stubBuilder("gamma"), "alpha": stubBuilder("alpha")}
	assert.Equal(t, []string{"alpha", "gamma"}, r.Names())
}

func TestRegistry_Pipeline(t *testing.T) {
	r := NewRegistry()

	p, err := r.Pipeline([]string{"furniture", "chunker"}, map[string]map[string]any{
		"chunker": {"chunk_size": 50},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"furniture", "chunker"}, p.Names())

	_, err = r.Pipeline([]string{"furniture", "stemmer"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "building pipeline")

	empty, err := Registry{}.Pipeline(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestNewDefaultPipeline(t *testing.T) {
	p := NewDefaultPipeline()
	require.Equal(t, DefaultProcessors, p.Names())

	out, err := p.Process(context.Background(), []domain.ExtractedParagraph{
		{Content: "Page 2", Role: "pageFooter"},
		{Content: "Body text"},
	})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Body text", out[0].Content)
}

func TestBuildChunker(t *testing.T) {
	tests := []struct {
		name    string
		cfg     map[string]any
		wantErr string
	}{
		{"nil config", nil, ""},
		{"size and overlap", map[string]any{"chunk_size": 500, "overlap": 100}, ""},
		{"string values", map[string]any{"chunk_size": "800", "overlap": "0"}, ""},
		{"zero size", map[string]any{"chunk_size": 0}, "chunk_size must be positive"},
		{"non-numeric size", map[string]any{"chunk_size": "big"}, "chunk_size must be positive"},
		{"overlap too large", map[string]any{"chunk_size": 100, "overlap": 100}, "overlap must be in [0, 100)"},
		{"negative overlap", map[string]any{"overlap": -1}, "overlap must be in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := buildChunker(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "chunker", proc.Name())
		})
	}
}

func TestBuildChunker_ShrinksDefaultOverlap(t *testing.T) {
	proc, err := buildChunker(map[string]any{"chunk_size": int64(40)})
	require.NoError(t, err)

	c, ok := proc.(*chunker.Processor)
	require.True(t, ok)
	assert.Equal(t, chunker.Config{Size: 40, Overlap: 10}, c.Config())
}
