package chunker

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

func newChunker(t *testing.T, size, overlap int) *Processor {
	t.Helper()
	p, err := New(Config{Size: size, Overlap: overlap})
	require.NoError(t, err)
	return p
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"defaults", DefaultConfig(), ""},
		{"no overlap", Config{Size: 10}, ""},
		{"zero size", Config{}, "chunk_size must be positive, got 0"},
		{"negative overlap", Config{Size: 10, Overlap: -1}, "overlap must be in [0, 10), got -1"},
		{"overlap equals size", Config{Size: 10, Overlap: 10}, "overlap must be in [0, 10)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNew(t *testing.T) {
	p, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "chunker", p.Name())
	assert.Equal(t, Config{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}, p.Config())

	_, err = New(Config{Size: 100, Overlap: 150})
	assert.Error(t, err)
}

func TestProcess_ShortParagraphsPassThrough(t *testing.T) {
	in := []domain.ExtractedParagraph{
		{Content: "Question 1", PageNumber: 1, Role: "sectionHeading"},
		{Content: "Identify hazards in the workplace.", PageNumber: 1},
	}

	out, err := newChunker(t, 100, 10).Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out, err = newChunker(t, 100, 10).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestProcess_SplitsLongParagraph(t *testing.T) {
	long := strings.Repeat("Workers must report hazards to their supervisor immediately. ", 10)
	in := []domain.ExtractedParagraph{
		{Content: "Task 2", PageNumber: 3, Role: "sectionHeading"},
		{Content: long, PageNumber: 4, Role: "table"},
	}

	out, err := newChunker(t, 150, 0).Process(context.Background(), in)
	require.NoError(t, err)
	require.Greater(t, len(out), 2)

	assert.Equal(t, in[0], out[0])
	for i, para := range out[1:] {
		assert.LessOrEqual(t, utf8.RuneCountInString(para.Content), 150, "piece %d", i)
		assert.Equal(t, 4, para.PageNumber)
		assert.Equal(t, "table", para.Role)
		assert.NotEmpty(t, para.Content)
	}
}

func TestProcess_CountsRunesNotBytes(t *testing.T) {
	// 60 runes but 120 bytes.
	para := domain.ExtractedParagraph{Content: strings.Repeat("é", 60)}

	out, err := newChunker(t, 80, 0).Process(context.Background(), []domain.ExtractedParagraph{para})
	require.NoError(t, err)
	assert.Equal(t, []domain.ExtractedParagraph{para}, out)
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newChunker(t, 100, 0).Process(ctx, []domain.ExtractedParagraph{{Content: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}
