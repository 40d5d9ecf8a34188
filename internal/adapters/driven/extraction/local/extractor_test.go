package local

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

type stubRegistry struct {
	result *domain.ExtractionResult
	err    error
}

func (s *stubRegistry) Normalise(_ context.Context, _ []byte, _, _ string) (*domain.ExtractionResult, error) {
	return s.result, s.err
}
func (s *stubRegistry) Register(driven.Normaliser)   {}
func (s *stubRegistry) SupportedMIMETypes() []string { return nil }

type failingPipeline struct{}

func (failingPipeline) Process(_ context.Context, _ []domain.ExtractedParagraph) ([]domain.ExtractedParagraph, error) {
	return nil, errors.New("boom")
}

func TestExtract_DefaultPipelineDropsFurniture(t *testing.T) {
	registry := &stubRegistry{result: &domain.ExtractionResult{
		Content: "body",
		Paragraphs: []domain.ExtractedParagraph{
			{Content: "Page 1", Role: "pageHeader", PageNumber: 1},
			{Content: "Question 1", PageNumber: 1},
			{Content: "1", Role: "pageNumber", PageNumber: 1},
		},
	}}
	e := New(registry, nil)
	result, err := e.Extract(context.Background(), []byte("x"), "a.txt", "text/plain")
	require.NoError(t, err)
	assert.Len(t, result.Paragraphs, 3)

	e = NewDefault()
	e.registry = registry
	result, err = e.Extract(context.Background(), []byte("x"), "a.txt", "text/plain")
	require.NoError(t, err)
	require.Len(t, result.Paragraphs, 1)
	assert.Equal(t, "Question 1", result.Paragraphs[0].Content)
}

func TestExtract_PlainText(t *testing.T) {
	e := NewDefault()

	result, err := e.Extract(context.Background(), []byte("Task 1\n\nDescribe the hazard."), "task.txt", "")
	require.NoError(t, err)
	require.Len(t, result.Paragraphs, 2)
	assert.Equal(t, "Describe the hazard.", result.Paragraphs[1].Content)
}

func TestExtract_LongParagraphIsSplit(t *testing.T) {
	e := NewDefault()
	long := strings.Repeat("The learner must describe the control. ", 200)

	result, err := e.Extract(context.Background(), []byte(long), "long.txt", "text/plain")
	require.NoError(t, err)
	assert.Greater(t, len(result.Paragraphs), 1)
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := NewDefault().Extract(context.Background(), []byte("PK"), "archive.zip", "application/zip")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestExtract_Empty(t *testing.T) {
	e := New(&stubRegistry{result: &domain.ExtractionResult{}}, nil)
	_, err := e.Extract(context.Background(), []byte(" "), "blank.txt", "text/plain")
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)

	e = New(&stubRegistry{}, nil)
	_, err = e.Extract(context.Background(), []byte(" "), "blank.txt", "text/plain")
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_PipelineError(t *testing.T) {
	e := New(&stubRegistry{result: &domain.ExtractionResult{
		Paragraphs: []domain.ExtractedParagraph{{Content: "x"}},
	}}, failingPipeline{})

	_, err := e.Extract(context.Background(), []byte("x"), "a.txt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post-processing a.txt")
}
