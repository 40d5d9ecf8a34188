package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

func matcherChunks(texts ...string) []domain.DocumentContentChunk {
	chunks := make([]domain.DocumentContentChunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.DocumentContentChunk{
			ID:       fmt.Sprintf("c%d", i),
			Filename: "assessment.pdf",
			Ordinal:  i,
			Text:     text,
		}
	}
	return chunks
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"first three long words", "Identify workplace hazards using inspection checklists", []string{"identify", "workplace", "hazards"}},
		{"skips short words", "Use the PPE and safety gear", []string{"safety"}},
		{"deduplicates", "Hazard hazard HAZARD controls", []string{"hazard", "controls"}},
		{"punctuation splits", "risk-assessment, consultation.", []string{"assessment", "consultation"}},
		{"none", "a b c", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keywords(tt.text))
		})
	}
}

func TestRelevanceMatcher_MatchesNumberOrKeyword(t *testing.T) {
	m := NewRelevanceMatcher(0, 0)
	chunks := matcherChunks(
		"Introduction to the course",
		"Question 4.2: describe the WORKPLACE reporting chain",
		"Section covering emergency evacuation",
		"Item 3.1 is unrelated",
	)
	req := domain.Requirement{Number: "3.1", Text: "Explain workplace reporting"}

	got := m.Select(req, chunks)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "c3", got[1].ID)
}

func TestRelevanceMatcher_Cap(t *testing.T) {
	m := NewRelevanceMatcher(0, 0)
	texts := make([]string, 100)
	for i := range texts {
		texts[i] = "hazards everywhere"
	}

	got := m.Select(domain.Requirement{Number: "9", Text: "Identify hazards"}, matcherChunks(texts...))
	assert.Len(t, got, DefaultMatchCap)
}

func TestRelevanceMatcher_FallbackFirstChunks(t *testing.T) {
	m := NewRelevanceMatcher(0, 0)
	texts := make([]string, 80)
	for i := range texts {
		texts[i] = "nothing relevant"
	}
	chunks := matcherChunks(texts...)

	got := m.Select(domain.Requirement{Number: "Z", Text: "Completely different subject matter"}, chunks)
	require.Len(t, got, DefaultFallbackCount)
	assert.Equal(t, chunks[:DefaultFallbackCount], got)
}

func TestRelevanceMatcher_FallbackFewerThanLimit(t *testing.T) {
	m := NewRelevanceMatcher(5, 10)
	chunks := matcherChunks("alpha", "beta")

	got := m.Select(domain.Requirement{Text: "Unrelated requirement wording"}, chunks)
	assert.Equal(t, chunks, got)
}

func TestRelevanceMatcher_NoChunks(t *testing.T) {
	m := NewRelevanceMatcher(0, 0)
	assert.Empty(t, m.Select(domain.Requirement{Number: "1", Text: "Anything"}, nil))
}
