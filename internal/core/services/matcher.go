package services

import (
	"strings"
	"unicode"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

const (
	// DefaultMatchCap bounds the chunks sent for one requirement.
	DefaultMatchCap = 40

	// DefaultFallbackCount is how many leading chunks are sent when nothing matches.
	DefaultFallbackCount = 50

	keywordCount     = 3
	keywordMinLength = 6
)

// RelevanceMatcher picks the session chunks most likely to address a
// requirement using plain substring matching.
type RelevanceMatcher struct {
	cap      int
	fallback int
}

// NewRelevanceMatcher creates a matcher. Non-positive values use the defaults.
func NewRelevanceMatcher(matchCap, fallbackCount int) *RelevanceMatcher {
	if matchCap <= 0 {
		matchCap = DefaultMatchCap
	}
	if fallbackCount <= 0 {
		fallbackCount = DefaultFallbackCount
	}
	return &RelevanceMatcher{cap: matchCap, fallback: fallbackCount}
}

// Select returns chunks mentioning the requirement number or one of its
// keywords, in session order, up to the cap. With no matches it returns the
// first chunks of the session instead.
func (m *RelevanceMatcher) Select(req domain.Requirement, chunks []domain.DocumentContentChunk) []domain.DocumentContentChunk {
	if len(chunks) == 0 {
		return nil
	}

	terms := Keywords(req.Text)
	if number := strings.ToLower(strings.TrimSpace(req.Number)); number != "" {
		terms = append([]string{number}, terms...)
	}

	var selected []domain.DocumentContentChunk
	if len(terms) > 0 {
		for _, c := range chunks {
			text := strings.ToLower(c.Text)
			for _, term := range terms {
				if strings.Contains(text, term) {
					selected = append(selected, c)
					break
				}
			}
			if len(selected) == m.cap {
				break
			}
		}
	}

	if len(selected) == 0 {
		n := min(m.fallback, len(chunks))
		selected = append(selected, chunks[:n]...)
	}
	return selected
}

// Keywords returns up to three distinct lowercased words longer than five
// characters, in order of first appearance.
func Keywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool)
	var keywords []string
	for _, w := range words {
		if len([]rune(w)) < keywordMinLength || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) == keywordCount {
			break
		}
	}
	return keywords
}
