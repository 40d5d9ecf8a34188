// Package plaintext is the fallback normaliser for text, CSV and TSV files.
package plaintext

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

const (
	bom       = "\ufeff"
	pageBreak = "\f"
)

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

// Normaliser splits prose on blank lines and tabular files on rows. Form
// feeds, as written by pdftotext and some exporters, mark page boundaries.
type Normaliser struct{}

// New returns a plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain", "text/csv", "text/tab-separated-values"}
}

func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt", ".text", ".csv", ".tsv"}
}

// Priority marks this as a fallback.
func (n *Normaliser) Priority() int {
	return 5
}

// Normalise rejects input that is not UTF-8 with domain.ErrInvalidInput.
func (n *Normaliser) Normalise(_ context.Context, data []byte, filename string) (*domain.ExtractionResult, error) {
	if !utf8.Valid(data) {
		return nil, domain.ErrInvalidInput
	}

	text := strings.TrimPrefix(string(data), bom)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	split, role := blankLines.Split, ""
	if isTabular(filename) {
		split, role = splitRows, "table"
	}

	pages := strings.Split(text, pageBreak)
	result := &domain.ExtractionResult{Content: strings.TrimSpace(strings.Join(pages, "\n\n"))}
	for i, page := range pages {
		pageNumber := 0
		if len(pages) > 1 {
			pageNumber = i + 1
		}
		for _, block := range split(page, -1) {
			if block = strings.TrimSpace(block); block != "" {
				result.Paragraphs = append(result.Paragraphs, domain.ExtractedParagraph{
					Content:    block,
					PageNumber: pageNumber,
					Role:       role,
				})
			}
		}
	}
	return result, nil
}

func isTabular(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".tsv":
		return true
	}
	return false
}

func splitRows(s string, n int) []string {
	return strings.SplitN(s, "\n", n)
}
