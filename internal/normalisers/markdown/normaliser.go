// Package markdown extracts paragraphs from CommonMark documents. Headings
// keep their role, each list becomes one paragraph and each table row
// becomes a table paragraph. Code is dropped.
package markdown

import (
	"context"
	"strings"

	md "gitlab.com/golang-commonmark/markdown"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct {
	parser *md.Markdown
}

// New returns a Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{parser: md.New(
		md.HTML(false),
		md.Tables(true),
		md.Linkify(false),
		md.Typographer(false),
	)}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (n *Normaliser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

func (n *Normaliser) Priority() int {
	return 50
}

// Normalise turns the first level-one heading into the title and every
// other heading into a section heading.
func (n *Normaliser) Normalise(_ context.Context, data []byte, _ string) (*domain.ExtractionResult, error) {
	src := strings.ReplaceAll(string(data), "\r\n", "\n")

	var (
		w       walker
		heading string
		titled  bool
		inRow   bool
		row     []string
		list    []string
		depth   int
	)
	for _, tok := range n.parser.Parse([]byte(src)) {
		switch t := tok.(type) {
		case *md.HeadingOpen:
			heading = "sectionHeading"
			if t.HLevel == 1 && !titled {
				heading, titled = "title", true
			}
		case *md.HeadingClose:
			heading = ""
		case *md.BulletListOpen, *md.OrderedListOpen:
			depth++
		case *md.BulletListClose, *md.OrderedListClose:
			if depth--; depth == 0 {
				w.emit(strings.Join(list, "\n"), "")
				list = nil
			}
		case *md.TrOpen:
			inRow, row = true, nil
		case *md.TrClose:
			inRow = false
			w.emit(strings.Join(row, " | "), "table")
		case *md.Inline:
			text := plainText(t.Children)
			switch {
			case inRow:
				row = append(row, text)
			case depth > 0:
				if text != "" {
					list = append(list, text)
				}
			default:
				w.emit(text, heading)
			}
		}
	}

	return &domain.ExtractionResult{
		Content:    strings.Join(w.texts, "\n\n"),
		Paragraphs: w.paragraphs,
	}, nil
}

type walker struct {
	paragraphs []domain.ExtractedParagraph
	texts      []string
}

func (w *walker) emit(text, role string) {
	if text = strings.TrimSpace(text); text == "" {
		return
	}
	w.paragraphs = append(w.paragraphs, domain.ExtractedParagraph{Content: text, Role: role})
	w.texts = append(w.texts, text)
}

// plainText flattens inline tokens. Images and raw HTML are dropped; link
// and emphasis markers vanish and their text stays.
func plainText(children []md.Token) string {
	var b strings.Builder
	for _, tok := range children {
		switch t := tok.(type) {
		case *md.Text:
			b.WriteString(t.Content)
		case *md.CodeInline:
			b.WriteString(t.Content)
		case *md.Softbreak, *md.Hardbreak:
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String())
}
