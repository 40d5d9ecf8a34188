package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser walks the parsed DOM and emits one paragraph per block.
type Normaliser struct{}

// New returns an HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (n *Normaliser) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

func (n *Normaliser) Priority() int {
	return 50
}

// Elements whose text never reaches a paragraph.
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
}

// Elements that end the paragraph before them and start a new one.
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Blockquote: true,
	atom.Pre: true, atom.Section: true, atom.Article: true, atom.Table: true,
	atom.Ul: true, atom.Ol: true, atom.Dt: true, atom.Dd: true,
	atom.Figcaption: true, atom.Caption: true, atom.Br: true, atom.Hr: true,
}

// Normalise emits h1 as title and h2 to h6 as section headings. Table rows
// become "cell | cell" paragraphs. The <title> is used when the body has
// no h1.
func (n *Normaliser) Normalise(_ context.Context, data []byte, _ string) (*domain.ExtractionResult, error) {
	if len(data) == 0 || !utf8.Valid(data) {
		return nil, domain.ErrInvalidInput
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	var w walker
	w.walk(doc)
	w.flush()

	paragraphs := w.paragraphs
	if title := headTitle(doc); title != "" && !w.titled {
		paragraphs = append([]domain.ExtractedParagraph{{Content: title, Role: "title"}}, paragraphs...)
	}

	texts := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		texts[i] = p.Content
	}
	return &domain.ExtractionResult{Content: strings.Join(texts, "\n"), Paragraphs: paragraphs}, nil
}

type walker struct {
	paragraphs []domain.ExtractedParagraph
	buf        strings.Builder
	titled     bool
}

func (w *walker) walk(node *html.Node) {
	switch node.Type {
	case html.TextNode:
		w.buf.WriteString(node.Data)
		return
	case html.ElementNode:
		if skipped[node.DataAtom] {
			return
		}
		if role := headingRole(node.DataAtom); role != "" {
			w.flush()
			w.emit(textContent(node), role)
			if role == "title" {
				w.titled = true
			}
			return
		}
		if node.DataAtom == atom.Tr {
			w.flush()
			w.emit(rowText(node), "table")
			return
		}
		if blocks[node.DataAtom] {
			w.flush()
			defer w.flush()
		}
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *walker) flush() {
	w.emit(w.buf.String(), "")
	w.buf.Reset()
}

func (w *walker) emit(text, role string) {
	if text = collapse(text); text != "" {
		w.paragraphs = append(w.paragraphs, domain.ExtractedParagraph{Content: text, Role: role})
	}
}

func headingRole(a atom.Atom) string {
	switch a {
	case atom.H1:
		return "title"
	case atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return "sectionHeading"
	}
	return ""
}

func rowText(tr *html.Node) string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Td || c.DataAtom == atom.Th {
			cells = append(cells, collapse(textContent(c)))
		}
	}
	return strings.Join(cells, " | ")
}

func textContent(node *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.DataAtom == atom.Br:
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(node)
	return b.String()
}

func headTitle(doc *html.Node) string {
	var find func(*html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}
	if t := find(doc); t != nil && t.FirstChild != nil {
		return collapse(t.FirstChild.Data)
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
