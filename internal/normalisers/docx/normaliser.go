package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".docx"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise extracts paragraphs from word/document.xml in document order.
// Table rows become single paragraphs with cells joined by " | ".
func (n *Normaliser) Normalise(_ context.Context, data []byte, _ string) (*domain.ExtractionResult, error) {
	if len(data) == 0 {
		return nil, domain.ErrInvalidInput
	}

	// Open as ZIP archive
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive", domain.ErrInvalidInput)
	}

	content, err := readDocumentXML(reader)
	if err != nil {
		return nil, err
	}

	paragraphs, err := parseDocumentXML(content)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		texts[i] = p.Content
	}

	return &domain.ExtractionResult{
		Content:    strings.Join(texts, "\n"),
		Paragraphs: paragraphs,
	}, nil
}

// readDocumentXML returns the raw word/document.xml part.
func readDocumentXML(reader *zip.Reader) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: word/document.xml missing", domain.ErrInvalidInput)
}

// docWalker accumulates paragraphs while streaming document.xml tokens.
type docWalker struct {
	out []domain.ExtractedParagraph

	text    strings.Builder
	style   string
	inText  bool
	tables  int
	cells   []string
	cellBuf []string
}

// parseDocumentXML walks the document body. Paragraphs inside table cells
// are folded into their row.
func parseDocumentXML(content []byte) ([]domain.ExtractedParagraph, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	w := &docWalker{}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed document.xml: %w", domain.ErrInvalidInput, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			w.start(t)
		case xml.EndElement:
			w.end(t)
		case xml.CharData:
			if w.inText {
				w.text.Write(t)
			}
		}
	}
	return w.out, nil
}

func (w *docWalker) start(t xml.StartElement) {
	switch t.Name.Local {
	case "p":
		w.text.Reset()
		w.style = ""
	case "pStyle":
		for _, attr := range t.Attr {
			if attr.Name.Local == "val" {
				w.style = attr.Value
			}
		}
	case "t":
		w.inText = true
	case "tab":
		w.text.WriteByte('\t')
	case "br":
		w.text.WriteByte('\n')
	case "tbl":
		w.tables++
	case "tr":
		if w.tables == 1 {
			w.cells = w.cells[:0]
		}
	case "tc":
		if w.tables == 1 {
			w.cellBuf = w.cellBuf[:0]
		}
	}
}

func (w *docWalker) end(t xml.EndElement) {
	switch t.Name.Local {
	case "t":
		w.inText = false
	case "p":
		text := strings.TrimSpace(w.text.String())
		w.text.Reset()
		if text == "" {
			return
		}
		if w.tables > 0 {
			w.cellBuf = append(w.cellBuf, text)
			return
		}
		w.out = append(w.out, domain.ExtractedParagraph{Content: text, Role: styleRole(w.style)})
	case "tc":
		if w.tables == 1 {
			w.cells = append(w.cells, strings.Join(w.cellBuf, " "))
		}
	case "tr":
		if w.tables == 1 {
			row := strings.TrimSpace(strings.Join(nonEmpty(w.cells), " | "))
			if row != "" {
				w.out = append(w.out, domain.ExtractedParagraph{Content: row, Role: "table"})
			}
		}
	case "tbl":
		w.tables--
	}
}

// styleRole maps a Word paragraph style to an extraction role.
func styleRole(style string) string {
	switch {
	case style == "Title":
		return "title"
	case strings.HasPrefix(style, "Heading"):
		return "sectionHeading"
	default:
		return ""
	}
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
