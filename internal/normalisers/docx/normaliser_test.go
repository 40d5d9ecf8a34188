package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// docxFile zips documentXML as word/document.xml. An empty string leaves
// the part out.
func docxFile(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
	}
	if documentXML != "" {
		parts["word/document.xml"] = documentXML
	}
	for name, body := range parts {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func wrapBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
}

func TestNormaliser_Registration(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}, n.SupportedMIMETypes())
	assert.Equal(t, []string{".docx"}, n.SupportedExtensions())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_ParagraphsAndStyles(t *testing.T) {
	data := docxFile(t, wrapBody(`
<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Assessment Task 1</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Part A</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Identify </w:t></w:r><w:r><w:t>workplace hazards.</w:t></w:r></w:p>
<w:p></w:p>
`))

	result, err := New().Normalise(context.Background(), data, "task.docx")
	require.NoError(t, err)

	require.Len(t, result.Paragraphs, 3)
	assert.Equal(t, domain.ExtractedParagraph{Content: "Assessment Task 1", Role: "title"}, result.Paragraphs[0])
	assert.Equal(t, "sectionHeading", result.Paragraphs[1].Role)
	assert.Equal(t, "Identify workplace hazards.", result.Paragraphs[2].Content)
	assert.Equal(t, "", result.Paragraphs[2].Role)
	assert.Equal(t, "Assessment Task 1\nPart A\nIdentify workplace hazards.", result.Content)
}

func TestNormalise_TableRows(t *testing.T) {
	data := docxFile(t, wrapBody(`
<w:p><w:r><w:t>Before</w:t></w:r></w:p>
<w:tbl>
  <w:tr>
    <w:tc><w:p><w:r><w:t>Q1</w:t></w:r></w:p></w:tc>
    <w:tc><w:p><w:r><w:t>Describe a hazard</w:t></w:r></w:p><w:p><w:r><w:t>in detail</w:t></w:r></w:p></w:tc>
    <w:tc><w:p></w:p></w:tc>
  </w:tr>
  <w:tr>
    <w:tc><w:p><w:r><w:t>Q2</w:t></w:r></w:p></w:tc>
    <w:tc><w:p><w:r><w:t>List controls</w:t></w:r></w:p></w:tc>
  </w:tr>
</w:tbl>
<w:p><w:r><w:t>After</w:t></w:r></w:p>
`))

	result, err := New().Normalise(context.Background(), data, "task.docx")
	require.NoError(t, err)

	require.Len(t, result.Paragraphs, 4)
	assert.Equal(t, "Before", result.Paragraphs[0].Content)
	assert.Equal(t, domain.ExtractedParagraph{Content: "Q1 | Describe a hazard in detail", Role: "table"}, result.Paragraphs[1])
	assert.Equal(t, "Q2 | List controls", result.Paragraphs[2].Content)
	assert.Equal(t, "After", result.Paragraphs[3].Content)
}

func TestNormalise_EmptyInput(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil, "x.docx")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_InvalidZip(t *testing.T) {
	_, err := New().Normalise(context.Background(), []byte("not a zip"), "x.docx")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_MissingDocumentPart(t *testing.T) {
	_, err := New().Normalise(context.Background(), docxFile(t, ""), "x.docx")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_MalformedXML(t *testing.T) {
	_, err := New().Normalise(context.Background(), docxFile(t, "<w:document><w:body><w:p>"), "x.docx")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_EmptyDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), docxFile(t, wrapBody("")), "x.docx")
	require.NoError(t, err)
	assert.Empty(t, result.Paragraphs)
	assert.Empty(t, result.Content)
}

func TestStyleRole(t *testing.T) {
	assert.Equal(t, "title", styleRole("Title"))
	assert.Equal(t, "sectionHeading", styleRole("Heading1"))
	assert.Equal(t, "", styleRole("Normal"))
	assert.Equal(t, domain.ChunkKindSectionHeading, domain.ChunkKindFromRole(styleRole("Heading3")))
}
