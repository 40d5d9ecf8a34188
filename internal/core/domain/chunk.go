package domain

// ChunkKind classifies an extracted content slice.
type ChunkKind string

// Chunk kinds produced by extraction.
const (
	ChunkKindParagraph      ChunkKind = "paragraph"
	ChunkKindTitle          ChunkKind = "title"
	ChunkKindSectionHeading ChunkKind = "section_heading"
	ChunkKindPageHeader     ChunkKind = "page_header"
	ChunkKindPageFooter     ChunkKind = "page_footer"
	ChunkKindTable          ChunkKind = "table"
	// ChunkKindDocument is a whole-document chunk used when the extractor
	// returns no paragraph structure.
	ChunkKindDocument ChunkKind = "document"
)

// ChunkKindFromRole maps an extraction-service paragraph role to a ChunkKind.
func ChunkKindFromRole(role string) ChunkKind {
	switch role {
	case "title":
		return ChunkKindTitle
	case "sectionHeading", "section_heading":
		return ChunkKindSectionHeading
	case "pageHeader", "page_header":
		return ChunkKindPageHeader
	case "pageFooter", "page_footer", "pageNumber":
		return ChunkKindPageFooter
	case "table":
		return ChunkKindTable
	default:
		return ChunkKindParagraph
	}
}

// DocumentContentChunk is a page or paragraph level slice of extracted text.
// Chunks are keyed by the canonical document URL, not by session, and are
// reused by every session referencing the same document.
type DocumentContentChunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentURL is the canonical, content-addressed document identity.
	DocumentURL string

	// Filename is the original upload name, used in citations.
	Filename string

	// PageNumber is the 1-based page the text came from (0 when unknown).
	PageNumber int

	// Ordinal is the position of the chunk within its document.
	Ordinal int

	// Text is the extracted content.
	Text string

	// Kind classifies the chunk.
	Kind ChunkKind
}

// SessionDocument is one uploaded file attached to a validation session.
type SessionDocument struct {
	// ID is the upstream document identifier.
	ID string

	// Filename is the original upload name.
	Filename string

	// StoragePath is the object path used to download raw bytes.
	StoragePath string

	// DocumentURL is the canonical identity used as the content cache key.
	// When empty, StoragePath is used.
	DocumentURL string

	// StoreRef references the document in the managed-grounding provider's index.
	StoreRef string

	// MIMEType is the content type recorded at upload.
	MIMEType string
}

// CacheKey returns the canonical URL used to key extracted content.
func (d SessionDocument) CacheKey() string {
	if d.DocumentURL != "" {
		return d.DocumentURL
	}
	return d.StoragePath
}

// ExtractedParagraph is one paragraph returned by an extraction service.
type ExtractedParagraph struct {
	Content    string
	PageNumber int
	Role       string
}

// ExtractionResult is the output of an extraction service call.
type ExtractionResult struct {
	// Content is the whole-document text.
	Content string

	// Paragraphs is the paragraph-level breakdown when available.
	Paragraphs []ExtractedParagraph
}
