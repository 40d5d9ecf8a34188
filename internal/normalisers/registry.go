package normalisers

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/normalisers/docx"
	"github.com/custodia-labs/compliance-engine/internal/normalisers/html"
	"github.com/custodia-labs/compliance-engine/internal/normalisers/markdown"
	"github.com/custodia-labs/compliance-engine/internal/normalisers/pdf"
	"github.com/custodia-labs/compliance-engine/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches documents to the highest-priority normaliser that
// claims the document's MIME type, falling back to its file extension.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry creates a registry with every built-in normaliser.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// RegisterDefaults registers the built-in normalisers.
func RegisterDefaults(r driven.NormaliserRegistry) {
	r.Register(docx.New())
	r.Register(html.New())
	r.Register(markdown.New())
	r.Register(pdf.New())
	r.Register(plaintext.New())
}

// Register adds a normaliser. Normalisers are kept sorted by descending priority.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, n)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// SupportedMIMETypes returns the sorted, de-duplicated MIME types of all normalisers.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, n := range r.normalisers {
		for _, mt := range n.SupportedMIMETypes() {
			if !seen[mt] {
				seen[mt] = true
				types = append(types, mt)
			}
		}
	}
	sort.Strings(types)
	return types
}

// Normalise extracts the document with the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, data []byte, filename, mimeType string) (*domain.ExtractionResult, error) {
	n := r.Select(filename, mimeType)
	if n == nil {
		return nil, fmt.Errorf("%w: %q (%s)", domain.ErrUnsupportedType, filename, mimeType)
	}
	return n.Normalise(ctx, data, filename)
}

// Select returns the normaliser for a document, or nil when none matches.
func (r *Registry) Select(filename, mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if mt := baseMIMEType(mimeType); mt != "" {
		for _, n := range r.normalisers {
			if contains(n.SupportedMIMETypes(), mt) {
				return n
			}
		}
	}

	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		for _, n := range r.normalisers {
			if contains(n.SupportedExtensions(), ext) {
				return n
			}
		}
	}
	return nil
}

// baseMIMEType drops parameters such as charset.
func baseMIMEType(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
