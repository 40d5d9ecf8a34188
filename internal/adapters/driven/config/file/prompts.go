package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/logger"
)

// Ensure TemplateStore implements the interface.
var _ driven.PromptTemplateStore = (*TemplateStore)(nil)

// TemplateStore layers user-editable prompt templates from disk over another
// template store. A file template that is active and default for a
// (requirement type, document type) pair wins over the underlying store.
//
// Files are read lazily on the first Resolve, not in the constructor.
type TemplateStore struct {
	mu       sync.RWMutex
	dir      string
	base     driven.PromptTemplateStore
	cache    []*domain.PromptTemplate
	loaded   bool
	initOnce sync.Once
	initErr  error
}

// templateFile is the on-disk shape of one template.
type templateFile struct {
	ID                string                   `toml:"id"`
	RequirementType   string                   `toml:"requirement_type"`
	DocumentType      string                   `toml:"document_type"`
	Prompt            string                   `toml:"prompt"`
	SystemInstruction string                   `toml:"system_instruction"`
	OutputSchema      string                   `toml:"output_schema"`
	Active            *bool                    `toml:"active"`
	Default           *bool                    `toml:"default"`
	Generation        *domain.GenerationConfig `toml:"generation"`
}

// NewTemplateStore creates a file template store over base. base may be nil.
// If dir is empty, defaults to ~/.compliance/templates/.
func NewTemplateStore(dir string, base driven.PromptTemplateStore) (*TemplateStore, error) {
	if dir == "" {
		root, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(root, "templates")
	}

	return &TemplateStore{dir: dir, base: base}, nil
}

// Resolve returns the file override for the pair, else the base store's template.
func (s *TemplateStore) Resolve(ctx context.Context, reqType domain.RequirementType, docType domain.DocumentType) (*domain.PromptTemplate, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		logger.Warn("template directory %s unavailable: %v", s.dir, s.initErr)
	} else if tmpl := s.lookup(reqType, docType); tmpl != nil {
		return tmpl, nil
	}

	if s.base == nil {
		return nil, nil
	}
	return s.base.Resolve(ctx, reqType, docType)
}

// Save stores the template in the base store, or as a file when there is none.
func (s *TemplateStore) Save(ctx context.Context, tmpl *domain.PromptTemplate) error {
	if tmpl == nil || tmpl.ID == "" {
		return fmt.Errorf("%w: template id is required", domain.ErrInvalidInput)
	}
	if s.base != nil {
		return s.base.Save(ctx, tmpl)
	}
	return s.WriteFile(tmpl)
}

// WriteFile writes tmpl to <dir>/<id>.toml and drops the cache.
func (s *TemplateStore) WriteFile(tmpl *domain.PromptTemplate) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}

	active, isDefault := tmpl.IsActive, tmpl.IsDefault
	gen := tmpl.Generation
	data, err := toml.Marshal(templateFile{
		ID:                tmpl.ID,
		RequirementType:   tmpl.RequirementType.String(),
		DocumentType:      tmpl.DocumentType.String(),
		Prompt:            tmpl.Prompt,
		SystemInstruction: tmpl.SystemInstruction,
		OutputSchema:      tmpl.OutputSchema,
		Active:            &active,
		Default:           &isDefault,
		Generation:        &gen,
	})
	if err != nil {
		return fmt.Errorf("encode template %q: %w", tmpl.ID, err)
	}

	path := filepath.Join(s.dir, fileName(tmpl.ID))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write template %q: %w", tmpl.ID, err)
	}

	s.Reload()
	return nil
}

// Reload clears the template cache, forcing fresh loads from disk.
func (s *TemplateStore) Reload() {
	s.mu.Lock()
	s.cache = nil
	s.loaded = false
	s.mu.Unlock()
}

// Dir returns the template directory path.
func (s *TemplateStore) Dir() string {
	return s.dir
}

// Templates returns every valid file template, sorted by ID.
func (s *TemplateStore) Templates() []*domain.PromptTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	out := make([]*domain.PromptTemplate, len(s.cache))
	for i, t := range s.cache {
		c := *t
		out[i] = &c
	}
	return out
}

// lookup scans the ID-sorted cache, so the lowest ID wins among duplicates.
func (s *TemplateStore) lookup(reqType domain.RequirementType, docType domain.DocumentType) *domain.PromptTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	var fallback *domain.PromptTemplate
	for _, t := range s.cache {
		if !t.IsActive || !t.IsDefault || t.RequirementType != reqType {
			continue
		}
		switch t.DocumentType {
		case docType:
			c := *t
			return &c
		case "":
			if fallback == nil {
				fallback = t
			}
		}
	}
	if fallback == nil {
		return nil
	}
	c := *fallback
	c.DocumentType = docType
	return &c
}

// ensureLoaded reads the directory once (caller must hold lock).
func (s *TemplateStore) ensureLoaded() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.cache = nil

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.toml"))
	if err != nil {
		logger.Warn("listing templates in %s: %v", s.dir, err)
		return
	}
	sort.Strings(paths)

	for _, path := range paths {
		tmpl, err := loadTemplateFile(path)
		if err != nil {
			logger.Warn("skipping template %s: %v", path, err)
			continue
		}
		s.cache = append(s.cache, tmpl)
	}
	sort.SliceStable(s.cache, func(i, j int) bool { return s.cache[i].ID < s.cache[j].ID })
	logger.Debug("loaded %d prompt templates from %s", len(s.cache), s.dir)
}

func loadTemplateFile(path string) (*domain.PromptTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f templateFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	reqType, err := domain.ParseRequirementType(f.RequirementType)
	if err != nil || !reqType.IsConcrete() {
		return nil, fmt.Errorf("%w: requirement type %q", domain.ErrInvalidInput, f.RequirementType)
	}
	docType := domain.DocumentType(f.DocumentType)
	if docType != "" && !docType.IsValid() {
		return nil, fmt.Errorf("%w: document type %q", domain.ErrInvalidInput, f.DocumentType)
	}
	if strings.TrimSpace(f.Prompt) == "" {
		return nil, errors.New("prompt is empty")
	}

	id := f.ID
	if id == "" {
		id = "file:" + strings.TrimSuffix(filepath.Base(path), ".toml")
	}

	tmpl := &domain.PromptTemplate{
		ID:                id,
		RequirementType:   reqType,
		DocumentType:      docType,
		Prompt:            f.Prompt,
		SystemInstruction: f.SystemInstruction,
		OutputSchema:      f.OutputSchema,
		IsActive:          f.Active == nil || *f.Active,
		IsDefault:         f.Default == nil || *f.Default,
	}
	if f.Generation != nil {
		tmpl.Generation = *f.Generation
	}
	return tmpl, nil
}

// fileName maps a template ID to a safe file name.
func fileName(id string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	return safe + ".toml"
}

// initialise creates the template directory and README.
// Called once via sync.Once on first Resolve().
func (s *TemplateStore) initialise() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.initErr = fmt.Errorf("create template directory: %w", err)
		return
	}
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// createReadme writes a README file explaining the templates directory.
func (s *TemplateStore) createReadme() error {
	path := filepath.Join(s.dir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Prompt templates

Each ` + "`*.toml`" + ` file here overrides the validation prompt for one
requirement type. Files take precedence over templates stored in the database.

    requirement_type   = "knowledge_evidence"   # or ke, pe, fs, epc, ac
    document_type      = "assessment"           # or learner_guide; omit for both
    prompt             = """..."""
    system_instruction = """..."""
    output_schema      = """..."""              # optional JSON schema

    [generation]
    temperature       = 0.2
    max_output_tokens = 8192

## Placeholders

- ` + "`{requirement_number}`" + `, ` + "`{requirement_text}`" + `, ` + "`{requirement_type}`" + `
- ` + "`{unit_code}`" + `, ` + "`{document_type}`" + `

Both ` + "`{name}`" + ` and ` + "`{{name}}`" + ` forms are substituted.
`
	return os.WriteFile(path, []byte(content), 0600)
}
