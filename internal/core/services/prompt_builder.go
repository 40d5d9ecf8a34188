package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// Placeholder names substituted into template prompts, in both {name} and
// {{name}} form.
const (
	PlaceholderRequirementNumber = "requirement_number"
	PlaceholderRequirementText   = "requirement_text"
	PlaceholderRequirementType   = "requirement_type"
	PlaceholderUnitCode          = "unit_code"
	PlaceholderDocumentType      = "document_type"
)

// BuildSessionHeader renders the context block prepended to every prompt.
// It pins the model to the session's own documents.
func BuildSessionHeader(session *domain.ValidationSession) string {
	var b strings.Builder
	b.WriteString("## Validation Session\n")
	fmt.Fprintf(&b, "Session ID: %d\n", session.ID)
	fmt.Fprintf(&b, "Created: %s\n", session.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Unit Code: %s\n", session.UnitCode)
	if session.RTOCode != "" {
		fmt.Fprintf(&b, "RTO Code: %s\n", session.RTOCode)
	}
	b.WriteString("Documents in this session:\n")
	for _, doc := range session.Documents {
		fmt.Fprintf(&b, "- %s\n", doc.Filename)
	}
	b.WriteString("\nCite only the documents listed above. Do not reference content from any other document or prior session.\n")
	return b.String()
}

// PromptVariables returns the substitution values for one requirement.
func PromptVariables(session *domain.ValidationSession, req domain.Requirement) map[string]string {
	return map[string]string{
		PlaceholderRequirementNumber: req.Number,
		PlaceholderRequirementText:   req.Text,
		PlaceholderRequirementType:   req.Type.Description(),
		PlaceholderUnitCode:          session.UnitCode,
		PlaceholderDocumentType:      session.DocumentType.String(),
	}
}

// SubstitutePlaceholders replaces {name} and {{name}} occurrences.
// Unknown placeholders are left untouched.
func SubstitutePlaceholders(prompt string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*4)
	// Double-brace forms go first so they are consumed whole.
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(prompt)
}

// BuildPrompt assembles the full user prompt for one requirement.
func BuildPrompt(session *domain.ValidationSession, req domain.Requirement, tmpl *domain.PromptTemplate) string {
	body := SubstitutePlaceholders(tmpl.Prompt, PromptVariables(session, req))
	return BuildSessionHeader(session) + "\n" + body
}
