package domain

// DocumentType identifies the kind of uploaded material being validated.
type DocumentType string

// Known document types.
const (
	// DocumentTypeAssessment is an assessment tool (questions, tasks, marking guides).
	DocumentTypeAssessment DocumentType = "assessment"

	// DocumentTypeLearnerGuide is learning material given to learners.
	DocumentTypeLearnerGuide DocumentType = "learner_guide"
)

// IsValid returns true if the document type is recognised.
func (d DocumentType) IsValid() bool {
	return d == DocumentTypeAssessment || d == DocumentTypeLearnerGuide
}

// String returns the string representation.
func (d DocumentType) String() string {
	return string(d)
}

// GenerationConfig holds model sampling parameters.
type GenerationConfig struct {
	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64 `json:"temperature" toml:"temperature"`

	// MaxOutputTokens caps the reply length.
	MaxOutputTokens int `json:"maxOutputTokens" toml:"max_output_tokens"`

	// TopP is nucleus sampling mass; zero means provider default.
	TopP float64 `json:"topP,omitempty" toml:"top_p"`
}

// DefaultGenerationConfig is used when a template omits generation parameters.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.2,
		MaxOutputTokens: 8192,
	}
}

// PromptTemplate holds the instructions used to validate one requirement type
// against one document type.
type PromptTemplate struct {
	// ID is the template identifier ("builtin:<type>" for fallbacks).
	ID string

	// RequirementType is the concrete type the template targets.
	RequirementType RequirementType

	// DocumentType is the document kind the template targets.
	DocumentType DocumentType

	// Prompt is the user prompt with {placeholder} substitutions.
	Prompt string

	// SystemInstruction is sent as the system message.
	SystemInstruction string

	// OutputSchema is an optional JSON schema describing the expected reply.
	OutputSchema string

	// Generation holds sampling parameters.
	Generation GenerationConfig

	// IsActive marks templates available for selection.
	IsActive bool

	// IsDefault marks the template chosen for its (type, documentType) pair.
	IsDefault bool

	// Builtin is true when the template is the compiled-in fallback.
	Builtin bool
}
