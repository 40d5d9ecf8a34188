package domain

import (
	"strings"
	"time"
)

// ResultStatus is the verdict recorded for one requirement.
type ResultStatus string

// Closed set of verdicts.
const (
	ResultMet          ResultStatus = "Met"
	ResultPartiallyMet ResultStatus = "PartiallyMet"
	ResultNotMet       ResultStatus = "NotMet"
	ResultError        ResultStatus = "Error"
	ResultUnknown      ResultStatus = "Unknown"
)

// AllResultStatuses returns every verdict.
func AllResultStatuses() []ResultStatus {
	return []ResultStatus{ResultMet, ResultPartiallyMet, ResultNotMet, ResultError, ResultUnknown}
}

// ParseResultStatus maps free-form model output onto the closed set.
// Matching ignores case, spaces, hyphens and underscores; anything
// unrecognised maps to ResultUnknown.
func ParseResultStatus(s string) ResultStatus {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	switch key {
	case "met", "compliant", "fullymet":
		return ResultMet
	case "partiallymet", "partial", "partiallycompliant":
		return ResultPartiallyMet
	case "notmet", "noncompliant", "unmet":
		return ResultNotMet
	case "error":
		return ResultError
	default:
		return ResultUnknown
	}
}

// IsFailure returns true when the record represents a failed attempt.
func (s ResultStatus) IsFailure() bool {
	return s == ResultError
}

// String returns the string representation.
func (s ResultStatus) String() string {
	return string(s)
}

// ValidationResult is the outcome of one requirement attempt. Exactly one is
// written per (session, requirement) pair, including failed attempts.
type ValidationResult struct {
	// ID is the record identifier.
	ID string `json:"id"`

	// SessionID is the validation detail id.
	SessionID int64 `json:"validation_detail_id"`

	RequirementType   RequirementType `json:"requirement_type"`
	RequirementNumber string          `json:"requirement_number"`
	RequirementText   string          `json:"requirement_text"`

	// Status is the verdict.
	Status ResultStatus `json:"status"`

	Reasoning       string `json:"reasoning"`
	MappedContent   string `json:"mapped_content"`
	Citations       string `json:"citations"`
	SmartQuestion   string `json:"smart_questions"`
	BenchmarkAnswer string `json:"benchmark_answer"`
	Recommendations string `json:"recommendations"`

	// DocumentType is the document kind validated.
	DocumentType DocumentType `json:"document_type"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResult builds the synthetic record written when an attempt fails.
func ErrorResult(sessionID int64, req Requirement, docType DocumentType, reasoning string) ValidationResult {
	return ValidationResult{
		SessionID:         sessionID,
		RequirementType:   req.Type,
		RequirementNumber: req.Number,
		RequirementText:   req.Text,
		Status:            ResultError,
		Reasoning:         reasoning,
		DocumentType:      docType,
	}
}
