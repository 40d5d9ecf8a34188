package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// requestValidate validates decoded request bodies.
var requestValidate = validator.New()

// TriggerRequest starts a validation session.
type TriggerRequest struct {
	ValidationDetailID int64 `json:"validationDetailId" validate:"required,gt=0"`
}

// Validate checks the request fields.
func (r *TriggerRequest) Validate() error {
	return requestValidate.Struct(r)
}

// TriggerResponse is the run summary plus the run error, if any.
type TriggerResponse struct {
	*domain.Summary
	Error string `json:"error,omitempty"`
}

// AcceptedResponse is returned when a run is started in the background.
type AcceptedResponse struct {
	ValidationDetailID int64  `json:"validationDetailId"`
	Status             string `json:"status"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionView is the poller-facing shape of a session.
type SessionView struct {
	ID                 int64      `json:"validationDetailId"`
	UnitCode           string     `json:"unitCode"`
	RTOCode            string     `json:"rtoCode,omitempty"`
	RequirementType    string     `json:"requirementType"`
	DocumentType       string     `json:"documentType"`
	Status             string     `json:"status"`
	ValidationCount    int        `json:"validation_count"`
	ValidationTotal    int        `json:"validation_total"`
	ValidationProgress int        `json:"validation_progress"`
	ErrorMessage       string     `json:"errorMessage,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

// NewSessionView converts a session to its poller view.
func NewSessionView(s *domain.ValidationSession) SessionView {
	return SessionView{
		ID:                 s.ID,
		UnitCode:           s.UnitCode,
		RTOCode:            s.RTOCode,
		RequirementType:    s.RequirementType.String(),
		DocumentType:       s.DocumentType.String(),
		Status:             s.Status.String(),
		ValidationCount:    s.RequirementCount,
		ValidationTotal:    s.RequirementTotal,
		ValidationProgress: s.ProgressPercent,
		ErrorMessage:       s.ErrorMessage,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		StartedAt:          s.StartedAt,
		CompletedAt:        s.CompletedAt,
	}
}

// ResultsResponse lists a session's results.
type ResultsResponse struct {
	ValidationDetailID int64                     `json:"validationDetailId"`
	Results            []domain.ValidationResult `json:"results"`
	Count              int                       `json:"count"`
}
