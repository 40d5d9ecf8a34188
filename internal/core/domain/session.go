package domain

import "time"

// SessionStatus is the lifecycle state of a validation session.
type SessionStatus string

// Session states. pending → processing → {completed | partial | failed}.
const (
	SessionPending    SessionStatus = "pending"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionPartial    SessionStatus = "partial"
	SessionFailed     SessionStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionPending, SessionProcessing, SessionCompleted, SessionPartial, SessionFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for states that are never left.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionPartial || s == SessionFailed
}

// CanTransition reports whether moving from s to next is allowed.
// A pending session may fail before processing when its inputs cannot be
// resolved; a processing session may only move to a terminal state.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	switch s {
	case SessionPending:
		return next == SessionProcessing || next == SessionFailed
	case SessionProcessing:
		return next.IsTerminal()
	default:
		return false
	}
}

// String returns the string representation.
func (s SessionStatus) String() string {
	return string(s)
}

// TerminalStatus applies the terminal-status rule to final counts.
func TerminalStatus(successCount, failCount int) SessionStatus {
	switch {
	case successCount == 0:
		return SessionFailed
	case failCount == 0:
		return SessionCompleted
	default:
		return SessionPartial
	}
}

// ValidationSession is one validation run over a document set against a
// requirement set. Its ID is the upstream validation detail id.
type ValidationSession struct {
	// ID is the validation detail id.
	ID int64

	// UnitCode is the unit of competency being validated.
	UnitCode string

	// RTOCode identifies the training organisation.
	RTOCode string

	// RequirementType is the requested type, possibly aggregate.
	RequirementType RequirementType

	// DocumentType is the kind of material uploaded.
	DocumentType DocumentType

	// Documents is the session's document set.
	Documents []SessionDocument

	// StoreRef references the session's indexed document store for managed grounding.
	StoreRef string

	// RequirementTotal is the number of requirements to process.
	RequirementTotal int

	// RequirementCount is the number processed so far.
	RequirementCount int

	// ProgressPercent is RequirementCount as a percentage of RequirementTotal.
	ProgressPercent int

	// Status is the lifecycle state.
	Status SessionStatus

	// ErrorMessage explains a failed status.
	ErrorMessage string

	// CreatedAt is when the upstream caller created the session.
	CreatedAt time.Time

	// UpdatedAt is the last state or progress change.
	UpdatedAt time.Time

	// StartedAt is when processing began.
	StartedAt *time.Time

	// CompletedAt is when a terminal state was reached.
	CompletedAt *time.Time
}

// Progress computes the percentage for count of total, capped at 100.
func Progress(count, total int) int {
	if total <= 0 {
		return 0
	}
	if count >= total {
		return 100
	}
	return count * 100 / total
}

// Summary is returned to the caller that triggered a session.
type Summary struct {
	SessionID             int64                `json:"validationDetailId"`
	Status                SessionStatus        `json:"status"`
	TotalRequirements     int                  `json:"totalRequirements"`
	SuccessfulValidations int                  `json:"successfulValidations"`
	FailedValidations     int                  `json:"failedValidations"`
	StatusDistribution    map[ResultStatus]int `json:"statusDistribution"`
	ElapsedMs             int64                `json:"elapsedMs"`
}
