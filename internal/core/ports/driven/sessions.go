package driven

import (
	"context"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// SessionStore persists validation sessions and their progress counters.
type SessionStore interface {
	// Create stores a new pending session. A zero ID is assigned by the store.
	Create(ctx context.Context, session *domain.ValidationSession) error

	// Get retrieves a session by validation detail id.
	Get(ctx context.Context, id int64) (*domain.ValidationSession, error)

	// Start moves a pending session to processing, sets the requirement total
	// and resets the count. It returns domain.ErrSessionNotPending when the
	// session is not pending, so concurrent starts have one winner.
	Start(ctx context.Context, id int64, total int) error

	// UpdateProgress records the processed count and percentage.
	UpdateProgress(ctx context.Context, id int64, count, percent int) error

	// Finish moves the session to a terminal status.
	Finish(ctx context.Context, id int64, status domain.SessionStatus, progress int, message string) error
}

// ResultStore persists validation result records. Records are append-only.
type ResultStore interface {
	// Insert writes one record.
	Insert(ctx context.Context, result *domain.ValidationResult) error

	// ListBySession returns a session's records in insertion order.
	ListBySession(ctx context.Context, sessionID int64) ([]domain.ValidationResult, error)
}
