package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/logger"
)

// ResultRecorder writes result records and progress. Store writes run on a
// context detached from cancellation so a cancelled run still records what
// it finished.
type ResultRecorder struct {
	results  driven.ResultStore
	sessions driven.SessionStore
}

// NewResultRecorder creates a recorder.
func NewResultRecorder(results driven.ResultStore, sessions driven.SessionStore) *ResultRecorder {
	return &ResultRecorder{results: results, sessions: sessions}
}

// Persist inserts one record. Failures are logged and returned for counting;
// they never stop the run.
func (r *ResultRecorder) Persist(ctx context.Context, result *domain.ValidationResult) error {
	if err := r.results.Insert(context.WithoutCancel(ctx), result); err != nil {
		logger.Warn("failed to store result for session %d requirement %s: %v",
			result.SessionID, result.RequirementNumber, err)
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// AdvanceProgress moves the processed count from current to current+1,
// capped at total, and stores it with its percentage. It returns the new
// count, which is never lower than current.
func (r *ResultRecorder) AdvanceProgress(ctx context.Context, sessionID int64, current, total int) int {
	next := current + 1
	if next > total {
		next = total
	}
	if next < current {
		next = current
	}
	if err := r.sessions.UpdateProgress(context.WithoutCancel(ctx), sessionID, next, domain.Progress(next, total)); err != nil {
		logger.Warn("failed to update progress for session %d: %v", sessionID, err)
	}
	return next
}
