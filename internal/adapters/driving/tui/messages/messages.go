// Package messages defines Bubbletea message types for the TUI.
// Messages represent events that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// PollRequested asks the app to fetch the session again.
type PollRequested struct{}

// SessionPolled carries the latest session state.
type SessionPolled struct {
	Session *domain.ValidationSession
	Err     error
}

// ResultsLoaded carries a session's result records.
type ResultsLoaded struct {
	Results []domain.ValidationResult
	Err     error
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewProgress shows session status and the progress bar.
	ViewProgress ViewType = iota
	// ViewResults lists the recorded results.
	ViewResults
)
