package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown requirement, document or MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Session Errors.

	// ErrSessionNotPending indicates the session was already started or finished.
	// Sessions are never re-entered once they leave pending.
	ErrSessionNotPending = errors.New("session is not pending")

	// ErrInvalidTransition indicates a forbidden session state change.
	ErrInvalidTransition = errors.New("invalid session status transition")

	// ErrNoDocuments indicates the session has no documents attached.
	ErrNoDocuments = errors.New("session has no documents")

	// ErrNoRequirements indicates no requirements exist for the unit and type.
	ErrNoRequirements = errors.New("no requirements found")

	// Pipeline Errors.

	// ErrExtractionFailed indicates document text could not be extracted.
	ErrExtractionFailed = errors.New("document extraction failed")

	// ErrNoGrounding indicates the managed-grounding backend returned no citations.
	ErrNoGrounding = errors.New("no grounding chunks returned")

	// ErrParseFailed indicates a model reply could not be parsed as JSON.
	ErrParseFailed = errors.New("failed to parse model response")

	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrRateLimited indicates the backend rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrLLMUnavailable indicates the model backend is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrStorageUnavailable indicates the object storage backend is not configured.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
