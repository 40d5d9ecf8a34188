// Package driven declares the outbound ports of the validation core:
// session and result persistence, requirement rows, prompt templates, the
// extracted-content cache, document download and extraction, the model
// backends and request pacing. Adapters under internal/adapters/driven and
// the normaliser and post-processor packages implement them.
//
// This package imports only domain.
package driven
