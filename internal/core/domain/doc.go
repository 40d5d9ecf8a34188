// Package domain holds the entities of compliance validation: requirements
// in canonical form, prompt templates, extracted document chunks, sessions
// with their progress, and per-requirement results. It also defines the
// settings model and the sentinel errors every layer wraps.
//
// domain imports only the standard library.
package domain
