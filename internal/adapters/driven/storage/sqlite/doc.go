// Package sqlite keeps every engine table in one modernc.org/sqlite
// database (no cgo): sessions and their documents, append-only results,
// the document content cache, the five per-type requirement tables and
// prompt templates.
//
// Migrations are embedded from migrations/ and applied in order on open.
// The database runs in WAL mode. Claiming a session is a conditional
// update on status = 'pending', so only one caller can move it to
// processing; content cache rows are upserted on (document_url, ordinal).
package sqlite
