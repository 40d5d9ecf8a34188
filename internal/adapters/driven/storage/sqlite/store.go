package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all engine store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.compliance/data/compliance.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".compliance", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "compliance.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SessionStore returns a SessionStore interface backed by this store.
func (s *Store) SessionStore() driven.SessionStore {
	return &sessionStore{store: s}
}

// ResultStore returns a ResultStore interface backed by this store.
func (s *Store) ResultStore() driven.ResultStore {
	return &resultStore{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// RequirementSource returns a RequirementSource interface backed by this store.
func (s *Store) RequirementSource() driven.RequirementSource {
	return &requirementSource{store: s}
}

// PromptTemplateStore returns a PromptTemplateStore interface backed by this store.
func (s *Store) PromptTemplateStore() driven.PromptTemplateStore {
	return &promptStore{store: s}
}

//go:embed migrations/*.up.sql
var migrationFS embed.FS

// migrate applies every migrations/NNN_*.up.sql newer than the recorded
// schema version, each in its own transaction.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	names, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(filepath.Base(name), "%d_", &version); err != nil || version <= current {
			continue
		}
		script, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if err := s.apply(version, string(script)); err != nil {
			return fmt.Errorf("applying %s: %w", filepath.Base(name), err)
		}
	}
	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Session Store ====================

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// Create stores a new session and its documents. A zero ID is assigned by SQLite.
func (s *sessionStore) Create(ctx context.Context, session *domain.ValidationSession) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.Status == "" {
		session.Status = domain.SessionPending
	}
	session.UpdatedAt = now

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if session.ID != 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM validation_sessions WHERE id = ?", session.ID).Scan(&exists)
		if err == nil {
			return fmt.Errorf("session %d: %w", session.ID, domain.ErrAlreadyExists)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking session: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO validation_sessions (id, unit_code, rto_code, requirement_type, document_type, store_ref,
			status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, nullInt64(session.ID), session.UnitCode, session.RTOCode, string(session.RequirementType),
		string(session.DocumentType), session.StoreRef, string(session.Status), session.ErrorMessage,
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if session.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading session id: %w", err)
		}
		session.ID = id
	}

	for i, doc := range session.Documents {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_documents (session_id, position, document_id, filename, storage_path,
				document_url, store_ref, mime_type)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, session.ID, i, doc.ID, doc.Filename, doc.StoragePath, doc.DocumentURL, doc.StoreRef, doc.MIMEType); err != nil {
			return fmt.Errorf("saving session document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get retrieves a session and its documents.
func (s *sessionStore) Get(ctx context.Context, id int64) (*domain.ValidationSession, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, unit_code, rto_code, requirement_type, document_type, store_ref, requirement_total,
			requirement_count, progress_percent, status, error_message, created_at, updated_at,
			started_at, completed_at
		FROM validation_sessions WHERE id = ?
	`, id)

	session, err := scanSession(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, filename, storage_path, document_url, store_ref, mime_type
		FROM session_documents WHERE session_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying session documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc domain.SessionDocument
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.StoragePath, &doc.DocumentURL,
			&doc.StoreRef, &doc.MIMEType); err != nil {
			return nil, fmt.Errorf("scanning session document: %w", err)
		}
		session.Documents = append(session.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session documents: %w", err)
	}

	return session, nil
}

// Start moves a pending session to processing. The status check and the
// update are one statement, so only one caller can win.
func (s *sessionStore) Start(ctx context.Context, id int64, total int) error {
	now := time.Now().UTC()
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE validation_sessions
		SET status = ?, requirement_total = ?, requirement_count = 0, progress_percent = 0,
			started_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(domain.SessionProcessing), total, now, now, id, string(domain.SessionPending))
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	if affected(res) == 0 {
		if _, err := s.status(ctx, id); err != nil {
			return err
		}
		return domain.ErrSessionNotPending
	}
	return nil
}

// UpdateProgress records progress. Lower counts than the stored one are ignored.
func (s *sessionStore) UpdateProgress(ctx context.Context, id int64, count, percent int) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE validation_sessions
		SET requirement_count = ?, progress_percent = ?, updated_at = ?
		WHERE id = ? AND status = ? AND requirement_count <= ?
	`, count, percent, time.Now().UTC(), id, string(domain.SessionProcessing), count)
	if err != nil {
		return fmt.Errorf("updating progress: %w", err)
	}
	if affected(res) == 0 {
		status, err := s.status(ctx, id)
		if err != nil {
			return err
		}
		if status != domain.SessionProcessing {
			return fmt.Errorf("progress on %s session: %w", status, domain.ErrInvalidTransition)
		}
	}
	return nil
}

// Finish moves the session to a terminal status.
func (s *sessionStore) Finish(ctx context.Context, id int64, status domain.SessionStatus, progress int, message string) error {
	current, err := s.status(ctx, id)
	if err != nil {
		return err
	}
	if !status.IsTerminal() || !current.CanTransition(status) {
		return fmt.Errorf("%s to %s: %w", current, status, domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE validation_sessions
		SET status = ?, progress_percent = ?, error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(status), progress, message, now, now, id, string(current))
	if err != nil {
		return fmt.Errorf("finishing session: %w", err)
	}
	if affected(res) == 0 {
		return fmt.Errorf("session %d changed concurrently: %w", id, domain.ErrInvalidTransition)
	}
	return nil
}

func (s *sessionStore) status(ctx context.Context, id int64) (domain.SessionStatus, error) {
	var status string
	err := s.store.db.QueryRowContext(ctx, "SELECT status FROM validation_sessions WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading session status: %w", err)
	}
	return domain.SessionStatus(status), nil
}

// ==================== Result Store ====================

// resultStore implements driven.ResultStore.
type resultStore struct {
	store *Store
}

var _ driven.ResultStore = (*resultStore)(nil)

// Insert appends a result record.
func (s *resultStore) Insert(ctx context.Context, result *domain.ValidationResult) error {
	if result.ID == "" {
		result.ID = newID()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO validation_results (id, validation_detail_id, requirement_type, requirement_number,
			requirement_text, status, reasoning, mapped_content, citations, smart_questions,
			benchmark_answer, recommendations, document_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.ID, result.SessionID, string(result.RequirementType), result.RequirementNumber,
		result.RequirementText, string(result.Status), result.Reasoning, result.MappedContent,
		result.Citations, result.SmartQuestion, result.BenchmarkAnswer, result.Recommendations,
		string(result.DocumentType), result.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving result: %w", err)
	}
	return nil
}

// ListBySession returns a session's records in insertion order.
func (s *resultStore) ListBySession(ctx context.Context, sessionID int64) ([]domain.ValidationResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, validation_detail_id, requirement_type, requirement_number, requirement_text, status,
			reasoning, mapped_content, citations, smart_questions, benchmark_answer, recommendations,
			document_type, created_at
		FROM validation_results WHERE validation_detail_id = ? ORDER BY rowid
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []domain.ValidationResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.ValidationResult
		var reqType, status, docType string
		var createdAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.SessionID, &reqType, &r.RequirementNumber, &r.RequirementText,
			&status, &r.Reasoning, &r.MappedContent, &r.Citations, &r.SmartQuestion,
			&r.BenchmarkAnswer, &r.Recommendations, &docType, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.RequirementType = domain.RequirementType(reqType)
		r.Status = domain.ResultStatus(status)
		r.DocumentType = domain.DocumentType(docType)
		if createdAt.Valid {
			r.CreatedAt = createdAt.Time
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	return results, nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// GetChunks returns the chunks for a document URL in ordinal order.
func (s *chunkStore) GetChunks(ctx context.Context, documentURL string) ([]domain.DocumentContentChunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_url, filename, page_number, ordinal, content, kind
		FROM document_content_chunks WHERE document_url = ? ORDER BY ordinal
	`, documentURL)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.DocumentContentChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.DocumentContentChunk
		var kind string
		if err := rows.Scan(&c.ID, &c.DocumentURL, &c.Filename, &c.PageNumber, &c.Ordinal, &c.Text, &kind); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Kind = domain.ChunkKind(kind)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// UpsertChunks writes chunks keyed by (document URL, ordinal). Racing
// writers for the same document converge on one row per ordinal.
func (s *chunkStore) UpsertChunks(ctx context.Context, chunks []domain.DocumentContentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_content_chunks (id, document_url, filename, page_number, ordinal, content, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_url, ordinal) DO UPDATE SET
			filename = excluded.filename,
			page_number = excluded.page_number,
			content = excluded.content,
			kind = excluded.kind
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = newID()
		}
		if _, err := stmt.ExecContext(ctx, id, c.DocumentURL, c.Filename, c.PageNumber, c.Ordinal,
			c.Text, string(c.Kind), now); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Requirement Source ====================

// requirementTables maps concrete types to their physical tables.
var requirementTables = map[domain.RequirementType]string{
	domain.RequirementKnowledgeEvidence:    "knowledge_evidence",
	domain.RequirementPerformanceEvidence:  "performance_evidence",
	domain.RequirementFoundationSkills:     "foundation_skills",
	domain.RequirementElementsCriteria:     "elements_criteria",
	domain.RequirementAssessmentConditions: "assessment_conditions",
}

// requirementSource implements driven.RequirementSource.
type requirementSource struct {
	store *Store
}

var _ driven.RequirementSource = (*requirementSource)(nil)

// Rows returns the raw rows of one requirement table for a unit.
func (s *requirementSource) Rows(ctx context.Context, unitCode string, reqType domain.RequirementType) ([]driven.RequirementRow, error) {
	table, ok := requirementTables[reqType]
	if !ok {
		return nil, domain.ErrUnsupportedType
	}

	//nolint:gosec // table name comes from a fixed map
	rows, err := s.store.db.QueryContext(ctx, "SELECT * FROM "+table+" WHERE unit_code = ? ORDER BY id", unitCode)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading %s columns: %w", table, err)
	}

	var result []driven.RequirementRow //nolint:prealloc // size unknown from query
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		row := make(driven.RequirementRow, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return result, nil
}

// ==================== Prompt Template Store ====================

// promptStore implements driven.PromptTemplateStore.
type promptStore struct {
	store *Store
}

var _ driven.PromptTemplateStore = (*promptStore)(nil)

// Resolve returns the active default template for the pair, or nil.
func (s *promptStore) Resolve(ctx context.Context, reqType domain.RequirementType, docType domain.DocumentType) (*domain.PromptTemplate, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, requirement_type, document_type, prompt, system_instruction, output_schema,
			temperature, max_output_tokens, top_p, is_active, is_default
		FROM prompt_templates
		WHERE requirement_type = ? AND document_type = ? AND is_active = 1 AND is_default = 1
		ORDER BY updated_at DESC
		LIMIT 1
	`, string(reqType), string(docType))

	var t domain.PromptTemplate
	var rt, dt string
	err := row.Scan(&t.ID, &rt, &dt, &t.Prompt, &t.SystemInstruction, &t.OutputSchema,
		&t.Generation.Temperature, &t.Generation.MaxOutputTokens, &t.Generation.TopP,
		&t.IsActive, &t.IsDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning prompt template: %w", err)
	}
	t.RequirementType = domain.RequirementType(rt)
	t.DocumentType = domain.DocumentType(dt)
	return &t, nil
}

// Save stores or updates a template.
func (s *promptStore) Save(ctx context.Context, tmpl *domain.PromptTemplate) error {
	if tmpl.ID == "" {
		return fmt.Errorf("%w: template id is required", domain.ErrInvalidInput)
	}
	gen := tmpl.Generation
	if gen.MaxOutputTokens <= 0 {
		gen = domain.DefaultGenerationConfig()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO prompt_templates (id, requirement_type, document_type, prompt, system_instruction,
			output_schema, temperature, max_output_tokens, top_p, is_active, is_default, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			requirement_type = excluded.requirement_type,
			document_type = excluded.document_type,
			prompt = excluded.prompt,
			system_instruction = excluded.system_instruction,
			output_schema = excluded.output_schema,
			temperature = excluded.temperature,
			max_output_tokens = excluded.max_output_tokens,
			top_p = excluded.top_p,
			is_active = excluded.is_active,
			is_default = excluded.is_default,
			updated_at = excluded.updated_at
	`, tmpl.ID, string(tmpl.RequirementType), string(tmpl.DocumentType), tmpl.Prompt,
		tmpl.SystemInstruction, tmpl.OutputSchema, gen.Temperature, gen.MaxOutputTokens, gen.TopP,
		tmpl.IsActive, tmpl.IsDefault, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving prompt template: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

func scanSession(row *sql.Row) (*domain.ValidationSession, error) {
	var session domain.ValidationSession
	var reqType, docType, status string
	var createdAt, updatedAt, startedAt, completedAt sql.NullTime
	if err := row.Scan(&session.ID, &session.UnitCode, &session.RTOCode, &reqType, &docType,
		&session.StoreRef, &session.RequirementTotal, &session.RequirementCount,
		&session.ProgressPercent, &status, &session.ErrorMessage, &createdAt, &updatedAt,
		&startedAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	session.RequirementType = domain.RequirementType(reqType)
	session.DocumentType = domain.DocumentType(docType)
	session.Status = domain.SessionStatus(status)
	if createdAt.Valid {
		session.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		session.UpdatedAt = updatedAt.Time
	}
	if startedAt.Valid {
		t := startedAt.Time
		session.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		session.CompletedAt = &t
	}
	return &session, nil
}

func newID() string {
	return uuid.New().String()
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func affected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
