package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driving"
	"github.com/custodia-labs/compliance-engine/internal/logger"
	"github.com/custodia-labs/compliance-engine/internal/observability"
)

// Ensure ValidationService implements the interface.
var _ driving.ValidationOrchestrator = (*ValidationService)(nil)

// ValidationService runs validation sessions. Requirements within a session
// are processed strictly in order; separate sessions may run concurrently.
type ValidationService struct {
	sessions     driven.SessionStore
	requirements driving.RequirementQuery
	prompts      *PromptResolver
	cache        *DocumentContentCache
	model        driven.ModelClient
	parser       *ResponseParser
	recorder     *ResultRecorder
	metrics      *observability.Metrics

	mu     sync.RWMutex
	active map[int64]time.Time
}

// NewValidationService creates a validation orchestrator.
// metrics is optional.
func NewValidationService(
	sessions driven.SessionStore,
	results driven.ResultStore,
	requirements driving.RequirementQuery,
	prompts *PromptResolver,
	cache *DocumentContentCache,
	model driven.ModelClient,
	metrics *observability.Metrics,
) *ValidationService {
	if prompts == nil {
		prompts = NewPromptResolver(nil)
	}
	if metrics == nil {
		metrics = observability.Discard()
	}
	return &ValidationService{
		sessions:     sessions,
		requirements: requirements,
		prompts:      prompts,
		cache:        cache,
		model:        model,
		parser:       NewResponseParser(),
		recorder:     NewResultRecorder(results, sessions),
		metrics:      metrics,
		active:       make(map[int64]time.Time),
	}
}

// runContext is the state of one session run. Templates are cached here so
// each requirement type is resolved once per run.
type runContext struct {
	session   *domain.ValidationSession
	chunks    []domain.DocumentContentChunk
	templates map[domain.RequirementType]*domain.PromptTemplate

	total          int
	count          int
	success        int
	fail           int
	insertFailures int
	distribution   map[domain.ResultStatus]int
}

// Validate runs a pending session to a terminal state.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *ValidationService) Validate(ctx context.Context, sessionID int64) (summary *domain.Summary, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "validation.Session", attribute.Int64("session.id", sessionID))
	defer func() { observability.EndSpan(span, err) }()

	// 1. Load the session
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", sessionID, err)
	}
	if session.Status != domain.SessionPending {
		return nil, fmt.Errorf("session %d is %s: %w", sessionID, session.Status, domain.ErrSessionNotPending)
	}
	logger.Section(fmt.Sprintf("Validation session %d", sessionID))
	logger.Info("Unit %s, %s against %s", session.UnitCode, session.RequirementType, session.DocumentType)

	if len(session.Documents) == 0 {
		s.failBeforeStart(ctx, session, "No documents attached to session")
		return nil, fmt.Errorf("session %d: %w", sessionID, domain.ErrNoDocuments)
	}

	// 2. Resolve requirements
	reqs, err := s.requirements.Fetch(ctx, session.UnitCode, session.RequirementType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.failBeforeStart(ctx, session, fmt.Sprintf("No %s requirements found for unit %s", session.RequirementType, session.UnitCode))
			return nil, fmt.Errorf("session %d: %w", sessionID, domain.ErrNoRequirements)
		}
		s.failBeforeStart(ctx, session, "Failed to load requirements: "+err.Error())
		return nil, fmt.Errorf("fetch requirements: %w", err)
	}

	// 3. Claim the session
	if err := s.sessions.Start(ctx, sessionID, len(reqs)); err != nil {
		return nil, fmt.Errorf("start session %d: %w", sessionID, err)
	}
	s.track(sessionID, start)
	defer s.untrack(sessionID)
	s.metrics.ActiveSessions.Inc()
	defer s.metrics.ActiveSessions.Dec()

	rc := &runContext{
		session:      session,
		templates:    make(map[domain.RequirementType]*domain.PromptTemplate),
		total:        len(reqs),
		distribution: make(map[domain.ResultStatus]int),
	}

	// 4. Populate the content cache once per document
	if err := s.loadContent(ctx, rc); err != nil {
		s.finish(ctx, rc, domain.SessionFailed, err.Error())
		return s.summary(rc, domain.SessionFailed, start), err
	}

	// 5. Validate each requirement, grouped by type
	order, groups := domain.GroupByType(reqs)
	for _, reqType := range order {
		tmpl := s.template(ctx, rc, reqType)
		logger.Info("Validating %d %s requirements", len(groups[reqType]), reqType)
		for _, req := range groups[reqType] {
			s.validateRequirement(ctx, rc, req, tmpl)
		}
	}

	// 6. Apply the terminal status rule
	status := domain.TerminalStatus(rc.success, rc.fail)
	var message string
	if status == domain.SessionFailed {
		message = fmt.Sprintf("All %d requirements failed validation", rc.total)
	}
	if rc.insertFailures > 0 {
		logger.Warn("session %d: %d result records could not be stored", sessionID, rc.insertFailures)
	}
	s.finish(ctx, rc, status, message)

	summary = s.summary(rc, status, start)
	logger.Info("Session %d %s: %d succeeded, %d failed in %dms",
		sessionID, status, rc.success, rc.fail, summary.ElapsedMs)
	return summary, nil
}

// Active returns the IDs of sessions currently processing in this process.
func (s *ValidationService) Active() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *ValidationService) loadContent(ctx context.Context, rc *runContext) error {
	var failed int
	for _, doc := range rc.session.Documents {
		chunks, err := s.cache.GetOrExtract(ctx, doc)
		if err != nil {
			failed++
			logger.Warn("session %d: %v", rc.session.ID, err)
			continue
		}
		rc.chunks = append(rc.chunks, chunks...)
	}
	if failed == len(rc.session.Documents) {
		return fmt.Errorf("%w: all %d documents could not be extracted", domain.ErrExtractionFailed, failed)
	}
	logger.Info("Loaded %d content chunks from %d documents", len(rc.chunks), len(rc.session.Documents)-failed)
	return nil
}

func (s *ValidationService) template(ctx context.Context, rc *runContext, reqType domain.RequirementType) *domain.PromptTemplate {
	if tmpl, ok := rc.templates[reqType]; ok {
		return tmpl
	}
	tmpl := s.prompts.Resolve(ctx, reqType, rc.session.DocumentType)
	rc.templates[reqType] = tmpl
	return tmpl
}

// validateRequirement always records exactly one result and advances progress.
func (s *ValidationService) validateRequirement(ctx context.Context, rc *runContext, req domain.Requirement, tmpl *domain.PromptTemplate) {
	ctx, span := observability.StartSpan(ctx, "validation.Requirement",
		attribute.String("requirement.type", req.Type.String()),
		attribute.String("requirement.number", req.Number),
	)
	result, err := s.evaluate(ctx, rc, req, tmpl)
	if err != nil {
		logger.WarnContext(ctx, "requirement %s %s: %v", req.Type, req.Number, err)
		result = domain.ErrorResult(rc.session.ID, req, rc.session.DocumentType, "Validation failed: "+err.Error())
	}
	observability.EndSpan(span, err)
	result.SessionID = rc.session.ID

	if result.Status.IsFailure() {
		rc.fail++
	} else {
		rc.success++
	}
	rc.distribution[result.Status]++
	s.metrics.RequirementsTotal.WithLabelValues(req.Type.String(), result.Status.String()).Inc()

	if err := s.recorder.Persist(ctx, &result); err != nil {
		rc.insertFailures++
	}
	rc.count = s.recorder.AdvanceProgress(ctx, rc.session.ID, rc.count, rc.total)
	logger.Debug("requirement %s %s: %s (%d/%d)", req.Type, req.Number, result.Status, rc.count, rc.total)
}

func (s *ValidationService) evaluate(ctx context.Context, rc *runContext, req domain.Requirement, tmpl *domain.PromptTemplate) (result domain.ValidationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	resp, err := s.model.Validate(ctx, driven.ModelRequest{
		Requirement:       req,
		Prompt:            BuildPrompt(rc.session, req, tmpl),
		SystemInstruction: tmpl.SystemInstruction,
		OutputSchema:      tmpl.OutputSchema,
		Generation:        tmpl.Generation,
		StoreRef:          rc.session.StoreRef,
		SessionChunks:     rc.chunks,
	})
	if err != nil {
		return domain.ValidationResult{}, err
	}

	result = s.parser.Parse(resp.Text, req, rc.session.DocumentType)
	if result.Citations == "" && len(resp.GroundingChunks) > 0 {
		result.Citations = groundingCitations(resp.GroundingChunks)
	}
	return result, nil
}

func (s *ValidationService) failBeforeStart(ctx context.Context, session *domain.ValidationSession, message string) {
	logger.WarnContext(ctx, "session %d failed: %s", session.ID, message)
	if err := s.sessions.Finish(context.WithoutCancel(ctx), session.ID, domain.SessionFailed, 0, message); err != nil {
		logger.ErrorContext(ctx, "failed to mark session %d failed: %v", session.ID, err)
	}
	s.metrics.SessionsTotal.WithLabelValues(domain.SessionFailed.String()).Inc()
}

func (s *ValidationService) finish(ctx context.Context, rc *runContext, status domain.SessionStatus, message string) {
	if err := s.sessions.Finish(context.WithoutCancel(ctx), rc.session.ID, status, 100, message); err != nil {
		logger.ErrorContext(ctx, "failed to finish session %d: %v", rc.session.ID, err)
	}
	s.metrics.SessionsTotal.WithLabelValues(status.String()).Inc()
}

func (s *ValidationService) summary(rc *runContext, status domain.SessionStatus, start time.Time) *domain.Summary {
	elapsed := time.Since(start)
	s.metrics.SessionDurationSeconds.WithLabelValues(status.String()).Observe(elapsed.Seconds())
	return &domain.Summary{
		SessionID:             rc.session.ID,
		Status:                status,
		TotalRequirements:     rc.total,
		SuccessfulValidations: rc.success,
		FailedValidations:     rc.fail,
		StatusDistribution:    rc.distribution,
		ElapsedMs:             elapsed.Milliseconds(),
	}
}

func (s *ValidationService) track(id int64, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[id] = start
}

func (s *ValidationService) untrack(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

func groundingCitations(chunks []driven.GroundingChunk) string {
	seen := make(map[string]bool)
	var titles []string
	for _, c := range chunks {
		title := c.Title
		if title == "" {
			title = c.URI
		}
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		titles = append(titles, title)
	}
	if len(titles) == 0 {
		return ""
	}
	return fieldString(toAny(titles))
}

func toAny(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
