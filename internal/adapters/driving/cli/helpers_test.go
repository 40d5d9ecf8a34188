package cli

import (
	"bytes"
	"context"
	"sync"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	coreservices "github.com/custodia-labs/compliance-engine/internal/core/services"
)

const testUnit = "BSBOPS304"

// fakeOrchestrator finishes the session it is asked to run.
type fakeOrchestrator struct {
	mu       sync.Mutex
	sessions *memory.SessionStore
	summary  *domain.Summary
	err      error
	calls    []int64
}

func (f *fakeOrchestrator) Validate(ctx context.Context, id int64) (*domain.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.summary != nil && f.sessions != nil {
		_ = f.sessions.Start(ctx, id, f.summary.TotalRequirements)
		_ = f.sessions.Finish(ctx, id, f.summary.Status, 100, "")
	}
	return f.summary, f.err
}

// stubModelValidator accepts every configuration unless err is set.
type stubModelValidator struct {
	err error
}

func (s *stubModelValidator) ValidateModel(domain.AppSettings) error {
	return s.err
}

type testServices struct {
	sessions     *memory.SessionStore
	results      *memory.ResultStore
	requirements *memory.RequirementStore
	config       *memory.ConfigStore
	orch         *fakeOrchestrator
	validator    *stubModelValidator
}

// setupTestServices installs in-memory services and returns a cleanup func
// that restores the globals and flag variables.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		sessions:     memory.NewSessionStore(),
		results:      memory.NewResultStore(),
		requirements: memory.NewRequirementStore(),
		config:       memory.NewConfigStore(),
		validator:    &stubModelValidator{},
	}
	ts.orch = &fakeOrchestrator{sessions: ts.sessions}

	ts.requirements.Add(testUnit, domain.RequirementKnowledgeEvidence,
		driven.RequirementRow{"id": "ke-1", "ke_number": "1", "knowledge_point": "Workplace health and safety"},
		driven.RequirementRow{"id": "ke-2", "ke_number": "2", "knowledge_point": "Record keeping"},
	)

	SetServices(&Services{
		Orchestrator: ts.orch,
		Sessions:     coreservices.NewSessionService(ts.sessions, ts.results),
		Requirements: coreservices.NewRequirementsRepository(ts.requirements),
		Settings:     coreservices.NewSettingsService(ts.config, ts.validator),
	})

	return ts, func() {
		SetServices(nil)
		rootCmd.SetArgs(nil)
		validateJSON = false
		statusJSON = false
		resultsJSON = false
		resultsStatus = ""
		requirementsJSON = false
		sessionDocs = nil
		sessionDocType = ""
		sessionStoreRef = ""
		sessionRTO = ""
		sessionType = string(domain.RequirementFullUnit)
		modelStrategy = ""
		modelProvider = ""
		modelName = ""
		modelAPIKey = ""
		resetYes = false
		mcpHost = "127.0.0.1"
		mcpPort = 0
	}
}

func (ts *testServices) addSession(id int64) {
	_ = ts.sessions.Create(context.Background(), &domain.ValidationSession{
		ID:              id,
		UnitCode:        testUnit,
		RequirementType: domain.RequirementKnowledgeEvidence,
		DocumentType:    domain.DocumentTypeAssessment,
		Documents:       []domain.SessionDocument{{ID: "d1", Filename: "a.pdf", StoragePath: "a.pdf"}},
	})
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
