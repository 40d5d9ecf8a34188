// Package tui provides a terminal progress watcher for validation sessions.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driving"
)

// DefaultPollInterval is used when no interval is given.
const DefaultPollInterval = 2 * time.Second

var (
	ErrMissingSessionService = errors.New("tui: session service is required")
	ErrInvalidSession        = errors.New("tui: invalid session id")
)

const progressWidth = 40

// App watches a single validation session following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	sessions  driving.SessionQuery
	ctx       context.Context
	sessionID int64
	interval  time.Duration

	styles     *styles.Styles
	keymap     *keymap.KeyMap
	spinner    spinner.Model
	progress   progress.Model
	help       help.Model
	statusBar  *status.Bar
	resultList *list.ResultList

	// session is the last successfully polled state.
	session *domain.ValidationSession

	currentView messages.ViewType
	showHelp    bool

	// done is set once the session reaches a terminal state.
	done bool

	err      error
	lastPoll time.Time
	results  int

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a watcher for sessionID polling every interval.
func NewApp(sessions driving.SessionQuery, sessionID int64, interval time.Duration) (*App, error) {
	if sessions == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingSessionService)
	}
	if sessionID <= 0 {
		return nil, fmt.Errorf("creating app: %w", ErrInvalidSession)
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Subtitle
	h := help.New()
	h.Styles.FullKey = s.Subtitle
	h.Styles.FullDesc = s.Help
	h.Styles.FullSeparator = s.Muted

	return &App{
		sessions:    sessions,
		ctx:         context.Background(),
		sessionID:   sessionID,
		interval:    interval,
		styles:      s,
		keymap:      km,
		spinner:     sp,
		progress:    styles.NewProgressBar(styles.DefaultPalette(), progressWidth),
		help:        h,
		statusBar:   status.NewBar(s, km),
		resultList:  list.NewResultList(s, km),
		currentView: messages.ViewProgress,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.poll(),
		tea.SetWindowTitle(fmt.Sprintf("compliance - session %d", a.sessionID)),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.PollRequested:
		if a.done {
			return a, nil
		}
		return a, a.poll()

	case messages.SessionPolled:
		return a, a.handleSession(msg)

	case messages.ResultsLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.results = len(msg.Results)
		a.resultList.SetResults(msg.Results)
		a.syncStatus()
		return a, nil

	case spinner.TickMsg:
		if a.done {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keymap.Help):
		a.showHelp = !a.showHelp
		return a, nil
	case key.Matches(msg, a.keymap.Refresh):
		if a.done {
			return a, a.loadResults()
		}
		return a, a.poll()
	case key.Matches(msg, a.keymap.Toggle):
		if a.currentView == messages.ViewProgress {
			a.currentView = messages.ViewResults
			a.syncStatus()
			return a, a.loadResults()
		}
		a.currentView = messages.ViewProgress
		a.syncStatus()
		return a, nil
	}

	if a.currentView == messages.ViewResults {
		var cmd tea.Cmd
		a.resultList, cmd = a.resultList.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleSession(msg messages.SessionPolled) tea.Cmd {
	defer a.syncStatus()
	if msg.Err != nil {
		a.setError(msg.Err)
		// An unknown session will not appear later.
		if errors.Is(msg.Err, domain.ErrNotFound) {
			a.done = true
			return nil
		}
		return a.schedulePoll()
	}

	a.err = nil
	a.session = msg.Session
	a.lastPoll = time.Now()
	if msg.Session.Status.IsTerminal() {
		a.done = true
		return a.loadResults()
	}
	return a.schedulePoll()
}

// syncStatus pushes the watcher state to the status bar.
func (a *App) syncStatus() {
	snap := status.Snapshot{
		Results:     a.results,
		Err:         a.err,
		LastPoll:    a.lastPoll,
		ResultsView: a.currentView == messages.ViewResults,
	}
	if a.session != nil {
		snap.Status = a.session.Status
		snap.Progress = a.session.ProgressPercent
	}
	a.statusBar.Sync(snap)
}

func (a *App) setError(err error) {
	a.err = err
	a.syncStatus()
}

func (a *App) poll() tea.Cmd {
	ctx, svc, id := a.ctx, a.sessions, a.sessionID
	return func() tea.Msg {
		session, err := svc.Session(ctx, id)
		return messages.SessionPolled{Session: session, Err: err}
	}
}

func (a *App) schedulePoll() tea.Cmd {
	return tea.Tick(a.interval, func(time.Time) tea.Msg {
		return messages.PollRequested{}
	})
}

func (a *App) loadResults() tea.Cmd {
	ctx, svc, id := a.ctx, a.sessions, a.sessionID
	return func() tea.Msg {
		results, err := svc.Results(ctx, id)
		return messages.ResultsLoaded{Results: results, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	if a.currentView == messages.ViewResults {
		body = a.resultList.View()
	} else {
		body = a.viewProgress()
	}
	if a.showHelp {
		body += "\n\n" + a.viewHelp()
	}
	return body + "\n\n" + a.statusBar.View()
}

func (a *App) viewProgress() string {
	lines := []string{a.styles.Title.Render(fmt.Sprintf("Validation session %d", a.sessionID)), ""}

	if a.session == nil {
		if a.err != nil {
			return strings.Join(append(lines, a.styles.Error.Render(a.err.Error())), "\n")
		}
		return strings.Join(append(lines, a.spinner.View()+" Loading session..."), "\n")
	}

	s := a.session
	lines = append(lines,
		a.styles.Normal.Render(fmt.Sprintf("Unit:         %s", s.UnitCode)),
		a.styles.Normal.Render(fmt.Sprintf("Requirements: %s", s.RequirementType)),
		a.styles.Normal.Render(fmt.Sprintf("Documents:    %d", len(s.Documents))),
		"",
	)

	state := a.styles.SessionStatus(s.Status).Render(s.Status.String())
	if !a.done {
		state = a.spinner.View() + " " + state
	}
	lines = append(lines,
		state,
		RenderProgress(a.progress, s.RequirementCount, s.RequirementTotal, s.ProgressPercent),
	)

	if s.ErrorMessage != "" {
		lines = append(lines, "", a.styles.Error.Render(s.ErrorMessage))
	}
	if a.err != nil {
		lines = append(lines, "", a.styles.Warning.Render("Last poll failed: "+a.err.Error()))
	}
	return strings.Join(lines, "\n")
}

func (a *App) viewHelp() string {
	return a.help.FullHelpView(a.keymap.FullHelp())
}

// RenderProgress draws bar at percent followed by count/total (pct%).
func RenderProgress(bar progress.Model, count, total, percent int) string {
	percent = min(max(percent, 0), 100)
	return fmt.Sprintf("%s %d/%d (%d%%)", bar.ViewAs(float64(percent)/100), count, total, percent)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && a.ctx.Err() != nil {
		return nil
	}
	return err
}

// Session returns the last polled session state.
func (a *App) Session() *domain.ValidationSession {
	return a.session
}

// Done reports whether polling has stopped.
func (a *App) Done() bool {
	return a.done
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.statusBar.SetWidth(width)
	a.help.Width = width
	a.resultList.SetDimensions(width, height-4)
}
