// Package status renders the watcher's bottom line: what the session is
// doing, how fresh that information is, and the key hints.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// Snapshot is the watcher state the bar summarises.
type Snapshot struct {
	// Status is empty until the first successful poll.
	Status   domain.SessionStatus
	Progress int
	Results  int

	// Err is the last poll or load failure, cleared by the next success.
	Err error

	LastPoll    time.Time
	ResultsView bool
}

// Bar is the status line. It holds no state beyond the last snapshot.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	snap   Snapshot
	width  int
	now    func() time.Time
}

// NewBar creates a bar. Nil arguments select the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, width: 80, now: time.Now}
}

// Sync replaces the snapshot.
func (b *Bar) Sync(snap Snapshot) {
	b.snap = snap
}

// Snapshot returns the last synced state.
func (b *Bar) Snapshot() Snapshot {
	return b.snap
}

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the rendered width.
func (b *Bar) Width() int {
	return b.width
}

// View renders the summary on the left and key hints on the right.
func (b *Bar) View() string {
	left := b.summary()
	right := b.hints()

	gap := b.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) summary() string {
	snap := b.snap
	switch {
	case snap.Err != nil:
		return b.styles.Error.Render("Error: " + snap.Err.Error())
	case snap.Status == "":
		return b.styles.Muted.Render("Connecting...")
	case snap.Status.IsTerminal():
		return b.styles.SessionStatus(snap.Status).Render(fmt.Sprintf("%s, %d results", snap.Status, snap.Results))
	default:
		text := fmt.Sprintf("Watching: %s %d%%", snap.Status, snap.Progress)
		if age := b.age(); age != "" {
			text += ", polled " + age
		}
		return b.styles.Muted.Render(text)
	}
}

// age is the time since the last poll in whole seconds.
func (b *Bar) age() string {
	if b.snap.LastPoll.IsZero() {
		return ""
	}
	secs := int(b.now().Sub(b.snap.LastPoll) / time.Second)
	if secs < 1 {
		return "just now"
	}
	return fmt.Sprintf("%ds ago", secs)
}

func (b *Bar) hints() string {
	bindings := b.keymap.ShortHelp()
	if b.snap.ResultsView && b.snap.Results > 0 {
		bindings = b.keymap.ResultsHelp()
	}
	return b.styles.Muted.Render(joinHints(bindings))
}

func joinHints(bindings []key.Binding) string {
	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return strings.Join(hints, " | ")
}
