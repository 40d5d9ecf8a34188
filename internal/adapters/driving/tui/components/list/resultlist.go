// Package list renders the per-requirement verdicts of a finished session.
package list

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// tallyOrder fixes the order verdicts are counted in the header.
var tallyOrder = []domain.ResultStatus{
	domain.ResultMet,
	domain.ResultPartiallyMet,
	domain.ResultNotMet,
	domain.ResultError,
}

// ResultList is a scrollable list of validation results, two lines each.
type ResultList struct {
	results  []domain.ValidationResult
	selected int
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	width    int
	height   int
}

// NewResultList creates an empty list. Nil arguments fall back to defaults.
func NewResultList(s *styles.Styles, km *keymap.KeyMap) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &ResultList{
		styles: s,
		keymap: km,
		width:  80,
		height: 10,
	}
}

// Init implements the bubbletea component contract.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update moves the selection in response to navigation keys.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return r, nil
	}
	switch {
	case key.Matches(km, r.keymap.Up):
		r.MoveUp()
	case key.Matches(km, r.keymap.Down):
		r.MoveDown()
	case key.Matches(km, r.keymap.Top):
		r.selected = 0
	case key.Matches(km, r.keymap.Bottom):
		if len(r.results) > 0 {
			r.selected = len(r.results) - 1
		}
	}
	return r, nil
}

// View renders the tally header and the visible window of results.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.results)+2)
	lines = append(lines, r.header(), "")

	visible := (r.height - 2) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.results))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i, &r.results[i]))
	}
	return strings.Join(lines, "\n")
}

func (r *ResultList) header() string {
	counts := r.Tally()
	parts := make([]string, 0, len(tallyOrder))
	for _, status := range tallyOrder {
		if n := counts[status]; n > 0 {
			parts = append(parts, r.styles.Verdict(status).Render(fmt.Sprintf("%d %s", n, status)))
		}
	}
	title := r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.results)))
	if len(parts) == 0 {
		return title
	}
	return title + "  " + strings.Join(parts, r.styles.Muted.Render(" · "))
}

func (r *ResultList) renderResult(index int, result *domain.ValidationResult) string {
	label := fmt.Sprintf("  %s %s", result.RequirementType, result.RequirementNumber)
	style := r.styles.Normal
	if index == r.selected {
		label = fmt.Sprintf("> %s %s", result.RequirementType, result.RequirementNumber)
		style = r.styles.Selected
	}
	head := style.Render(label) + "  " + r.styles.Verdict(result.Status).Render(result.Status.String())

	detail := result.Reasoning
	if detail == "" {
		detail = result.RequirementText
	}
	return head + "\n" + r.styles.Muted.Render("    "+clip(detail, r.width-6))
}

func clip(s string, n int) string {
	if n < 20 {
		n = 20
	}
	runes := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n-3]) + "..."
}

// SetResults replaces the list contents. The selection follows the same
// requirement when it is still present and otherwise clamps to the list.
func (r *ResultList) SetResults(results []domain.ValidationResult) {
	prev := r.SelectedResult()
	r.results = results

	if prev != nil {
		for i := range results {
			if results[i].RequirementType == prev.RequirementType &&
				results[i].RequirementNumber == prev.RequirementNumber {
				r.selected = i
				return
			}
		}
	}
	r.selected = max(0, min(r.selected, len(results)-1))
}

// Tally counts results per verdict.
func (r *ResultList) Tally() map[domain.ResultStatus]int {
	counts := make(map[domain.ResultStatus]int, len(tallyOrder))
	for i := range r.results {
		counts[r.results[i].Status]++
	}
	return counts
}

// Results returns the current results.
func (r *ResultList) Results() []domain.ValidationResult {
	return r.results
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SelectedResult returns the selected result, or nil for an empty list.
func (r *ResultList) SelectedResult() *domain.ValidationResult {
	if r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves the selection up one row.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves the selection down one row.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the render area.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}

// IsEmpty reports whether the list has no results.
func (r *ResultList) IsEmpty() bool {
	return len(r.results) == 0
}
