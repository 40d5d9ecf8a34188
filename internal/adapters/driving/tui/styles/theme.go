// Package styles holds the watcher's palette and the lipgloss styles built
// from it. Colours adapt to light and dark terminals.
package styles

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// Palette names colours by what they signal rather than by hue.
type Palette struct {
	Accent  lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor
	Text    lipgloss.AdaptiveColor
	Dim     lipgloss.AdaptiveColor
	Good    lipgloss.AdaptiveColor
	Caution lipgloss.AdaptiveColor
	Bad     lipgloss.AdaptiveColor
	Track   lipgloss.AdaptiveColor
	Bar     lipgloss.AdaptiveColor
}

// DefaultPalette is tuned for Catppuccin-like dark terminals with a light
// fallback.
func DefaultPalette() Palette {
	return Palette{
		Accent:  lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#7C3AED"},
		Info:    lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#06B6D4"},
		Text:    lipgloss.AdaptiveColor{Light: "#1E1E2E", Dark: "#CDD6F4"},
		Dim:     lipgloss.AdaptiveColor{Light: "#8C8FA1", Dark: "#6C7086"},
		Good:    lipgloss.AdaptiveColor{Light: "#40A02B", Dark: "#A6E3A1"},
		Caution: lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"},
		Bad:     lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"},
		Track:   lipgloss.AdaptiveColor{Light: "#CCD0DA", Dark: "#45475A"},
		Bar:     lipgloss.AdaptiveColor{Light: "#E6E9EF", Dark: "#181825"},
	}
}

// Styles are the rendered styles shared by all components.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Help     lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	StatusBar lipgloss.Style
}

// NewStyles builds styles from p.
func NewStyles(p Palette) *Styles {
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	return &Styles{
		Title:    fg(p.Accent).Bold(true),
		Subtitle: fg(p.Info).Bold(true),
		Normal:   fg(p.Text),
		Muted:    fg(p.Dim),
		Selected: fg(p.Text).Background(p.Accent).Bold(true),
		Help:     fg(p.Dim),

		Success: fg(p.Good),
		Warning: fg(p.Caution),
		Error:   fg(p.Bad),

		StatusBar: fg(p.Dim).Background(p.Bar).Padding(0, 1),
	}
}

// NewProgressBar returns a solid accent bar on the track colour with the
// percentage left to the caller.
func NewProgressBar(p Palette, width int) progress.Model {
	bar := progress.New(
		progress.WithSolidFill(p.Accent.Dark),
		progress.WithoutPercentage(),
		progress.WithWidth(width),
	)
	bar.EmptyColor = p.Track.Dark
	return bar
}

// DefaultStyles builds styles from the default palette.
func DefaultStyles() *Styles {
	return NewStyles(DefaultPalette())
}

// SessionStatus styles a session lifecycle state.
func (s *Styles) SessionStatus(status domain.SessionStatus) lipgloss.Style {
	switch status {
	case domain.SessionCompleted:
		return s.Success
	case domain.SessionPartial:
		return s.Warning
	case domain.SessionFailed:
		return s.Error
	case domain.SessionProcessing:
		return s.Subtitle
	default:
		return s.Muted
	}
}

// Verdict styles a requirement result.
func (s *Styles) Verdict(status domain.ResultStatus) lipgloss.Style {
	switch status {
	case domain.ResultMet:
		return s.Success
	case domain.ResultPartiallyMet:
		return s.Warning
	case domain.ResultNotMet, domain.ResultError:
		return s.Error
	default:
		return s.Muted
	}
}
