// Package keymap defines the watcher's key bindings. KeyMap satisfies the
// bubbles help.KeyMap interface.
package keymap

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

var _ help.KeyMap = (*KeyMap)(nil)

// KeyMap holds every binding the watcher responds to.
type KeyMap struct {
	Quit    key.Binding
	Help    key.Binding
	Toggle  key.Binding
	Refresh key.Binding

	// Result list navigation.
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
}

func binding(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit:    binding("q", "quit", "q", "ctrl+c"),
		Help:    binding("?", "help", "?"),
		Toggle:  binding("tab", "results", "tab"),
		Refresh: binding("r", "refresh", "r"),
		Up:      binding("↑/k", "up", "up", "k"),
		Down:    binding("↓/j", "down", "down", "j"),
		Top:     binding("g", "first", "g", "home"),
		Bottom:  binding("G", "last", "G", "end"),
	}
}

// ShortHelp is shown in the status bar on the progress view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Quit, k.Help}
}

// ResultsHelp is shown in the status bar while browsing results.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Quit}
}

// FullHelp groups every binding by column for the help panel.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Toggle, k.Refresh},
		{k.Help, k.Quit},
	}
}
