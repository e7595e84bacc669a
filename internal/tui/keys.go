package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keyboard bindings.
type KeyMap struct {
	Quit      key.Binding
	Reconnect key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
	}
}

func (k KeyMap) helpLine() string {
	var line string
	for i, b := range []key.Binding{k.Reconnect, k.Quit} {
		if i > 0 {
			line += "  "
		}
		h := b.Help()
		line += h.Key + ":" + h.Desc
	}
	return line
}
