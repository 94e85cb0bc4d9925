package app

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding handled in handleKey. Bindings that do not apply
// to the current state are disabled so the help footer hides them.
type keyMap struct {
	Quit     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Enter    key.Binding
	Filter   key.Binding
	Browse   key.Binding
	Clear    key.Binding
	Probe    key.Binding
	Preview  key.Binding
	Dismiss  key.Binding
	TabLeft  key.Binding
	TabRight key.Binding
	Tab1     key.Binding
	Tab2     key.Binding
	Tab3     key.Binding
	Up       key.Binding
	Down     key.Binding
	CSV      key.Binding
	JSON     key.Binding
	Text     key.Binding
	Help     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "focus"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Filter: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "filter"),
		),
		Browse: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "browse"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "clear"),
		),
		Probe: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reconnect"),
		),
		Preview: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "preview"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		TabLeft: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/→", "category"),
		),
		TabRight: key.NewBinding(
			key.WithKeys("right", "l"),
		),
		Tab1: key.NewBinding(key.WithKeys("1")),
		Tab2: key.NewBinding(key.WithKeys("2")),
		Tab3: key.NewBinding(key.WithKeys("3")),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		CSV: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "csv"),
		),
		JSON: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "json"),
		),
		Text: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "text"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Next, k.Filter, k.Browse, k.Clear, k.TabLeft, k.CSV, k.JSON, k.Text, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enter, k.Next, k.Filter, k.Dismiss},
		{k.Browse, k.Preview, k.Clear, k.Probe},
		{k.TabLeft, k.Up, k.Down},
		{k.CSV, k.JSON, k.Text},
		{k.Help, k.Quit},
	}
}
