package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	paraphrase key.Binding
	expand     key.Binding
	summarize  key.Binding
	translate  key.Binding
	target     key.Binding
	cancel     key.Binding
	history    key.Binding
	theme      key.Binding
	logout     key.Binding
	submit     key.Binding
	next       key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		paraphrase: key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "paraphrase")),
		expand:     key.NewBinding(key.WithKeys("f2"), key.WithHelp("F2", "expand")),
		summarize:  key.NewBinding(key.WithKeys("f3"), key.WithHelp("F3", "summarize")),
		translate:  key.NewBinding(key.WithKeys("f4"), key.WithHelp("F4", "translate")),
		target:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch language")),
		cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		history:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "history")),
		theme:      key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "theme")),
		logout:     key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "log out")),
		submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		next:       key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.paraphrase, k.expand, k.summarize, k.translate, k.cancel, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.paraphrase, k.expand, k.summarize, k.translate},
		{k.target, k.cancel, k.history},
		{k.theme, k.logout, k.quit},
	}
}
