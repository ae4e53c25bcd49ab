package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Translate    key.Binding
	Swap         key.Binding
	Copy         key.Binding
	Clear        key.Binding
	ToggleDetect key.Binding
	CycleSource  key.Binding
	CycleTarget  key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Translate:    key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "translate")),
		Swap:         key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "swap")),
		Copy:         key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy")),
		Clear:        key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
		ToggleDetect: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "auto-detect")),
		CycleSource:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "source")),
		CycleTarget:  key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "target")),
		Quit:         key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{
		k.Translate, k.Swap, k.Copy, k.Clear, k.ToggleDetect, k.CycleSource, k.CycleTarget, k.Quit,
	}
}
