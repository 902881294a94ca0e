package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// keyMap lists the bindings shown in the help footer
type keyMap struct {
	Submit    key.Binding
	Copy      key.Binding
	NextFocus key.Binding
	PrevFocus key.Binding
	Choose    key.Binding
	ClearFile key.Binding
	MatchUp   key.Binding
	MatchDown key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "submit"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy result"),
		),
		NextFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		PrevFocus: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous pane"),
		),
		Choose: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "choose file"),
		),
		ClearFile: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear file"),
		),
		MatchUp: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑/ctrl+p", "previous match"),
		),
		MatchDown: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓/ctrl+n", "next match"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextFocus, k.Copy, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Copy, k.Quit},
		{k.NextFocus, k.PrevFocus, k.Help},
		{k.Choose, k.ClearFile, k.MatchUp, k.MatchDown},
	}
}

// handleKeyPress routes key presses: global bindings first, then the focused pane
func (m *Model) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Cleanup()
		return tea.Quit
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Copy):
		return m.copyResult()
	case key.Matches(msg, m.keys.NextFocus):
		m.setFocus((m.focus + 1) % 3)
		return nil
	case key.Matches(msg, m.keys.PrevFocus):
		m.setFocus((m.focus + 2) % 3)
		return nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.updateLayout()
		return nil
	}

	if m.focus == FocusFile {
		return m.handleFileKeys(msg)
	}
	return m.updateFocused(msg)
}

// handleFileKeys drives the file input and its suggestion list
func (m *Model) handleFileKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Choose):
		return m.chooseFile()
	case key.Matches(msg, m.keys.ClearFile):
		return m.clearFile()
	case key.Matches(msg, m.keys.MatchUp):
		if m.matchIndex > 0 {
			m.matchIndex--
		}
		return nil
	case key.Matches(msg, m.keys.MatchDown):
		if m.matchIndex < len(m.matches)-1 {
			m.matchIndex++
		}
		return nil
	}

	return m.updateFocused(msg)
}

// updateFocused forwards a message to the widget that has focus
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	switch m.focus {
	case FocusJSON:
		before := m.jsonInput.Value()
		m.jsonInput, cmd = m.jsonInput.Update(msg)
		if after := m.jsonInput.Value(); after != before {
			m.holder.SetJSONText(after)
		}
	case FocusFile:
		before := m.fileInput.Value()
		m.fileInput, cmd = m.fileInput.Update(msg)
		if m.fileInput.Value() != before {
			m.updateMatches()
		}
	case FocusResult:
		if _, isKey := msg.(tea.KeyMsg); isKey {
			m.resultView, cmd = m.resultView.Update(msg)
		}
	}

	return cmd
}

func (m *Model) setFocus(f Focus) {
	m.focus = f
	m.jsonInput.Blur()
	m.fileInput.Blur()

	switch f {
	case FocusJSON:
		m.jsonInput.Focus()
	case FocusFile:
		m.fileInput.Focus()
	}
}
