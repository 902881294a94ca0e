package tui

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/studiowebux/formpost/internal/present"
	"github.com/studiowebux/formpost/internal/submit"
)

// Adaptive color definitions for light/dark terminal support
var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#006400", Dark: "#00ff00"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff0000"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#b8860b", Dark: "#ffff00"}
	colorGray   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
)

// Style definitions
var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	styleSelected = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#d3d3d3", Dark: "#3a3a3a"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"})

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorGreen)

	styleError = lipgloss.NewStyle().
			Foreground(colorRed)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorYellow)

	styleSubtle = lipgloss.NewStyle().
			Foreground(colorGray)

	styleSpinner = lipgloss.NewStyle().
			Foreground(colorCyan)
)

// Placeholder shown in the result pane before the first submission
const resultPlaceholder = "Press ctrl+s to submit the form."

// renderMain renders the form: JSON editor, file picker, result and status
func (m *Model) renderMain() string {
	sections := []string{
		m.renderHeader(),
		m.paneStyle(FocusJSON).Render(m.jsonInput.View()),
		m.renderFilePicker(),
		m.paneStyle(FocusResult).Render(m.resultView.View()),
		m.renderStatusBar(),
		m.help.View(m.keys),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	title := styleTitle.Render("formpost")
	if m.version != "" {
		title += " " + styleSubtle.Render(m.version)
	}
	if m.controller != nil {
		title += "  " + styleSubtle.Render("→ "+m.controller.Endpoint)
	}
	return title
}

// renderFilePicker shows the selection, the path input and fuzzy suggestions
func (m *Model) renderFilePicker() string {
	var sb strings.Builder

	label := present.FileLabel(m.snapshot.File)
	if m.snapshot.File == nil {
		label = styleWarning.Render(label)
	} else {
		label = styleSuccess.Render(label)
	}
	sb.WriteString("Selected: " + label + "\n")
	sb.WriteString(m.fileInput.View())

	for i, match := range m.matches {
		sb.WriteString("\n")
		if i == m.matchIndex {
			sb.WriteString(styleSelected.Render("> " + match))
		} else {
			sb.WriteString("  " + match)
		}
	}

	return m.paneStyle(FocusFile).Render(sb.String())
}

// renderStatusBar shows progress or the JSON hint, then any message
func (m *Model) renderStatusBar() string {
	var left string
	if m.snapshot.InFlight {
		left = m.spinner.View() + " Submitting..."
	} else {
		left = jsonHint(m.snapshot.JSONText)
	}

	switch {
	case m.errorMsg != "":
		left += "  " + styleError.Render(m.errorMsg)
	case m.statusMsg != "":
		left += "  " + styleSuccess.Render(m.statusMsg)
	}

	return left
}

// jsonHint reports JSON well-formedness. It never blocks submission.
func jsonHint(text string) string {
	if strings.TrimSpace(text) == "" {
		return styleWarning.Render("JSON: empty")
	}
	if json.Valid([]byte(text)) {
		return styleSuccess.Render("JSON: ok")
	}
	return styleWarning.Render("JSON: not well-formed (sent as typed)")
}

func (m *Model) paneStyle(f Focus) lipgloss.Style {
	border := colorGray
	if m.focus == f {
		border = colorCyan
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
	if m.width > PaneBorderWidth {
		style = style.Width(m.width - PaneBorderWidth)
	}
	return style
}

// refreshResult redraws the result pane from the last snapshot
func (m *Model) refreshResult() {
	outcome := m.snapshot.Result
	if outcome == nil {
		if m.snapshot.InFlight {
			m.resultView.SetContent(styleSubtle.Render("Waiting for response..."))
		} else {
			m.resultView.SetContent(styleSubtle.Render(resultPlaceholder))
		}
		return
	}

	m.resultView.SetContent(present.Render(outcome, present.Options{
		Width:     m.resultView.Width,
		Highlight: m.highlight,
		Hint:      submit.Hint(outcome),
	}))
	m.resultView.GotoTop()
}

// updateLayout sizes the widgets for the current window
func (m *Model) updateLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	innerWidth := m.width - PaneBorderWidth - PanePadding
	if innerWidth < 10 {
		innerWidth = 10
	}

	helpLines := 1
	if m.help.ShowAll {
		helpLines = len(m.keys.FullHelp()[0]) + 1
	}
	fileLines := 2 + MaxFileMatches + PaneBorderWidth
	available := m.height - ChromeLines - helpLines - fileLines - 2*PaneBorderWidth

	editorHeight := max(MinEditorHeight, int(float64(available)*EditorHeightRatio))
	resultHeight := max(MinResultHeight, available-editorHeight)

	m.jsonInput.SetWidth(innerWidth)
	m.jsonInput.SetHeight(editorHeight)
	m.fileInput.Width = innerWidth - len(m.fileInput.Prompt)
	m.help.Width = m.width

	m.resultView.Width = innerWidth
	m.resultView.Height = resultHeight
	m.refreshResult()
}
