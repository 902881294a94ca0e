// Package present renders submission outcomes. It only reads the outcome;
// nothing here mutates form state or touches the network.
package present

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/studiowebux/formpost/internal/executor"
	"github.com/studiowebux/formpost/internal/form"
	"github.com/studiowebux/formpost/internal/types"
)

// Adaptive color definitions for light/dark terminal support
var (
	colorGreen = lipgloss.AdaptiveColor{Light: "#006400", Dark: "#00ff00"}
	colorRed   = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff0000"}
	colorGray  = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
)

var (
	styleSuccessTitle = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	styleErrorTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleHint         = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
)

// Titles shown above the outcome text
const (
	SuccessTitle = "Success!"
	ErrorTitle   = "Error!"
)

// Options controls the styled rendering
type Options struct {
	Width     int    // Box width including border; 0 sizes to content
	Highlight bool   // Syntax-highlight structured payloads
	Hint      string // Optional line rendered under the text
}

// Title returns the heading for an outcome
func Title(outcome *types.Outcome) string {
	if outcome == nil {
		return ""
	}
	if outcome.IsError() {
		return ErrorTitle
	}
	return SuccessTitle
}

// Text renders an outcome without styling; "" when there is no outcome
func Text(outcome *types.Outcome) string {
	if outcome == nil {
		return ""
	}
	return Title(outcome) + "\n" + outcome.Text + "\n"
}

// Render draws the outcome in a bordered box: green for success, red for error
func Render(outcome *types.Outcome, opts Options) string {
	if outcome == nil {
		return ""
	}

	titleStyle := styleSuccessTitle
	border := colorGreen
	if outcome.IsError() {
		titleStyle = styleErrorTitle
		border = colorRed
	}

	body := outcome.Text
	if opts.Highlight && IsStructured(outcome) {
		body = highlightJSON(body)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(Title(outcome)))
	if outcome.Status != 0 {
		sb.WriteString(" ")
		sb.WriteString(styleHint.Render(fmt.Sprintf("(HTTP %d)", outcome.Status)))
	}
	sb.WriteString("\n")
	sb.WriteString(body)
	if opts.Hint != "" {
		sb.WriteString("\n\n")
		sb.WriteString(styleHint.Render(opts.Hint))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	if opts.Width > 2 {
		box = box.Width(opts.Width - 2)
	}

	return box.Render(sb.String())
}

// IsStructured reports whether the outcome text is a JSON rendering
func IsStructured(outcome *types.Outcome) bool {
	if outcome == nil || outcome.Text == "" {
		return false
	}
	if outcome.IsError() && outcome.Status == 0 {
		return false
	}
	if _, isString := outcome.Payload.(string); isString {
		return false
	}
	return json.Valid([]byte(outcome.Text))
}

// FileLabel describes the selected file, or reports that none is chosen
func FileLabel(file *types.SelectedFile) string {
	if file == nil {
		return form.NoFileLabel
	}
	return fmt.Sprintf("%s (%s)", file.Name, executor.FormatSize(file.Size))
}

func highlightJSON(src string) string {
	var sb strings.Builder
	if err := quick.Highlight(&sb, src, "json", "terminal256", "monokai"); err != nil {
		return src
	}
	return sb.String()
}
