package tui

// UI Layout Constants

const (
	// Borders and padding around each pane
	PaneBorderWidth = 2
	PanePadding     = 2

	// Lines reserved outside the panes: header, file line, status line, help
	ChromeLines = 6

	// JSON editor share of the available height
	EditorHeightRatio = 0.45

	MinEditorHeight = 5
	MinResultHeight = 3

	// File completion
	MaxFileCandidates = 5000 // Files indexed under the working directory
	MaxFileMatches    = 5    // Suggestions shown under the file input

	// Footer message truncation
	MaxStatusLength = 100
)
