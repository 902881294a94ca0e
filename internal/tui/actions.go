package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
	"github.com/studiowebux/formpost/internal/present"
	"github.com/studiowebux/formpost/internal/submit"
	"github.com/studiowebux/formpost/internal/types"
)

// clipboardWrite is swapped in tests
var clipboardWrite = clipboard.WriteAll

// submit validates synchronously and hands the upload to a command.
// A repeated submit while one is in flight is ignored.
func (m *Model) submit() tea.Cmd {
	p, err := m.controller.Prepare(m.holder)
	switch {
	case errors.Is(err, submit.ErrInFlight):
		return m.setStatusMessage("Submission already in progress")
	case errors.Is(err, submit.ErrNoFile):
		m.logger.Info("submit rejected", "reason", err)
		return nil
	case err != nil:
		return m.setErrorMessage(err.Error())
	}

	m.logger.Info("submitting", "endpoint", m.controller.Endpoint, "file", p.File.Name, "bytes", p.File.Size)
	return tea.Batch(m.spinner.Tick, dispatchCmd(m.ctx, m.controller, p))
}

func dispatchCmd(ctx context.Context, c *submit.Controller, p submit.Pending) tea.Cmd {
	return func() tea.Msg {
		return submissionDoneMsg{outcome: c.Dispatch(ctx, p)}
	}
}

// chooseFile selects the highlighted suggestion, or the typed path when there is none
func (m *Model) chooseFile() tea.Cmd {
	path := m.fileInput.Value()
	if m.matchIndex >= 0 && m.matchIndex < len(m.matches) {
		path = m.matches[m.matchIndex]
	}
	if path == "" {
		return m.setErrorMessage("Type a file path first")
	}

	if !filepath.IsAbs(path) && m.workDir != "" {
		path = filepath.Join(m.workDir, path)
	}

	file, err := types.FileFromPath(path)
	if err != nil {
		m.logger.Warn("file selection failed", "path", path, "err", err)
		return m.setErrorMessage(err.Error())
	}

	m.holder.SetSelectedFile(file)
	m.fileInput.SetValue("")
	m.updateMatches()
	m.logger.Info("file selected", "path", file.Path, "size", file.Size)
	return m.setStatusMessage(fmt.Sprintf("Selected %s", present.FileLabel(file)))
}

// clearFile drops the selection and the typed path
func (m *Model) clearFile() tea.Cmd {
	if m.fileInput.Value() != "" {
		m.fileInput.SetValue("")
		m.updateMatches()
		return nil
	}
	if m.snapshot.File == nil {
		return nil
	}
	m.holder.SetSelectedFile(nil)
	return m.setStatusMessage("File cleared")
}

// copyResult puts the plain outcome text on the clipboard
func (m *Model) copyResult() tea.Cmd {
	text := present.Text(m.snapshot.Result)
	if text == "" {
		return m.setErrorMessage("Nothing to copy yet")
	}
	if err := clipboardWrite(text); err != nil {
		return m.setErrorMessage(fmt.Sprintf("Failed to copy: %v", err))
	}
	return m.setStatusMessage("Result copied to clipboard")
}

// updateMatches recomputes file suggestions for the current input
func (m *Model) updateMatches() {
	m.matchIndex = 0
	m.matches = m.matches[:0]

	pattern := m.fileInput.Value()
	if pattern == "" || len(m.candidates) == 0 {
		return
	}

	for i, match := range fuzzy.Find(pattern, m.candidates) {
		if i == MaxFileMatches {
			break
		}
		m.matches = append(m.matches, match.Str)
	}
}
