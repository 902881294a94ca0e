package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/studiowebux/formpost/internal/form"
	"github.com/studiowebux/formpost/internal/submit"
	"github.com/studiowebux/formpost/internal/types"
)

// Focus identifies the pane receiving keystrokes
type Focus int

const (
	FocusJSON Focus = iota
	FocusFile
	FocusResult
)

func (f Focus) String() string {
	switch f {
	case FocusJSON:
		return "json"
	case FocusFile:
		return "file"
	case FocusResult:
		return "result"
	}
	return "unknown"
}

// Options configures a Model
type Options struct {
	Holder     *form.Holder
	Controller *submit.Controller
	WorkDir    string // Root for file completion; "" disables indexing
	Highlight  bool
	Version    string
	Logger     *slog.Logger
}

// Model represents the TUI state
type Model struct {
	// Core state
	holder      *form.Holder
	controller  *submit.Controller
	unsubscribe func()
	logger      *slog.Logger
	version     string
	workDir     string
	highlight   bool

	// Widgets
	jsonInput  textarea.Model
	fileInput  textinput.Model
	spinner    spinner.Model
	resultView viewport.Model
	help       help.Model
	keys       keyMap

	// File completion
	candidates []string // Relative paths under workDir
	matches    []string // Fuzzy matches for the current file input
	matchIndex int

	// UI state
	focus     Focus
	width     int
	height    int
	statusMsg string
	errorMsg  string
	snapshot  types.Snapshot // Last state published by the holder

	// Cancels the in-flight upload on quit
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a TUI model around the given holder and controller
func New(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ti := textarea.New()
	ti.SetValue(opts.Holder.Snapshot().JSONText)
	ti.ShowLineNumbers = true
	ti.CharLimit = 0
	ti.Placeholder = "JSON payload"
	ti.Focus()

	fi := textinput.New()
	fi.Prompt = "File: "
	fi.Placeholder = "type to search, enter to choose"

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleSpinner

	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		holder:     opts.Holder,
		controller: opts.Controller,
		logger:     logger,
		version:    opts.Version,
		workDir:    opts.WorkDir,
		highlight:  opts.Highlight,
		jsonInput:  ti,
		fileInput:  fi,
		spinner:    sp,
		resultView: viewport.New(80, 10),
		help:       help.New(),
		keys:       defaultKeyMap(),
		focus:      FocusJSON,
		snapshot:   opts.Holder.Snapshot(),
		ctx:        ctx,
		cancel:     cancel,
	}

	m.unsubscribe = m.holder.Subscribe(m.onSnapshot)
	m.refreshResult()

	return m
}

// Init starts file indexing and the cursor blink
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, indexFilesCmd(m.workDir))
}

// Cleanup cancels pending work and detaches from the holder
func (m *Model) Cleanup() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case submissionDoneMsg:
		m.controller.Finish(m.holder, msg.outcome)
		if msg.outcome.IsError() {
			m.logger.Warn("submission failed", "detail", msg.outcome.Detail, "status", msg.outcome.Status)
		}
		return m, nil

	case filesIndexedMsg:
		m.candidates = msg.files
		if msg.err != nil {
			m.logger.Warn("file indexing incomplete", "dir", m.workDir, "err", msg.err)
		}
		m.updateMatches()
		return m, nil

	case spinner.TickMsg:
		if !m.snapshot.InFlight {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clearStatusMsg:
		m.statusMsg = ""
		m.errorMsg = ""
		return m, nil
	}

	return m, m.updateFocused(msg)
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	return m.renderMain()
}

// onSnapshot receives every holder transition. Update is the only caller of
// holder mutations, so this always runs on the Update goroutine.
func (m *Model) onSnapshot(snap types.Snapshot) {
	m.snapshot = snap
	m.refreshResult()
}

// Custom message types
type submissionDoneMsg struct {
	outcome types.Outcome
}

type filesIndexedMsg struct {
	files []string
	err   error
}

type clearStatusMsg struct{}

const messageTimeout = 5 * time.Second

// Helper methods for setting messages with a timeout
func (m *Model) setStatusMessage(msg string) tea.Cmd {
	m.errorMsg = ""
	m.statusMsg = truncate(msg, MaxStatusLength)
	return clearAfter(messageTimeout)
}

func (m *Model) setErrorMessage(msg string) tea.Cmd {
	m.statusMsg = ""
	m.errorMsg = truncate(msg, MaxStatusLength)
	return clearAfter(messageTimeout)
}

func clearAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// truncate shortens s to at most n runes, ending with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
