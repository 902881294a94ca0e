package tui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/studiowebux/formpost/internal/config"
	"github.com/studiowebux/formpost/internal/executor"
	"github.com/studiowebux/formpost/internal/form"
	"github.com/studiowebux/formpost/internal/submit"
)

// Run starts the interactive form with the given settings
func Run(settings config.Settings, version string) error {
	logger, closeLog, err := openLogger(settings.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	endpoint, err := settings.UploadURL()
	if err != nil {
		return err
	}

	client, err := executor.BuildHTTPClient(&settings.TLS, settings.Timeout)
	if err != nil {
		return fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	controller := submit.New(endpoint, client)
	controller.Guard = settings.Guard
	controller.Logger = logger

	m := New(Options{
		Holder:     form.New(settings.DefaultJSON),
		Controller: controller,
		WorkDir:    workDir,
		Highlight:  settings.Highlight,
		Version:    version,
		Logger:     logger,
	})
	defer m.Cleanup()

	logger.Info("tui started", "endpoint", endpoint, "workdir", workDir)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}

	return nil
}

// openLogger writes TUI logs to a file; the terminal belongs to the UI
func openLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), config.DirPermissions); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, config.FilePermissions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { f.Close() }, nil
}

// indexFilesCmd lists files under dir for path completion
func indexFilesCmd(dir string) tea.Cmd {
	if dir == "" {
		return nil
	}
	return func() tea.Msg {
		files, err := form.IndexFiles(dir, MaxFileCandidates)
		return filesIndexedMsg{files: files, err: err}
	}
}
