package tui

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/studiowebux/formpost/internal/config"
	"github.com/studiowebux/formpost/internal/executor"
	"github.com/studiowebux/formpost/internal/form"
	"github.com/studiowebux/formpost/internal/submit"
)

// CreateTestModel creates a Model whose controller points at an address
// nothing listens on. Tests that need a response use CreateTestModelWithServer.
func CreateTestModel(t *testing.T) *Model {
	t.Helper()
	return newTestModel(t, "http://127.0.0.1:1"+executor.UploadPath)
}

// CreateTestModelWithServer creates a Model backed by an httptest server
func CreateTestModelWithServer(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return newTestModel(t, server.URL+executor.UploadPath)
}

func newTestModel(t *testing.T, endpoint string) *Model {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	controller := submit.New(endpoint, nil)
	controller.Logger = logger

	m := New(Options{
		Holder:     form.New(config.DefaultJSON),
		Controller: controller,
		WorkDir:    t.TempDir(),
		Version:    "test-version",
		Logger:     logger,
	})
	t.Cleanup(m.Cleanup)

	return m
}

// runCmd executes cmd and any batched commands, returning the messages produced.
// Only pass commands that resolve immediately; tea.Tick commands block.
func runCmd(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}

	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, runCmd(t, c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// sendKey feeds a key press through Update
func sendKey(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

// typeText feeds runes through Update as one key press
func typeText(m *Model, s string) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return cmd
}

// AssertModelField is a generic helper for checking model field values
func AssertModelField[T comparable](t *testing.T, fieldName string, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %v, want %v", fieldName, got, want)
	}
}
