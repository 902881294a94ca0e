// Package cli runs a single form submission without the interactive UI.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/studiowebux/formpost/internal/config"
	"github.com/studiowebux/formpost/internal/executor"
	"github.com/studiowebux/formpost/internal/filter"
	"github.com/studiowebux/formpost/internal/form"
	"github.com/studiowebux/formpost/internal/present"
	"github.com/studiowebux/formpost/internal/submit"
	"github.com/studiowebux/formpost/internal/types"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
	OutputBody = "body"
)

// RunOptions contains options for one submission in CLI mode
type RunOptions struct {
	Settings     config.Settings
	FilePath     string        // File to upload; empty submits without one
	JSONText     string        // Raw JSON text, used verbatim
	JSONSet      bool          // True when JSONText was given explicitly
	JSONFile     string        // Read JSON text from this file; .jsonc is converted
	OutputFormat string        // text, json, yaml, body; empty auto-detects
	Query        string        // JMESPath applied to a successful JSON body
	Insecure     bool          // Skip TLS verification
	Timeout      time.Duration // Overrides Settings.Timeout when > 0
	Pick         bool          // Choose the file interactively when FilePath is empty
	Verbose      bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ExitError carries an error outcome to the caller so it can set the exit code
type ExitError struct {
	Code    int
	Outcome types.Outcome
}

func (e *ExitError) Error() string {
	if e.Outcome.Status != 0 {
		return fmt.Sprintf("submission failed (HTTP %d)", e.Outcome.Status)
	}
	return fmt.Sprintf("submission failed: %s", e.Outcome.Detail)
}

// Run submits the form once and prints the outcome.
// An error outcome is returned as *ExitError after it has been printed.
func Run(ctx context.Context, opts RunOptions) error {
	opts.setDefaults()

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(opts.Stderr, &slog.HandlerOptions{Level: level}))

	if opts.Query != "" && !filter.IsValidJMESPath(opts.Query) {
		return fmt.Errorf("invalid --query %q: not a JMESPath expression", opts.Query)
	}

	jsonText, err := resolveJSONText(opts)
	if err != nil {
		return err
	}

	holder := form.New(jsonText)

	filePath := opts.FilePath
	if filePath == "" && opts.Pick {
		workDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		files, err := form.IndexFiles(workDir, 1000)
		if err != nil {
			logger.Warn("file list truncated", "err", err)
		}
		if filePath, err = promptForFile(files); err != nil {
			return err
		}
	}

	if filePath != "" {
		file, err := types.FileFromPath(filePath)
		if err != nil {
			return fmt.Errorf("failed to select %s: %w", filePath, err)
		}
		holder.SetSelectedFile(file)
	}

	endpoint, err := opts.Settings.UploadURL()
	if err != nil {
		return err
	}

	tlsConfig := opts.Settings.TLS
	if opts.Insecure {
		tlsConfig.InsecureSkipVerify = true
	}
	timeout := opts.Settings.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	client, err := executor.BuildHTTPClient(&tlsConfig, timeout)
	if err != nil {
		return fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	controller := submit.New(endpoint, client)
	controller.Guard = opts.Settings.Guard
	controller.Filter = opts.Query
	controller.Logger = logger

	logger.Debug("submitting", "endpoint", endpoint, "file", holder.FileLabel(), "json_bytes", len(jsonText))

	outcome, err := controller.Submit(ctx, holder)
	if err != nil {
		return err
	}

	format := opts.OutputFormat
	if format == "" {
		if isTerminal(opts.Stdout) {
			format = OutputText
		} else {
			format = OutputBody
		}
	}

	output, err := formatOutput(&outcome, format, isTerminal(opts.Stdout) && opts.Settings.Highlight)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprint(opts.Stdout, output)

	if hint := submit.Hint(&outcome); hint != "" {
		fmt.Fprintf(opts.Stderr, "Hint: %s\n", hint)
	}

	if outcome.IsError() {
		return &ExitError{Code: 1, Outcome: outcome}
	}
	return nil
}

func (o *RunOptions) setDefaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// resolveJSONText picks the JSON text: --json, then --json-file, then piped
// stdin, then the configured default. The text is never validated here.
func resolveJSONText(opts RunOptions) (string, error) {
	if opts.JSONSet {
		return opts.JSONText, nil
	}

	if opts.JSONFile != "" {
		data, err := os.ReadFile(opts.JSONFile)
		if err != nil {
			return "", fmt.Errorf("failed to read JSON file: %w", err)
		}
		if strings.EqualFold(filepath.Ext(opts.JSONFile), ".jsonc") {
			return string(jsonc.ToJSON(data)), nil
		}
		return string(data), nil
	}

	if f, ok := opts.Stdin.(*os.File); ok && !isCharDevice(f) {
		data, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(data) > 0 {
			return string(data), nil
		}
	}

	return opts.Settings.DefaultJSON, nil
}

// formatOutput renders the outcome in the requested format
func formatOutput(outcome *types.Outcome, format string, styled bool) (string, error) {
	switch format {
	case OutputJSON:
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil

	case OutputYAML:
		data, err := yaml.Marshal(outcome)
		if err != nil {
			return "", err
		}
		return string(data), nil

	case OutputBody:
		return outcome.Text + "\n", nil

	case OutputText:
		if styled {
			return present.Render(outcome, present.Options{Highlight: true}) + "\n", nil
		}
		return present.Text(outcome), nil

	default:
		return "", fmt.Errorf("unknown output format %q (want text, json, yaml or body)", format)
	}
}

// isTerminal checks if w is a terminal (not piped)
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isCharDevice(f)
}

func isCharDevice(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
