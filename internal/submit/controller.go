// Package submit runs one submit attempt end to end: local validation,
// the multipart POST, and mapping the HTTP result to an Outcome.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/studiowebux/formpost/internal/executor"
	"github.com/studiowebux/formpost/internal/filter"
	"github.com/studiowebux/formpost/internal/form"
	"github.com/studiowebux/formpost/internal/types"
)

var (
	// ErrNoFile is reported when submit is triggered without a selected file
	ErrNoFile = errors.New("a file must be selected")

	// ErrInFlight is returned when a submission is already pending and the guard is on
	ErrInFlight = errors.New("a submission is already in flight")
)

// Controller orchestrates submissions against one endpoint
type Controller struct {
	Endpoint string       // Full URL of the upload endpoint
	Client   *http.Client // nil uses a client with the default timeout
	Guard    bool         // Reject submit while one is in flight
	Filter   string       // Optional JMESPath applied to successful JSON bodies
	Logger   *slog.Logger
}

// New creates a controller with the resubmission guard enabled
func New(endpoint string, client *http.Client) *Controller {
	return &Controller{
		Endpoint: endpoint,
		Client:   client,
		Guard:    true,
		Logger:   slog.Default(),
	}
}

// Pending is a submission that passed validation and awaits dispatch.
// It captures the inputs as they were when submit was triggered.
type Pending struct {
	JSONText string
	File     *types.SelectedFile
	Started  time.Time
}

// Prepare validates the form and begins a submission.
//
// Without a file the holder is completed with a validation error right away
// and ErrNoFile is returned; no I/O happens. With the guard on, a pending
// submission makes Prepare return ErrInFlight without touching the holder.
func (c *Controller) Prepare(h *form.Holder) (Pending, error) {
	snap := h.Snapshot()

	if c.Guard && snap.InFlight {
		return Pending{}, ErrInFlight
	}

	if snap.File == nil {
		h.CompleteSubmission(NoFileOutcome())
		return Pending{}, ErrNoFile
	}

	h.BeginSubmission()
	return Pending{
		JSONText: snap.JSONText,
		File:     snap.File,
		Started:  time.Now(),
	}, nil
}

// Dispatch performs the upload and derives the outcome. It never panics;
// an unexpected failure becomes an error outcome.
func (c *Controller) Dispatch(ctx context.Context, p Pending) (outcome types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("unexpected failure: %v", r)
			outcome = errorOutcome(msg, 0)
			c.logger().Error("submission panicked", "endpoint", c.Endpoint, "panic", r)
		}
	}()

	res, err := executor.Upload(ctx, c.Client, c.Endpoint, p.JSONText, p.File)
	if err != nil {
		c.logger().Warn("submission not sent", "endpoint", c.Endpoint, "file", p.File.Name, "err", err)
		return errorOutcome(err.Error(), 0)
	}

	outcome = DeriveOutcome(res, c.Filter)
	c.logger().Info("submission completed",
		"endpoint", c.Endpoint,
		"file", p.File.Name,
		"status", res.Status,
		"kind", outcome.Kind,
		"duration", executor.FormatDuration(res.Duration),
	)
	return outcome
}

// Finish completes the submission on the holder
func (c *Controller) Finish(h *form.Holder, outcome types.Outcome) {
	h.CompleteSubmission(outcome)
}

// Submit runs Prepare, Dispatch and Finish in one call. The holder's
// in-flight flag is cleared even if dispatch fails unexpectedly.
// The only error returned is ErrInFlight.
func (c *Controller) Submit(ctx context.Context, h *form.Holder) (types.Outcome, error) {
	p, err := c.Prepare(h)
	switch {
	case errors.Is(err, ErrNoFile):
		return NoFileOutcome(), nil
	case err != nil:
		return types.Outcome{}, err
	}

	outcome := errorOutcome("submission aborted", 0)
	defer func() {
		c.Finish(h, outcome)
	}()

	outcome = c.Dispatch(ctx, p)
	return outcome, nil
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// NoFileOutcome is the local validation failure
func NoFileOutcome() types.Outcome {
	return errorOutcome(ErrNoFile.Error(), 0)
}

// DeriveOutcome maps a transport result to an Outcome.
//
//   - transport failure: error with the raw transport message
//   - 2xx: success; JSON bodies are pretty-printed, others shown verbatim
//   - non-2xx with a JSON body: error with the pretty-printed body
//   - non-2xx otherwise: error with a generic status message
func DeriveOutcome(res *types.UploadResult, filterExpr string) types.Outcome {
	if res.Error != "" {
		return errorOutcome(res.Error, res.Status)
	}

	if executor.IsSuccessStatus(res.Status) {
		return successOutcome(res, filterExpr)
	}

	if pretty, ok := prettyJSON(res.Body); ok {
		return types.Outcome{
			Kind:   types.OutcomeError,
			Detail: pretty,
			Status: res.Status,
			Text:   pretty,
		}
	}

	return errorOutcome(fmt.Sprintf("Request failed with status code %d", res.Status), res.Status)
}

func successOutcome(res *types.UploadResult, filterExpr string) types.Outcome {
	text, ok := prettyJSON(res.Body)
	if !ok {
		return types.Outcome{
			Kind:    types.OutcomeSuccess,
			Payload: res.Body,
			Status:  res.Status,
			Text:    res.Body,
		}
	}

	if filterExpr != "" {
		filtered, out, err := filter.Apply(res.Body, filterExpr)
		if err == nil {
			return types.Outcome{
				Kind:    types.OutcomeSuccess,
				Payload: filtered,
				Status:  res.Status,
				Text:    out,
			}
		}
		slog.Warn("response filter failed", "expr", filterExpr, "err", err)
	}

	var data any
	_ = json.Unmarshal([]byte(res.Body), &data)

	return types.Outcome{
		Kind:    types.OutcomeSuccess,
		Payload: data,
		Status:  res.Status,
		Text:    text,
	}
}

func errorOutcome(detail string, status int) types.Outcome {
	return types.Outcome{
		Kind:   types.OutcomeError,
		Detail: detail,
		Status: status,
		Text:   detail,
	}
}

// prettyJSON re-indents body with two spaces, keeping the server's key order
func prettyJSON(body string) (string, bool) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return "", false
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return "", false
	}
	return buf.String(), true
}
