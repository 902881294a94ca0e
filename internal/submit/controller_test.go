package submit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/studiowebux/formpost/internal/executor"
	"github.com/studiowebux/formpost/internal/form"
	"github.com/studiowebux/formpost/internal/types"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestController(endpoint string, client *http.Client) *Controller {
	c := New(endpoint, client)
	c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return c
}

func jsonServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSubmit_NoFileSkipsNetwork(t *testing.T) {
	var calls int32
	server := jsonServer(t, http.StatusOK, `{}`, &calls)
	c := newTestController(server.URL+executor.UploadPath, server.Client())
	h := form.New("{}")

	var inFlightSeen bool
	h.Subscribe(func(s types.Snapshot) {
		if s.InFlight {
			inFlightSeen = true
		}
	})

	outcome, err := c.Submit(context.Background(), h)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no network call, got %d", calls)
	}
	if outcome.Kind != types.OutcomeError || outcome.Detail != "a file must be selected" {
		t.Errorf("unexpected outcome %+v", outcome)
	}
	if inFlightSeen {
		t.Error("in-flight should never be set for a local validation failure")
	}

	snap := h.Snapshot()
	if snap.InFlight || snap.Result == nil || snap.Result.Detail != ErrNoFile.Error() {
		t.Errorf("holder not completed with validation error: %+v", snap)
	}
}

func TestSubmit_SendsExactlyTwoFieldsVerbatim(t *testing.T) {
	var calls int32
	var gotJSON, gotName, gotContent string
	var fieldCount int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost || r.URL.Path != executor.UploadPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		fieldCount = len(r.MultipartForm.Value) + len(r.MultipartForm.File)
		gotJSON = r.FormValue("jsonData")
		f, hdr, err := r.FormFile("excelFile")
		if err == nil {
			gotName = hdr.Filename
			b, _ := io.ReadAll(f)
			gotContent = string(b)
			f.Close()
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"status":"ok"}`)
	}))
	defer server.Close()

	inputs := []string{`{"message": "hello"}`, `{not json at all`, ``}
	for _, jsonText := range inputs {
		atomic.StoreInt32(&calls, 0)
		c := newTestController(server.URL+executor.UploadPath, server.Client())
		h := form.New(jsonText)
		h.SetSelectedFile(types.FileFromBytes("sheet.xlsx", []byte("PK\x03\x04")))

		outcome, err := c.Submit(context.Background(), h)
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if outcome.Kind != types.OutcomeSuccess {
			t.Errorf("expected success, got %+v", outcome)
		}
		if atomic.LoadInt32(&calls) != 1 {
			t.Errorf("expected exactly one POST, got %d", calls)
		}
		if fieldCount != 2 {
			t.Errorf("expected 2 multipart fields, got %d", fieldCount)
		}
		if gotJSON != jsonText {
			t.Errorf("jsonData = %q, want %q", gotJSON, jsonText)
		}
		if gotName != "sheet.xlsx" || gotContent != "PK\x03\x04" {
			t.Errorf("file = %q/%q", gotName, gotContent)
		}
	}
}

func TestSubmit_InFlightLifecycle(t *testing.T) {
	server := jsonServer(t, http.StatusOK, `{"status":"ok"}`, nil)
	c := newTestController(server.URL+executor.UploadPath, server.Client())
	h := form.New("{}")
	h.SetSelectedFile(types.FileFromBytes("a.csv", []byte("1")))

	var transitions []bool
	h.Subscribe(func(s types.Snapshot) {
		transitions = append(transitions, s.InFlight)
	})

	for i := 0; i < 2; i++ {
		if _, err := c.Submit(context.Background(), h); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	want := []bool{true, false, true, false}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions = %v, want %v", transitions, want)
			break
		}
	}
	if h.InFlight() {
		t.Error("in-flight must be false after completion")
	}
}

func TestSubmit_SuccessPrettyPrinted(t *testing.T) {
	server := jsonServer(t, http.StatusOK, `{"status":"ok"}`, nil)
	c := newTestController(server.URL+executor.UploadPath, server.Client())
	h := form.New("{}")
	h.SetSelectedFile(types.FileFromBytes("a.csv", nil))

	outcome, _ := c.Submit(context.Background(), h)

	if outcome.Kind != types.OutcomeSuccess {
		t.Fatalf("kind = %s, want success", outcome.Kind)
	}
	if outcome.Text != "{\n  \"status\": \"ok\"\n}" {
		t.Errorf("text = %q", outcome.Text)
	}
	if h.Snapshot().Result.Text != outcome.Text {
		t.Error("holder result does not match returned outcome")
	}
}

func TestSubmit_ServerErrorBody(t *testing.T) {
	server := jsonServer(t, http.StatusBadRequest, `{"detail":"bad file"}`, nil)
	c := newTestController(server.URL+executor.UploadPath, server.Client())
	h := form.New("{}")
	h.SetSelectedFile(types.FileFromBytes("a.csv", nil))

	outcome, _ := c.Submit(context.Background(), h)

	if outcome.Kind != types.OutcomeError {
		t.Fatalf("kind = %s, want error", outcome.Kind)
	}
	if !strings.Contains(outcome.Text, `"detail": "bad file"`) {
		t.Errorf("text = %q", outcome.Text)
	}
	if outcome.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", outcome.Status)
	}
}

func TestSubmit_NetworkFailureShowsRawMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL + executor.UploadPath
	server.Close()

	c := newTestController(endpoint, nil)
	h := form.New("{}")
	h.SetSelectedFile(types.FileFromBytes("a.csv", nil))

	outcome, _ := c.Submit(context.Background(), h)

	if outcome.Kind != types.OutcomeError {
		t.Fatalf("kind = %s, want error", outcome.Kind)
	}
	if strings.HasPrefix(outcome.Text, "{") {
		t.Errorf("transport error should not be a JSON dump: %q", outcome.Text)
	}
	if !strings.Contains(outcome.Text, "connection refused") {
		t.Errorf("expected raw transport message, got %q", outcome.Text)
	}
	if Hint(&outcome) == "" {
		t.Error("expected a hint for connection refused")
	}
}

func TestSubmit_ResubmitClearsPreviousResult(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			<-release
		}
		io.WriteString(w, `{"n":1}`)
	}))
	defer server.Close()

	c := newTestController(server.URL+executor.UploadPath, server.Client())
	h := form.New("{}")
	h.SetSelectedFile(types.FileFromBytes("a.csv", nil))

	if _, err := c.Submit(context.Background(), h); err != nil {
		t.Fatal(err)
	}
	if h.Snapshot().Result == nil {
		t.Fatal("expected a result after the first submission")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Submit(context.Background(), h)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	snap := h.Snapshot()
	if !snap.InFlight {
		t.Error("expected in-flight during the second submission")
	}
	if snap.Result != nil {
		t.Errorf("previous result should be cleared while pending, got %+v", snap.Result)
	}

	// A second submit while pending is rejected by the guard
	if _, err := c.Submit(context.Background(), h); !errors.Is(err, ErrInFlight) {
		t.Errorf("expected ErrInFlight, got %v", err)
	}

	close(release)
	wg.Wait()

	if h.InFlight() || h.Snapshot().Result == nil {
		t.Error("second submission did not complete")
	}
}

func TestSubmit_GuardDisabledAllowsOverlap(t *testing.T) {
	c := newTestController("http://unused", nil)
	c.Guard = false
	h := form.New("{}")
	h.SetSelectedFile(types.FileFromBytes("a.csv", nil))
	h.BeginSubmission()

	if _, err := c.Prepare(h); err != nil {
		t.Errorf("Prepare() with guard off error = %v", err)
	}
}

func TestSubmit_PanicStillCompletes(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		panic("transport exploded")
	})}
	c := newTestController("http://example.invalid"+executor.UploadPath, client)
	h := form.New("{}")
	h.SetSelectedFile(types.FileFromBytes("a.csv", nil))

	outcome, err := c.Submit(context.Background(), h)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if outcome.Kind != types.OutcomeError || !strings.Contains(outcome.Detail, "transport exploded") {
		t.Errorf("unexpected outcome %+v", outcome)
	}
	if h.InFlight() {
		t.Error("in-flight must be cleared after a panic")
	}
}

func TestSubmit_FilterAppliedToSuccess(t *testing.T) {
	server := jsonServer(t, http.StatusCreated, `{"status":"success","file_name":"a.csv"}`, nil)
	c := newTestController(server.URL+executor.UploadPath, server.Client())
	c.Filter = "file_name"
	h := form.New("{}")
	h.SetSelectedFile(types.FileFromBytes("a.csv", nil))

	outcome, _ := c.Submit(context.Background(), h)
	if outcome.Text != `"a.csv"` {
		t.Errorf("filtered text = %q", outcome.Text)
	}
}

func TestDeriveOutcome_InvalidFilterKeepsBody(t *testing.T) {
	res := &types.UploadResult{Status: http.StatusCreated, Body: `{"b":1,"a":2}`}

	outcome := DeriveOutcome(res, "b.")

	if outcome.Kind != types.OutcomeSuccess {
		t.Fatalf("Kind = %v, want success", outcome.Kind)
	}
	if outcome.Text != "{\n  \"b\": 1,\n  \"a\": 2\n}" {
		t.Errorf("Text = %q, want the unfiltered body", outcome.Text)
	}
}

func TestDeriveOutcome(t *testing.T) {
	tests := []struct {
		name     string
		result   types.UploadResult
		wantKind types.OutcomeKind
		wantText string
	}{
		{
			name:     "success json keeps key order",
			result:   types.UploadResult{Status: 201, Body: `{"z":1,"a":2}`},
			wantKind: types.OutcomeSuccess,
			wantText: "{\n  \"z\": 1,\n  \"a\": 2\n}",
		},
		{
			name:     "success plain text verbatim",
			result:   types.UploadResult{Status: 200, Body: "uploaded"},
			wantKind: types.OutcomeSuccess,
			wantText: "uploaded",
		},
		{
			name:     "server error json",
			result:   types.UploadResult{Status: 500, Body: `{"error":"boom"}`},
			wantKind: types.OutcomeError,
			wantText: "{\n  \"error\": \"boom\"\n}",
		},
		{
			name:     "server error without body",
			result:   types.UploadResult{Status: 502},
			wantKind: types.OutcomeError,
			wantText: "Request failed with status code 502",
		},
		{
			name:     "server error html body",
			result:   types.UploadResult{Status: 404, Body: "<h1>Not Found</h1>"},
			wantKind: types.OutcomeError,
			wantText: "Request failed with status code 404",
		},
		{
			name:     "transport error",
			result:   types.UploadResult{Error: "dial tcp: connection refused"},
			wantKind: types.OutcomeError,
			wantText: "dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.result
			got := DeriveOutcome(&res, "")
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.Text != tt.wantText {
				t.Errorf("text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Kind == types.OutcomeSuccess && got.Detail != "" {
				t.Error("success must not carry error detail")
			}
			if got.Kind == types.OutcomeError && got.Payload != nil {
				t.Error("error must not carry a success payload")
			}
		})
	}
}
