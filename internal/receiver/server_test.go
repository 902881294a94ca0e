package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studiowebux/formpost/internal/executor"
	"github.com/studiowebux/formpost/internal/types"
)

type testServer struct {
	srv   *Server
	store *Store
	media string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "uploads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	media := filepath.Join(dir, "media")
	srv := NewServer(Config{
		MediaDir:       media,
		MaxUploadBytes: 1 << 20,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, store)

	return &testServer{srv: srv, store: store, media: media}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, jsonText string, file *types.SelectedFile) *http.Request {
	t.Helper()
	body, contentType, err := executor.BuildMultipart(jsonText, file)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, executor.UploadPath, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

// partialRequest builds a multipart body with only the given fields
func partialRequest(t *testing.T, fields map[string]string, fileName string, fileData []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile(executor.FileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, executor.UploadPath, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUpload_Success(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(uploadRequest(t, `{"a":1}`, types.FileFromBytes("data.xlsx", []byte("sheet"))))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Files received successfully!", body["message"])
	assert.Equal(t, map[string]any{"a": float64(1)}, body["json_received"])
	assert.Equal(t, "data.xlsx", body["file_name"])
	assert.NotEmpty(t, body["id"])

	saved, err := os.ReadFile(filepath.Join(ts.media, "data.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "sheet", string(saved))

	records, err := ts.store.List(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "data.xlsx", records[0].FileName)
	assert.Equal(t, int64(5), records[0].Size)
	assert.Equal(t, `{"a":1}`, records[0].JSONData)
}

func TestUpload_MissingJSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(partialRequest(t, nil, "a.csv", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The 'jsonData' field is missing.", decode(t, rec)["error"])
}

func TestUpload_JSONInQueryStringIgnored(t *testing.T) {
	ts := newTestServer(t)

	req := partialRequest(t, nil, "a.csv", []byte("x"))
	req.URL.RawQuery = "jsonData=%7B%7D"

	rec := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The 'jsonData' field is missing.", decode(t, rec)["error"])

	records, err := ts.store.List(0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpload_MalformedJSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(uploadRequest(t, `{"a":`, types.FileFromBytes("a.csv", []byte("x"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Malformed JSON.", decode(t, rec)["error"])
}

func TestUpload_MissingFile(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(partialRequest(t, map[string]string{executor.JSONField: `{}`}, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The 'excelFile' field is missing.", decode(t, rec)["error"])
}

func TestUpload_JSONCheckedBeforeFile(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(partialRequest(t, map[string]string{executor.JSONField: "nope"}, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Malformed JSON.", decode(t, rec)["error"])
}

func TestUpload_NotMultipart(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, executor.UploadPath, bytes.NewBufferString(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")

	rec := ts.do(req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	ts := newTestServer(t)

	big := bytes.Repeat([]byte("x"), 2<<20)
	rec := ts.do(uploadRequest(t, `{}`, types.FileFromBytes("big.bin", big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUpload_PathTraversalName(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(partialRequest(t, map[string]string{executor.JSONField: `{}`}, "../../etc/evil.txt", []byte("x")))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "evil.txt", decode(t, rec)["file_name"])

	_, err := os.Stat(filepath.Join(ts.media, "evil.txt"))
	assert.NoError(t, err)
}

func TestUpload_WrongMethod(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, executor.UploadPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListUploads(t *testing.T) {
	ts := newTestServer(t)

	ts.do(uploadRequest(t, `[1,2]`, types.FileFromBytes("one.csv", []byte("1"))))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/uploads/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []types.UploadRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "one.csv", records[0].FileName)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestNoStore(t *testing.T) {
	srv := NewServer(Config{
		MediaDir: t.TempDir(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, `{}`, types.FileFromBytes("a.csv", []byte("x"))))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/uploads/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.xlsx", "report.xlsx"},
		{"dir/report.xlsx", "report.xlsx"},
		{`C:\Users\me\report.xlsx`, "report.xlsx"},
		{"..", "upload"},
		{"", "upload"},
		{"/", "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFileName(tt.in))
		})
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	srv := NewServer(Config{
		Addr:     "127.0.0.1:0",
		MediaDir: t.TempDir(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
