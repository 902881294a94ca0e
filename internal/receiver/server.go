// Package receiver is a reference implementation of the upload endpoint.
// It accepts the same multipart contract the client sends, stores the
// file on disk and records the upload in SQLite.
package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/studiowebux/formpost/internal/executor"
	"github.com/studiowebux/formpost/internal/types"
)

// multipartMemory is how much of a multipart body is kept in memory before spilling to disk
const multipartMemory = 8 << 20

// Config holds receiver configuration
type Config struct {
	Addr           string
	MediaDir       string
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server serves the upload API
type Server struct {
	cfg    Config
	store  *Store
	router chi.Router
	log    *slog.Logger
}

// NewServer creates a receiver. store may be nil, in which case uploads are
// saved to disk but not recorded.
func NewServer(cfg Config, store *Store) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:8000"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: cfg, store: store, log: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload/", s.handleUpload)
		r.Get("/uploads/", s.handleList)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("receiver listening", "addr", s.cfg.Addr, "media", s.cfg.MediaDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// handleUpload checks jsonData before excelFile, the same order the
// client-facing error messages assume
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			jsonResp(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("Upload exceeds the %d MB limit.", s.cfg.MaxUploadBytes>>20),
			})
		case errors.Is(err, http.ErrNotMultipart):
			jsonResp(w, http.StatusUnsupportedMediaType, map[string]string{
				"error": fmt.Sprintf("Unsupported media type %q in request.", r.Header.Get("Content-Type")),
			})
		default:
			jsonResp(w, http.StatusBadRequest, map[string]string{"error": "Malformed multipart body."})
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	// Only the multipart body counts; URL query values are ignored
	jsonText := r.PostFormValue(executor.JSONField)
	if jsonText == "" {
		jsonResp(w, http.StatusBadRequest, map[string]string{"error": "The 'jsonData' field is missing."})
		return
	}

	var parsed any
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		jsonResp(w, http.StatusBadRequest, map[string]string{"error": "Malformed JSON."})
		return
	}

	file, header, err := r.FormFile(executor.FileField)
	if err != nil {
		jsonResp(w, http.StatusBadRequest, map[string]string{"error": "The 'excelFile' field is missing."})
		return
	}
	defer file.Close()

	savedPath, size, err := s.saveFile(header.Filename, file)
	if err != nil {
		s.serverError(w, err)
		return
	}

	rec := types.UploadRecord{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
		FileName:   filepath.Base(savedPath),
		SavedPath:  savedPath,
		Size:       size,
		JSONData:   jsonText,
	}
	if s.store != nil {
		if err := s.store.Save(rec); err != nil {
			s.serverError(w, err)
			return
		}
	}

	s.log.Info("upload received", "id", rec.ID, "file", rec.FileName, "size", size)

	jsonResp(w, http.StatusCreated, map[string]any{
		"id":            rec.ID,
		"status":        "success",
		"message":       "Files received successfully!",
		"json_received": parsed,
		"file_name":     rec.FileName,
		"saved_path":    savedPath,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonResp(w, http.StatusOK, []types.UploadRecord{})
		return
	}

	records, err := s.store.List(100)
	if err != nil {
		s.serverError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, records)
}

// saveFile writes the upload into the media directory under its base name
func (s *Server) saveFile(name string, src io.Reader) (string, int64, error) {
	if err := os.MkdirAll(s.cfg.MediaDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create media directory: %w", err)
	}

	base := sanitizeFileName(name)
	path := filepath.Join(s.cfg.MediaDir, base)

	dst, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", base, err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return "", 0, fmt.Errorf("failed to write %s: %w", base, err)
	}

	return path, n, nil
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.log.Error("upload failed", "err", err)
	jsonResp(w, http.StatusInternalServerError, map[string]string{
		"error": fmt.Sprintf("A server error occurred: %v", err),
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// sanitizeFileName keeps only the final path element of a client-supplied name
func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	if base == "." || base == "/" || base == ".." || base == "" {
		return "upload"
	}
	return base
}

func jsonResp(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("json encode", "err", err)
	}
}
