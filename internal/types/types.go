package types

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SelectedFile is the file chosen for upload. A nil *SelectedFile means no file.
type SelectedFile struct {
	Name string // Original file name sent in the multipart part
	Path string // Source path on disk (empty for in-memory files)
	Size int64

	open func() (io.ReadCloser, error)
}

// Open returns a reader over the file content
func (f *SelectedFile) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("file %q has no content source", f.Name)
	}
	return f.open()
}

// FileFromPath builds a SelectedFile backed by a file on disk
func FileFromPath(path string) (*SelectedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return &SelectedFile{
		Name: filepath.Base(path),
		Path: path,
		Size: info.Size(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FileFromBytes builds a SelectedFile held in memory
func FileFromBytes(name string, data []byte) *SelectedFile {
	return &SelectedFile{
		Name: name,
		Size: int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// OutcomeKind tags an Outcome
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeError   OutcomeKind = "error"
)

// Outcome is the result of one submission attempt.
// Exactly one of Payload (success) or Detail (error) is populated.
type Outcome struct {
	Kind    OutcomeKind `json:"kind" yaml:"kind"`
	Payload any         `json:"payload,omitempty" yaml:"payload,omitempty"`
	Detail  string      `json:"detail,omitempty" yaml:"detail,omitempty"`
	Status  int         `json:"status,omitempty" yaml:"status,omitempty"` // 0 when no HTTP response was received
	Text    string      `json:"text" yaml:"text"`                         // Display rendering
}

// IsError reports whether the outcome is an error
func (o Outcome) IsError() bool {
	return o.Kind == OutcomeError
}

// Snapshot is a read-only copy of the form state
type Snapshot struct {
	JSONText string
	File     *SelectedFile
	InFlight bool
	Result   *Outcome
}

// UploadResult contains the HTTP response data
type UploadResult struct {
	Status       int               `json:"status"`
	StatusText   string            `json:"statusText"`
	Headers      map[string]string `json:"headers"`
	Body         string            `json:"body"`
	Duration     int64             `json:"duration"`     // milliseconds
	RequestSize  int               `json:"requestSize"`  // bytes
	ResponseSize int               `json:"responseSize"` // bytes
	Error        string            `json:"error,omitempty"`
}

// TLSConfig configures client certificates and server verification
type TLSConfig struct {
	CertFile           string `json:"certFile,omitempty" yaml:"certFile,omitempty"`
	KeyFile            string `json:"keyFile,omitempty" yaml:"keyFile,omitempty"`
	CAFile             string `json:"caFile,omitempty" yaml:"caFile,omitempty"`
	InsecureSkipVerify bool   `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty"`
}

// UploadRecord is one upload accepted by the receiver
type UploadRecord struct {
	ID         string `json:"id" yaml:"id"`
	ReceivedAt string `json:"receivedAt" yaml:"receivedAt"`
	FileName   string `json:"fileName" yaml:"fileName"`
	SavedPath  string `json:"savedPath" yaml:"savedPath"`
	Size       int64  `json:"size" yaml:"size"`
	JSONData   string `json:"jsonData" yaml:"jsonData"`
}
