// Package fs implements the file-backed ports: JSONL record outputs, raw
// capture files and the session status file.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// OutputExt is the extension of record output files.
const OutputExt = ".jsonl"

// JSONLSink implements ports.RecordSink with one append-only JSON Lines file
// per storage key.
type JSONLSink struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

// NewJSONLSink creates a sink writing into dir, creating it if needed.
func NewJSONLSink(dir string) (*JSONLSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &JSONLSink{dir: dir, files: make(map[string]*os.File)}, nil
}

// Write appends rec as one JSON line to the file of key.
func (s *JSONLSink) Write(ctx context.Context, key string, rec domain.Record) error {
	line, err := json.Marshal(rec.ToStored())
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.file(key)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", f.Name(), err)
	}
	return nil
}

func (s *JSONLSink) file(key string) (*os.File, error) {
	if f, ok := s.files[key]; ok {
		return f, nil
	}
	f, err := os.OpenFile(s.Path(key), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	s.files[key] = f
	return f, nil
}

// Path returns the output file of key.
func (s *JSONLSink) Path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+OutputExt)
}

// Keys returns the storage keys opened so far.
func (s *JSONLSink) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	return keys
}

// Close closes every output file and returns the first error.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var first error
	for key, f := range s.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
		delete(s.files, key)
	}
	return first
}

// sanitizeKey keeps keys inside the output directory.
func sanitizeKey(key string) string {
	if key == "" {
		return "records"
	}
	return strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(key)
}
