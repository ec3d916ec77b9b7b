// Package logbook persists one JSON line per handled question and serves
// aggregate stats over that log.
package logbook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"supportbot/internal/domain"
)

// Logger appends interaction records to a JSONL file. Appends are
// serialized and issued as a single Write each, so concurrent pipeline
// workers never interleave partial lines.
type Logger struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open interaction log %s: %w", path, err)
	}
	return &Logger{path: path, file: f}, nil
}

// Record appends one interaction. The timestamp is filled in when the
// caller left it zero, and the category is derived from the question.
func (l *Logger) Record(rec domain.InteractionRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Category == "" {
		rec.Category = Categorize(rec.Question)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot marshal interaction record: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("cannot append interaction record: %w", err)
	}
	return nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Path returns the log file location.
func (l *Logger) Path() string {
	return l.path
}
