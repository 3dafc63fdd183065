// Package audit records what the pipeline did to a document: a JSONL event
// trail per run, quality metrics, and a SQLite store of run records.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/obscura-io/obscura/errors"
)

// Event is one audit trail record.
type Event struct {
	Timestamp string         `json:"ts"`
	Component string         `json:"component"`
	EventType string         `json:"event_type"`
	Details   map[string]any `json:"details"`
}

// EventLogger appends events to a JSONL file, one object per line. Safe for
// concurrent use within a process.
type EventLogger struct {
	mu   sync.Mutex
	path string
}

// NewEventLogger creates a logger writing to path, creating parent
// directories as needed.
func NewEventLogger(path string) (*EventLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create audit directory")
	}
	return &EventLogger{path: path}, nil
}

// Path returns the file the logger appends to.
func (l *EventLogger) Path() string { return l.path }

// LogEvent appends one event. The timestamp is UTC at write time.
func (l *EventLogger) LogEvent(component, eventType string, details map[string]any) error {
	record := Event{
		Timestamp: time.Now().UTC().Format("2006-01-02 15:04:05"),
		Component: component,
		EventType: eventType,
		Details:   details,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit event")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open audit log")
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return errors.Wrap(err, "failed to append audit event")
	}
	return nil
}
