package app

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Logger writes one JSON object per line. The TUI owns the terminal, so the
// default sink is a file under the data dir rather than stderr.
type Logger struct {
	out    io.Writer
	closer io.Closer
}

type LogEvent struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func NewLogger(out io.Writer) *Logger {
	return &Logger{out: out}
}

// NewFileLogger appends to a log file, creating parent directories as needed.
// Falls back to a discard logger when the file cannot be opened, so callers
// never need a nil check.
func NewFileLogger(path string) *Logger {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return NewLogger(io.Discard)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return NewLogger(io.Discard)
	}
	return &Logger{out: f, closer: f}
}

func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.write("info", message, fields)
}

func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.write("warn", message, fields)
}

func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.write("error", message, fields)
}

func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func (l *Logger) write(level, message string, fields map[string]interface{}) {
	evt := LogEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Message:   message,
		Fields:    fields,
	}
	payload, _ := json.Marshal(evt)
	payload = append(payload, '\n')
	_, _ = l.out.Write(payload)
}
