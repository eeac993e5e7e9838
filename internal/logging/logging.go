// Package logging defines the small structured logging contract shared by
// every Ladle component, plus the default JSON-line implementation.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Field is a key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// Logger is a deliberately small, framework-agnostic logging interface.
type Logger interface {
	// Debug logs a debug-level message.
	Debug(msg string, fields ...Field)

	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning.
	Warn(msg string, fields ...Field)

	// Error logs an error.
	Error(msg string, fields ...Field)

	// With returns a child logger with persistent fields.
	With(fields ...Field) Logger
}

// JSONLogger writes one JSON object per entry. Safe for concurrent use.
type JSONLogger struct {
	mu        sync.Mutex
	out       io.Writer
	component string
	base      []Field
}

// NewJSONLogger creates a logger writing to stdout. component is optional
// and appears on every entry.
func NewJSONLogger(component string) *JSONLogger {
	return &JSONLogger{out: os.Stdout, component: component}
}

// NewJSONLoggerTo creates a logger writing to w.
func NewJSONLoggerTo(w io.Writer, component string) *JSONLogger {
	return &JSONLogger{out: w, component: component}
}

func (l *JSONLogger) log(level, msg string, fields []Field) {
	m := make(map[string]any, len(l.base)+len(fields))
	for _, f := range l.base {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}

	entry := struct {
		Level     string         `json:"level"`
		Msg       string         `json:"msg"`
		Component string         `json:"component,omitempty"`
		Time      string         `json:"time"`
		Fields    map[string]any `json:"fields,omitempty"`
	}{
		Level:     level,
		Msg:       msg,
		Component: l.component,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Fields:    m,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	enc, err := json.Marshal(entry)
	if err != nil {
		// Fall back to plain formatting rather than dropping the entry.
		fmt.Fprintf(l.out, "%s %s %v\n", level, msg, m)
		return
	}
	fmt.Fprintln(l.out, string(enc))
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log("debug", msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log("info", msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log("warn", msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log("error", msg, fields) }

// With returns a child logger carrying the given persistent fields. A
// "component" field overrides the component name instead of being repeated.
func (l *JSONLogger) With(fields ...Field) Logger {
	child := &JSONLogger{out: l.out, component: l.component}
	child.base = append(child.base, l.base...)
	for _, f := range fields {
		if f.Key == "component" {
			if s, ok := f.Value.(string); ok {
				child.component = s
				continue
			}
		}
		child.base = append(child.base, f)
	}
	return child
}

// Nop is a Logger that discards everything. Handy default for tests and
// for components constructed without a logger.
type Nop struct{}

func (Nop) Debug(string, ...Field) {}
func (Nop) Info(string, ...Field)  {}
func (Nop) Warn(string, ...Field)  {}
func (Nop) Error(string, ...Field) {}
func (n Nop) With(...Field) Logger { return n }
