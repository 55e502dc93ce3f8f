package testutil

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LogRecord is a captured log record
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogRecorder is a slog.Handler that keeps every record in memory
type LogRecorder struct {
	mu      *sync.Mutex
	records *[]LogRecord
	attrs   []slog.Attr
	level   slog.Level
}

// NewLogRecorder returns a recorder capturing records at level and above
func NewLogRecorder(level slog.Level) *LogRecorder {
	return &LogRecorder{
		mu:      &sync.Mutex{},
		records: &[]LogRecord{},
		level:   level,
	}
}

// Logger returns a logger writing to the recorder
func (h *LogRecorder) Logger() *slog.Logger {
	return slog.New(h)
}

// Enabled implements slog.Handler
func (h *LogRecorder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler
func (h *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// WithAttrs implements slog.Handler. Derived handlers share the record buffer.
func (h *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *LogRecorder) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of everything captured so far
func (h *LogRecorder) Records() []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]LogRecord(nil), *h.records...)
}

// Find returns the first record with message msg
func (h *LogRecorder) Find(msg string) (LogRecord, bool) {
	for _, r := range h.Records() {
		if r.Message == msg {
			return r, true
		}
	}
	return LogRecord{}, false
}
