package testutil

import (
	"fmt"
	"strings"
	"sync"

	"savekeep/internal/keep"
)

// LogRecord is one call captured by RecordingLogger.
type LogRecord struct {
	Level string
	Msg   string
	Args  []any
}

// RecordingLogger captures log calls for assertions. Safe for concurrent use.
type RecordingLogger struct {
	mu      sync.Mutex
	records []LogRecord
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, LogRecord{Level: level, Msg: msg, Args: args})
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.add("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.add("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.add("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.add("ERROR", msg, args) }

// Records returns a copy of everything logged so far.
func (l *RecordingLogger) Records() []LogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogRecord(nil), l.records...)
}

// Has reports whether a record with the given level contains msg.
func (l *RecordingLogger) Has(level, msg string) bool {
	for _, r := range l.Records() {
		if r.Level == level && strings.Contains(r.Msg, msg) {
			return true
		}
	}
	return false
}

// String renders the captured records, one per line.
func (l *RecordingLogger) String() string {
	var b strings.Builder
	for _, r := range l.Records() {
		fmt.Fprintf(&b, "%s %s %v\n", r.Level, r.Msg, r.Args)
	}
	return b.String()
}

var _ keep.Logger = (*RecordingLogger)(nil)
