package keep

import (
	"fmt"
	"path/filepath"
	"time"
)

// EventKind classifies an Event.
type EventKind string

const (
	EventBackupCreated EventKind = "backup"
	EventAutoBackup    EventKind = "auto-backup"
	EventRestored      EventKind = "restore"
	EventCleanedUp     EventKind = "cleanup"
	EventSealed        EventKind = "seal"
	EventWatchStarted  EventKind = "watch-start"
	EventWatchStopped  EventKind = "watch-stop"
	EventError         EventKind = "error"
)

// Event is a user-visible outcome of an operation.
type Event struct {
	Time      time.Time
	Kind      EventKind
	SessionID string // set for events produced by a watch session
	Op        string // failed operation, for EventError
	Path      string
	Count     int
	Err       error
}

// Failed reports whether the event describes an error.
func (e Event) Failed() bool {
	return e.Kind == EventError
}

// Status returns the short one-line status for the event.
func (e Event) Status() string {
	switch e.Kind {
	case EventBackupCreated:
		return "Backup created: " + filepath.Base(e.Path)
	case EventAutoBackup:
		return "Auto-backup: " + filepath.Base(e.Path)
	case EventRestored:
		return "Restored: " + e.Path
	case EventCleanedUp:
		if e.Count == 0 {
			return "Backup folder is already empty."
		}
		return fmt.Sprintf("Cleaned up %d file(s) in backup folder.", e.Count)
	case EventSealed:
		return "Sealed: " + filepath.Base(e.Path)
	case EventWatchStarted:
		return "Watching for changes..."
	case EventWatchStopped:
		return "Stopped watching."
	case EventError:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return string(e.Kind)
}

// Message returns the detailed log message for the event.
func (e Event) Message() string {
	switch e.Kind {
	case EventBackupCreated:
		return "Backup created: " + e.Path
	case EventAutoBackup:
		return "Auto-backup: " + e.Path
	case EventRestored:
		return "Restored -> " + e.Path
	case EventCleanedUp:
		if e.Count == 0 {
			return "Clean up: backup folder already empty."
		}
		return fmt.Sprintf("Clean up: removed %d file(s) from %s", e.Count, e.Path)
	case EventSealed:
		return "Sealed backup: " + e.Path
	case EventWatchStarted:
		return "Watching " + e.Path
	}
	return e.Status()
}

// LogLine returns the message prefixed with the event's wall-clock time.
func (e Event) LogLine() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message())
}

// EventSink receives events. Sinks are called from the goroutine that
// produced the event and must not block for long.
type EventSink func(Event)
