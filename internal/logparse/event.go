package logparse

import (
	"fmt"
	"time"
)

// EventType is the lifecycle transition reported by the game.
type EventType int

const (
	Started EventType = iota
	Failed
	Completed
)

func (t EventType) String() string {
	switch t {
	case Started:
		return "started"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Status codes carried in the notification payload.
const (
	codeStarted   = 10
	codeFailed    = 11
	codeCompleted = 12
)

func eventTypeForCode(code int64) (EventType, bool) {
	switch code {
	case codeStarted:
		return Started, true
	case codeFailed:
		return Failed, true
	case codeCompleted:
		return Completed, true
	}
	return 0, false
}

// Event is one quest lifecycle signal extracted from a log record.
// RawTaskID has not been through alias resolution.
type Event struct {
	RawTaskID  string
	Type       EventType
	TraderID   string
	Timestamp  time.Time
	Source     string
	SourceLine int // 1-based line of the notification marker; diagnostics only
}

// ParseError reports a notification record whose payload could not be used.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
