package logparse

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// NotificationMarker identifies the log record that carries a chat
// notification payload.
const NotificationMarker = "Got notification | ChatMessageReceived"

// recordStart matches the timestamp every new log record begins with.
var recordStart = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)

var (
	errEmptyPayload   = errors.New("empty notification payload")
	errMalformedJSON  = errors.New("malformed notification payload")
	errMissingMessage = errors.New("payload has no message object")
	errMissingCode    = errors.New("message has no type code")
	errMissingQuestID = errors.New("message has no quest id")
	errMissingTime    = errors.New("message has no timestamp")
)

// Result is the outcome of parsing one batch of lines.
type Result struct {
	Events     []Event
	Errors     []*ParseError
	Records    int  // notification records seen
	Ignored    int  // records with a status code that is not a quest lifecycle code
	Suppressed int  // events withheld because the batch was historical
	Historical bool // true for the first batch of a source
}

// Parser turns raw log lines into lifecycle events. The first batch
// delivered for a source is whatever was already in the log when
// monitoring began; it is parsed but emits no events. Safe for concurrent use.
type Parser struct {
	mu   sync.Mutex
	live map[string]bool
}

// NewParser creates a Parser with every source in its historical phase.
func NewParser() *Parser {
	return &Parser{live: make(map[string]bool)}
}

// MarkLive skips the historical gate for source, for deliberate imports of
// an existing log.
func (p *Parser) MarkLive(source string) {
	p.mu.Lock()
	p.live[source] = true
	p.mu.Unlock()
}

// IsLive reports whether source has passed its historical batch.
func (p *Parser) IsLive(source string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live[source]
}

// Parse parses lines delivered in file order for source.
func (p *Parser) Parse(source string, lines []string) Result {
	p.mu.Lock()
	live := p.live[source]
	p.live[source] = true
	p.mu.Unlock()

	res := ParseLines(source, lines)
	if !live {
		res.Historical = true
		res.Suppressed = len(res.Events)
		res.Events = nil
		res.Errors = nil
	}
	return res
}

// ParseLines extracts every lifecycle event from lines without any replay
// gating. Malformed records are reported and skipped.
func ParseLines(source string, lines []string) Result {
	var res Result
	i := 0
	for i < len(lines) {
		idx := strings.Index(lines[i], NotificationMarker)
		if idx < 0 {
			i++
			continue
		}
		markerLine := i
		var buf strings.Builder
		if rest := lines[i][idx+len(NotificationMarker):]; strings.Contains(rest, "{") {
			buf.WriteString(rest[strings.Index(rest, "{"):])
			buf.WriteByte('\n')
		}
		i++
		for i < len(lines) && !recordStart.MatchString(lines[i]) {
			buf.WriteString(lines[i])
			buf.WriteByte('\n')
			i++
		}

		res.Records++
		ev, ok, err := parsePayload(buf.String())
		switch {
		case err != nil:
			res.Errors = append(res.Errors, &ParseError{Source: source, Line: markerLine + 1, Err: err})
		case !ok:
			res.Ignored++
		default:
			ev.Source = source
			ev.SourceLine = markerLine + 1
			res.Events = append(res.Events, ev)
		}
	}
	return res
}

// parsePayload reads the embedded notification JSON. ok is false for
// well-formed notifications that are not quest lifecycle messages.
func parsePayload(payload string) (ev Event, ok bool, err error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Event{}, false, errEmptyPayload
	}
	if !gjson.Valid(payload) {
		return Event{}, false, errMalformedJSON
	}
	msg := gjson.Get(payload, "message")
	if !msg.IsObject() {
		return Event{}, false, errMissingMessage
	}
	code := msg.Get("type")
	if code.Type != gjson.Number {
		return Event{}, false, errMissingCode
	}
	typ, known := eventTypeForCode(code.Int())
	if !known {
		return Event{}, false, nil
	}

	fields := strings.Fields(msg.Get("templateId").String())
	if len(fields) == 0 {
		return Event{}, false, errMissingQuestID
	}

	dt := msg.Get("dt")
	if dt.Type != gjson.Number {
		return Event{}, false, errMissingTime
	}
	sec, frac := math.Modf(dt.Float())

	trader := gjson.Get(payload, "dialogId").String()
	if trader == "" {
		trader = msg.Get("uid").String()
	}

	return Event{
		RawTaskID: fields[0],
		Type:      typ,
		TraderID:  trader,
		Timestamp: time.Unix(int64(sec), int64(frac*1e9)).UTC(),
	}, true, nil
}
