package recognizer

import (
	"math"
	"strconv"
	"strings"

	"annorec/internal/segment"
)

// EventKind classifies one line of recognizer output.
type EventKind int

const (
	// EventText is free-form diagnostic output.
	EventText EventKind = iota
	EventProgress
	// EventSegments carries segments parsed from the line.
	EventSegments
	EventDone
	EventFailed
	// EventEOT is a lone end-of-transmission byte.
	EventEOT
	// EventSuccessCode is a lone "0" line.
	EventSuccessCode
	// EventFailureCode is a lone "-1" line.
	EventFailureCode
	// EventEndOfStream is produced when the output closes without a
	// terminal marker.
	EventEndOfStream
)

var kindNames = [...]string{
	EventText:        "text",
	EventProgress:    "progress",
	EventSegments:    "segments",
	EventDone:        "done",
	EventFailed:      "failed",
	EventEOT:         "eot",
	EventSuccessCode: "success-code",
	EventFailureCode: "failure-code",
	EventEndOfStream: "end-of-stream",
}

func (k EventKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event is the classification of a single output line.
type Event struct {
	Kind     EventKind
	Progress float32
	Message  string
	Segments []segment.Segment
}

// Terminal reports whether the event ends the session.
func (e Event) Terminal() bool {
	switch e.Kind {
	case EventDone, EventFailed, EventEOT, EventSuccessCode, EventFailureCode, EventEndOfStream:
		return true
	}
	return false
}

// Failure reports whether the event ends the session unsuccessfully.
func (e Event) Failure() bool {
	switch e.Kind {
	case EventFailed, EventEOT, EventFailureCode, EventEndOfStream:
		return true
	}
	return false
}

const (
	lineDone      = "RESULT: DONE."
	lineFailed    = "RESULT: FAILED."
	prefixProg    = "PROGRESS:"
	prefixInfo    = "INFO: PROGRESS:"
	endOfTransmit = "\u0004"
)

// terminalCode recognises the single-line codes shared by all dialects.
func terminalCode(line string) (Event, bool) {
	if line == endOfTransmit {
		return Event{Kind: EventEOT}, true
	}
	switch line {
	case "0":
		return Event{Kind: EventSuccessCode}, true
	case "-1":
		return Event{Kind: EventFailureCode}, true
	}
	return Event{}, false
}

// parseProgress parses "<v>[ <msg>]" where v is a float or a percentage.
func parseProgress(rest string) (Event, bool) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Event{}, false
	}
	token, msg, _ := strings.Cut(rest, " ")
	v, ok := progressValue(token)
	if !ok {
		return Event{}, false
	}
	return Event{Kind: EventProgress, Progress: v, Message: strings.TrimSpace(msg)}, true
}

func progressValue(token string) (float32, bool) {
	scale := float64(1)
	if strings.HasSuffix(token, "%") {
		token = strings.TrimSuffix(token, "%")
		scale = 100
	}
	f, err := strconv.ParseFloat(token, 32)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return float32(f / scale), true
}
