// Package eventstream turns a live streaming HTTP response into a sequence of decoded events.
//
// Two wire formats are supported: newline delimited JSON documents and Server-Sent-Events
// frames of which only the data field is decoded. Units that are empty or do not decode as
// JSON are skipped. A transport failure ends the sequence and is reported through Err().
package eventstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrIdleTimeout is wrapped in a TransportError when no data arrived within the idle timeout
var ErrIdleTimeout = errors.New("no data received within the idle timeout")

// StreamEvent is one decoded unit of data from the stream
type StreamEvent struct {
	// Payload is the decoded JSON value: nil, bool, float64, string, []interface{} or map[string]interface{}
	Payload interface{}
	// RawLine is the text the payload was decoded from
	RawLine string
	// Name is the SSE event name, if any
	Name string
	// ID is the SSE event ID, if any
	ID string
}

// Outcome of parsing a single unit
type Outcome int

const (
	// OutcomeEvent means the unit decoded into an event
	OutcomeEvent Outcome = iota
	// OutcomeSkip means the unit was empty or not valid JSON and is discarded
	OutcomeSkip
	// OutcomeTransportError means reading the unit ended the stream, either cleanly or by a failure
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEvent:
		return "event"
	case OutcomeSkip:
		return "skip"
	case OutcomeTransportError:
		return "transport-error"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// TransportError is the reason a stream ended other than a clean close
type TransportError struct {
	SourceURL string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("event stream %s: %s", e.SourceURL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseUnit decodes the candidate text of one unit after the transport framing is removed.
// Blank candidates and candidates that are not a single valid JSON document are skipped.
// A JSON null is a valid payload and yields an event with a nil Payload.
func ParseUnit(candidate string) (StreamEvent, Outcome) {
	if strings.TrimSpace(candidate) == "" {
		return StreamEvent{}, OutcomeSkip
	}
	var payload interface{}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return StreamEvent{}, OutcomeSkip
	}
	return StreamEvent{Payload: payload, RawLine: candidate}, OutcomeEvent
}
