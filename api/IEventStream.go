// Package api with the event stream interface definition
package api

import "github.com/wostzone/osioclient-go/pkg/eventstream"

// IEventStream is the pull based sequence of events from a streaming endpoint.
// It is implemented by eventstream.EventStreamReader.
type IEventStream interface {
	// Next blocks until an event is available and returns true, or returns false at the end of the stream
	Next() bool
	// Event returns the event read by the last successful Next
	Event() eventstream.StreamEvent
	// Err returns the transport error that ended the stream, nil for a clean end
	Err() error
	// Close cancels the stream and releases the connection
	Close() error
}

// compile time check
var _ IEventStream = (*eventstream.EventStreamReader)(nil)
