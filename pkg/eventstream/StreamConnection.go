package eventstream

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// StreamConnection is one open, live HTTP streaming response.
// The connection is created by the gateway that opened the endpoint and handed to a single
// EventStreamReader. The reader owns the read cursor and closes the connection when done.
type StreamConnection struct {
	sourceURL   string
	contentType string
	body        io.ReadCloser

	isOpen       atomic.Bool
	lastActivity atomic.Int64 // unix nano of the last read that returned data

	closeOnce sync.Once
	closeErr  error
}

// SourceURL returns the URL the stream was opened on
func (conn *StreamConnection) SourceURL() string {
	return conn.sourceURL
}

// ContentType returns the response content type, eg text/event-stream
func (conn *StreamConnection) ContentType() string {
	return conn.contentType
}

// IsOpen returns true until the connection is closed
func (conn *StreamConnection) IsOpen() bool {
	return conn.isOpen.Load()
}

// LastActivityTime returns the time data was last received, or the time the connection was opened
func (conn *StreamConnection) LastActivityTime() time.Time {
	return time.Unix(0, conn.lastActivity.Load())
}

// Read from the response body. Reads that return data update the last activity time.
func (conn *StreamConnection) Read(p []byte) (n int, err error) {
	n, err = conn.body.Read(p)
	if n > 0 {
		conn.lastActivity.Store(time.Now().UnixNano())
	}
	return n, err
}

// Close the response body.
// Only the first call closes the body. Subsequent calls return the result of the first.
// Close is safe to call from another goroutine to unblock a pending Read.
func (conn *StreamConnection) Close() error {
	conn.closeOnce.Do(func() {
		conn.isOpen.Store(false)
		conn.closeErr = conn.body.Close()
	})
	return conn.closeErr
}

// NewStreamConnection wraps an open response body
//  sourceURL is the URL the stream was opened on, used in errors and logging
//  contentType of the response, used by FormatAuto to select the wire format
//  body is the not yet consumed response body
func NewStreamConnection(sourceURL string, contentType string, body io.ReadCloser) *StreamConnection {
	conn := &StreamConnection{
		sourceURL:   sourceURL,
		contentType: contentType,
		body:        body,
	}
	conn.isOpen.Store(true)
	conn.lastActivity.Store(time.Now().UnixNano())
	return conn
}
