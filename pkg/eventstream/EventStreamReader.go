package eventstream

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// State of the reader. All closed states are terminal.
type State int

const (
	StateIdle State = iota
	StateOpen
	StateClosed    // the remote end closed the stream
	StateFailed    // the transport failed, see Err()
	StateCancelled // the caller cancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Option to configure the reader
type Option func(r *EventStreamReader)

// WithFormat overrides the wire format. The default FormatAuto uses the content type.
func WithFormat(format Format) Option {
	return func(r *EventStreamReader) {
		r.format = format
	}
}

// WithLogger sets the diagnostics sink for skipped units and stream termination
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *EventStreamReader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithIdleTimeout ends the stream with a TransportError when Next waits longer than the
// given duration without receiving data. Keep-alive lines count as data. Use 0 to wait indefinitely.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(r *EventStreamReader) {
		r.idleTimeout = timeout
	}
}

// EventStreamReader is a forward only sequence of events read from a StreamConnection.
//
// Usage:
//  reader := eventstream.Open(ctx, conn)
//  defer reader.Close()
//  for reader.Next() {
//    ev := reader.Event()
//  }
//  err := reader.Err()
//
// Next, Event and Err must be called from a single goroutine. Close and cancellation of
// the context may come from any goroutine and unblock a pending Next.
// The sequence is not restartable. Open a new connection to continue after it ended.
type EventStreamReader struct {
	ctx         context.Context
	conn        *StreamConnection
	format      Format
	framer      framer
	logger      logrus.FieldLogger
	idleTimeout time.Duration
	idleTimer   *time.Timer
	stopAfter   func() bool

	event       StreamEvent
	skipped     int
	lastOutcome Outcome

	cancelled atomic.Bool
	timedOut  atomic.Bool

	mu    sync.Mutex
	state State
	err   error
}

// activityReader resets the idle timer on each read that returned data
type activityReader struct {
	conn   *StreamConnection
	onData func()
}

func (ar *activityReader) Read(p []byte) (int, error) {
	n, err := ar.conn.Read(p)
	if n > 0 {
		ar.onData()
	}
	return n, err
}

func (ar *activityReader) Close() error {
	return ar.conn.Close()
}

// Close cancels the stream and releases the connection.
// Further calls to Next return false. Err() remains nil.
func (r *EventStreamReader) Close() error {
	r.cancelled.Store(true)
	r.finish(StateCancelled, nil)
	return r.conn.Close()
}

// Err returns the reason the sequence ended.
// This is nil when the remote end closed the stream or the caller invoked Close, the
// context error when the context was cancelled, or a *TransportError on failure.
func (r *EventStreamReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Event returns the event decoded by the last call to Next that returned true
func (r *EventStreamReader) Event() StreamEvent {
	return r.event
}

// Next blocks until the next event is decoded and returns true, or returns false
// when the sequence has ended. Empty and malformed units are skipped.
func (r *EventStreamReader) Next() bool {
	for {
		if r.isTerminal() {
			return false
		}
		if r.cancelled.Load() {
			r.finish(StateCancelled, nil)
			return false
		}
		if err := r.ctx.Err(); err != nil {
			r.finish(StateCancelled, err)
			return false
		}
		if r.idleTimer != nil {
			r.idleTimer.Reset(r.idleTimeout)
		}
		ev, outcome, err := r.readUnit()
		r.lastOutcome = outcome
		if outcome == OutcomeTransportError {
			r.endWithError(err)
			return false
		}
		if outcome == OutcomeSkip {
			r.skipped++
			r.logger.Debugf("EventStreamReader.Next: skipping unit from %s: %q", r.conn.SourceURL(), ev.RawLine)
			continue
		}
		r.event = ev
		// the caller may take its time before pulling the next event
		if r.idleTimer != nil {
			r.idleTimer.Stop()
		}
		return true
	}
}

// readUnit reads the next unit off the wire and decodes it.
// Skipped units return the candidate text in RawLine for diagnostics.
func (r *EventStreamReader) readUnit() (StreamEvent, Outcome, error) {
	u, err := r.framer.next()
	if err != nil {
		return StreamEvent{}, OutcomeTransportError, err
	}
	ev, outcome := ParseUnit(u.candidate)
	if outcome == OutcomeSkip {
		return StreamEvent{RawLine: u.candidate}, OutcomeSkip, nil
	}
	ev.Name = u.name
	ev.ID = u.id
	return ev, outcome, nil
}

// LastOutcome returns the outcome of the last unit read by Next.
// OutcomeTransportError means the read ended the stream. Err tells a clean end from a failure.
func (r *EventStreamReader) LastOutcome() Outcome {
	return r.lastOutcome
}

// Skipped returns the number of units that were discarded as empty or malformed
func (r *EventStreamReader) Skipped() int {
	return r.skipped
}

// State returns the current reader state
func (r *EventStreamReader) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// endWithError classifies the read error that ended the stream
func (r *EventStreamReader) endWithError(err error) {
	switch {
	case r.cancelled.Load():
		r.finish(StateCancelled, nil)
	case r.ctx.Err() != nil:
		r.finish(StateCancelled, r.ctx.Err())
	case r.timedOut.Load():
		r.finish(StateFailed, &TransportError{SourceURL: r.conn.SourceURL(), Err: ErrIdleTimeout})
	case errors.Is(err, io.EOF):
		r.finish(StateClosed, nil)
	default:
		r.finish(StateFailed, &TransportError{SourceURL: r.conn.SourceURL(), Err: err})
	}
}

// finish moves to a terminal state and releases the connection. Only the first call has effect.
func (r *EventStreamReader) finish(state State, err error) {
	r.mu.Lock()
	if r.state != StateOpen && r.state != StateIdle {
		r.mu.Unlock()
		return
	}
	r.state = state
	r.err = err
	r.mu.Unlock()

	r.stopAfter()
	if r.idleTimer != nil {
		r.idleTimer.Stop()
	}
	_ = r.conn.Close()
	if err != nil {
		r.logger.Infof("EventStreamReader: stream %s ended (%s): %s", r.conn.SourceURL(), state, err)
	} else {
		r.logger.Debugf("EventStreamReader: stream %s ended (%s)", r.conn.SourceURL(), state)
	}
}

func (r *EventStreamReader) isTerminal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != StateOpen && r.state != StateIdle
}

func (r *EventStreamReader) onIdle() {
	r.timedOut.Store(true)
	_ = r.conn.Close()
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Open returns the sequence of events read from the connection.
// Nothing is read until the first call to Next.
// Cancelling the context closes the connection and ends the sequence.
//  ctx controls the lifetime of the stream, nil for no cancellation
//  conn is the open streaming response. The reader takes ownership and closes it.
//  opts with optional format, logger and idle timeout
func Open(ctx context.Context, conn *StreamConnection, opts ...Option) *EventStreamReader {
	if ctx == nil {
		ctx = context.Background()
	}
	r := &EventStreamReader{
		ctx:    ctx,
		conn:   conn,
		format: FormatAuto,
		logger: discardLogger(),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	var source io.ReadCloser = conn
	if r.idleTimeout > 0 {
		r.idleTimer = time.AfterFunc(r.idleTimeout, r.onIdle)
		r.idleTimer.Stop() // don't start until the first Next
		source = &activityReader{conn: conn, onData: func() {
			r.idleTimer.Reset(r.idleTimeout)
		}}
	}
	r.format = ResolveFormat(r.format, conn.ContentType())
	r.framer = newFramer(r.format, source)
	r.stopAfter = context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	r.state = StateOpen
	r.logger.Debugf("EventStreamReader: opened %s as %s", conn.SourceURL(), r.format)
	return r
}
