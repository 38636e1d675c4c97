package eventstream

import (
	"bufio"
	"io"
	"mime"
	"strings"

	"github.com/vito/go-sse/sse"
)

// Format selects how units are framed on the wire
type Format int

const (
	// FormatAuto selects SSE for text/event-stream responses and JSON lines with SSE
	// frame recognition otherwise
	FormatAuto Format = iota
	// FormatJSONLines reads one JSON document per line. SSE frames in between are recognized.
	FormatJSONLines
	// FormatSSE reads Server-Sent-Events frames and decodes their data field
	FormatSSE
)

// ContentTypeSSE is the content type of Server-Sent-Events responses
const ContentTypeSSE = "text/event-stream"

func (f Format) String() string {
	switch f {
	case FormatJSONLines:
		return "json-lines"
	case FormatSSE:
		return "sse"
	}
	return "auto"
}

// ResolveFormat returns the concrete format for a response with the given content type
func ResolveFormat(format Format, contentType string) Format {
	if format != FormatAuto {
		return format
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && mediaType == ContentTypeSSE {
		return FormatSSE
	}
	return FormatJSONLines
}

// unit is the candidate text of one wire unit with the framing removed
type unit struct {
	candidate string
	name      string
	id        string
}

// framer strips the transport framing of one wire format
type framer interface {
	// next blocks until a unit is read or the stream ends
	next() (unit, error)
}

// lineFramer splits the stream on newlines.
// Lines that carry SSE fields are collected into SSE frames, so servers that send SSE
// without the text/event-stream content type are still understood.
type lineFramer struct {
	buf     *bufio.Reader
	pending *string // line read past the end of an SSE frame
}

func (f *lineFramer) readLine() (string, error) {
	if f.pending != nil {
		line := *f.pending
		f.pending = nil
		return line, nil
	}
	line, err := f.buf.ReadString('\n')
	if err != nil {
		// the last line of a stream doesn't need a newline
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// sseField splits an SSE field line. Comments are fields without a name.
// A JSON document never starts with a field name, so JSON lines are not fields.
func sseField(line string) (name string, value string, isField bool) {
	if strings.HasPrefix(line, ":") {
		return "", "", true
	}
	name, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	switch name {
	case "data", "event", "id", "retry":
		return name, strings.TrimPrefix(value, " "), true
	}
	return "", "", false
}

func (f *lineFramer) next() (unit, error) {
	for {
		line, err := f.readLine()
		if err != nil {
			return unit{}, err
		}
		if _, _, isField := sseField(line); !isField {
			return unit{candidate: line}, nil
		}
		u, hasData, err := f.sseFrame(line)
		if err != nil {
			return unit{}, err
		}
		// frames with only comments, event, id or retry fields are not units
		if hasData {
			return u, nil
		}
	}
}

// sseFrame collects the field lines of one frame, starting with the given line
func (f *lineFramer) sseFrame(line string) (u unit, hasData bool, err error) {
	var data []string
	for {
		name, value, isField := sseField(line)
		if !isField {
			// a blank line ends the frame, anything else is the next unit
			if line != "" {
				f.pending = &line
			}
			break
		}
		switch name {
		case "data":
			data = append(data, value)
		case "event":
			u.name = value
		case "id":
			u.id = value
		}
		if line, err = f.readLine(); err != nil {
			return unit{}, false, err
		}
	}
	u.candidate = strings.Join(data, "\n")
	return u, len(data) > 0, nil
}

// sseFramer reads SSE frames. Comments and frames without data never reach the caller.
type sseFramer struct {
	reader *sse.ReadCloser
}

func (f *sseFramer) next() (unit, error) {
	ev, err := f.reader.Next()
	if err != nil {
		return unit{}, err
	}
	return unit{candidate: string(ev.Data), name: ev.Name, id: ev.ID}, nil
}

func newFramer(format Format, source io.ReadCloser) framer {
	if format == FormatSSE {
		return &sseFramer{reader: sse.NewReadCloser(source)}
	}
	return &lineFramer{buf: bufio.NewReader(source)}
}
