// Package sse implements event-stream framing plus the stream transcoding and
// buffering paths that turn upstream Responses events into client chat chunks.
package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
)

// ErrFrameTooLong reports a frame that outgrew the buffer limit before its
// blank-line terminator arrived.
var ErrFrameTooLong = errors.New("sse frame exceeds buffer limit")

// Event is one parsed SSE frame.
type Event struct {
	Name string
	Data string
}

// Done reports whether the frame carried the stream-end sentinel payload.
func (e Event) Done() bool {
	return strings.TrimSpace(e.Data) == core.StreamChunkDoneMessage
}

// Reader frames an SSE byte stream. Bytes are buffered until a blank-line
// terminator appears, so frames split across arbitrary read boundaries are
// reassembled correctly. Frames without a data payload are skipped. A frame
// larger than core.MaxScannerBufferSize aborts the stream with
// ErrFrameTooLong.
type Reader struct {
	src     io.Reader
	buf     []byte
	scanned int
	eof     bool
}

// NewReader wraps src as an SSE frame reader.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// Next returns the next complete event, or io.EOF when the stream is
// exhausted.
func (r *Reader) Next() (Event, error) {
	for {
		if frame, ok := r.takeFrame(); ok {
			if ev, ok := parseFrame(frame); ok {
				return ev, nil
			}
			continue
		}
		if len(r.buf) > core.MaxScannerBufferSize {
			return Event{}, ErrFrameTooLong
		}
		if r.eof {
			// A trailing frame may arrive without its terminator.
			if len(bytes.TrimSpace(r.buf)) > 0 {
				frame := r.buf
				r.buf = nil
				if ev, ok := parseFrame(frame); ok {
					return ev, nil
				}
			}
			return Event{}, io.EOF
		}
		chunk := make([]byte, 4096)
		n, err := r.src.Read(chunk)
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
		}
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return Event{}, err
		}
	}
}

// takeFrame extracts the bytes up to the first blank-line terminator. Only
// the region appended since the last scan is searched, backed up far enough
// to catch a terminator split across reads.
func (r *Reader) takeFrame() ([]byte, bool) {
	start := r.scanned - 3
	if start < 0 {
		start = 0
	}
	window := r.buf[start:]
	term := []byte("\n\n")
	idx := bytes.Index(window, term)
	if crlf := bytes.Index(window, []byte("\r\n\r\n")); crlf >= 0 && (idx < 0 || crlf < idx) {
		idx = crlf
		term = []byte("\r\n\r\n")
	}
	if idx < 0 {
		r.scanned = len(r.buf)
		return nil, false
	}
	idx += start
	frame := r.buf[:idx]
	r.buf = r.buf[idx+len(term):]
	r.scanned = 0
	return frame, true
}

// parseFrame splits a frame into its event name and concatenated data lines.
// Frames with no data lines report ok=false.
func parseFrame(frame []byte) (Event, bool) {
	var ev Event
	var data []string
	for _, line := range strings.Split(string(frame), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, core.StreamEventPrefix):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, core.StreamEventPrefix))
		case strings.HasPrefix(line, "event:"):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, core.StreamChunkPrefix):
			data = append(data, strings.TrimPrefix(line, core.StreamChunkPrefix))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(line, "data:"))
		}
	}
	if len(data) == 0 {
		return Event{}, false
	}
	ev.Data = strings.Join(data, "\n")
	return ev, true
}
