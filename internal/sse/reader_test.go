package sse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
)

// chunkedReader yields its parts one Read at a time to simulate arbitrary
// network read boundaries.
type chunkedReader struct {
	parts []string
	pos   int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.parts) {
		return 0, io.EOF
	}
	n := copy(p, r.parts[r.pos])
	r.pos++
	return n, nil
}

func readAllEvents(t *testing.T, r *Reader) []Event {
	t.Helper()
	var events []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, ev)
	}
}

func TestReader_BasicFrames(t *testing.T) {
	input := "event: response.output_text.delta\ndata: {\"delta\":\"a\"}\n\n" +
		"data: {\"delta\":\"b\"}\n\n"

	events := readAllEvents(t, NewReader(strings.NewReader(input)))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Name != "response.output_text.delta" {
		t.Errorf("event name = %q", events[0].Name)
	}
	if events[0].Data != `{"delta":"a"}` {
		t.Errorf("event data = %q", events[0].Data)
	}
	if events[1].Name != "" {
		t.Errorf("second event should have no name, got %q", events[1].Name)
	}
}

func TestReader_FrameSplitAcrossReads(t *testing.T) {
	reader := NewReader(&chunkedReader{parts: []string{
		"data: {\"del",
		"ta\":\"hel",
		"lo\"}\n",
		"\ndata: {\"delta\":\"!\"}\n\n",
	}})

	events := readAllEvents(t, reader)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Data != `{"delta":"hello"}` {
		t.Errorf("reassembled data = %q", events[0].Data)
	}
}

func TestReader_CRLFFrames(t *testing.T) {
	input := "event: response.completed\r\ndata: {\"type\":\"response.completed\"}\r\n\r\n"
	events := readAllEvents(t, NewReader(strings.NewReader(input)))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != "response.completed" {
		t.Errorf("event name = %q", events[0].Name)
	}
	if events[0].Data != `{"type":"response.completed"}` {
		t.Errorf("event data = %q", events[0].Data)
	}
}

func TestReader_MultiDataLineConcat(t *testing.T) {
	input := "data: first\ndata: second\n\n"
	events := readAllEvents(t, NewReader(strings.NewReader(input)))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Data != "first\nsecond" {
		t.Errorf("concatenated data = %q", events[0].Data)
	}
}

func TestReader_DoneSentinel(t *testing.T) {
	input := "data: [DONE]\n\n"
	events := readAllEvents(t, NewReader(strings.NewReader(input)))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].Done() {
		t.Error("sentinel frame not recognized")
	}
}

func TestReader_SkipsDataLessFrames(t *testing.T) {
	input := ": keep-alive comment\n\nevent: ping\n\ndata: real\n\n"
	events := readAllEvents(t, NewReader(strings.NewReader(input)))
	if len(events) != 1 {
		t.Fatalf("expected only the data-bearing frame, got %d", len(events))
	}
	if events[0].Data != "real" {
		t.Errorf("data = %q", events[0].Data)
	}
}

// endlessReader serves bytes forever without ever producing a frame
// terminator, tracking how much the reader consumed.
type endlessReader struct {
	consumed int
}

func (r *endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'a'
	}
	r.consumed += len(p)
	return len(p), nil
}

func TestReader_OversizedFrameAborts(t *testing.T) {
	src := &endlessReader{}
	_, err := NewReader(src).Next()
	if !errors.Is(err, ErrFrameTooLong) {
		t.Fatalf("expected ErrFrameTooLong, got %v", err)
	}
	if src.consumed > core.MaxScannerBufferSize+8192 {
		t.Errorf("consumed %d bytes past the buffer limit", src.consumed)
	}
}

func TestReader_LargeFrameWithinLimit(t *testing.T) {
	payload := strings.Repeat("a", 256*1024)
	input := "data: " + payload + "\n\n" + "data: after\n\n"

	events := readAllEvents(t, NewReader(strings.NewReader(input)))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Data != payload {
		t.Errorf("large frame data lost: got %d bytes", len(events[0].Data))
	}
	if events[1].Data != "after" {
		t.Errorf("frame after large one = %q", events[1].Data)
	}
}

func TestReader_TrailingFrameWithoutTerminator(t *testing.T) {
	input := "data: {\"delta\":\"x\"}\n\ndata: {\"delta\":\"y\"}"
	events := readAllEvents(t, NewReader(strings.NewReader(input)))
	if len(events) != 2 {
		t.Fatalf("expected trailing frame to be parsed, got %d events", len(events))
	}
	if events[1].Data != `{"delta":"y"}` {
		t.Errorf("trailing data = %q", events[1].Data)
	}
}
