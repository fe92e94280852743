package sse

import (
	"io"

	"github.com/cxy13h/chat-to-responses-proxy/internal/convert"
	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/util"
)

// EmitFunc delivers one outbound SSE data payload to the client. The payload
// is either a serialized chunk object or the done sentinel.
type EmitFunc func(data string) error

// Transcoder converts an upstream Responses event stream into client chat
// completion chunks. One instance serves exactly one stream: the call id to
// tool-call index mapping lives for the run and is never shared.
type Transcoder struct {
	chatID  string
	model   string
	created int64
	logger  core.Logger

	callIndex map[string]int
	roleSent  bool
	doneSent  bool
}

// NewTranscoder creates a transcoder for a single stream invocation.
func NewTranscoder(chatID, model string, created int64, logger core.Logger) *Transcoder {
	return &Transcoder{
		chatID:    chatID,
		model:     model,
		created:   created,
		logger:    logger,
		callIndex: make(map[string]int),
	}
}

// Run consumes the upstream body to completion, emitting client chunks as
// events arrive. The body is closed exactly once, on every path, and the done
// sentinel is emitted exactly once per invocation even if the upstream stream
// ends without a completion event.
func (t *Transcoder) Run(body io.ReadCloser, emit EmitFunc) error {
	defer body.Close()

	reader := NewReader(body)
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.logger.Error("Upstream stream read failed: %v", err)
			break
		}
		if ev.Done() {
			continue
		}
		payload := map[string]any{}
		if err := util.UnmarshalJSON([]byte(ev.Data), &payload); err != nil {
			continue
		}
		eventType := ev.Name
		if eventType == "" {
			eventType = util.StringField(payload, "type")
		}
		if err := t.handleEvent(eventType, payload, emit); err != nil {
			return err
		}
		if t.doneSent {
			// Drain trailing bytes without further emission.
			drain(reader)
			break
		}
	}
	if !t.doneSent {
		if err := t.finish(nil, emit); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transcoder) handleEvent(eventType string, payload map[string]any, emit EmitFunc) error {
	switch eventType {
	case core.EventOutputTextDelta:
		fragment := util.StringField(payload, "delta")
		delta := core.StreamDelta{Content: &fragment}
		if !t.roleSent {
			delta.Role = core.RoleAssistant
			t.roleSent = true
		}
		return t.emitChunk(delta, nil, nil, emit)
	case core.EventFunctionArgsDelta:
		return t.emitToolDelta(payload, emit)
	case core.EventResponseCompleted:
		return t.finish(payload, emit)
	default:
		// Creation, text-done and unrecognized events carry nothing the
		// client needs beyond what deltas already delivered.
		return nil
	}
}

// emitToolDelta resolves the call's stable index and emits one tool-call
// fragment. The first fragment for a call id carries id, type and name; later
// fragments carry only the arguments delta.
func (t *Transcoder) emitToolDelta(payload map[string]any, emit EmitFunc) error {
	callID := util.StringField(payload, "call_id")
	if callID == "" {
		callID = util.StringField(payload, "item_id")
	}
	if callID == "" {
		return nil
	}
	index, seen := t.callIndex[callID]
	if !seen {
		index = len(t.callIndex)
		t.callIndex[callID] = index
	}

	entry := map[string]any{
		"index":    index,
		"function": map[string]any{"arguments": util.StringField(payload, "delta")},
	}
	if !seen {
		entry["id"] = callID
		entry["type"] = core.ToolTypeFunction
		entry["function"] = map[string]any{
			"name":      util.StringField(payload, "name"),
			"arguments": util.StringField(payload, "delta"),
		}
	}

	delta := core.StreamDelta{ToolCalls: []any{entry}}
	if !t.roleSent {
		delta.Role = core.RoleAssistant
		t.roleSent = true
	}
	return t.emitChunk(delta, nil, nil, emit)
}

// finish emits the finish chunk and the done sentinel. A nil payload means
// the upstream ended without a completion event and the finish is synthetic.
func (t *Transcoder) finish(payload map[string]any, emit EmitFunc) error {
	finishReason := core.FinishReasonStop
	if len(t.callIndex) > 0 {
		finishReason = core.FinishReasonToolCalls
	}

	var usage *core.OpenAIUsage
	if payload != nil {
		if raw := completionUsage(payload); raw != nil {
			mapped := convert.MapUsage(raw)
			usage = &mapped
		}
	}

	if err := t.emitChunk(core.StreamDelta{}, &finishReason, usage, emit); err != nil {
		return err
	}
	t.doneSent = true
	return emit(core.StreamChunkDoneMessage)
}

func (t *Transcoder) emitChunk(delta core.StreamDelta, finishReason *string, usage *core.OpenAIUsage, emit EmitFunc) error {
	chunk := core.StreamResponse{
		ID:      t.chatID,
		Object:  core.ChatCompletionChunkObjectType,
		Created: t.created,
		Model:   t.model,
		Choices: []core.StreamChoice{{
			Delta:        delta,
			Index:        0,
			FinishReason: finishReason,
		}},
		Usage: usage,
	}
	data, err := util.MarshalJSON(chunk)
	if err != nil {
		return err
	}
	return emit(string(data))
}

// completionUsage finds the usage block of a completion event, which nests it
// under the response object.
func completionUsage(payload map[string]any) any {
	if response, ok := payload["response"].(map[string]any); ok {
		if usage, ok := response["usage"]; ok {
			return usage
		}
	}
	if usage, ok := payload["usage"]; ok {
		return usage
	}
	return nil
}

func drain(reader *Reader) {
	for {
		if _, err := reader.Next(); err != nil {
			return
		}
	}
}
