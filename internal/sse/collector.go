package sse

import (
	"fmt"
	"io"
	"strings"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/util"
)

// collectedCall accumulates one tool call's fragments across a buffered
// stream. The first fragment for a call id establishes the name.
type collectedCall struct {
	name      string
	arguments strings.Builder
}

// Collect turns an upstream body into a single response object regardless of
// whether the upstream answered with plain JSON or an event stream. A JSON
// content type is parsed directly; anything else is read to completion, tried
// as JSON first, then replayed as buffered SSE lines and reassembled into an
// object of the upstream's native shape.
func Collect(body io.Reader, contentType string, maxBytes int64) (map[string]any, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	obj := map[string]any{}
	if err := util.UnmarshalJSON(data, &obj); err == nil {
		return obj, nil
	}
	if strings.Contains(contentType, core.ContentTypeJSON) {
		return nil, fmt.Errorf("upstream declared JSON but body is not parseable")
	}
	return collectEvents(string(data))
}

// collectEvents replays a buffered SSE payload line by line and synthesizes
// the response object the stream described.
func collectEvents(buffered string) (map[string]any, error) {
	var (
		deltaText string
		doneText  string
		sawDelta  bool

		calls     = map[string]*collectedCall{}
		callOrder []string

		responseID string
		model      string
		createdAt  int
		usage      any

		pendingEvent string
	)

	for _, line := range strings.Split(buffered, "\n") {
		line = strings.TrimRight(line, "\r")
		if name, ok := cutPrefix(line, core.StreamEventPrefix, "event:"); ok {
			pendingEvent = strings.TrimSpace(name)
			continue
		}
		raw, ok := cutPrefix(line, core.StreamChunkPrefix, "data:")
		if !ok {
			continue
		}
		if strings.TrimSpace(raw) == core.StreamChunkDoneMessage {
			continue
		}
		payload := map[string]any{}
		if err := util.UnmarshalJSON([]byte(raw), &payload); err != nil {
			continue
		}
		// The event: line names the event when present, matching the
		// streaming path; the payload's type tag is the fallback.
		eventType := pendingEvent
		if eventType == "" {
			eventType = util.StringField(payload, "type")
		}
		pendingEvent = ""

		switch eventType {
		case core.EventResponseCreated, core.EventResponseCompleted:
			response, _ := payload["response"].(map[string]any)
			if id := util.StringField(response, "id"); id != "" {
				responseID = id
			}
			if m := util.StringField(response, "model"); m != "" {
				model = m
			}
			if created := util.IntField(response, "created_at", 0); created != 0 {
				createdAt = created
			}
			if u, ok := response["usage"]; ok && u != nil {
				usage = u
			}
		case core.EventOutputTextDelta:
			deltaText += util.StringField(payload, "delta")
			sawDelta = true
		case core.EventOutputTextDone:
			doneText = util.StringField(payload, "text")
		case core.EventFunctionArgsDelta:
			callID := util.StringField(payload, "call_id")
			if callID == "" {
				callID = util.StringField(payload, "item_id")
			}
			if callID == "" {
				continue
			}
			call, seen := calls[callID]
			if !seen {
				call = &collectedCall{name: util.StringField(payload, "name")}
				calls[callID] = call
				callOrder = append(callOrder, callID)
			}
			call.arguments.WriteString(util.StringField(payload, "delta"))
		}
	}

	// Delta fragments win over the done event's full text so the same
	// content is never counted twice.
	text := doneText
	if sawDelta {
		text = deltaText
	}

	output := []any{}
	if text != "" {
		output = append(output, map[string]any{
			"type": core.ItemTypeMessage,
			"content": []any{
				map[string]any{"type": core.PartTypeOutputText, "text": text},
			},
		})
	}
	for _, callID := range callOrder {
		call := calls[callID]
		output = append(output, map[string]any{
			"type":      core.ItemTypeFunctionCall,
			"call_id":   callID,
			"name":      call.name,
			"arguments": call.arguments.String(),
		})
	}

	obj := map[string]any{"output": output}
	if responseID != "" {
		obj["id"] = responseID
	}
	if model != "" {
		obj["model"] = model
	}
	if createdAt != 0 {
		obj["created_at"] = createdAt
	}
	if usage != nil {
		obj["usage"] = usage
	}
	return obj, nil
}

func cutPrefix(line string, prefixes ...string) (string, bool) {
	for _, prefix := range prefixes {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix), true
		}
	}
	return "", false
}
