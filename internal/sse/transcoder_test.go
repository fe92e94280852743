package sse

import (
	"io"
	"strings"
	"testing"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/util"
)

// closeCountingBody tracks how many times the upstream read handle is released.
type closeCountingBody struct {
	io.Reader
	closes int
}

func (b *closeCountingBody) Close() error {
	b.closes++
	return nil
}

func runTranscoder(t *testing.T, upstream string) (payloads []string, body *closeCountingBody) {
	t.Helper()
	body = &closeCountingBody{Reader: strings.NewReader(upstream)}
	tc := NewTranscoder("chatcmpl-test", "gpt-test", 1700000000, &core.NopLogger{})
	err := tc.Run(body, func(data string) error {
		payloads = append(payloads, data)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return payloads, body
}

func parseChunk(t *testing.T, payload string) core.StreamResponse {
	t.Helper()
	var chunk core.StreamResponse
	if err := util.UnmarshalJSON([]byte(payload), &chunk); err != nil {
		t.Fatalf("chunk is not valid JSON: %v (%q)", err, payload)
	}
	return chunk
}

func countDone(payloads []string) int {
	n := 0
	for _, p := range payloads {
		if p == core.StreamChunkDoneMessage {
			n++
		}
	}
	return n
}

func frame(event, data string) string {
	if event == "" {
		return "data: " + data + "\n\n"
	}
	return "event: " + event + "\ndata: " + data + "\n\n"
}

func TestTranscoder_TextDeltas(t *testing.T) {
	upstream := frame("response.output_text.delta", `{"type":"response.output_text.delta","delta":"Hel"}`) +
		frame("response.output_text.delta", `{"type":"response.output_text.delta","delta":"lo"}`) +
		frame("response.output_text.done", `{"type":"response.output_text.done","text":"Hello"}`) +
		frame("response.completed", `{"type":"response.completed","response":{"usage":{"input_tokens":2,"output_tokens":1,"total_tokens":3}}}`)

	payloads, body := runTranscoder(t, upstream)
	if body.closes != 1 {
		t.Errorf("body closed %d times, want exactly once", body.closes)
	}
	// two deltas + finish + [DONE]; the text-done event emits nothing
	if len(payloads) != 4 {
		t.Fatalf("expected 4 payloads, got %d: %v", len(payloads), payloads)
	}

	first := parseChunk(t, payloads[0])
	if first.ID != "chatcmpl-test" || first.Object != core.ChatCompletionChunkObjectType || first.Model != "gpt-test" {
		t.Errorf("chunk envelope wrong: %+v", first)
	}
	if first.Choices[0].Delta.Content == nil || *first.Choices[0].Delta.Content != "Hel" {
		t.Errorf("first delta = %v", first.Choices[0].Delta.Content)
	}
	if first.Choices[0].FinishReason != nil {
		t.Error("delta chunk should have null finish_reason")
	}

	finish := parseChunk(t, payloads[2])
	if finish.Choices[0].FinishReason == nil || *finish.Choices[0].FinishReason != core.FinishReasonStop {
		t.Errorf("finish_reason = %v", finish.Choices[0].FinishReason)
	}
	if finish.Usage == nil || finish.Usage.PromptTokens != 2 || finish.Usage.CompletionTokens != 1 {
		t.Errorf("usage not attached: %+v", finish.Usage)
	}

	if countDone(payloads) != 1 || payloads[len(payloads)-1] != core.StreamChunkDoneMessage {
		t.Error("stream must end with exactly one done sentinel")
	}
}

func TestTranscoder_ToolCallIndexStability(t *testing.T) {
	upstream := frame("", `{"type":"response.function_call_arguments.delta","call_id":"call_a","name":"get_weather","delta":"{\"ci"}`) +
		frame("", `{"type":"response.function_call_arguments.delta","call_id":"call_b","name":"get_time","delta":"{}"}`) +
		frame("", `{"type":"response.function_call_arguments.delta","call_id":"call_a","delta":"ty\":\"Paris\"}"}`) +
		frame("", `{"type":"response.completed","response":{}}`)

	payloads, _ := runTranscoder(t, upstream)
	if len(payloads) != 5 {
		t.Fatalf("expected 5 payloads, got %d", len(payloads))
	}

	type toolEntry struct {
		Index    int            `json:"index"`
		ID       string         `json:"id"`
		Type     string         `json:"type"`
		Function map[string]any `json:"function"`
	}
	entryAt := func(payload string) toolEntry {
		var chunk struct {
			Choices []struct {
				Delta struct {
					ToolCalls []toolEntry `json:"tool_calls"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := util.UnmarshalJSON([]byte(payload), &chunk); err != nil {
			t.Fatalf("parse chunk: %v", err)
		}
		if len(chunk.Choices) != 1 || len(chunk.Choices[0].Delta.ToolCalls) != 1 {
			t.Fatalf("expected single tool call entry in %q", payload)
		}
		return chunk.Choices[0].Delta.ToolCalls[0]
	}

	first := entryAt(payloads[0])
	if first.Index != 0 || first.ID != "call_a" || first.Type != core.ToolTypeFunction {
		t.Errorf("first sight of call_a wrong: %+v", first)
	}
	if first.Function["name"] != "get_weather" {
		t.Errorf("first sight should carry name: %v", first.Function)
	}

	second := entryAt(payloads[1])
	if second.Index != 1 || second.ID != "call_b" {
		t.Errorf("call_b should get the next index: %+v", second)
	}

	repeat := entryAt(payloads[2])
	if repeat.Index != 0 {
		t.Errorf("call_a must reuse index 0, got %d", repeat.Index)
	}
	if repeat.ID != "" || repeat.Type != "" {
		t.Errorf("repeat sight must not carry id/type: %+v", repeat)
	}
	if _, hasName := repeat.Function["name"]; hasName {
		t.Errorf("repeat sight must not carry name: %v", repeat.Function)
	}
	if repeat.Function["arguments"] != `ty":"Paris"}` {
		t.Errorf("arguments fragment = %v", repeat.Function["arguments"])
	}

	finish := parseChunk(t, payloads[3])
	if finish.Choices[0].FinishReason == nil || *finish.Choices[0].FinishReason != core.FinishReasonToolCalls {
		t.Errorf("finish_reason = %v", finish.Choices[0].FinishReason)
	}
}

func TestTranscoder_SynthesizesFinishOnTruncatedStream(t *testing.T) {
	upstream := frame("", `{"type":"response.output_text.delta","delta":"partial"}`)

	payloads, body := runTranscoder(t, upstream)
	if body.closes != 1 {
		t.Errorf("body closed %d times", body.closes)
	}
	if countDone(payloads) != 1 {
		t.Fatalf("expected exactly one done sentinel, got %d", countDone(payloads))
	}

	finish := parseChunk(t, payloads[len(payloads)-2])
	if finish.Choices[0].FinishReason == nil || *finish.Choices[0].FinishReason != core.FinishReasonStop {
		t.Errorf("synthesized finish_reason = %v", finish.Choices[0].FinishReason)
	}
}

func TestTranscoder_IgnoresNoiseAndTrailingFrames(t *testing.T) {
	upstream := frame("response.created", `{"type":"response.created","response":{"id":"resp_1"}}`) +
		"data: not json at all\n\n" +
		frame("", `[DONE]`) +
		frame("", `{"type":"response.output_text.delta","delta":"ok"}`) +
		frame("", `{"type":"response.completed","response":{}}`) +
		frame("", `{"type":"response.output_text.delta","delta":"trailing garbage"}`)

	payloads, _ := runTranscoder(t, upstream)
	if countDone(payloads) != 1 {
		t.Fatalf("expected exactly one done sentinel, got %d", countDone(payloads))
	}
	// one delta + finish + sentinel; everything after completion is drained
	if len(payloads) != 3 {
		t.Fatalf("expected 3 payloads, got %d: %v", len(payloads), payloads)
	}
	delta := parseChunk(t, payloads[0])
	if delta.Choices[0].Delta.Content == nil || *delta.Choices[0].Delta.Content != "ok" {
		t.Errorf("delta = %v", delta.Choices[0].Delta.Content)
	}
}
