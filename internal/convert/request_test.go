package convert

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
)

// stubIDs is a deterministic id generator for tests.
type stubIDs struct{ n int }

func (s *stubIDs) NewID(prefix string) string {
	s.n++
	return fmt.Sprintf("%s%04d", prefix, s.n)
}

func newTestBuilder() *RequestBuilder {
	return NewRequestBuilder(&stubIDs{}, &core.NopLogger{})
}

func TestBuild_InstructionsAccumulation(t *testing.T) {
	req := &core.ChatCompletionRequest{
		Model: "gpt-test",
		Messages: []core.ChatMessage{
			{Role: core.RoleSystem, Content: "Be concise."},
			{Role: core.RoleDeveloper, Content: "Answer in English."},
			{Role: core.RoleSystem, Content: "   "},
			{Role: core.RoleUser, Content: "hello"},
		},
	}

	out := newTestBuilder().Build(req, "gpt-test")
	if out.Instructions != "Be concise.\nAnswer in English." {
		t.Errorf("unexpected instructions: %q", out.Instructions)
	}
	if len(out.Input) != 1 {
		t.Fatalf("expected 1 input item, got %d", len(out.Input))
	}
	msg, ok := out.Input[0].(core.InputMessage)
	if !ok || msg.Role != core.RoleUser || msg.Content != "hello" {
		t.Errorf("unexpected user item: %+v", out.Input[0])
	}
}

func TestBuild_ToolMessageCorrelationPriority(t *testing.T) {
	tests := []struct {
		name     string
		message  core.ChatMessage
		expected string
	}{
		{
			name:     "tool_call_id wins",
			message:  core.ChatMessage{Role: core.RoleTool, Content: "ok", ToolCallID: "call_a", CallID: "call_b", ID: "call_c"},
			expected: "call_a",
		},
		{
			name:     "call_id second",
			message:  core.ChatMessage{Role: core.RoleTool, Content: "ok", CallID: "call_b", ID: "call_c"},
			expected: "call_b",
		},
		{
			name:     "id last",
			message:  core.ChatMessage{Role: core.RoleTool, Content: "ok", ID: "call_c"},
			expected: "call_c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newTestBuilder().Build(&core.ChatCompletionRequest{
				Messages: []core.ChatMessage{tt.message},
			}, "m")
			if len(out.Input) != 1 {
				t.Fatalf("expected 1 item, got %d", len(out.Input))
			}
			item, ok := out.Input[0].(core.FunctionCallOutputItem)
			if !ok {
				t.Fatalf("expected function_call_output, got %T", out.Input[0])
			}
			if item.CallID != tt.expected {
				t.Errorf("call id = %q, want %q", item.CallID, tt.expected)
			}
			if item.Output != "ok" {
				t.Errorf("output = %q, want %q", item.Output, "ok")
			}
		})
	}
}

func TestBuild_ToolMessageWithoutIDIsDropped(t *testing.T) {
	out := newTestBuilder().Build(&core.ChatCompletionRequest{
		Messages: []core.ChatMessage{
			{Role: core.RoleTool, Content: "orphaned result"},
		},
	}, "m")
	if len(out.Input) != 0 {
		t.Errorf("expected no items for unresolvable tool message, got %d", len(out.Input))
	}
}

func TestBuild_AssistantToolCalls(t *testing.T) {
	out := newTestBuilder().Build(&core.ChatCompletionRequest{
		Messages: []core.ChatMessage{
			{
				Role:    core.RoleAssistant,
				Content: "Let me check.",
				ToolCalls: []core.ToolCall{
					{ID: "call_1", Type: core.ToolTypeFunction, Function: core.FunctionCall{Name: "get_weather", Arguments: `{"city":"Paris"}`}},
					{Type: core.ToolTypeFunction, Function: core.FunctionCall{Name: "get_time", Arguments: map[string]any{"zone": "UTC"}}},
					{ID: "call_3", Type: core.ToolTypeFunction, Function: core.FunctionCall{Name: ""}},
				},
			},
		},
	}, "m")

	if len(out.Input) != 3 {
		t.Fatalf("expected 3 items (text + 2 calls), got %d", len(out.Input))
	}
	text, ok := out.Input[0].(core.InputMessage)
	if !ok || text.Role != core.RoleAssistant || text.Content != "Let me check." {
		t.Errorf("unexpected assistant text item: %+v", out.Input[0])
	}

	first, ok := out.Input[1].(core.FunctionCallItem)
	if !ok || first.CallID != "call_1" || first.Name != "get_weather" || first.Arguments != `{"city":"Paris"}` {
		t.Errorf("unexpected first call: %+v", out.Input[1])
	}
	second, ok := out.Input[2].(core.FunctionCallItem)
	if !ok || second.Name != "get_time" {
		t.Fatalf("unexpected second call: %+v", out.Input[2])
	}
	if second.CallID == "" {
		t.Error("expected generated call id for call without one")
	}
	if second.Arguments != `{"zone":"UTC"}` {
		t.Errorf("structured arguments not serialized: %q", second.Arguments)
	}
}

func TestBuild_LegacyFunctionCall(t *testing.T) {
	out := newTestBuilder().Build(&core.ChatCompletionRequest{
		Messages: []core.ChatMessage{
			{
				Role:         core.RoleAssistant,
				FunctionCall: &core.FunctionCall{Name: "lookup"},
			},
		},
	}, "m")

	if len(out.Input) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out.Input))
	}
	call, ok := out.Input[0].(core.FunctionCallItem)
	if !ok || call.Name != "lookup" {
		t.Fatalf("unexpected item: %+v", out.Input[0])
	}
	if call.CallID == "" {
		t.Error("expected generated call id for legacy function_call")
	}
	if call.Arguments != "{}" {
		t.Errorf("absent arguments should default to {}, got %q", call.Arguments)
	}
}

func TestBuild_FieldMapping(t *testing.T) {
	maxTokens := 100
	maxCompletion := 200
	temperature := 0.5
	topP := 0.9

	out := newTestBuilder().Build(&core.ChatCompletionRequest{
		Model:               "gpt-test",
		Messages:            []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
		MaxTokens:           &maxTokens,
		MaxCompletionTokens: &maxCompletion,
		Temperature:         &temperature,
		TopP:                &topP,
		Stop:                []any{"END"},
		ReasoningEffort:     " high ",
		Stream:              true,
	}, "gpt-upstream")

	if out.Model != "gpt-upstream" {
		t.Errorf("model = %q", out.Model)
	}
	if out.MaxOutputTokens == nil || *out.MaxOutputTokens != 200 {
		t.Errorf("max_completion_tokens should win, got %v", out.MaxOutputTokens)
	}
	if out.Temperature == nil || *out.Temperature != 0.5 {
		t.Errorf("temperature not copied: %v", out.Temperature)
	}
	if out.TopP == nil || *out.TopP != 0.9 {
		t.Errorf("top_p not copied: %v", out.TopP)
	}
	if !reflect.DeepEqual(out.Stop, []any{"END"}) {
		t.Errorf("stop not copied: %v", out.Stop)
	}
	if !out.Stream {
		t.Error("stream intent lost")
	}
	if effort := out.Reasoning["effort"]; effort != "high" {
		t.Errorf("reasoning effort = %v, want trimmed %q", effort, "high")
	}
}

func TestBuild_NestedReasoningEffort(t *testing.T) {
	out := newTestBuilder().Build(&core.ChatCompletionRequest{
		Messages:  []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
		Reasoning: &core.ReasoningConfig{Effort: "low"},
	}, "m")
	if effort := out.Reasoning["effort"]; effort != "low" {
		t.Errorf("nested reasoning effort not mapped: %v", effort)
	}
}

func TestBuild_ResponseFormatJSONSchema(t *testing.T) {
	out := newTestBuilder().Build(&core.ChatCompletionRequest{
		Messages: []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
		ResponseFormat: map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "answer",
				"schema": map[string]any{"type": "object"},
			},
		},
	}, "m")

	format, ok := out.Text["format"].(map[string]any)
	if !ok {
		t.Fatalf("expected text.format, got %v", out.Text)
	}
	if format["type"] != "json_schema" || format["name"] != "answer" {
		t.Errorf("unexpected format: %v", format)
	}
	if _, ok := format["schema"]; !ok {
		t.Error("schema fields not lifted into format")
	}
}

func TestBuild_ResponseFormatOtherTypesIgnored(t *testing.T) {
	out := newTestBuilder().Build(&core.ChatCompletionRequest{
		Messages:       []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
		ResponseFormat: map[string]any{"type": "text"},
	}, "m")
	if out.Text != nil {
		t.Errorf("non-json_schema format should be dropped, got %v", out.Text)
	}
}

func TestConvertTools(t *testing.T) {
	tools := []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        "get_weather",
				"description": "Weather lookup",
				"parameters":  map[string]any{"type": "object"},
			},
		},
		{
			"type":       "function",
			"name":       "already_flat",
			"parameters": map[string]any{"type": "object"},
		},
		{"type": "web_search"},
		{"type": "function", "function": map[string]any{"description": "nameless"}},
	}

	out := ConvertTools(tools)
	if len(out) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(out))
	}

	flat, ok := out[0].(map[string]any)
	if !ok || flat["name"] != "get_weather" || flat["description"] != "Weather lookup" {
		t.Errorf("nested tool not flattened: %v", out[0])
	}
	if _, hasWrapper := flat["function"]; hasWrapper {
		t.Error("flattened tool still carries nested function wrapper")
	}

	second, _ := out[1].(map[string]any)
	if second["name"] != "already_flat" {
		t.Errorf("flat tool name lost: %v", out[1])
	}

	if !reflect.DeepEqual(out[2], tools[2]) {
		t.Errorf("non-function tool was modified: %v", out[2])
	}
	if !reflect.DeepEqual(out[3], tools[3]) {
		t.Errorf("nameless tool should pass through unmodified: %v", out[3])
	}
}

func TestConvertToolChoice(t *testing.T) {
	if got := ConvertToolChoice("auto"); got != "auto" {
		t.Errorf("string choice should pass through, got %v", got)
	}

	nested := map[string]any{"type": "function", "function": map[string]any{"name": "get_weather"}}
	got, ok := ConvertToolChoice(nested).(map[string]any)
	if !ok || got["name"] != "get_weather" || got["type"] != "function" {
		t.Errorf("nested choice not flattened: %v", got)
	}

	other := map[string]any{"type": "allowed_tools", "tools": []any{}}
	if !reflect.DeepEqual(ConvertToolChoice(other), other) {
		t.Errorf("unknown object choice should pass through")
	}
}
