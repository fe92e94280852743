package convert

import (
	"time"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/util"
)

// ExtractText pulls the assistant text out of an upstream response object.
// The aggregated output_text shortcut wins when present; otherwise the output
// items are scanned for message parts. An unrecognizable payload falls back to
// its own serialization so the client never receives an empty success.
func ExtractText(obj map[string]any) string {
	if text := util.StringField(obj, "output_text"); text != "" {
		return text
	}

	output, hasOutput := obj["output"].([]any)
	var collected string
	for _, raw := range output {
		item, ok := raw.(map[string]any)
		if !ok || util.StringField(item, "type") != core.ItemTypeMessage {
			continue
		}
		parts, _ := item["content"].([]any)
		for _, rawPart := range parts {
			part, ok := rawPart.(map[string]any)
			if !ok || util.StringField(part, "type") != core.PartTypeOutputText {
				continue
			}
			collected += util.StringField(part, "text")
		}
	}
	if collected != "" {
		return collected
	}
	if hasOutput {
		return util.CoerceString(output, "")
	}
	return util.CoerceString(obj, "")
}

// ExtractToolCalls collects the function_call items of an upstream response.
// Items without a resolvable call id are skipped; duplicate ids keep the
// first occurrence.
func ExtractToolCalls(obj map[string]any) []core.ToolCall {
	output, _ := obj["output"].([]any)
	var calls []core.ToolCall
	seen := make(map[string]bool)
	for _, raw := range output {
		item, ok := raw.(map[string]any)
		if !ok || util.StringField(item, "type") != core.ItemTypeFunctionCall {
			continue
		}
		callID := util.StringField(item, "call_id")
		if callID == "" {
			callID = util.StringField(item, "id")
		}
		if callID == "" || seen[callID] {
			continue
		}
		seen[callID] = true
		calls = append(calls, core.ToolCall{
			ID:   callID,
			Type: core.ToolTypeFunction,
			Function: core.FunctionCall{
				Name:      util.StringField(item, "name"),
				Arguments: util.CoerceString(item["arguments"], "{}"),
			},
		})
	}
	return calls
}

// ResponseAssembler builds client-facing chat completion responses from
// upstream response objects.
type ResponseAssembler struct {
	ids core.IDGenerator
}

// NewResponseAssembler creates a response assembler.
func NewResponseAssembler(ids core.IDGenerator) *ResponseAssembler {
	return &ResponseAssembler{ids: ids}
}

// BuildChatResponse assembles the final non-streaming chat completion.
func (a *ResponseAssembler) BuildChatResponse(obj map[string]any, req *core.ChatCompletionRequest) *core.ChatCompletionResponse {
	id := util.StringField(obj, "id")
	if id == "" {
		id = a.ids.NewID(core.ResponseIDPrefix)
	}
	created := int64(util.IntField(obj, "created_at", 0))
	if created == 0 {
		created = time.Now().Unix()
	}
	model := req.Model
	if model == "" {
		model = util.StringField(obj, "model")
	}
	if model == "" {
		model = core.ModelUnknown
	}

	message := core.ChatMessage{Role: core.RoleAssistant}
	finishReason := core.FinishReasonStop
	if calls := ExtractToolCalls(obj); len(calls) > 0 {
		message.ToolCalls = calls
		finishReason = core.FinishReasonToolCalls
	} else {
		message.Content = ExtractText(obj)
	}

	return &core.ChatCompletionResponse{
		ID:      id,
		Object:  core.ChatCompletionObjectType,
		Created: created,
		Model:   model,
		Choices: []core.ChatCompletionChoice{{
			Index:        0,
			Message:      message,
			FinishReason: finishReason,
		}},
		Usage: MapUsage(obj["usage"]),
	}
}

// MapUsage converts upstream usage counters into chat-style names. Chat-style
// field names already present are honored as fallbacks.
func MapUsage(raw any) core.OpenAIUsage {
	usage, _ := raw.(map[string]any)
	prompt := util.IntField(usage, "input_tokens", 0)
	if prompt == 0 {
		prompt = util.IntField(usage, "prompt_tokens", 0)
	}
	completion := util.IntField(usage, "output_tokens", 0)
	if completion == 0 {
		completion = util.IntField(usage, "completion_tokens", 0)
	}
	return core.OpenAIUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      util.IntField(usage, "total_tokens", 0),
	}
}
