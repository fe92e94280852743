package convert

import (
	"strings"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/util"
)

// RequestBuilder converts OpenAI chat completion requests into canonical
// Responses API requests. IDs for tool calls that arrive without one come
// from the injected generator.
type RequestBuilder struct {
	ids    core.IDGenerator
	logger core.Logger
}

// NewRequestBuilder creates a request builder.
func NewRequestBuilder(ids core.IDGenerator, logger core.Logger) *RequestBuilder {
	return &RequestBuilder{ids: ids, logger: logger}
}

// Build produces the canonical upstream request for a chat request. The model
// argument is the upstream model name, already mapped by the caller.
func (b *RequestBuilder) Build(req *core.ChatCompletionRequest, model string) *core.ResponsesRequest {
	out := &core.ResponsesRequest{
		Model:  model,
		Input:  []any{},
		Stream: req.Stream,
	}

	var instructions []string
	for i := range req.Messages {
		msg := &req.Messages[i]
		switch msg.Role {
		case core.RoleSystem, core.RoleDeveloper:
			if text := strings.TrimSpace(ExtractTextContent(msg.Content)); text != "" {
				instructions = append(instructions, text)
			}
		case core.RoleTool:
			b.appendToolOutput(out, msg)
		case core.RoleAssistant:
			b.appendAssistant(out, msg)
		default:
			b.appendUser(out, msg)
		}
	}
	if len(instructions) > 0 {
		out.Instructions = strings.TrimSpace(strings.Join(instructions, "\n"))
	}

	out.MaxOutputTokens = req.MaxTokens
	if req.MaxCompletionTokens != nil {
		out.MaxOutputTokens = req.MaxCompletionTokens
	}
	out.Temperature = req.Temperature
	out.TopP = req.TopP
	out.Stop = req.Stop

	if effort := strings.TrimSpace(req.EffortHint()); effort != "" {
		out.Reasoning = map[string]any{"effort": effort}
	}
	if format := convertResponseFormat(req.ResponseFormat); format != nil {
		out.Text = map[string]any{"format": format}
	}

	out.Tools = ConvertTools(req.Tools)
	out.ToolChoice = ConvertToolChoice(req.ToolChoice)

	return out
}

// appendToolOutput emits a function_call_output item for a tool message.
// The correlation id is resolved from tool_call_id, call_id or id in that
// order; a message without any of them is dropped.
func (b *RequestBuilder) appendToolOutput(out *core.ResponsesRequest, msg *core.ChatMessage) {
	callID := msg.ToolCallID
	if callID == "" {
		callID = msg.CallID
	}
	if callID == "" {
		callID = msg.ID
	}
	if callID == "" {
		b.logger.Debug("Dropping tool message without correlation id")
		return
	}
	out.Input = append(out.Input, core.FunctionCallOutputItem{
		Type:   core.ItemTypeFunctionCallOutput,
		CallID: callID,
		Output: ExtractTextContent(msg.Content),
	})
}

func (b *RequestBuilder) appendAssistant(out *core.ResponsesRequest, msg *core.ChatMessage) {
	if text := ExtractTextContent(msg.Content); strings.TrimSpace(text) != "" {
		out.Input = append(out.Input, core.InputMessage{Role: core.RoleAssistant, Content: text})
	}

	calls := msg.ToolCalls
	if msg.FunctionCall != nil {
		// Legacy single function_call field predates tool_calls.
		calls = append(calls, core.ToolCall{Type: core.ToolTypeFunction, Function: *msg.FunctionCall})
	}
	for _, call := range calls {
		if call.Function.Name == "" {
			b.logger.Debug("Skipping assistant tool call without function name")
			continue
		}
		callID := call.ID
		if callID == "" {
			callID = b.ids.NewID(core.ToolCallIDPrefix)
		}
		out.Input = append(out.Input, core.FunctionCallItem{
			Type:      core.ItemTypeFunctionCall,
			CallID:    callID,
			Name:      call.Function.Name,
			Arguments: util.CoerceString(call.Function.Arguments, "{}"),
		})
	}
}

func (b *RequestBuilder) appendUser(out *core.ResponsesRequest, msg *core.ChatMessage) {
	content := ToUpstreamParts(msg.Content)
	switch v := content.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return
		}
	case []any:
		if len(v) == 0 {
			return
		}
	}
	out.Input = append(out.Input, core.InputMessage{Role: core.RoleUser, Content: content})
}

// convertResponseFormat maps a json_schema response_format into the upstream
// text.format shape. Any other format type is ignored.
func convertResponseFormat(rf map[string]any) map[string]any {
	if rf == nil || util.StringField(rf, "type") != core.ResponseFormatJSONSchema {
		return nil
	}
	format := map[string]any{}
	if schema, ok := rf[core.ResponseFormatJSONSchema].(map[string]any); ok {
		for k, v := range schema {
			format[k] = v
		}
	}
	format["type"] = core.ResponseFormatJSONSchema
	return format
}

// ConvertTools flattens chat tool definitions into the Responses dialect.
// Function tools lose their nested function wrapper; tools without a
// resolvable name and non-function tool types pass through unmodified.
func ConvertTools(tools []map[string]any) []any {
	if len(tools) == 0 {
		return nil
	}
	out := make([]any, 0, len(tools))
	for _, tool := range tools {
		if util.StringField(tool, "type") != core.ToolTypeFunction {
			out = append(out, tool)
			continue
		}
		fn, _ := tool["function"].(map[string]any)
		name := util.StringField(tool, "name")
		if name == "" {
			name = util.StringField(fn, "name")
		}
		if name == "" {
			out = append(out, tool)
			continue
		}
		flat := map[string]any{
			"type": core.ToolTypeFunction,
			"name": name,
		}
		if desc := pickToolField(tool, fn, "description"); desc != nil {
			flat["description"] = desc
		}
		if params := pickToolField(tool, fn, "parameters"); params != nil {
			flat["parameters"] = params
		}
		out = append(out, flat)
	}
	return out
}

// pickToolField prefers an already-flat field over the nested function shape.
func pickToolField(tool, fn map[string]any, key string) any {
	if v, ok := tool[key]; ok && v != nil {
		return v
	}
	if fn != nil {
		if v, ok := fn[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// ConvertToolChoice flattens a function-typed tool choice; strings and any
// other object shape pass through unmodified.
func ConvertToolChoice(choice any) any {
	obj, ok := choice.(map[string]any)
	if !ok {
		return choice
	}
	if util.StringField(obj, "type") != core.ToolTypeFunction {
		return choice
	}
	name := util.StringField(obj, "name")
	if name == "" {
		if fn, ok := obj["function"].(map[string]any); ok {
			name = util.StringField(fn, "name")
		}
	}
	return map[string]any{"type": core.ToolTypeFunction, "name": name}
}
