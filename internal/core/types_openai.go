package core

// ChatMessage represents a single message in an OpenAI chat completion request.
// Tool-output messages may carry their correlation id under tool_call_id,
// call_id or id depending on the client; all three are accepted.
type ChatMessage struct {
	Role         string        `json:"role"`
	Content      any           `json:"content"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID   string        `json:"tool_call_id,omitempty"`
	CallID       string        `json:"call_id,omitempty"`
	ID           string        `json:"id,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// ToolCall represents a tool invocation within a chat message.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and arguments for a tool call.
// Arguments is any because clients send either a JSON-encoded string or a
// structured object; it is coerced to a string before reaching the upstream.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments,omitempty"`
}

// ReasoningConfig is the nested reasoning hint shape on a chat request.
type ReasoningConfig struct {
	Effort string `json:"effort,omitempty"`
}

// ChatCompletionRequest is the OpenAI-compatible chat completion request payload.
type ChatCompletionRequest struct {
	Model               string           `json:"model"`
	Messages            []ChatMessage    `json:"messages"`
	Stream              bool             `json:"stream"`
	Temperature         *float64         `json:"temperature,omitempty"`
	MaxTokens           *int             `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int             `json:"max_completion_tokens,omitempty"`
	TopP                *float64         `json:"top_p,omitempty"`
	Tools               []map[string]any `json:"tools,omitempty"`
	ToolChoice          any              `json:"tool_choice,omitempty"`
	Stop                any              `json:"stop,omitempty"`
	ReasoningEffort     string           `json:"reasoning_effort,omitempty"`
	Reasoning           *ReasoningConfig `json:"reasoning,omitempty"`
	ResponseFormat      map[string]any   `json:"response_format,omitempty"`
}

// EffortHint returns the reasoning effort hint, checking the flat field first
// and the nested reasoning object second.
func (r *ChatCompletionRequest) EffortHint() string {
	if r.ReasoningEffort != "" {
		return r.ReasoningEffort
	}
	if r.Reasoning != nil {
		return r.Reasoning.Effort
	}
	return ""
}

// ChatCompletionChoice represents a single choice in an OpenAI chat completion response.
type ChatCompletionChoice struct {
	Message      ChatMessage `json:"message"`
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
}

// OpenAIUsage represents token usage statistics in OpenAI format.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the OpenAI-compatible non-streaming chat completion response.
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   OpenAIUsage            `json:"usage"`
}

// StreamDelta represents a streaming response delta in OpenAI format.
type StreamDelta struct {
	Role      string  `json:"role,omitempty"`
	Content   *string `json:"content,omitempty"`
	ToolCalls []any   `json:"tool_calls,omitempty"`
}

// StreamChoice represents a single choice in an OpenAI streaming response chunk.
type StreamChoice struct {
	Delta        StreamDelta `json:"delta"`
	Index        int         `json:"index"`
	FinishReason *string     `json:"finish_reason"`
}

// StreamResponse is the OpenAI-compatible streaming response chunk.
type StreamResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *OpenAIUsage   `json:"usage,omitempty"`
}
