package core

// InputMessage is a role-tagged input item in a Responses API request.
// Content is either a plain string or an ordered part list.
type InputMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// FunctionCallItem replays an assistant tool invocation to the upstream.
type FunctionCallItem struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FunctionCallOutputItem carries a tool result back to the upstream.
type FunctionCallOutputItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// TextPart is an input_text content part.
type TextPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ImagePart is an input_image content part.
type ImagePart struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

// ResponsesRequest is the canonical upstream request in the Responses dialect.
// Input items are kept as any so typed items and pass-through maps coexist;
// the variant generator reshapes the whole request as a map before sending.
type ResponsesRequest struct {
	Model           string         `json:"model"`
	Input           []any          `json:"input"`
	Instructions    string         `json:"instructions,omitempty"`
	Tools           []any          `json:"tools,omitempty"`
	ToolChoice      any            `json:"tool_choice,omitempty"`
	Stream          bool           `json:"stream"`
	MaxOutputTokens *int           `json:"max_output_tokens,omitempty"`
	Temperature     *float64       `json:"temperature,omitempty"`
	TopP            *float64       `json:"top_p,omitempty"`
	Stop            any            `json:"stop,omitempty"`
	Reasoning       map[string]any `json:"reasoning,omitempty"`
	Text            map[string]any `json:"text,omitempty"`
}
