package core

// OpenAI object type constants
const (
	ModelObjectType               = "model"
	ModelOwner                    = "chat-to-responses-proxy"
	ChatCompletionObjectType      = "chat.completion"
	ChatCompletionChunkObjectType = "chat.completion.chunk"
	ModelListObjectType           = "list"
)

// ID prefix constants
const (
	ResponseIDPrefix = "chatcmpl-"
	ToolCallIDPrefix = "call_"
)

// OpenAI tool type constants
const (
	ToolTypeFunction = "function"
)

// OpenAI finish reason constants
const (
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool_calls"
)

// Response format type constants
const (
	ResponseFormatJSONSchema = "json_schema"
)

// Fallback model name when neither side reports one
const (
	ModelUnknown = "unknown"
)
