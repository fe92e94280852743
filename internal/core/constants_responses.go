package core

// Responses API endpoint path
const (
	ResponsesEndpointPath = "/responses"
)

// Responses API input/output item type constants
const (
	ItemTypeMessage            = "message"
	ItemTypeFunctionCall       = "function_call"
	ItemTypeFunctionCallOutput = "function_call_output"
)

// Responses API content part type constants
const (
	PartTypeInputText  = "input_text"
	PartTypeInputImage = "input_image"
	PartTypeOutputText = "output_text"
)

// Responses API stream event type constants
const (
	EventResponseCreated   = "response.created"
	EventOutputTextDelta   = "response.output_text.delta"
	EventOutputTextDone    = "response.output_text.done"
	EventFunctionArgsDelta = "response.function_call_arguments.delta"
	EventResponseCompleted = "response.completed"
)

// Statuses the dispatcher treats as dialect rejections worth retrying
// with the next request variant.
const (
	StatusSchemaMismatch      = 400
	StatusUnprocessableEntity = 422
)
