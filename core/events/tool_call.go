package events

const (
	// KindToolCallStarted identifies the start of servicing an agent tool
	// call.
	KindToolCallStarted Kind = "tool_call.started"
	// KindToolCallCompleted identifies a serviced tool call whose result was
	// returned to the agent.
	KindToolCallCompleted Kind = "tool_call.completed"
	// KindToolCallFailed identifies a tool call that could not be serviced.
	KindToolCallFailed Kind = "tool_call.failed"
)

// ToolCallStarted marks the start of servicing one agent-issued call.
type ToolCallStarted struct {
	Base
	CallID    string
	Name      string
	Arguments string
}

func NewToolCallStarted(callID, name, arguments string) ToolCallStarted {
	return ToolCallStarted{Base: NewBase(KindToolCallStarted), CallID: callID, Name: name, Arguments: arguments}
}

// ToolCallCompleted marks a call whose output went back over the transport.
type ToolCallCompleted struct {
	Base
	CallID string
	Name   string
	Output string
}

func NewToolCallCompleted(callID, name, output string) ToolCallCompleted {
	return ToolCallCompleted{Base: NewBase(KindToolCallCompleted), CallID: callID, Name: name, Output: output}
}

// ToolCallFailed marks a call that was answered with an error-shaped output,
// or could not be answered at all.
type ToolCallFailed struct {
	Base
	CallID string
	Name   string
	Error  string
}

func NewToolCallFailed(callID, name, err string) ToolCallFailed {
	return ToolCallFailed{Base: NewBase(KindToolCallFailed), CallID: callID, Name: name, Error: err}
}
