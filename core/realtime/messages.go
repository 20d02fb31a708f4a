package realtime

import "github.com/invopop/jsonschema"

// SessionConfig is the session.update payload: the instructions the agent
// speaks from, the tools it may call, and how it should transcribe user
// audio.
type SessionConfig struct {
	Instructions            string               `json:"instructions,omitempty"`
	Tools                   []Tool               `json:"tools,omitempty"`
	ToolChoice              string               `json:"tool_choice,omitempty"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
}

// Tool declares one callable function to the agent.
type Tool struct {
	Type        string             `json:"type"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

func NewFunctionTool(name, description string, parameters *jsonschema.Schema) Tool {
	return Tool{Type: "function", Name: name, Description: description, Parameters: parameters}
}

type TranscriptionConfig struct {
	Model string `json:"model"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

// clientEvent is the outbound wire envelope.
type clientEvent struct {
	Type    string            `json:"type"`
	Session *SessionConfig    `json:"session,omitempty"`
	Item    *conversationItem `json:"item,omitempty"`
	Audio   string            `json:"audio,omitempty"`
}
