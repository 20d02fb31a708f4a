package realtime

import (
	"encoding/json"
	"fmt"
)

// ServerEvent is an inbound event from the dialogue agent. Only the kinds
// the orchestrator acts on are surfaced; high-frequency delta kinds are
// acknowledged and dropped inside the decoder.
type ServerEvent interface {
	serverEvent()
}

// AgentTranscriptDone carries the final transcript of something the agent
// spoke.
type AgentTranscriptDone struct {
	Transcript string
}

// UserTranscriptDone carries the final transcript of something the user
// said, produced by the transport's own input transcription.
type UserTranscriptDone struct {
	Transcript string
}

// ToolCallAnnounced reports that the agent started a tool call. The call's
// arguments arrive later in a separate [ToolCallArgumentsDone] event.
type ToolCallAnnounced struct {
	CallID string
	Name   string
}

// ToolCallArgumentsDone reports that a tool call's arguments are complete
// and the call can be serviced.
type ToolCallArgumentsDone struct {
	CallID    string
	Arguments string
}

// ServerError is a generic error reported by the agent.
type ServerError struct {
	Code    string
	Message string
}

func (AgentTranscriptDone) serverEvent()   {}
func (UserTranscriptDone) serverEvent()    {}
func (ToolCallAnnounced) serverEvent()     {}
func (ToolCallArgumentsDone) serverEvent() {}
func (ServerError) serverEvent()           {}

// ignoredEventTypes are streaming partials that would swamp the transcript
// without carrying control information.
var ignoredEventTypes = map[string]struct{}{
	"response.audio.delta":                  {},
	"response.audio_transcript.delta":       {},
	"response.text.delta":                   {},
	"response.function_call_arguments.delta": {},
	"input_audio_buffer.speech_started":     {},
	"input_audio_buffer.speech_stopped":     {},
	"input_audio_buffer.committed":          {},
	"conversation.item.input_audio_transcription.delta": {},
}

type serverEnvelope struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	CallID     string `json:"call_id"`
	Arguments  string `json:"arguments"`
	Item       *struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
		Name   string `json:"name"`
	} `json:"item"`
	Response *struct {
		Output []struct {
			Type       string `json:"type"`
			Transcript string `json:"transcript"`
		} `json:"output"`
	} `json:"response"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeServerEvent maps a raw inbound message to a typed event. It returns
// (nil, nil) for kinds the orchestrator deliberately ignores.
func decodeServerEvent(data []byte) (ServerEvent, error) {
	var envelope serverEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode server event: %w", err)
	}

	if _, ignored := ignoredEventTypes[envelope.Type]; ignored {
		return nil, nil
	}

	switch envelope.Type {
	case "response.audio_transcript.done", "response.text.done":
		return AgentTranscriptDone{Transcript: envelope.Transcript}, nil

	case "conversation.item.input_audio_transcription.completed":
		return UserTranscriptDone{Transcript: envelope.Transcript}, nil

	case "response.output_item.added":
		if envelope.Item == nil || envelope.Item.Type != "function_call" {
			return nil, nil
		}
		return ToolCallAnnounced{CallID: envelope.Item.CallID, Name: envelope.Item.Name}, nil

	case "response.function_call_arguments.done":
		return ToolCallArgumentsDone{CallID: envelope.CallID, Arguments: envelope.Arguments}, nil

	case "error":
		event := ServerError{}
		if envelope.Error != nil {
			event.Code = envelope.Error.Code
			event.Message = envelope.Error.Message
		}
		return event, nil
	}

	// Unknown kinds are dropped; the protocol adds event types faster than
	// clients track them.
	return nil, nil
}
