// Package turnprotocol defines the single tool contract exposed to the
// remote dialogue agent and the codec for its call arguments and results.
//
// The tool folds grading and queue advancement into one round trip. Split
// into two calls, the agent could ask the next question before the current
// verdict is committed, racing verdict display against question display;
// one call removes that ordering hazard.
package turnprotocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/tutor-core/core/cards"
)

const (
	// ToolName is the only tool declared to the dialogue agent.
	ToolName = "evaluate_and_move_next"

	// ToolDescription is the contract text shown to the agent.
	ToolDescription = "Grade the answer the student just gave for the current card, " +
		"then advance to the next due card. Call this exactly once per answered card."

	// EndOfSessionMarker is the reserved literal used for the next card when
	// the queue is exhausted. The agent's instructions react to this text,
	// not to an absent value.
	EndOfSessionMarker = "END OF SESSION"
)

// ErrMalformedCall marks tool-call arguments that violate the contract:
// undecodable JSON, a verdict outside the enum, or missing feedback.
var ErrMalformedCall = errors.New("malformed evaluate_and_move_next call")

// callArguments is the wire shape of the tool's parameters. The jsonschema
// tags drive the schema declared to the agent.
type callArguments struct {
	UserResponseQuality string `json:"user_response_quality" jsonschema:"enum=correct,enum=incorrect" jsonschema_description:"Whether the student's spoken answer was correct."`
	FeedbackText        string `json:"feedback_text" jsonschema_description:"Short spoken feedback about the student's answer."`
}

// ParametersSchema reflects the tool's parameter schema for the session
// configuration sent to the transport.
func ParametersSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&callArguments{})
	schema.Version = ""
	return schema
}

// Call is a validated evaluate_and_move_next invocation.
type Call struct {
	Verdict      cards.Verdict
	FeedbackText string
}

// ParseCall decodes and validates raw tool-call arguments. A violation is
// reported, never coerced.
func ParseCall(arguments string) (Call, error) {
	var raw callArguments
	if err := json.Unmarshal([]byte(arguments), &raw); err != nil {
		return Call{}, fmt.Errorf("%w: %v", ErrMalformedCall, err)
	}

	verdict, err := cards.ParseVerdict(raw.UserResponseQuality)
	if err != nil {
		return Call{}, fmt.Errorf("%w: %v", ErrMalformedCall, err)
	}
	if raw.FeedbackText == "" {
		return Call{}, fmt.Errorf("%w: feedback_text is required", ErrMalformedCall)
	}

	return Call{Verdict: verdict, FeedbackText: raw.FeedbackText}, nil
}

// NextCard is the card the agent should present next.
type NextCard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// EndOfSessionCard returns the sentinel next card signalling deck
// exhaustion.
func EndOfSessionCard() NextCard {
	return NextCard{Front: EndOfSessionMarker, Back: EndOfSessionMarker}
}

func (n NextCard) IsEndOfSession() bool {
	return n.Front == EndOfSessionMarker && n.Back == EndOfSessionMarker
}

// Result is the tool output returned to the agent. AnsweredCardBack always
// refers to the card that was current before the call was serviced.
type Result struct {
	Status           string   `json:"status"`
	AnsweredCardBack string   `json:"answered_card_back"`
	NextCard         NextCard `json:"next_card"`
}

// ErrorResult shapes a failure so the agent is never left waiting for an
// answer to a call it issued. Callers set NextCard to the still-current card
// when one exists so the agent can re-ask the question.
func ErrorResult(reason string) Result {
	return Result{Status: "error: " + reason}
}

func (r Result) Encode() string {
	encoded, err := json.Marshal(r)
	if err != nil {
		// Result only carries strings; this cannot happen with valid UTF-8.
		return `{"status":"error: result encoding failed"}`
	}
	return string(encoded)
}
