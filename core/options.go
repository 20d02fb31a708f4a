package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/tutor-core/core/audio"
	"github.com/koscakluka/tutor-core/core/cards"
	"github.com/koscakluka/tutor-core/core/events"
	"github.com/koscakluka/tutor-core/core/realtime"
)

type OrchestratorOption func(*Orchestrator)

// Transport is the duplex channel to the remote dialogue agent. The inbound
// stream ends (Events is closed) when the underlying connection drops.
type Transport interface {
	UpdateSession(config realtime.SessionConfig) error
	CreateUserMessage(text string) error
	SendToolOutput(callID, output string) error
	TriggerResponse() error
	AppendInputAudio(audio []byte) error
	Events() <-chan realtime.ServerEvent
	Close() error
}

// TransportDialer establishes a fresh transport session. Connect calls it
// once per attempt.
type TransportDialer func(ctx context.Context) (Transport, error)

func WithTransportDialer(dial TransportDialer) OrchestratorOption {
	return func(o *Orchestrator) { o.dialTransport = dial }
}

// WithMockCardSource replaces the built-in demo deck source.
func WithMockCardSource(source cards.Source) OrchestratorOption {
	return func(o *Orchestrator) { o.mockSource = source }
}

// WithRemoteCardSource configures the source used when a deck name binds the
// session to a remote deck.
func WithRemoteCardSource(source cards.Source) OrchestratorOption {
	return func(o *Orchestrator) { o.remoteSource = source }
}

// AudioInput is a microphone capture client.
type AudioInput interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}

// AudioInputFine is implemented by capture clients with explicit capture
// controls; acquiring through it surfaces device failures synchronously.
type AudioInputFine interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInput.Set(client) }
}

// WithVerdictDisplayDuration overrides how long a grading verdict stays
// observable before it self-clears. Defaults to 3 seconds.
func WithVerdictDisplayDuration(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.verdictDisplayFor = d }
}

func WithDialTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.dialTimeout = d }
}

func WithCardSourceTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.sourceTimeout = d }
}

// WithGreetingInstructions overrides the instruction text sent right after a
// user-initiated connect. StartStudySession's silent auto-connect never
// sends it.
func WithGreetingInstructions(instructions string) OrchestratorOption {
	return func(o *Orchestrator) { o.greeting = instructions }
}

// WithInputTranscriptionModel sets the transcription model the transport
// applies to user audio; empty disables input transcription.
func WithInputTranscriptionModel(model string) OrchestratorOption {
	return func(o *Orchestrator) { o.transcriptionModel = model }
}

type callbackOptions struct {
	onPhaseChanged    func(phase string)
	onCardChanged     func(card *cards.Card)
	onVerdictSet      func(verdict cards.Verdict)
	onVerdictCleared  func()
	onTranscriptLine  func(line string)
	onEvent           func(event events.Event)
}

// WithPhaseCallback registers a callback for session state machine
// transitions.
//
// Callbacks run inline on the orchestrator's event path and must not call
// back into the orchestrator; forward to a channel instead.
func WithPhaseCallback(callback func(phase string)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onPhaseChanged = callback }
}

// WithCardCallback registers a callback for current card changes. The card
// is nil when no card is bound.
func WithCardCallback(callback func(card *cards.Card)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onCardChanged = callback }
}

// WithVerdictSetCallback registers a callback for fresh grading verdicts.
func WithVerdictSetCallback(callback func(verdict cards.Verdict)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onVerdictSet = callback }
}

// WithVerdictClearedCallback registers a callback for verdict display
// expiry.
func WithVerdictClearedCallback(callback func()) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onVerdictCleared = callback }
}

// WithTranscriptCallback registers a callback for appended debug transcript
// lines.
func WithTranscriptCallback(callback func(line string)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onTranscriptLine = callback }
}

// WithEventCallback registers a callback receiving every published event,
// in addition to any kind-specific callbacks.
func WithEventCallback(callback func(event events.Event)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onEvent = callback }
}
