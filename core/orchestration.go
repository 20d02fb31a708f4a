// Package orchestration drives a spoken flashcard tutoring session: it owns
// the session state machine, binds a card source, and keeps the due queue
// consistent while the remote dialogue agent asks questions and grades
// answers through tool calls.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/tutor-core/core/cards"
	"github.com/koscakluka/tutor-core/core/cards/memdeck"
	"github.com/koscakluka/tutor-core/core/events"
	"github.com/koscakluka/tutor-core/core/realtime"
	"github.com/koscakluka/tutor-core/core/turnprotocol"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultVerdictDisplayFor = 3 * time.Second
	defaultDialTimeout       = 15 * time.Second
	defaultSourceTimeout     = 10 * time.Second
)

type Orchestrator struct {
	// mu serializes every session state mutation: transport events and
	// directly invoked operations arrive from independent stimuli and must
	// not interleave destructively.
	mu    sync.Mutex
	phase Phase
	sess  *session

	// live mirrors sess for the audio path, which must not contend on mu.
	live atomic.Pointer[session]

	lastError string

	audioInput    audioInput
	dialTransport TransportDialer
	mockSource    cards.Source
	remoteSource  cards.Source

	emitEvent eventEmitter
	callbacks callbackOptions

	verdictDisplayFor  time.Duration
	dialTimeout        time.Duration
	sourceTimeout      time.Duration
	greeting           string
	transcriptionModel string

	closeOnce sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		phase:              PhaseDisconnected,
		mockSource:         memdeck.New(),
		emitEvent:          noopEventEmitter,
		verdictDisplayFor:  defaultVerdictDisplayFor,
		dialTimeout:        defaultDialTimeout,
		sourceTimeout:      defaultSourceTimeout,
		greeting:           defaultGreetingInstructions,
		transcriptionModel: "whisper-1",
	}
	o.audioInput = *newAudioInput(nil, o.forwardAudio)

	for _, opt := range opts {
		opt(o)
	}

	o.emitEvent = newCallbackEventEmitter(o.callbacks)
	return o
}

// Connect establishes a voice session: it acquires the microphone, dials the
// transport, starts the inbound consumer, and greets the user. Valid from
// the disconnected state only; at most one connection attempt is in flight
// at any time.
func (o *Orchestrator) Connect(ctx context.Context) error {
	return o.connect(ctx, true)
}

func (o *Orchestrator) connect(ctx context.Context, withGreeting bool) error {
	ctx, span := tracer.Start(ctx, "connect session")
	defer span.End()

	o.mu.Lock()
	if o.phase != PhaseDisconnected {
		phase := o.phase
		o.mu.Unlock()
		return fmt.Errorf("%w: connect while %s", ErrState, phase)
	}
	o.setPhaseLocked(PhaseConnecting)
	o.mu.Unlock()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		o.mu.Lock()
		o.lastError = err.Error()
		o.setPhaseLocked(PhaseDisconnected)
		o.mu.Unlock()
		return err
	}

	if err := o.audioInput.acquire(ctx); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrHardware, err))
	}

	if o.dialTransport == nil {
		o.audioInput.release()
		return fail(fmt.Errorf("%w: no transport configured", ErrState))
	}

	dialCtx, cancel := context.WithTimeout(ctx, o.dialTimeout)
	defer cancel()
	transport, err := o.dialTransport(dialCtx)
	if err != nil {
		o.audioInput.release()
		if errors.Is(err, context.DeadlineExceeded) {
			return fail(fmt.Errorf("%w: transport dial: %v", ErrTimeout, err))
		}
		return fail(fmt.Errorf("%w: transport dial: %v", ErrConnectivity, err))
	}

	s := newSession(transport)
	o.mu.Lock()
	o.sess = s
	o.live.Store(s)
	o.lastError = ""
	o.appendTranscriptLocked("session connected")
	o.setPhaseLocked(PhaseConnectedIdle)
	o.mu.Unlock()

	go o.consumeTransportEvents(s)

	if withGreeting && o.greeting != "" {
		if err := transport.UpdateSession(realtime.SessionConfig{Instructions: o.greeting}); err != nil {
			logger.Warn("failed to send greeting instructions", "error", err)
		} else if err := transport.TriggerResponse(); err != nil {
			logger.Warn("failed to trigger greeting response", "error", err)
		}
	}

	return nil
}

// StartStudySession binds a deck and starts (or restarts) studying. An empty
// deck name keeps the previously bound deck when one exists and otherwise
// selects the demo deck; it never silently falls back to the demo deck once
// a remote deck is bound. From the disconnected state it first performs a
// silent auto-connect and aborts without state mutation if that fails.
func (o *Orchestrator) StartStudySession(ctx context.Context, deck string) error {
	ctx, span := tracer.Start(ctx, "start study session")
	defer span.End()

	o.mu.Lock()
	phase := o.phase
	o.mu.Unlock()

	switch phase {
	case PhaseDisconnected:
		if err := o.connect(ctx, false); err != nil {
			return fmt.Errorf("auto-connect failed: %w", err)
		}
	case PhaseConnecting:
		return fmt.Errorf("%w: connection attempt already in flight", ErrState)
	}

	o.mu.Lock()
	s := o.sess
	if s == nil {
		o.mu.Unlock()
		return fmt.Errorf("%w: no live session", ErrState)
	}
	binding := resolveBinding(s.binding, deck)
	generation := s.generation
	o.mu.Unlock()

	source, err := o.sourceFor(binding)
	if err != nil {
		return err
	}

	if binding.kind == sourceKindMock {
		// Restarting study cycles the demo deck back to fully due.
		if resettable, ok := source.(interface{ Reset() }); ok {
			resettable.Reset()
		}
	}

	srcCtx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
	defer cancel()

	// Stats must be read before the due list: the demo deck counts a
	// ListDue as serving the deck, after which it reports nothing due.
	stats, statsErr := source.DeckStats(srcCtx, binding.deck)

	due, err := source.ListDue(srcCtx, binding.deck)
	if err != nil {
		return o.recordSessionError(generation, classifySourceErr("list due cards", err))
	}

	if statsErr != nil {
		// Stats only feed greeting text; a failure is not worth aborting for.
		logger.Warn("failed to fetch deck stats", "deck", binding.deck, "error", statsErr)
		stats = cards.Stats{DueCount: len(due)}
	}

	first, rest, err := popFirstCard(srcCtx, source, due)
	if err != nil {
		return o.recordSessionError(generation, classifySourceErr("fetch first card", err))
	}

	o.mu.Lock()
	if o.sess == nil || o.sess.generation != generation {
		o.mu.Unlock()
		return fmt.Errorf("%w: session ended during study start", ErrState)
	}
	s = o.sess
	s.binding = &binding
	s.source = source
	s.queue = rest
	s.current = first
	s.verdict = nil
	s.pendingCalls = map[string]string{}
	o.appendTranscriptLocked(fmt.Sprintf("study session started: %s, %d cards due", binding, len(due)))
	o.setPhaseLocked(PhaseConnectedStudying)
	transport := s.transport
	o.mu.Unlock()

	o.emitEvent(events.NewCardChanged(first))

	config := realtime.SessionConfig{
		Instructions: studyInstructions(binding, stats, first),
		Tools: []realtime.Tool{realtime.NewFunctionTool(
			turnprotocol.ToolName,
			turnprotocol.ToolDescription,
			turnprotocol.ParametersSchema(),
		)},
		ToolChoice: "auto",
	}
	if o.transcriptionModel != "" {
		config.InputAudioTranscription = &realtime.TranscriptionConfig{Model: o.transcriptionModel}
	}

	if err := transport.UpdateSession(config); err != nil {
		return o.recordSessionError(generation, fmt.Errorf("%w: configure session: %v", ErrConnectivity, err))
	}
	if err := transport.CreateUserMessage(openingMessage(first)); err != nil {
		return o.recordSessionError(generation, fmt.Errorf("%w: send opening message: %v", ErrConnectivity, err))
	}
	if err := transport.TriggerResponse(); err != nil {
		return o.recordSessionError(generation, fmt.Errorf("%w: trigger opening response: %v", ErrConnectivity, err))
	}

	return nil
}

// Disconnect tears the session down. Safe to call when no session exists.
// Capture release is unconditional: it runs even when transport teardown
// fails.
func (o *Orchestrator) Disconnect(ctx context.Context) error {
	_, span := tracer.Start(ctx, "disconnect session")
	defer span.End()

	o.mu.Lock()
	s := o.sess
	if s == nil {
		o.mu.Unlock()
		return nil
	}
	o.sess = nil
	o.live.Store(nil)
	o.setPhaseLocked(PhaseDisconnected)
	o.mu.Unlock()

	defer o.audioInput.release()

	if err := s.transport.Close(); err != nil {
		err = fmt.Errorf("failed to tear down transport session: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Close disconnects and releases the capture device for good.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		if err := o.Disconnect(context.Background()); err != nil {
			logger.Warn("failed to disconnect during close", "error", err)
		}
		o.audioInput.Close()
	})
}

func (o *Orchestrator) setPhaseLocked(phase Phase) {
	if o.phase == phase {
		return
	}
	o.phase = phase
	o.emitEvent(events.NewConnectionPhaseChanged(string(phase)))
}

func (o *Orchestrator) appendTranscriptLocked(line string) {
	if o.sess != nil {
		o.sess.transcript = append(o.sess.transcript, line)
	}
	o.emitEvent(events.NewTranscriptAppended(line))
}

// recordSessionError stores a failure on the still-live session without
// changing its phase: study-session failures after a successful connect
// leave the state machine where it was.
func (o *Orchestrator) recordSessionError(generation string, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess != nil && o.sess.generation == generation {
		o.lastError = err.Error()
		o.appendTranscriptLocked("error: " + err.Error())
	}
	return err
}

func (o *Orchestrator) sourceFor(binding sourceBinding) (cards.Source, error) {
	if binding.kind == sourceKindRemote {
		if o.remoteSource == nil {
			return nil, fmt.Errorf("%w: no remote card source configured", ErrState)
		}
		return o.remoteSource, nil
	}
	return o.mockSource, nil
}

func resolveBinding(existing *sourceBinding, deck string) sourceBinding {
	if deck != "" {
		return sourceBinding{kind: sourceKindRemote, deck: deck}
	}
	if existing != nil {
		return *existing
	}
	return sourceBinding{kind: sourceKindMock}
}

// popFirstCard fetches the first presentable card from the due list. The
// head is removed only after its content was fetched successfully; ids the
// source no longer knows are skipped.
func popFirstCard(ctx context.Context, source cards.Source, due []cards.CardID) (*cards.Card, []cards.CardID, error) {
	queue := append([]cards.CardID(nil), due...)
	for len(queue) > 0 {
		fetched, err := source.FetchDetails(ctx, []cards.CardID{queue[0]})
		if err != nil {
			return nil, queue, err
		}
		queue = queue[1:]
		if len(fetched) == 0 {
			continue
		}
		card := fetched[0]
		return &card, queue, nil
	}
	return nil, queue, nil
}

func (o *Orchestrator) forwardAudio(frame []byte) {
	s := o.live.Load()
	if s == nil {
		return
	}
	if err := s.transport.AppendInputAudio(frame); err != nil {
		logger.Warn("failed to forward input audio", "error", err)
	}
}
