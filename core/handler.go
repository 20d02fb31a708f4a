package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/koscakluka/tutor-core/core/cards"
	"github.com/koscakluka/tutor-core/core/events"
	"github.com/koscakluka/tutor-core/core/realtime"
	"github.com/koscakluka/tutor-core/core/turnprotocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// consumeTransportEvents is the single consumer loop over the inbound
// stream. Events are handled one at a time in arrival order; handling one
// never overlaps handling another.
func (o *Orchestrator) consumeTransportEvents(s *session) {
	for event := range s.transport.Events() {
		o.handleTransportEvent(s, event)
	}
	o.handleTransportClosed(s)
}

// handleTransportClosed resets the orchestrator when the transport drops on
// its own. A session already replaced or torn down is left alone.
func (o *Orchestrator) handleTransportClosed(s *session) {
	o.mu.Lock()
	if o.sess != s {
		o.mu.Unlock()
		return
	}
	o.sess = nil
	o.live.Store(nil)
	o.lastError = "transport session ended"
	o.setPhaseLocked(PhaseDisconnected)
	o.mu.Unlock()

	o.audioInput.release()
}

func (o *Orchestrator) handleTransportEvent(s *session, event realtime.ServerEvent) {
	o.mu.Lock()
	if o.sess != s {
		// Stale event from a torn-down session.
		o.mu.Unlock()
		return
	}

	switch typedEvent := event.(type) {
	case realtime.AgentTranscriptDone:
		o.appendTranscriptLocked("tutor: " + typedEvent.Transcript)
		o.mu.Unlock()

	case realtime.UserTranscriptDone:
		o.appendTranscriptLocked("student: " + typedEvent.Transcript)
		o.mu.Unlock()

	case realtime.ToolCallAnnounced:
		s.pendingCalls[typedEvent.CallID] = typedEvent.Name
		o.mu.Unlock()

	case realtime.ToolCallArgumentsDone:
		name, announced := s.pendingCalls[typedEvent.CallID]
		delete(s.pendingCalls, typedEvent.CallID)
		o.mu.Unlock()
		o.serviceToolCall(s, typedEvent.CallID, name, announced, typedEvent.Arguments)

	case realtime.ServerError:
		o.appendTranscriptLocked(fmt.Sprintf("transport error: %s (%s)", typedEvent.Message, typedEvent.Code))
		o.mu.Unlock()

	default:
		o.mu.Unlock()
	}
}

// serviceToolCall runs one agent-issued call to completion. Failures are
// contained to the call: they are logged to the transcript and answered
// with an error-shaped output so the agent is never left waiting, and they
// never tear the session down.
func (o *Orchestrator) serviceToolCall(s *session, callID, name string, announced bool, arguments string) {
	ctx, span := tracer.Start(context.Background(), "service tool call")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.call_id", callID),
	)

	o.emitEvent(events.NewToolCallStarted(callID, name, arguments))

	if !announced {
		// Never answer a call the transport did not announce; the remote
		// side would reject output for an item it does not know about.
		err := fmt.Errorf("%w: arguments for unannounced call id %q", ErrProtocol, callID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.mu.Lock()
		if o.sess == s {
			o.lastError = err.Error()
			o.appendTranscriptLocked("error: " + err.Error())
		}
		o.mu.Unlock()
		o.emitEvent(events.NewToolCallFailed(callID, name, err.Error()))
		return
	}
	if name != turnprotocol.ToolName {
		err := fmt.Errorf("%w: unknown tool %q", ErrProtocol, name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.failToolCall(s, callID, name, err)
		return
	}

	call, err := turnprotocol.ParseCall(arguments)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrProtocol, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.failToolCall(s, callID, name, err)
		return
	}

	result, err := o.evaluateAndMoveNext(ctx, s, call)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		o.failToolCall(s, callID, name, err)
		return
	}

	output := result.Encode()
	if err := o.sendToolOutput(s, callID, output); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.emitEvent(events.NewToolCallFailed(callID, name, err.Error()))
		return
	}
	o.emitEvent(events.NewToolCallCompleted(callID, name, output))
}

// failToolCall records a contained failure and answers the call with an
// error-shaped result carrying the still-current card, so the agent can
// re-ask the question instead of waiting forever.
func (o *Orchestrator) failToolCall(s *session, callID, name string, callErr error) {
	o.mu.Lock()
	if o.sess == s {
		o.lastError = callErr.Error()
		o.appendTranscriptLocked("error: " + callErr.Error())
	}
	var retry *turnprotocol.NextCard
	if o.sess == s && s.current != nil {
		retry = &turnprotocol.NextCard{Front: s.current.Front, Back: s.current.Back}
	}
	o.mu.Unlock()

	o.emitEvent(events.NewToolCallFailed(callID, name, callErr.Error()))

	result := turnprotocol.ErrorResult(callErr.Error())
	if retry != nil {
		result.NextCard = *retry
	}
	if err := o.sendToolOutput(s, callID, result.Encode()); err != nil {
		logger.Warn("failed to answer failed tool call", "callId", callID, "error", err)
	}
}

func (o *Orchestrator) sendToolOutput(s *session, callID, output string) error {
	if err := s.transport.SendToolOutput(callID, output); err != nil {
		return fmt.Errorf("%w: send tool output: %v", ErrConnectivity, err)
	}
	if err := s.transport.TriggerResponse(); err != nil {
		return fmt.Errorf("%w: trigger response: %v", ErrConnectivity, err)
	}
	return nil
}

// evaluateAndMoveNext performs the atomic turn: grade the current card, then
// advance the queue and bind the next card. The answered card's back text is
// captured before advancement so feedback always refers to the just-answered
// card.
func (o *Orchestrator) evaluateAndMoveNext(ctx context.Context, s *session, call turnprotocol.Call) (turnprotocol.Result, error) {
	o.mu.Lock()
	if o.sess != s {
		o.mu.Unlock()
		return turnprotocol.Result{}, fmt.Errorf("%w: session ended", ErrState)
	}
	source := s.source
	current := s.current
	o.mu.Unlock()

	if source == nil {
		return turnprotocol.Result{}, fmt.Errorf("%w: no study session active", ErrState)
	}

	if current == nil {
		// Queue already exhausted; nothing left to grade.
		return turnprotocol.Result{Status: "ok", NextCard: turnprotocol.EndOfSessionCard()}, nil
	}

	answeredBack := current.Back

	gradeCtx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
	defer cancel()
	if err := source.Grade(gradeCtx, current.ID, call.Verdict); err != nil {
		err = classifySourceErr("grade card", err)
		trace.SpanFromContext(ctx).RecordError(err)
		return turnprotocol.Result{}, err
	}

	o.setVerdict(s, call.Verdict)

	next, err := o.advanceQueue(ctx, s, source)
	if err != nil {
		// Graded but not advanced: the current card stays bound and the
		// session stays in studying; restarting the study session repairs it.
		return turnprotocol.Result{}, err
	}

	result := turnprotocol.Result{Status: "ok", AnsweredCardBack: answeredBack}
	if next == nil {
		result.NextCard = turnprotocol.EndOfSessionCard()
	} else {
		result.NextCard = turnprotocol.NextCard{Front: next.Front, Back: next.Back}
	}
	return result, nil
}

// advanceQueue pops the head and binds its card as current. The head is
// removed only after its content was fetched successfully; ids the source
// omits are skipped. Returns nil when the queue is exhausted.
func (o *Orchestrator) advanceQueue(ctx context.Context, s *session, source cards.Source) (*cards.Card, error) {
	for {
		o.mu.Lock()
		if o.sess != s {
			o.mu.Unlock()
			return nil, fmt.Errorf("%w: session ended", ErrState)
		}
		if len(s.queue) == 0 {
			s.current = nil
			o.mu.Unlock()
			o.emitEvent(events.NewCardChanged(nil))
			return nil, nil
		}
		head := s.queue[0]
		o.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
		fetched, err := source.FetchDetails(fetchCtx, []cards.CardID{head})
		cancel()
		if err != nil {
			err = classifySourceErr("fetch next card", err)
			trace.SpanFromContext(ctx).RecordError(err)
			return nil, err
		}

		o.mu.Lock()
		if o.sess != s {
			o.mu.Unlock()
			return nil, fmt.Errorf("%w: session ended", ErrState)
		}
		if len(s.queue) > 0 && s.queue[0] == head {
			s.queue = s.queue[1:]
		}
		if len(fetched) == 0 {
			o.mu.Unlock()
			continue
		}
		card := fetched[0]
		s.current = &card
		o.mu.Unlock()

		o.emitEvent(events.NewCardChanged(&card))
		return &card, nil
	}
}

// setVerdict binds the grading outcome and schedules its expiry. Every
// verdict gets its own timer; an older timer firing after a newer verdict
// landed is detected through the sequence number and does nothing.
func (o *Orchestrator) setVerdict(s *session, verdict cards.Verdict) {
	o.mu.Lock()
	if o.sess != s {
		o.mu.Unlock()
		return
	}
	s.verdict = &verdict
	s.verdictSeq++
	seq := s.verdictSeq
	o.mu.Unlock()

	o.emitEvent(events.NewVerdictSet(verdict))

	time.AfterFunc(o.verdictDisplayFor, func() {
		o.mu.Lock()
		if o.sess != s || s.verdictSeq != seq {
			o.mu.Unlock()
			return
		}
		s.verdict = nil
		o.mu.Unlock()

		o.emitEvent(events.NewVerdictCleared())
	})
}
