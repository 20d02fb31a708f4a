package orchestration

import "github.com/koscakluka/tutor-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(callbacks callbackOptions) eventEmitter {
	return func(event events.Event) {
		if callbacks.onEvent != nil {
			callbacks.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.ConnectionPhaseChanged:
			if callbacks.onPhaseChanged != nil {
				callbacks.onPhaseChanged(typedEvent.Phase)
			}
		case events.CardChanged:
			if callbacks.onCardChanged != nil {
				callbacks.onCardChanged(typedEvent.Card)
			}
		case events.VerdictSet:
			if callbacks.onVerdictSet != nil {
				callbacks.onVerdictSet(typedEvent.Verdict)
			}
		case events.VerdictCleared:
			if callbacks.onVerdictCleared != nil {
				callbacks.onVerdictCleared()
			}
		case events.TranscriptAppended:
			if callbacks.onTranscriptLine != nil {
				callbacks.onTranscriptLine(typedEvent.Line)
			}
		}
	}
}
