package events

import "github.com/koscakluka/tutor-core/core/cards"

const (
	// KindConnectionPhaseChanged identifies coarse session state changes.
	KindConnectionPhaseChanged Kind = "session.phase_changed"
	// KindCardChanged identifies a new current card, or none.
	KindCardChanged Kind = "session.card_changed"
	// KindVerdictSet identifies a fresh grading verdict.
	KindVerdictSet Kind = "session.verdict_set"
	// KindVerdictCleared identifies expiry of the verdict display window.
	KindVerdictCleared Kind = "session.verdict_cleared"
	// KindTranscriptAppended identifies a new debug transcript line.
	KindTranscriptAppended Kind = "session.transcript_appended"
)

// ConnectionPhaseChanged reports a transition of the session state machine.
type ConnectionPhaseChanged struct {
	Base
	Phase string
}

func NewConnectionPhaseChanged(phase string) ConnectionPhaseChanged {
	return ConnectionPhaseChanged{Base: NewBase(KindConnectionPhaseChanged), Phase: phase}
}

// CardChanged reports the card now bound as current. Card is nil when no
// card is bound (before study starts, or after the queue is exhausted).
type CardChanged struct {
	Base
	Card *cards.Card
}

func NewCardChanged(card *cards.Card) CardChanged {
	return CardChanged{Base: NewBase(KindCardChanged), Card: card}
}

// VerdictSet reports the grading outcome for the just-answered card. The
// orchestrator clears it again after the display window elapses.
type VerdictSet struct {
	Base
	Verdict cards.Verdict
}

func NewVerdictSet(verdict cards.Verdict) VerdictSet {
	return VerdictSet{Base: NewBase(KindVerdictSet), Verdict: verdict}
}

// VerdictCleared reports expiry of a verdict's display window.
type VerdictCleared struct {
	Base
}

func NewVerdictCleared() VerdictCleared {
	return VerdictCleared{Base: NewBase(KindVerdictCleared)}
}

// TranscriptAppended carries one human-readable trace line.
type TranscriptAppended struct {
	Base
	Line string
}

func NewTranscriptAppended(line string) TranscriptAppended {
	return TranscriptAppended{Base: NewBase(KindTranscriptAppended), Line: line}
}
