package orchestration

import (
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/koscakluka/tutor-core/core/cards"
)

// Phase is the coarse state of the session state machine.
type Phase string

const (
	PhaseDisconnected      Phase = "disconnected"
	PhaseConnecting        Phase = "connecting"
	PhaseConnectedIdle     Phase = "connected.idle"
	PhaseConnectedStudying Phase = "connected.studying"
)

type sourceKind string

const (
	sourceKindMock   sourceKind = "mock"
	sourceKindRemote sourceKind = "remote"
)

// sourceBinding is the tagged discriminator between the demo deck and a
// remote deck. Carrying the tag explicitly keeps "stay on the current deck"
// and "switch to mock" unambiguous when no deck name is passed.
type sourceBinding struct {
	kind sourceKind
	deck string
}

func (b sourceBinding) String() string {
	if b.kind == sourceKindRemote {
		return "remote deck " + b.deck
	}
	return "demo deck"
}

// session is the per-connection state. A fresh value is created on every
// successful connect so that stale asynchronous results from a torn-down
// session can be detected by generation comparison and discarded.
type session struct {
	generation string
	transport  Transport

	binding *sourceBinding
	source  cards.Source

	// queue holds the ids still awaiting review. The head, once popped, is
	// never re-inserted; at most one current card exists at any time.
	queue   []cards.CardID
	current *cards.Card

	verdict    *cards.Verdict
	verdictSeq int

	// transcript is the append-only debug log of the conversation.
	transcript []string

	// pendingCalls maps an in-flight tool call id to the tool name it was
	// announced with; the transport delivers name and arguments in two
	// separate events.
	pendingCalls map[string]string
}

func newSession(transport Transport) *session {
	return &session{
		generation:   uuid.NewString(),
		transport:    transport,
		pendingCalls: map[string]string{},
	}
}

// Snapshot is a point-in-time copy of observable session state for
// presentation layers.
type Snapshot struct {
	Phase       Phase
	Mode        string
	Deck        string
	CurrentCard *cards.Card
	Verdict     *cards.Verdict
	QueueLength int
	Transcript  []string
	LastError   string
}

// Snapshot returns a defensive copy of the orchestrator's observable state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := Snapshot{Phase: o.phase, LastError: o.lastError}

	s := o.sess
	if s == nil {
		return snapshot
	}

	if s.binding != nil {
		snapshot.Mode = string(s.binding.kind)
		snapshot.Deck = s.binding.deck
	}
	if s.current != nil {
		card := *s.current
		snapshot.CurrentCard = &card
	}
	if s.verdict != nil {
		verdict := *s.verdict
		snapshot.Verdict = &verdict
	}
	snapshot.QueueLength = len(s.queue)
	copier.Copy(&snapshot.Transcript, &s.transcript)

	return snapshot
}
