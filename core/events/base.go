package events

import "time"

// Kind identifies an event type. Kinds are dotted strings grouped by
// namespace: session.* for state machine and display changes, tool_call.*
// for agent call servicing.
type Kind string

// Event is satisfied by every published event. Concrete events embed Base
// and add their payload fields.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the kind and the construction-time stamp shared by all
// events.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
