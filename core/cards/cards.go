// Package cards defines the flashcard domain contract shared by the
// orchestration core and the card source backends.
package cards

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnreachable marks failures caused by the backing card service being
// unavailable, as opposed to the service rejecting a request.
var ErrUnreachable = errors.New("card source unreachable")

// CardID is an opaque, source-specific card identifier. The remote backend
// uses decimal-formatted integers, the demo deck uses arbitrary strings.
type CardID string

// Card is a single flashcard. Immutable once fetched; owned by the source
// that produced it.
type Card struct {
	ID    CardID
	Front string
	Back  string
}

// Verdict is the grading outcome for one answered card.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// ParseVerdict validates a wire-level verdict string. Anything other than
// the two known values is rejected rather than coerced.
func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(s) {
	case VerdictCorrect, VerdictIncorrect:
		return Verdict(s), nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

// Stats is a human-readable deck summary used only for greeting text. It is
// not authoritative session state.
type Stats struct {
	DueCount    int
	Description string
}

// Source supplies due cards for a deck and records grading outcomes.
//
// FetchDetails preserves input ordering and omits missing ids from the
// result instead of padding with zero values, so callers must handle short
// results.
type Source interface {
	ListDue(ctx context.Context, deck string) ([]CardID, error)
	FetchDetails(ctx context.Context, ids []CardID) ([]Card, error)
	Grade(ctx context.Context, id CardID, verdict Verdict) error
	DeckStats(ctx context.Context, deck string) (Stats, error)
}
