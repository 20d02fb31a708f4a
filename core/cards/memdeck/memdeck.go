// Package memdeck provides a static in-memory card source used for demo
// sessions that run without a remote note-review service.
package memdeck

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/koscakluka/tutor-core/core/cards"
)

func defaultCards() []cards.Card {
	return []cards.Card{
		{ID: "demo-1", Front: "What is the capital of France?", Back: "Paris"},
		{ID: "demo-2", Front: "What is the chemical symbol for gold?", Back: "Au"},
		{ID: "demo-3", Front: "In which year did the first human land on the Moon?", Back: "1969"},
	}
}

// Source is a cyclical demo deck: the first ListDue hands out the whole
// deck, after which there is nothing due until Reset is called.
type Source struct {
	mu     sync.Mutex
	cards  []cards.Card
	served bool
}

type Option func(*Source)

// WithCards replaces the built-in demo cards.
func WithCards(deck ...cards.Card) Option {
	return func(s *Source) {
		s.cards = append([]cards.Card(nil), deck...)
	}
}

func New(opts ...Option) *Source {
	s := &Source{cards: defaultCards()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListDue ignores the deck name; the demo deck is the only deck there is.
func (s *Source) ListDue(_ context.Context, _ string) ([]cards.CardID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return nil, nil
	}

	s.served = true
	ids := make([]cards.CardID, 0, len(s.cards))
	for _, card := range s.cards {
		ids = append(ids, card.ID)
	}
	return ids, nil
}

func (s *Source) FetchDetails(_ context.Context, ids []cards.CardID) ([]cards.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := make([]cards.Card, 0, len(ids))
	for _, id := range ids {
		for _, card := range s.cards {
			if card.ID == id {
				found = append(found, card)
				break
			}
		}
	}
	return found, nil
}

// Grade accepts the outcome without recording it; the demo deck has no
// durable grading state.
func (s *Source) Grade(_ context.Context, id cards.CardID, verdict cards.Verdict) error {
	log.Printf("memdeck: card %s graded %s (not persisted)", id, verdict)
	return nil
}

func (s *Source) DeckStats(_ context.Context, _ string) (cards.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := len(s.cards)
	if s.served {
		due = 0
	}
	return cards.Stats{
		DueCount:    due,
		Description: fmt.Sprintf("demo deck with %d cards", len(s.cards)),
	}, nil
}

// Reset makes the full deck due again.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.served = false
}
