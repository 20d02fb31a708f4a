package memdeck

import (
	"testing"

	"github.com/koscakluka/tutor-core/core/cards"
)

func TestListDueServesDeckOnce(t *testing.T) {
	source := New()

	due, err := source.ListDue(t.Context(), "")
	if err != nil {
		t.Fatalf("Failed to list due cards: %v", err)
	}
	if len(due) != 3 {
		t.Fatalf("Expected the full demo deck, got %d cards", len(due))
	}

	again, err := source.ListDue(t.Context(), "")
	if err != nil {
		t.Fatalf("Failed to list due cards a second time: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("Expected nothing due after the deck was served, got %d", len(again))
	}

	source.Reset()
	reset, err := source.ListDue(t.Context(), "")
	if err != nil {
		t.Fatalf("Failed to list due cards after reset: %v", err)
	}
	if len(reset) != 3 {
		t.Errorf("Expected the full deck after reset, got %d", len(reset))
	}
}

func TestFetchDetailsPreservesOrderAndOmitsMissing(t *testing.T) {
	source := New()

	fetched, err := source.FetchDetails(t.Context(), []cards.CardID{"demo-3", "no-such-card", "demo-1"})
	if err != nil {
		t.Fatalf("Failed to fetch details: %v", err)
	}
	if len(fetched) != 2 {
		t.Fatalf("Expected the missing id to be omitted, got %d cards", len(fetched))
	}
	if fetched[0].ID != "demo-3" || fetched[1].ID != "demo-1" {
		t.Errorf("Expected input ordering to be preserved, got %v then %v", fetched[0].ID, fetched[1].ID)
	}
}

func TestWithCardsReplacesDeck(t *testing.T) {
	source := New(WithCards(
		cards.Card{ID: "c-1", Front: "2+2?", Back: "4"},
	))

	due, err := source.ListDue(t.Context(), "")
	if err != nil {
		t.Fatalf("Failed to list due cards: %v", err)
	}
	if len(due) != 1 || due[0] != "c-1" {
		t.Errorf("Expected only the replacement card, got %v", due)
	}

	stats, err := source.DeckStats(t.Context(), "")
	if err != nil {
		t.Fatalf("Failed to fetch deck stats: %v", err)
	}
	if stats.DueCount != 0 {
		t.Errorf("Expected nothing due after the deck was served, got %d", stats.DueCount)
	}
}

func TestGradeIsAccepted(t *testing.T) {
	source := New()
	if err := source.Grade(t.Context(), "demo-1", cards.VerdictCorrect); err != nil {
		t.Errorf("Expected grading to succeed, got %v", err)
	}
}
