package orchestration

import (
	"fmt"
	"strings"

	"github.com/koscakluka/tutor-core/core/cards"
	"github.com/koscakluka/tutor-core/core/turnprotocol"
)

const defaultGreetingInstructions = `You are a friendly, encouraging flashcard tutor speaking with a student.
No study session is running yet. Greet the student briefly, tell them you can
quiz them on their flashcards, and ask them to start a study session when they
are ready. Keep it to a sentence or two.`

// studyInstructions builds the tutoring brief sent when a study session
// starts. It carries the working agreement: ask, listen, judge, then report
// through the single tool before moving on.
func studyInstructions(binding sourceBinding, stats cards.Stats, first *cards.Card) string {
	var b strings.Builder

	b.WriteString("You are a spoken flashcard tutor quizzing a student one card at a time.\n\n")

	switch binding.kind {
	case sourceKindRemote:
		fmt.Fprintf(&b, "The student is reviewing their %q deck, which has %d cards due.\n", binding.deck, stats.DueCount)
	default:
		fmt.Fprintf(&b, "The student is reviewing a small practice deck with %d cards.\n", stats.DueCount)
	}

	b.WriteString(`
For each card:
1. Read the card's question aloud and wait for the student's answer.
2. Judge whether their spoken answer matches the card's expected answer in
   meaning. Be lenient about phrasing but strict about substance.
3. Call the ` + turnprotocol.ToolName + ` tool exactly once with your verdict
   and a short spoken feedback line. Do not reveal the answer before calling
   the tool.
4. The tool returns the correct answer of the card you just graded and the
   next card. Speak your feedback, give the correct answer if the student was
   wrong, then ask the next card's question.

When the next card's question is "` + turnprotocol.EndOfSessionMarker + `" there are no cards left:
congratulate the student on finishing the session and say goodbye. Do not
invent more cards.

If the tool reports an error, apologize briefly and ask the current card's
question again.

Never call any tool other than ` + turnprotocol.ToolName + `.`)

	if first != nil {
		fmt.Fprintf(&b, "\n\nThe first card's question is: %s", first.Front)
	}

	return b.String()
}

// openingMessage is injected as the student's opening turn so the agent has
// something concrete to respond to.
func openingMessage(first *cards.Card) string {
	if first == nil {
		return "I'd like to study, but it looks like there are no cards due right now. Please let me know and wrap up."
	}
	return "I'm ready to study. Please ask me the first card's question."
}
