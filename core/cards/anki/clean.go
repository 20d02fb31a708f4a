package anki

import (
	"html"
	"strings"
)

// cleanField strips the HTML the note service embeds in card fields so the
// dialogue agent is prompted with plain text. Block-level breaks become
// spaces to keep sentences intact.
func cleanField(value string) string {
	var out strings.Builder
	inTag := false
	for _, r := range value {
		switch {
		case r == '<':
			inTag = true
			out.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}

	cleaned := html.UnescapeString(out.String())
	return strings.Join(strings.Fields(cleaned), " ")
}
