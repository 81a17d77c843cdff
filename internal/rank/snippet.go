package rank

import (
	"strings"
	"unicode/utf8"
)

// DefaultSnippetRadius is the number of characters kept on each side of the
// snippet pivot.
const DefaultSnippetRadius = 100

// Snippet extracts a window of body around the first pair (in generator
// order) whose tokens both occur in it. The pivot is the earlier of the two
// tokens' first occurrences; without a matching pair it is the start of body.
// The window spans radius characters on each side of the pivot and is marked
// with "..." on every side where it was clipped. Offsets count runes.
func Snippet(body string, pairs []Pair, radius int) string {
	if radius <= 0 {
		radius = DefaultSnippetRadius
	}
	lower := Lower(body)

	pivot := 0
	for _, p := range pairs {
		a := runeIndex(lower, p.A)
		if a < 0 {
			continue
		}
		b := runeIndex(lower, p.B)
		if b < 0 {
			continue
		}
		pivot = min(a, b)
		break
	}

	runes := []rune(body)
	start := max(0, pivot-radius)
	end := min(len(runes), pivot+radius)

	var sb strings.Builder
	if start > 0 {
		sb.WriteString("...")
	}
	sb.WriteString(string(runes[start:end]))
	if end < len(runes) {
		sb.WriteString("...")
	}
	return sb.String()
}

// runeIndex is strings.Index measured in runes. Lower keeps rune counts, so
// an offset into the lowered body is also an offset into the original.
func runeIndex(s, sub string) int {
	i := strings.Index(s, sub)
	if i < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:i])
}
