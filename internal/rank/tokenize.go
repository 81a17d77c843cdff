// Package rank implements the co-occurrence ranking pipeline used by history
// search: tokenization, token pairs, hit counting, rank-decay weighting,
// bounded top-K selection and snippet extraction.
package rank

import (
	"strings"
	"unicode"
)

// MaxTokens is the default cap on the number of query tokens.
const MaxTokens = 10

// isCJK reports whether r is in the CJK Unified Ideographs block.
func isCJK(r rune) bool {
	return r >= '\u4e00' && r <= '\u9fff'
}

// Lower lowercases s rune for rune. Unlike strings.ToLower it never changes
// the rune count, so rune offsets in the result are valid in s.
func Lower(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// Tokenize splits text into search tokens: each CJK ideograph is a token of
// its own, and every run of other letters becomes one lowercased token.
// Digits, punctuation and whitespace only end a run. Tokens keep their order
// of first appearance, duplicates are dropped, and at most max tokens are
// returned (max <= 0 means MaxTokens).
func Tokenize(text string, max int) []string {
	if max <= 0 {
		max = MaxTokens
	}

	var (
		tokens []string
		run    strings.Builder
	)
	flush := func() {
		if run.Len() > 0 {
			tokens = append(tokens, Lower(run.String()))
			run.Reset()
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r):
			run.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == max {
			break
		}
	}
	return out
}
