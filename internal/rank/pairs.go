package rank

import "strings"

// Pair is an unordered pair of distinct query tokens.
type Pair struct {
	A string
	B string
}

// Pairs returns every 2-combination of tokens in combinatorial order:
// (t0,t1), (t0,t2), ..., (t1,t2), ... A sequence of n tokens yields n*(n-1)/2
// pairs; fewer than two tokens yield none.
func Pairs(tokens []string) []Pair {
	n := len(tokens)
	if n < 2 {
		return nil
	}
	pairs := make([]Pair, 0, n*(n-1)/2)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, Pair{A: tokens[i], B: tokens[j]})
		}
	}
	return pairs
}

// CountHits returns how many pairs have both tokens present in body.
// Matching is case-insensitive substring containment, so a token also
// matches inside a longer word.
func CountHits(body string, pairs []Pair) int {
	if len(pairs) == 0 || body == "" {
		return 0
	}
	lower := Lower(body)

	// Each token usually appears in several pairs.
	present := make(map[string]bool)
	contains := func(tok string) bool {
		v, ok := present[tok]
		if !ok {
			v = strings.Contains(lower, tok)
			present[tok] = v
		}
		return v
	}

	hits := 0
	for _, p := range pairs {
		if contains(p.A) && contains(p.B) {
			hits++
		}
	}
	return hits
}
