package knowledge

import (
	"strings"
	"unicode"
)

// Pair is one raw question/answer record before it is admitted to the store.
// Ingestion and seed data produce Pairs; the store turns them into Entries.
type Pair struct {
	Input  string
	Output string
}

// Entry is one canonical question/answer pair with provenance and a learned
// quality weight.
//
// Terms is built once at insertion and never mutated afterwards, so snapshots
// returned by Store.All may share the map. Treat it as read-only.
type Entry struct {
	ID     string              // deterministic: source + hash of normalized input
	Input  string              // original question text
	Output string              // canonical answer text
	Source string              // dataset name or built-in source
	Terms  map[string]struct{} // normalized term set of Input
	Weight float64             // quality weight, clamped to [Weights.Min, Weights.Max]
}

// Weights bounds the quality weight of an entry. New entries start at Neutral;
// feedback moves the weight within [Min, Max]. Min acts as a soft-deprecation
// floor: entries are never deleted, only demoted out of ranking.
type Weights struct {
	Min     float64
	Max     float64
	Neutral float64
}

// DefaultWeights are the production defaults. Neutral 1.0 makes the weight a
// transparent multiplier for unrated entries.
var DefaultWeights = Weights{Min: 0.1, Max: 2.0, Neutral: 1.0}

// stopwords are dropped during term extraction. The list is intentionally
// small: it removes function words that would otherwise dominate the overlap
// between any two English questions.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "am": {},
	"i": {}, "my": {}, "me": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "and": {}, "or": {}, "do": {}, "does": {}, "how": {},
	"what": {}, "can": {}, "you": {}, "your": {}, "it": {}, "with": {},
	"this": {}, "that": {},
}

// Normalize lowercases s, strips punctuation, and collapses whitespace.
// It is applied identically to stored inputs and incoming queries so that
// matching is insensitive to case and punctuation.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
		// Everything else (punctuation, symbols) is dropped.
	}

	return strings.TrimRight(b.String(), " ")
}

// TermSet tokenizes the normalized form of s and removes stopwords.
// If stopword removal would leave nothing (pure small talk such as
// "how are you"), the full token set is kept so the query still has terms
// to match against.
func TermSet(s string) map[string]struct{} {
	tokens := strings.Fields(Normalize(s))
	terms := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		terms[tok] = struct{}{}
	}

	if len(terms) == 0 {
		for _, tok := range tokens {
			terms[tok] = struct{}{}
		}
	}

	return terms
}
