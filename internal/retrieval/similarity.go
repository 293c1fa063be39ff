package retrieval

import (
	"strings"

	"github.com/mirutec/sage/internal/knowledge"
)

// Query is a pre-normalized incoming question. Build one with NewQuery; the
// normalization pipeline is the same one applied to stored entries, so
// matching is symmetric.
type Query struct {
	Raw   string
	Norm  string
	Terms map[string]struct{}
}

// NewQuery normalizes and tokenizes a raw query string.
func NewQuery(raw string) Query {
	return Query{
		Raw:   raw,
		Norm:  knowledge.Normalize(raw),
		Terms: knowledge.TermSet(raw),
	}
}

// Similarity scores the lexical closeness of a query to an entry, in [0, 1].
// Implementations must be deterministic and safe for concurrent use.
//
// The default is Lexical. An embedding-based strategy can be swapped in later
// without touching the retriever.
type Similarity interface {
	Score(q Query, e knowledge.Entry) float64
}

// phraseBoost is added when one normalized text contains the other whole.
const phraseBoost = 0.3

// keywordBoost is added per domain keyword shared by query and entry.
const keywordBoost = 0.1

// domainKeywords are high-signal support terms. Sharing one of these is a far
// stronger relevance signal than sharing an arbitrary token.
var domainKeywords = []string{
	"login", "password", "account", "payment", "refund",
	"cancel", "upgrade", "subscription",
}

// Lexical is the default deterministic similarity strategy: Jaccard overlap
// of the term sets, boosted by whole-phrase containment and shared domain
// keywords, capped at 1.0.
type Lexical struct{}

// Score implements Similarity.
func (Lexical) Score(q Query, e knowledge.Entry) float64 {
	if len(q.Terms) == 0 || len(e.Terms) == 0 {
		return 0
	}

	intersection := 0
	for term := range q.Terms {
		if _, ok := e.Terms[term]; ok {
			intersection++
		}
	}
	union := len(q.Terms) + len(e.Terms) - intersection

	score := float64(intersection) / float64(union)

	entryNorm := knowledge.Normalize(e.Input)
	if q.Norm != "" && entryNorm != "" &&
		(strings.Contains(entryNorm, q.Norm) || strings.Contains(q.Norm, entryNorm)) {
		score += phraseBoost
	}

	for _, kw := range domainKeywords {
		if _, inQuery := q.Terms[kw]; !inQuery {
			continue
		}
		if _, inEntry := e.Terms[kw]; inEntry {
			score += keywordBoost
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
