// Package retrieval scores and ranks knowledge entries against incoming
// queries. Scoring is deterministic: the lexical similarity is multiplied by
// the entry's current quality weight, and ties break on entry ID so results
// are reproducible.
package retrieval

import (
	"sort"

	"github.com/mirutec/sage/internal/knowledge"
	"github.com/mirutec/sage/internal/log"
)

// EntrySource supplies the entry snapshot to rank. *knowledge.Store satisfies
// this; the interface is defined here, by the consumer.
type EntrySource interface {
	All() []knowledge.Entry
}

// Match is one ranked retrieval result.
type Match struct {
	Entry      knowledge.Entry
	Similarity float64 // raw lexical similarity in [0, 1]
	Score      float64 // Similarity * Entry.Weight — the ranking key
}

// Config bounds retrieval behavior.
type Config struct {
	TopK     int     // maximum results returned
	MinScore float64 // results below this final score are discarded
}

// DefaultConfig mirrors the recall-friendly thresholds of the production
// knowledge base: a low floor keeps marginal matches available for the
// composer's low-confidence phrasing tier.
var DefaultConfig = Config{TopK: 3, MinScore: 0.05}

// Retriever ranks entries from an EntrySource using a Similarity strategy.
type Retriever struct {
	source EntrySource
	sim    Similarity
	cfg    Config
	logger log.Logger
}

// New creates a Retriever. A nil strategy falls back to Lexical; a zero
// Config falls back to DefaultConfig.
func New(source EntrySource, sim Similarity, cfg Config, logger log.Logger) *Retriever {
	if sim == nil {
		sim = Lexical{}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig.TopK
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultConfig.MinScore
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Retriever{source: source, sim: sim, cfg: cfg, logger: logger}
}

// Retrieve ranks all entries against the query and returns at most topK
// matches with Score >= minScore, ordered by Score descending, ties broken by
// entry ID ascending. An empty store or a query that clears nothing returns
// an empty slice — never an error; the composer turns that into a fallback
// reply.
func (r *Retriever) Retrieve(query string, topK int, minScore float64) []Match {
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	if minScore <= 0 {
		minScore = r.cfg.MinScore
	}

	q := NewQuery(query)
	if len(q.Terms) == 0 {
		return nil
	}

	entries := r.source.All()
	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		sim := r.sim.Score(q, e)
		if sim <= 0 {
			continue
		}
		score := sim * e.Weight
		if score < minScore {
			continue
		}
		matches = append(matches, Match{Entry: e, Similarity: sim, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Entry.ID < matches[j].Entry.ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	r.logger.Debug("retrieval completed",
		"query_terms", len(q.Terms),
		"candidates", len(entries),
		"matches", len(matches),
	)
	return matches
}
