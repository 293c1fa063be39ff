// Package compose turns ranked retrieval matches into user-facing replies.
// Small talk is answered from a fixed table before retrieval runs; answers
// are phrased by confidence band; no matches yields one fixed fallback so
// behavior stays deterministic and testable.
package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/mirutec/sage/internal/knowledge"
	"github.com/mirutec/sage/internal/log"
	"github.com/mirutec/sage/internal/retrieval"
)

// Confidence bands on the top match's raw similarity.
const (
	highConfidence   = 0.7
	mediumConfidence = 0.4
)

// FallbackReply is returned verbatim whenever retrieval produces no matches.
const FallbackReply = "I understand your question, but I don't have a specific answer in my current knowledge base. However, I'd be happy to help you connect with our support team who can provide personalized assistance with your inquiry. Is there anything else I can help you with in the meantime?"

// smallTalk maps conversational phrases to canned replies. Matching is
// substring over the normalized query, in this fixed order so overlapping
// phrases ("goodbye" contains "bye") resolve the same way every time.
var smallTalk = []struct {
	phrase string
	reply  string
}{
	{"good morning", "Good morning! How can I assist you today?"},
	{"good evening", "Good evening! What can I help you with?"},
	{"how are you", "I'm doing great and ready to help! What can I assist you with?"},
	{"what is your name", "I'm your AI support assistant. I'm here to help with any questions you have."},
	{"who are you", "I'm an AI assistant trained to help with customer support and general inquiries."},
	{"thank you", "You're welcome! Is there anything else I can help you with?"},
	{"thanks", "Happy to help! Let me know if you need anything else."},
	{"goodbye", "Take care! I'm here whenever you need help."},
	{"hello", "Hello! I'm your AI assistant. How can I help you today?"},
	{"hey", "Hey! I'm here to help. What do you need?"},
	{"hi", "Hi there! What can I assist you with?"},
	{"bye", "Goodbye! Feel free to reach out if you need any assistance in the future."},
}

// Citation records which knowledge entry contributed to a reply. The entry ID
// is what feedback attribution keys on.
type Citation struct {
	EntryID    string  `json:"entry_id"`
	Input      string  `json:"input"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
}

// Reply is a composed answer with its provenance.
type Reply struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
	Refined   bool       `json:"refined,omitempty"`
}

// Refiner optionally rephrases a composed reply. Implementations must treat
// failure as recoverable; the caller falls back to the unrefined text.
type Refiner interface {
	Refine(ctx context.Context, query, reply string) (string, error)
}

// Composer builds replies from retrieval output.
type Composer struct {
	refiner Refiner // nil disables refinement
	logger  log.Logger
}

// New creates a Composer. refiner may be nil.
func New(refiner Refiner, logger log.Logger) *Composer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Composer{refiner: refiner, logger: logger}
}

// SmallTalk answers conversational queries from the fixed table. The boolean
// reports whether the query was small talk; when true, retrieval is skipped.
func (c *Composer) SmallTalk(query string) (string, bool) {
	norm := knowledge.Normalize(query)
	if norm == "" {
		return "", false
	}
	for _, st := range smallTalk {
		if strings.Contains(norm, st.phrase) {
			return st.reply, true
		}
	}
	return "", false
}

// Compose phrases the ranked matches into a reply. An empty match list
// returns the fixed fallback with no citations.
func (c *Composer) Compose(ctx context.Context, query string, matches []retrieval.Match) Reply {
	if len(matches) == 0 {
		return Reply{Text: FallbackReply}
	}

	best := matches[0]
	var text string
	switch {
	case best.Similarity > highConfidence:
		text = best.Entry.Output
	case best.Similarity > mediumConfidence:
		text = fmt.Sprintf("Based on similar queries, here's what I found:\n\n%s\n\nDoes this help with your question?", best.Entry.Output)
	default:
		text = fmt.Sprintf("I found some related information that might be helpful:\n\n%s\n\nIf this doesn't fully answer your question, please let me know and I can help you connect with our support team.", best.Entry.Output)
	}

	reply := Reply{Text: text, Citations: citations(matches)}

	if c.refiner != nil {
		refined, err := c.refiner.Refine(ctx, query, reply.Text)
		if err != nil {
			c.logger.Warn("reply refinement failed, using unrefined text", "error", err)
		} else if strings.TrimSpace(refined) != "" {
			reply.Text = refined
			reply.Refined = true
		}
	}
	return reply
}

func citations(matches []retrieval.Match) []Citation {
	out := make([]Citation, 0, len(matches))
	for _, m := range matches {
		out = append(out, Citation{
			EntryID:    m.Entry.ID,
			Input:      m.Entry.Input,
			Source:     m.Entry.Source,
			Similarity: m.Similarity,
			Score:      m.Score,
		})
	}
	return out
}
