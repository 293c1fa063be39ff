package compose

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mirutec/sage/internal/knowledge"
	"github.com/mirutec/sage/internal/log"
	"github.com/mirutec/sage/internal/retrieval"
)

func matchWith(sim float64) []retrieval.Match {
	e := knowledge.Entry{
		ID:     "src:abc",
		Input:  "How do I reset my password?",
		Output: "Use the reset link on the login page.",
		Source: "external",
		Weight: 1.0,
	}
	return []retrieval.Match{{Entry: e, Similarity: sim, Score: sim}}
}

func TestSmallTalk(t *testing.T) {
	c := New(nil, log.NewNop())

	tests := []struct {
		query string
		want  bool
	}{
		{"hello", true},
		{"Hello!!", true},
		{"hi there, quick question", true},
		{"thanks a lot", true},
		{"HOW ARE YOU", true},
		{"how do I reset my password", false},
		{"", false},
	}

	for _, tt := range tests {
		if _, got := c.SmallTalk(tt.query); got != tt.want {
			t.Errorf("SmallTalk(%q) matched = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestSmallTalk_Deterministic(t *testing.T) {
	c := New(nil, log.NewNop())

	first, ok := c.SmallTalk("hi, goodbye")
	if !ok {
		t.Fatal("expected small talk match")
	}
	for range 10 {
		again, _ := c.SmallTalk("hi, goodbye")
		if again != first {
			t.Fatal("overlapping phrases resolved differently across calls")
		}
	}
}

func TestCompose_HighConfidenceVerbatim(t *testing.T) {
	c := New(nil, log.NewNop())

	reply := c.Compose(context.Background(), "reset password", matchWith(0.9))
	if reply.Text != "Use the reset link on the login page." {
		t.Errorf("high-confidence reply = %q, want the entry output verbatim", reply.Text)
	}
	if len(reply.Citations) != 1 || reply.Citations[0].EntryID != "src:abc" {
		t.Errorf("Citations = %+v, want the matched entry", reply.Citations)
	}
}

func TestCompose_MediumConfidencePhrasing(t *testing.T) {
	c := New(nil, log.NewNop())

	reply := c.Compose(context.Background(), "reset password", matchWith(0.5))
	if !strings.HasPrefix(reply.Text, "Based on similar queries") {
		t.Errorf("medium-confidence reply = %q, want hedged phrasing", reply.Text)
	}
	if !strings.Contains(reply.Text, "Use the reset link on the login page.") {
		t.Error("reply does not contain the entry output")
	}
}

func TestCompose_LowConfidencePhrasing(t *testing.T) {
	c := New(nil, log.NewNop())

	reply := c.Compose(context.Background(), "reset password", matchWith(0.2))
	if !strings.HasPrefix(reply.Text, "I found some related information") {
		t.Errorf("low-confidence reply = %q, want tentative phrasing", reply.Text)
	}
}

func TestCompose_FallbackIsFixed(t *testing.T) {
	c := New(nil, log.NewNop())

	first := c.Compose(context.Background(), "anything", nil)
	if first.Text != FallbackReply {
		t.Errorf("fallback = %q, want FallbackReply", first.Text)
	}
	if len(first.Citations) != 0 {
		t.Errorf("fallback carries citations: %+v", first.Citations)
	}
	for range 5 {
		if c.Compose(context.Background(), "anything", nil).Text != first.Text {
			t.Fatal("fallback reply is not deterministic")
		}
	}
}

// stubRefiner lets tests drive the refinement path without a live model.
type stubRefiner struct {
	out string
	err error
}

func (s stubRefiner) Refine(context.Context, string, string) (string, error) {
	return s.out, s.err
}

func TestCompose_RefinerApplied(t *testing.T) {
	c := New(stubRefiner{out: "polished reply"}, log.NewNop())

	reply := c.Compose(context.Background(), "q", matchWith(0.9))
	if reply.Text != "polished reply" || !reply.Refined {
		t.Errorf("reply = %+v, want refined text", reply)
	}
}

func TestCompose_RefinerFailureDegrades(t *testing.T) {
	c := New(stubRefiner{err: errors.New("model unavailable")}, log.NewNop())

	reply := c.Compose(context.Background(), "q", matchWith(0.9))
	if reply.Text != "Use the reset link on the login page." || reply.Refined {
		t.Errorf("reply = %+v, want unrefined fallback on refiner error", reply)
	}
}

func TestCompose_RefinerEmptyOutputIgnored(t *testing.T) {
	c := New(stubRefiner{out: "   "}, log.NewNop())

	reply := c.Compose(context.Background(), "q", matchWith(0.9))
	if reply.Refined {
		t.Error("blank refiner output should be discarded")
	}
}
