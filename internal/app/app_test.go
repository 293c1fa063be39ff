package app

import (
	"context"
	"testing"

	"github.com/mirutec/sage/internal/config"
	"github.com/mirutec/sage/internal/log"
)

func testConfig() *config.Config {
	return &config.Config{
		TopK:           3,
		MinScore:       0.05,
		WeightMin:      0.1,
		WeightMax:      2.0,
		WeightNeutral:  1.0,
		LearningRate:   0.1,
		MaxUploadBytes: 1 << 20,
		RateLimitRPS:   10,
		RateLimitBurst: 20,
		ServiceName:    "sage-test",
	}
}

func TestSetup_InMemory(t *testing.T) {
	ctx := context.Background()

	a, err := Setup(ctx, testConfig(), log.NewNop())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() {
		if err := a.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	if a.Knowledge.Count() == 0 {
		t.Error("knowledge store not seeded")
	}
	if a.Archive != nil {
		t.Error("archive created without a database URL")
	}

	// A full turn through the wired engine.
	res := a.Assistant.Chat(ctx, "I forgot my password", "")
	if res.SessionID == "" || res.Reply.Text == "" {
		t.Errorf("chat turn = %+v", res)
	}
}

func TestSetup_FeedbackReachesKnowledge(t *testing.T) {
	ctx := context.Background()

	a, err := Setup(ctx, testConfig(), log.NewNop())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = a.Close(ctx) }()

	res := a.Assistant.Chat(ctx, "I forgot my password", "s1")
	if len(res.Reply.Citations) == 0 {
		t.Fatal("no citations to rate")
	}
	id := res.Reply.Citations[0].EntryID
	before, _ := a.Knowledge.Weight(id)

	entryIDs := a.Assistant.Provenance("s1", res.Reply.Text)
	if _, err := a.Feedback.Submit(ctx, "s1", "I forgot my password", res.Reply.Text, 5, "", entryIDs); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	after, _ := a.Knowledge.Weight(id)
	if after <= before {
		t.Errorf("weight unchanged by feedback: %v -> %v", before, after)
	}
}
