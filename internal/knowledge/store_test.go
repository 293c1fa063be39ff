package knowledge

import (
	"errors"
	"sync"
	"testing"

	"github.com/mirutec/sage/internal/log"
)

func newTestStore() *Store {
	return NewStore(DefaultWeights, log.NewNop())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "Hello World", "hello world"},
		{"punctuation stripped", "What's your return-policy?!", "whats your returnpolicy"},
		{"whitespace collapsed", "  a \t b\n c  ", "a b c"},
		{"empty", "   ", ""},
		{"digits kept", "ticket 4579", "ticket 4579"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTermSet_DropsStopwords(t *testing.T) {
	terms := TermSet("What is your return policy?")

	if _, ok := terms["return"]; !ok {
		t.Error("expected term 'return'")
	}
	if _, ok := terms["policy"]; !ok {
		t.Error("expected term 'policy'")
	}
	if _, ok := terms["what"]; ok {
		t.Error("stopword 'what' should be dropped")
	}
}

func TestTermSet_KeepsAllWhenOnlyStopwords(t *testing.T) {
	terms := TermSet("how are you")
	if len(terms) != 3 {
		t.Fatalf("expected full token set for pure stopword input, got %v", terms)
	}
}

func TestStoreAdd_Deduplicates(t *testing.T) {
	s := newTestStore()

	pairs := []Pair{
		{Input: "What is your return policy?", Output: "30 days"},
		{Input: "what is your RETURN policy", Output: "different text, same normalized input"},
	}

	if added := s.Add(pairs, "faq"); added != 1 {
		t.Errorf("Add() = %d, want 1 (normalized duplicate)", added)
	}

	// Re-ingesting the identical dataset must not create duplicates.
	if added := s.Add(pairs, "faq"); added != 0 {
		t.Errorf("repeated Add() = %d, want 0", added)
	}
	if got := s.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}

	// Same input under a different source is a distinct entry.
	if added := s.Add(pairs[:1], "other"); added != 1 {
		t.Errorf("Add(other source) = %d, want 1", added)
	}
}

func TestStoreAdd_SkipsInvalidPairs(t *testing.T) {
	s := newTestStore()

	added := s.Add([]Pair{
		{Input: "", Output: "answer"},
		{Input: "question", Output: "   "},
		{Input: "?!", Output: "answer"}, // empty after normalization
		{Input: "valid", Output: "answer"},
	}, "ds")

	if added != 1 {
		t.Errorf("Add() = %d, want 1", added)
	}
}

func TestStoreAdd_EmptyInputIsNoOp(t *testing.T) {
	s := newTestStore()
	if added := s.Add(nil, "ds"); added != 0 {
		t.Errorf("Add(nil) = %d, want 0", added)
	}
}

func TestStoreAdd_DeterministicIDs(t *testing.T) {
	a := newTestStore()
	b := newTestStore()
	pairs := []Pair{{Input: "Where is my order?", Output: "On its way."}}

	a.Add(pairs, "faq")
	b.Add(pairs, "faq")

	if a.All()[0].ID != b.All()[0].ID {
		t.Errorf("entry ids differ across stores: %q vs %q", a.All()[0].ID, b.All()[0].ID)
	}
}

func TestAdjustWeight_Clamps(t *testing.T) {
	s := newTestStore()
	s.Add([]Pair{{Input: "q", Output: "a"}}, "ds")
	id := s.All()[0].ID

	// Repeated positive adjustments saturate at Max, never past it.
	for range 100 {
		w, err := s.AdjustWeight(id, 0.2)
		if err != nil {
			t.Fatalf("AdjustWeight: %v", err)
		}
		if w > DefaultWeights.Max {
			t.Fatalf("weight %v exceeds max %v", w, DefaultWeights.Max)
		}
	}
	if w, _ := s.Weight(id); w != DefaultWeights.Max {
		t.Errorf("weight = %v, want max %v", w, DefaultWeights.Max)
	}

	// And negative adjustments saturate at Min.
	for range 100 {
		if _, err := s.AdjustWeight(id, -0.2); err != nil {
			t.Fatalf("AdjustWeight: %v", err)
		}
	}
	if w, _ := s.Weight(id); w != DefaultWeights.Min {
		t.Errorf("weight = %v, want min %v", w, DefaultWeights.Min)
	}
}

func TestAdjustWeight_UnknownEntry(t *testing.T) {
	s := newTestStore()
	if _, err := s.AdjustWeight("missing", 0.1); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("AdjustWeight(unknown) error = %v, want ErrEntryNotFound", err)
	}
}

func TestStore_ConcurrentAddAndRead(t *testing.T) {
	s := newTestStore()
	s.Add([]Pair{{Input: "base question", Output: "base answer"}}, "seed")
	id := s.All()[0].ID

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.Add([]Pair{{Input: string(rune('a'+n)) + " question", Output: "answer"}}, "concurrent")
		}(i)
		go func() {
			defer wg.Done()
			_, _ = s.AdjustWeight(id, 0.01)
			_ = s.All()
		}()
	}
	wg.Wait()

	if got := s.Count(); got != 21 {
		t.Errorf("Count() = %d, want 21", got)
	}
}

func TestSeed(t *testing.T) {
	s := newTestStore()
	added := Seed(s)
	if added == 0 {
		t.Fatal("Seed() added nothing")
	}

	// Seeding twice must not duplicate.
	if again := Seed(s); again != 0 {
		t.Errorf("second Seed() = %d, want 0", again)
	}

	counts := s.Sources()
	if counts[SourceInternal] == 0 || counts[SourceExternal] == 0 {
		t.Errorf("Sources() = %v, want entries under both built-in sources", counts)
	}
}
