package dataset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mirutec/sage/internal/knowledge"
	"github.com/mirutec/sage/internal/log"
)

func newTestIngestor() (*Ingestor, *knowledge.Store) {
	store := knowledge.NewStore(knowledge.DefaultWeights, log.NewNop())
	return New(store, nil, 0, log.NewNop()), store
}

func TestIngest_JSONArray(t *testing.T) {
	ing, store := newTestIngestor()

	payload := []byte(`[
		{"input": "How do I reset my password?", "output": "Use the reset link."},
		{"input": "Where is my order?", "output": "Check the tracking page."}
	]`)

	res, err := ing.Ingest(context.Background(), "faq", "", FormatJSON, payload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.RecordsAdded != 2 {
		t.Errorf("RecordsAdded = %d, want 2", res.RecordsAdded)
	}
	if res.DatasetID == "" {
		t.Error("DatasetID is empty")
	}
	if store.Count() != 2 {
		t.Errorf("store.Count() = %d, want 2", store.Count())
	}
}

func TestIngest_JSONL(t *testing.T) {
	ing, store := newTestIngestor()

	payload := []byte(`{"question": "Can I get a refund?", "answer": "Within 30 days, yes."}

{"prompt": "Do you ship abroad?", "response": "To most countries."}
`)

	res, err := ing.Ingest(context.Background(), "support", "", FormatJSONL, payload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.RecordsAdded != 2 {
		t.Errorf("RecordsAdded = %d, want 2", res.RecordsAdded)
	}
	if store.Count() != 2 {
		t.Errorf("store.Count() = %d, want 2", store.Count())
	}
}

func TestIngest_FieldVariantPriority(t *testing.T) {
	ing, store := newTestIngestor()

	// A record carrying several variants resolves to input/output first.
	payload := []byte(`[{
		"input": "canonical question", "output": "canonical answer",
		"question": "secondary question", "answer": "secondary answer"
	}]`)

	if _, err := ing.Ingest(context.Background(), "mixed", "", FormatJSON, payload); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	entries := store.All()
	if len(entries) != 1 || entries[0].Input != "canonical question" {
		t.Errorf("entries = %+v, want the input/output variant to win", entries)
	}
}

func TestIngest_SkipsInvalidRecords(t *testing.T) {
	ing, _ := newTestIngestor()

	payload := []byte(`[
		{"input": "valid", "output": "valid answer"},
		{"input": "missing output"},
		{"input": "", "output": "empty input"},
		{"input": 42, "output": "non-string input"},
		"not an object"
	]`)

	res, err := ing.Ingest(context.Background(), "partial", "", FormatJSON, payload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.RecordsAdded != 1 {
		t.Errorf("RecordsAdded = %d, want 1", res.RecordsAdded)
	}
}

func TestIngest_MalformedJSON(t *testing.T) {
	ing, store := newTestIngestor()

	_, err := ing.Ingest(context.Background(), "bad", "", FormatJSON, []byte(`{"not": "an array"}`))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("Ingest(non-array) error = %v, want ErrMalformedPayload", err)
	}
	if store.Count() != 0 {
		t.Errorf("store modified by failed ingestion: Count() = %d", store.Count())
	}
}

func TestIngest_MalformedJSONLLineIsAtomic(t *testing.T) {
	ing, store := newTestIngestor()

	payload := []byte(`{"input": "fine", "output": "fine"}
this line is not json
{"input": "also fine", "output": "also fine"}`)

	_, err := ing.Ingest(context.Background(), "broken", "", FormatJSONL, payload)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("Ingest error = %v, want ErrMalformedPayload", err)
	}
	if store.Count() != 0 {
		t.Errorf("partial ingestion leaked %d entries into the store", store.Count())
	}
}

func TestIngest_NoValidRecords(t *testing.T) {
	ing, _ := newTestIngestor()

	_, err := ing.Ingest(context.Background(), "emptyish", "", FormatJSON, []byte(`[{"foo": "bar"}]`))
	if !errors.Is(err, ErrNoValidRecords) {
		t.Errorf("Ingest error = %v, want ErrNoValidRecords", err)
	}
}

func TestIngest_Validation(t *testing.T) {
	ing, _ := newTestIngestor()
	ctx := context.Background()
	ok := []byte(`[{"input": "q", "output": "a"}]`)

	if _, err := ing.Ingest(ctx, "  ", "", FormatJSON, ok); !errors.Is(err, ErrMissingName) {
		t.Errorf("blank name error = %v, want ErrMissingName", err)
	}
	if _, err := ing.Ingest(ctx, "ds", "", FormatJSON, nil); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("empty payload error = %v, want ErrEmptyPayload", err)
	}
	if _, err := ing.Ingest(ctx, "ds", "", "xml", ok); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("bad format error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestIngest_PayloadTooLarge(t *testing.T) {
	store := knowledge.NewStore(knowledge.DefaultWeights, log.NewNop())
	ing := New(store, nil, 64, log.NewNop())

	payload := []byte(`[{"input": "` + strings.Repeat("x", 100) + `", "output": "a"}]`)
	if _, err := ing.Ingest(context.Background(), "big", "", FormatJSON, payload); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("oversized payload error = %v, want ErrPayloadTooLarge", err)
	}
}

// recordingRegistrar captures the registration call for assertions.
type recordingRegistrar struct {
	calls int
	name  string
	err   error
}

func (r *recordingRegistrar) RegisterDataset(_ context.Context, _, name, _, _ string, _ int) error {
	r.calls++
	r.name = name
	return r.err
}

func TestIngest_RegistersDataset(t *testing.T) {
	store := knowledge.NewStore(knowledge.DefaultWeights, log.NewNop())
	reg := &recordingRegistrar{}
	ing := New(store, reg, 0, log.NewNop())

	payload := []byte(`[{"input": "q", "output": "a"}]`)
	if _, err := ing.Ingest(context.Background(), "archived", "desc", FormatJSON, payload); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if reg.calls != 1 || reg.name != "archived" {
		t.Errorf("registrar calls = %d name = %q, want one call for %q", reg.calls, reg.name, "archived")
	}
}

func TestIngest_RegistrarFailureIsNonFatal(t *testing.T) {
	store := knowledge.NewStore(knowledge.DefaultWeights, log.NewNop())
	reg := &recordingRegistrar{err: errors.New("archive down")}
	ing := New(store, reg, 0, log.NewNop())

	payload := []byte(`[{"input": "q", "output": "a"}]`)
	res, err := ing.Ingest(context.Background(), "flaky", "", FormatJSON, payload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.RecordsAdded != 1 {
		t.Errorf("RecordsAdded = %d, want 1 despite archive failure", res.RecordsAdded)
	}
}
