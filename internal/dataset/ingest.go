// Package dataset validates and normalizes externally supplied datasets into
// knowledge entries. It is the only write path into the knowledge store
// besides the built-in seed data.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mirutec/sage/internal/knowledge"
	"github.com/mirutec/sage/internal/log"
)

// Supported payload formats.
const (
	FormatJSON  = "json"  // a single JSON array of records
	FormatJSONL = "jsonl" // newline-delimited JSON records
)

// DefaultMaxPayloadBytes caps uploads before any parsing happens, bounding
// worst-case ingestion latency.
const DefaultMaxPayloadBytes = 5 << 20 // 5 MiB

// Sentinel errors. All are validation-class: the knowledge store is left
// untouched when any of them is returned.
var (
	ErrPayloadTooLarge   = errors.New("dataset payload too large")
	ErrEmptyPayload      = errors.New("dataset payload is empty")
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrMalformedPayload  = errors.New("malformed dataset payload")
	ErrNoValidRecords    = errors.New("dataset contains no valid records")
	ErrMissingName       = errors.New("dataset name is required")
)

// fieldVariants enumerates the accepted record shapes, tried in this fixed
// order. The first variant whose both fields are present and non-empty wins;
// the order is part of the contract so behavior never depends on map
// iteration order.
var fieldVariants = []struct {
	input  string
	output string
}{
	{"input", "output"},
	{"question", "answer"},
	{"prompt", "response"},
}

// EntryAdder is the slice of the knowledge store the ingestor needs.
type EntryAdder interface {
	Add(pairs []knowledge.Pair, source string) int
}

// Registrar records accepted datasets in a durable archive. Optional.
type Registrar interface {
	RegisterDataset(ctx context.Context, id, name, description, format string, records int) error
}

// Result reports a completed ingestion.
type Result struct {
	DatasetID    string
	RecordsAdded int
}

// Ingestor parses, validates, and normalizes dataset payloads.
type Ingestor struct {
	store     EntryAdder
	registrar Registrar // nil when no archive is configured
	maxBytes  int
	logger    log.Logger
}

// New creates an Ingestor. registrar may be nil; maxBytes <= 0 falls back to
// DefaultMaxPayloadBytes.
func New(store EntryAdder, registrar Registrar, maxBytes int, logger log.Logger) *Ingestor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayloadBytes
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Ingestor{
		store:     store,
		registrar: registrar,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Ingest validates payload, normalizes its records, and adds them to the
// knowledge store under the dataset name as source.
//
// Individual records that match no accepted shape, or whose input/output is
// empty after trimming, are skipped. A payload that is malformed at the top
// level (invalid JSON array, or any unparsable JSONL line) fails the whole
// ingestion before the store is touched — ingestion is atomic.
func (ing *Ingestor) Ingest(ctx context.Context, name, description, format string, payload []byte) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, ErrMissingName
	}
	if len(payload) == 0 {
		return Result{}, ErrEmptyPayload
	}
	if len(payload) > ing.maxBytes {
		return Result{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrPayloadTooLarge, len(payload), ing.maxBytes)
	}

	var (
		records []map[string]any
		err     error
	)
	switch format {
	case FormatJSON:
		records, err = parseJSON(payload)
	case FormatJSONL:
		records, err = parseJSONL(payload)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Result{}, err
	}

	pairs := normalizeRecords(records)
	if len(pairs) == 0 {
		return Result{}, fmt.Errorf("%w: %d records, none matched an accepted shape", ErrNoValidRecords, len(records))
	}

	added := ing.store.Add(pairs, name)
	result := Result{
		DatasetID:    uuid.New().String(),
		RecordsAdded: added,
	}

	if ing.registrar != nil {
		if regErr := ing.registrar.RegisterDataset(ctx, result.DatasetID, name, description, format, added); regErr != nil {
			// The archive is best-effort; the in-memory store is authoritative.
			ing.logger.Warn("failed to archive dataset registration",
				"dataset", name, "error", regErr)
		}
	}

	ing.logger.Info("dataset ingested",
		"dataset", name,
		"format", format,
		"records", len(records),
		"valid", len(pairs),
		"added", added,
	)
	return result, nil
}

// parseJSON decodes a JSON array of objects. Non-object elements are carried
// through as nil and skipped during normalization.
func parseJSON(payload []byte) ([]map[string]any, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of records: %w", ErrMalformedPayload, err)
	}

	records := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		var rec map[string]any
		if err := json.Unmarshal(item, &rec); err != nil {
			// Array element that is not an object: skipped, not fatal.
			records = append(records, nil)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseJSONL decodes newline-delimited records. Blank lines are ignored; a
// line that is not valid JSON makes the whole payload malformed.
func parseJSONL(payload []byte) ([]map[string]any, error) {
	var records []map[string]any
	for i, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedPayload, i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// normalizeRecords maps each record onto the canonical pair shape using the
// fixed variant priority. Records matching no variant are dropped.
func normalizeRecords(records []map[string]any) []knowledge.Pair {
	pairs := make([]knowledge.Pair, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if pair, ok := normalizeRecord(rec); ok {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

// normalizeRecord tries each accepted field variant in order and returns the
// first complete pair.
func normalizeRecord(rec map[string]any) (knowledge.Pair, bool) {
	for _, v := range fieldVariants {
		input, okIn := stringField(rec, v.input)
		output, okOut := stringField(rec, v.output)
		if okIn && okOut {
			return knowledge.Pair{Input: input, Output: output}, true
		}
	}
	return knowledge.Pair{}, false
}

// stringField extracts a non-empty trimmed string field.
func stringField(rec map[string]any, key string) (string, bool) {
	val, ok := rec[key]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
