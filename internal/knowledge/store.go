package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/mirutec/sage/internal/log"
)

// ErrEntryNotFound indicates a weight adjustment referenced an unknown entry.
// Check with errors.Is().
var ErrEntryNotFound = errors.New("knowledge entry not found")

// Store owns the canonical collection of question/answer entries and their
// quality weights. It is the single writer for all entry state; the retriever
// only ever sees snapshots taken through All.
//
// Store is safe for concurrent use by multiple goroutines. Mutations (Add,
// AdjustWeight) are serialized against each other and against snapshots, so a
// reader always observes either the pre- or post-mutation state, never a
// partially applied merge.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	byKey   map[string]int // dedupe key (normalized input + source) -> index
	byID    map[string]int // entry ID -> index
	weights Weights
	logger  log.Logger
}

// NewStore creates an empty Store with the given weight bounds.
// A zero Weights value falls back to DefaultWeights.
func NewStore(weights Weights, logger log.Logger) *Store {
	if weights == (Weights{}) {
		weights = DefaultWeights
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Store{
		byKey:   make(map[string]int),
		byID:    make(map[string]int),
		weights: weights,
		logger:  logger,
	}
}

// Add inserts the given pairs under the named source and returns how many
// entries were actually created. Pairs whose input or output is empty after
// trimming are skipped. A pair whose (normalized input, source) key already
// exists is skipped, which makes repeated ingestion of the same dataset
// idempotent. Empty input is a no-op returning 0, not an error.
func (s *Store) Add(pairs []Pair, source string) int {
	if len(pairs) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, p := range pairs {
		norm := Normalize(p.Input)
		if norm == "" || Normalize(p.Output) == "" {
			continue
		}

		key := norm + "\x00" + source
		if _, exists := s.byKey[key]; exists {
			continue
		}

		entry := Entry{
			ID:     entryID(source, norm),
			Input:  p.Input,
			Output: p.Output,
			Source: source,
			Terms:  TermSet(p.Input),
			Weight: s.weights.Neutral,
		}

		s.byKey[key] = len(s.entries)
		s.byID[entry.ID] = len(s.entries)
		s.entries = append(s.entries, entry)
		added++
	}

	s.logger.Debug("added knowledge entries",
		"source", source, "offered", len(pairs), "added", added)
	return added
}

// All returns a read-only snapshot of every entry. The slice is a copy;
// the Terms maps are shared and must not be mutated by callers.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]Entry, len(s.entries))
	copy(snapshot, s.entries)
	return snapshot
}

// Count returns the total number of entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sources returns the entry count per source name.
func (s *Store) Sources() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.entries {
		counts[e.Source]++
	}
	return counts
}

// AdjustWeight applies delta to the entry's quality weight, clamping the
// result to [Weights.Min, Weights.Max], and returns the new weight.
// Returns ErrEntryNotFound for unknown ids.
func (s *Store) AdjustWeight(entryID string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[entryID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}

	w := s.entries[idx].Weight + delta
	if w < s.weights.Min {
		w = s.weights.Min
	}
	if w > s.weights.Max {
		w = s.weights.Max
	}
	s.entries[idx].Weight = w

	s.logger.Debug("adjusted entry weight",
		"entry_id", entryID, "delta", delta, "weight", w)
	return w, nil
}

// Weight returns the current quality weight of an entry.
func (s *Store) Weight(entryID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[entryID]
	if !ok {
		return 0, false
	}
	return s.entries[idx].Weight, true
}

// entryID derives a deterministic entry ID from the source and the normalized
// input, so re-ingestion of the same data always yields the same ids.
func entryID(source, normInput string) string {
	sum := sha256.Sum256([]byte(source + "\x00" + normInput))
	return source + ":" + hex.EncodeToString(sum[:8])
}
