// Package feedback records user ratings and feeds them back into retrieval
// ranking. Records are append-only; the learning signal is applied to the
// knowledge entries that produced the rated response.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirutec/sage/internal/log"
)

// Rating bounds. NeutralRating divides positive from negative signal: a
// rating above it promotes the cited entries, below it demotes them.
const (
	MinRating     = 1
	MaxRating     = 5
	NeutralRating = 3
)

// DefaultLearningRate scales how hard one rating moves an entry's weight.
const DefaultLearningRate = 0.1

// Feedback scopes.
const (
	ScopeMessage = "message" // rates one assistant response
	ScopeSession = "session" // rates a whole conversation
)

// ErrInvalidRating reports a rating outside [MinRating, MaxRating].
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Record is one stored piece of feedback.
type Record struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Scope       string    `json:"scope"`
	UserMessage string    `json:"user_message,omitempty"`
	BotResponse string    `json:"bot_response,omitempty"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	EntryIDs    []string  `json:"entry_ids,omitempty"`
	// MessageCount is the conversation length reported with session-scoped
	// feedback; zero for message-scoped records.
	MessageCount int       `json:"message_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats aggregates all feedback received so far.
type Stats struct {
	TotalFeedback int     `json:"total_feedback"`
	AverageRating float64 `json:"average_rating"`
	PositiveCount int     `json:"positive_count"` // rating >= 4
	NegativeCount int     `json:"negative_count"` // rating <= 2
}

// WeightAdjuster applies a learning delta to a knowledge entry.
// *knowledge.Store satisfies this.
type WeightAdjuster interface {
	AdjustWeight(entryID string, delta float64) (float64, error)
}

// Archiver persists accepted records to durable storage. Optional; archive
// failures never fail the submission.
type Archiver interface {
	SaveFeedback(ctx context.Context, rec Record) error
}

// Store accumulates feedback and applies its learning signal. Safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []Record

	adjuster     WeightAdjuster
	archiver     Archiver // nil when no archive is configured
	learningRate float64
	logger       log.Logger
}

// NewStore creates a Store. archiver may be nil; learningRate <= 0 falls back
// to DefaultLearningRate.
func NewStore(adjuster WeightAdjuster, archiver Archiver, learningRate float64, logger log.Logger) *Store {
	if learningRate <= 0 {
		learningRate = DefaultLearningRate
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		adjuster:     adjuster,
		archiver:     archiver,
		learningRate: learningRate,
		logger:       logger,
	}
}

// Submit validates and stores a message-scoped rating, then nudges the
// weights of the entries that produced the rated response. entryIDs may be
// empty when the response was a fallback or small talk; the record is still
// kept so stats stay honest.
func (s *Store) Submit(ctx context.Context, sessionID, userMessage, botResponse string, rating int, comment string, entryIDs []string) (Record, error) {
	return s.add(ctx, Record{
		SessionID:   sessionID,
		Scope:       ScopeMessage,
		UserMessage: userMessage,
		BotResponse: botResponse,
		Rating:      rating,
		Comment:     comment,
		EntryIDs:    entryIDs,
	})
}

// SubmitSession stores a session-scoped rating. Session ratings carry no
// entry attribution; they only move the aggregate stats. messageCount is the
// conversation length the client reported alongside the rating.
func (s *Store) SubmitSession(ctx context.Context, sessionID string, rating int, comment string, messageCount int) (Record, error) {
	return s.add(ctx, Record{
		SessionID:    sessionID,
		Scope:        ScopeSession,
		Rating:       rating,
		Comment:      comment,
		MessageCount: messageCount,
	})
}

func (s *Store) add(ctx context.Context, rec Record) (Record, error) {
	if rec.Rating < MinRating || rec.Rating > MaxRating {
		return Record{}, fmt.Errorf("%w: got %d", ErrInvalidRating, rec.Rating)
	}

	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now()

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	s.applySignal(rec)

	if s.archiver != nil {
		if err := s.archiver.SaveFeedback(ctx, rec); err != nil {
			s.logger.Warn("failed to archive feedback",
				"feedback_id", rec.ID, "error", err)
		}
	}

	s.logger.Info("feedback recorded",
		"feedback_id", rec.ID,
		"scope", rec.Scope,
		"rating", rec.Rating,
		"entries", len(rec.EntryIDs),
	)
	return rec, nil
}

// applySignal moves each cited entry's weight by (rating - neutral) scaled by
// the learning rate. A neutral rating is a no-op.
func (s *Store) applySignal(rec Record) {
	if s.adjuster == nil || len(rec.EntryIDs) == 0 {
		return
	}
	delta := float64(rec.Rating-NeutralRating) * s.learningRate
	if delta == 0 {
		return
	}

	for _, id := range rec.EntryIDs {
		if _, err := s.adjuster.AdjustWeight(id, delta); err != nil {
			// Entries can vanish between retrieval and feedback only via
			// process restart; log and continue with the rest.
			s.logger.Warn("weight adjustment skipped",
				"entry_id", id, "error", err)
		}
	}
}

// Stats returns the aggregate over all records.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{TotalFeedback: len(s.records)}
	if stats.TotalFeedback == 0 {
		return stats
	}

	sum := 0
	for _, rec := range s.records {
		sum += rec.Rating
		switch {
		case rec.Rating >= 4:
			stats.PositiveCount++
		case rec.Rating <= 2:
			stats.NegativeCount++
		}
	}
	stats.AverageRating = float64(sum) / float64(stats.TotalFeedback)
	return stats
}

// Recent returns up to n most recent records, newest first.
func (s *Store) Recent(n int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.records) {
		n = len(s.records)
	}
	out := make([]Record, 0, n)
	for i := len(s.records) - 1; i >= len(s.records)-n; i-- {
		out = append(out, s.records[i])
	}
	return out
}
