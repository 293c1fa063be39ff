// Package archive persists feedback and dataset registrations to PostgreSQL.
// The archive is optional and write-mostly: the in-memory stores stay
// authoritative, and the engine runs fine without a database at all.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mirutec/sage/internal/feedback"
	"github.com/mirutec/sage/internal/log"
)

const connectTimeout = 10 * time.Second

// Archive writes accepted records to PostgreSQL. It satisfies both
// feedback.Archiver and dataset.Registrar. Safe for concurrent use.
type Archive struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string, logger log.Logger) (*Archive, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("feedback archive connected")
	return &Archive{pool: pool, logger: logger}, nil
}

// SaveFeedback implements feedback.Archiver.
func (a *Archive) SaveFeedback(ctx context.Context, rec feedback.Record) error {
	const q = `INSERT INTO feedback
		(id, session_id, scope, user_message, bot_response, rating, comment, entry_ids, message_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	_, err := a.pool.Exec(ctx, q,
		rec.ID, rec.SessionID, rec.Scope, rec.UserMessage, rec.BotResponse,
		rec.Rating, rec.Comment, rec.EntryIDs, rec.MessageCount, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting feedback %s: %w", rec.ID, err)
	}
	return nil
}

// RegisterDataset implements dataset.Registrar.
func (a *Archive) RegisterDataset(ctx context.Context, id, name, description, format string, records int) error {
	const q = `INSERT INTO datasets (id, name, description, format, records)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	if _, err := a.pool.Exec(ctx, q, id, name, description, format, records); err != nil {
		return fmt.Errorf("inserting dataset %s: %w", name, err)
	}
	return nil
}

// Ping reports database reachability, for readiness probes.
func (a *Archive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// Close releases the connection pool.
func (a *Archive) Close() {
	a.pool.Close()
}
