package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/deusflow/newsbrief/internal/translate"
)

const schema = `
CREATE TABLE IF NOT EXISTS summary_cache (
	id SERIAL PRIMARY KEY,
	content_hash VARCHAR(64) UNIQUE NOT NULL,
	summary TEXT NOT NULL,
	sentiment VARCHAR(16) NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT NOW(),
	last_used_at TIMESTAMP NOT NULL DEFAULT NOW(),
	use_count INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_summary_cache_created_at ON summary_cache(created_at);
`

// PostgresCache stores summaries in the summary_cache table. Rows older than
// the TTL are ignored on read and removed by Cleanup.
type PostgresCache struct {
	db  *sql.DB
	ttl time.Duration
	log *zap.Logger
	now func() time.Time
}

// NewPostgresCache connects to dsn and creates the schema if needed.
func NewPostgresCache(ctx context.Context, dsn string, ttl time.Duration, log *zap.Logger) (*PostgresCache, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pc := newPostgresCache(db, ttl, log)
	if err := pc.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	pc.log.Info("postgres summary cache connected")
	return pc, nil
}

func newPostgresCache(db *sql.DB, ttl time.Duration, log *zap.Logger) *PostgresCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresCache{db: db, ttl: ttl, log: log.Named("postgres"), now: time.Now}
}

func (pc *PostgresCache) InitSchema(ctx context.Context) error {
	if _, err := pc.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (pc *PostgresCache) cutoff() time.Time {
	return pc.now().Add(-pc.ttl)
}

func (pc *PostgresCache) Get(ctx context.Context, key string) (translate.Result, bool, error) {
	const query = `
		SELECT summary, sentiment
		FROM summary_cache
		WHERE content_hash = $1 AND created_at > $2
	`

	var summary, sentiment string
	err := pc.db.QueryRowContext(ctx, query, key, pc.cutoff()).Scan(&summary, &sentiment)
	if errors.Is(err, sql.ErrNoRows) {
		return translate.Result{}, false, nil
	}
	if err != nil {
		return translate.Result{}, false, fmt.Errorf("get cached summary: %w", err)
	}

	return translate.Result{Summary: summary, Sentiment: translate.ParseSentiment(sentiment)}, true, nil
}

// Set upserts the summary. Rewriting an existing key bumps its use count.
func (pc *PostgresCache) Set(ctx context.Context, key string, result translate.Result) error {
	const query = `
		INSERT INTO summary_cache (content_hash, summary, sentiment, created_at, last_used_at, use_count)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		ON CONFLICT (content_hash) DO UPDATE SET
			summary = EXCLUDED.summary,
			sentiment = EXCLUDED.sentiment,
			last_used_at = NOW(),
			use_count = summary_cache.use_count + 1
	`

	if _, err := pc.db.ExecContext(ctx, query, key, result.Summary, string(result.Sentiment)); err != nil {
		return fmt.Errorf("set cached summary: %w", err)
	}
	return nil
}

// Cleanup deletes rows older than the TTL and returns how many were removed.
func (pc *PostgresCache) Cleanup(ctx context.Context) (int64, error) {
	res, err := pc.db.ExecContext(ctx, `DELETE FROM summary_cache WHERE created_at < $1`, pc.cutoff())
	if err != nil {
		return 0, fmt.Errorf("cleanup summary cache: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows > 0 {
		pc.log.Info("cleaned up expired summaries", zap.Int64("rows", rows))
	}
	return rows, nil
}

// Stats returns row counts: total_items, active_items and one
// sentiment_<label> entry per label among active rows.
func (pc *PostgresCache) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	var total int
	if err := pc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM summary_cache`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count summaries: %w", err)
	}
	stats["total_items"] = total

	cutoff := pc.cutoff()
	var active int
	if err := pc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM summary_cache WHERE created_at > $1`, cutoff).Scan(&active); err != nil {
		return nil, fmt.Errorf("count active summaries: %w", err)
	}
	stats["active_items"] = active

	rows, err := pc.db.QueryContext(ctx, `
		SELECT sentiment, COUNT(*)
		FROM summary_cache
		WHERE created_at > $1
		GROUP BY sentiment
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count summaries by sentiment: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sentiment string
			count     int
		)
		if err := rows.Scan(&sentiment, &count); err != nil {
			return nil, fmt.Errorf("scan sentiment count: %w", err)
		}
		stats["sentiment_"+sentiment] = count
	}
	return stats, rows.Err()
}

func (pc *PostgresCache) Close() error {
	if pc.db != nil {
		return pc.db.Close()
	}
	return nil
}
