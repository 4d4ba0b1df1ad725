// Package store is the Postgres persistence layer for the discovery
// engine: the shared job pool, per-user results and matches, preferences
// and the read-side of the profile/company directory.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store wraps a pgx pool. All methods are safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func New(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// NewPool creates and verifies a pgxpool connection pool.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scouted_jobs (
		id UUID PRIMARY KEY,
		external_id TEXT,
		fingerprint TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		company_name TEXT NOT NULL,
		company_name_normalized TEXT,
		location TEXT,
		city TEXT,
		description TEXT,
		salary_min BIGINT,
		salary_max BIGINT,
		salary_is_estimated BOOLEAN NOT NULL DEFAULT FALSE,
		source TEXT NOT NULL,
		source_url TEXT,
		apply_url TEXT,
		posted_date TIMESTAMPTZ,
		scouted_at TIMESTAMPTZ NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		inactive_reason TEXT,
		matched_company_id UUID,
		raw_json JSONB,
		search_query TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scouted_jobs_active_posted
		ON scouted_jobs (is_active, posted_date)`,
	`CREATE TABLE IF NOT EXISTS user_scouted_jobs (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		scouted_job_id UUID NOT NULL REFERENCES scouted_jobs(id),
		relevance_score INT NOT NULL,
		score_breakdown JSONB,
		match_reasons JSONB,
		status TEXT NOT NULL DEFAULT 'new',
		matched_at TIMESTAMPTZ NOT NULL,
		viewed_at TIMESTAMPTZ,
		saved_at TIMESTAMPTZ,
		dismissed_at TIMESTAMPTZ,
		dismiss_reason TEXT,
		pipeline_job_id UUID,
		UNIQUE (user_id, scouted_job_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_scouted_jobs_user_status
		ON user_scouted_jobs (user_id, status, matched_at)`,
	`CREATE TABLE IF NOT EXISTS scout_results (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		source TEXT NOT NULL,
		source_url TEXT,
		title TEXT NOT NULL,
		company_name TEXT,
		location TEXT,
		snippet TEXT,
		salary_raw TEXT,
		posted_date_raw TEXT,
		normalized_data JSONB,
		fit_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		b2c_validated BOOLEAN NOT NULL DEFAULT FALSE,
		ai_reasoning TEXT,
		status TEXT NOT NULL DEFAULT 'new',
		promoted_job_id UUID,
		scout_run_id TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scout_results_user_status
		ON scout_results (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_scout_results_run
		ON scout_results (scout_run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_scout_results_url
		ON scout_results (source_url)`,
	`CREATE TABLE IF NOT EXISTS scout_preferences (
		user_id UUID PRIMARY KEY,
		target_roles JSONB,
		role_keywords JSONB,
		target_locations JSONB,
		location_flexibility TEXT,
		target_company_ids JSONB,
		excluded_company_ids JSONB,
		target_industries JSONB,
		excluded_industries JSONB,
		company_stages JSONB,
		min_salary BIGINT,
		salary_flexibility TEXT,
		min_score INT NOT NULL DEFAULT 30,
		learned_boosts JSONB,
		learned_penalties JSONB,
		synced_from_profile_at TIMESTAMPTZ
	)`,
}

// EnsureSchema creates the scout-owned tables. The user, profile, company
// and pipeline tables belong to the main application's migrations.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	s.logger.Debug("schema ensured", zap.Int("statements", len(schema)))
	return nil
}
