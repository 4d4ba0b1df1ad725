package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/svailabs/jobscout/internal/scout"
)

// InsertMatch links a user to a pool entry. A concurrent duplicate for the
// same (user, job) pair is benign and reported as not-inserted.
func (s *Store) InsertMatch(ctx context.Context, m *scout.UserScoutedJob) (bool, error) {
	breakdown, err := json.Marshal(m.ScoreBreakdown)
	if err != nil {
		breakdown = []byte("null")
	}
	reasons, err := json.Marshal(m.MatchReasons)
	if err != nil {
		reasons = []byte("null")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_scouted_jobs (
			id, user_id, scouted_job_id, relevance_score,
			score_breakdown, match_reasons, status, matched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.UserID, m.ScoutedJobID, m.RelevanceScore,
		breakdown, reasons, m.Status, m.MatchedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 is unique_violation.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("insert match: %w", err)
	}
	return true, nil
}

// MatchedJobIDs returns the pool entries a user already has matches for.
func (s *Store) MatchedJobIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT scouted_job_id FROM user_scouted_jobs WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query matched jobs: %w", err)
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan matched job id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// UpdateMatchStatus moves a match to viewed or saved, stamping the
// matching timestamp column. Dismissals go through DismissMatch.
func (s *Store) UpdateMatchStatus(ctx context.Context, id uuid.UUID, status string, now time.Time) error {
	var column string
	switch status {
	case scout.MatchStatusViewed:
		column = "viewed_at"
	case scout.MatchStatusSaved:
		column = "saved_at"
	default:
		return fmt.Errorf("unsupported match status %q", status)
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE user_scouted_jobs SET status = $2, %s = $3 WHERE id = $1`, column),
		id, status, now)
	if err != nil {
		return fmt.Errorf("update match status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %s not found", id)
	}
	return nil
}

// DismissMatch marks a match dismissed with the user's reason.
func (s *Store) DismissMatch(ctx context.Context, id uuid.UUID, reason string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_scouted_jobs
		SET status = $2, dismissed_at = $3, dismiss_reason = $4
		WHERE id = $1`,
		id, scout.MatchStatusDismissed, now, nullable(reason))
	if err != nil {
		return fmt.Errorf("dismiss match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %s not found", id)
	}
	return nil
}

// CountDismissals counts a user's dismissals with the given reason.
func (s *Store) CountDismissals(ctx context.Context, userID uuid.UUID, reason string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_scouted_jobs
		WHERE user_id = $1 AND status = $2 AND dismiss_reason = $3`,
		userID, scout.MatchStatusDismissed, reason).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count dismissals: %w", err)
	}
	return count, nil
}

// MatchWithJob loads a match and its pool entry for the review flow.
func (s *Store) MatchWithJob(ctx context.Context, matchID uuid.UUID) (*scout.UserScoutedJob, *scout.ScoutedJob, error) {
	var m scout.UserScoutedJob
	var j scout.ScoutedJob
	var breakdown, reasons []byte

	err := s.pool.QueryRow(ctx, `
		SELECT m.id, m.user_id, m.scouted_job_id, m.relevance_score,
			COALESCE(m.score_breakdown, 'null'), COALESCE(m.match_reasons, 'null'),
			m.status, m.matched_at, m.viewed_at, m.saved_at, m.dismissed_at,
			COALESCE(m.dismiss_reason, ''), m.pipeline_job_id,
			j.id, COALESCE(j.external_id, ''), j.fingerprint, j.title,
			j.company_name, COALESCE(j.company_name_normalized, ''),
			COALESCE(j.location, ''), COALESCE(j.city, ''),
			COALESCE(j.description, ''), j.salary_min, j.salary_max,
			j.salary_is_estimated, j.source, COALESCE(j.source_url, ''),
			COALESCE(j.apply_url, ''), j.posted_date, j.scouted_at,
			j.last_seen_at, j.is_active, COALESCE(j.inactive_reason, ''),
			j.matched_company_id, COALESCE(j.search_query, '')
		FROM user_scouted_jobs m
		JOIN scouted_jobs j ON j.id = m.scouted_job_id
		WHERE m.id = $1`, matchID).Scan(
		&m.ID, &m.UserID, &m.ScoutedJobID, &m.RelevanceScore,
		&breakdown, &reasons, &m.Status, &m.MatchedAt, &m.ViewedAt,
		&m.SavedAt, &m.DismissedAt, &m.DismissReason, &m.PipelineJobID,
		&j.ID, &j.ExternalID, &j.Fingerprint, &j.Title, &j.CompanyName,
		&j.CompanyNameNorm, &j.Location, &j.City, &j.Description,
		&j.SalaryMin, &j.SalaryMax, &j.SalaryEstimated, &j.Source,
		&j.SourceURL, &j.ApplyURL, &j.PostedDate, &j.ScoutedAt,
		&j.LastSeenAt, &j.IsActive, &j.InactiveReason,
		&j.MatchedCompanyID, &j.SearchQuery,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("load match: %w", err)
	}

	_ = json.Unmarshal(breakdown, &m.ScoreBreakdown)
	_ = json.Unmarshal(reasons, &m.MatchReasons)
	return &m, &j, nil
}

// MatchesByStatus lists a user's matches with the given status, highest
// relevance first.
func (s *Store) MatchesByStatus(ctx context.Context, userID uuid.UUID, status string) ([]*scout.UserScoutedJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, scouted_job_id, relevance_score,
			COALESCE(score_breakdown, 'null'), COALESCE(match_reasons, 'null'),
			status, matched_at, viewed_at, saved_at, dismissed_at,
			COALESCE(dismiss_reason, ''), pipeline_job_id
		FROM user_scouted_jobs
		WHERE user_id = $1 AND status = $2
		ORDER BY relevance_score DESC, matched_at DESC`,
		userID, status)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var matches []*scout.UserScoutedJob
	for rows.Next() {
		var m scout.UserScoutedJob
		var breakdown, reasons []byte
		err := rows.Scan(
			&m.ID, &m.UserID, &m.ScoutedJobID, &m.RelevanceScore,
			&breakdown, &reasons, &m.Status, &m.MatchedAt, &m.ViewedAt,
			&m.SavedAt, &m.DismissedAt, &m.DismissReason, &m.PipelineJobID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		_ = json.Unmarshal(breakdown, &m.ScoreBreakdown)
		_ = json.Unmarshal(reasons, &m.MatchReasons)
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}
