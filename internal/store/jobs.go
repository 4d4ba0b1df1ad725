package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/svailabs/jobscout/internal/dedup"
	"github.com/svailabs/jobscout/internal/scout"
)

// UpsertScoutedJob inserts a candidate into the shared pool or, when its
// fingerprint is already known, refreshes the sighting. companyID is the
// resolved directory entry, kept once set. Reports whether a new row was
// created.
func (s *Store) UpsertScoutedJob(ctx context.Context, c *scout.Candidate, companyID *uuid.UUID, now time.Time) (uuid.UUID, bool, error) {
	rawJSON, err := json.Marshal(c.Raw)
	if err != nil {
		rawJSON = []byte("null")
	}

	var id uuid.UUID
	var inserted bool
	err = s.pool.QueryRow(ctx, `
		INSERT INTO scouted_jobs (
			id, external_id, fingerprint, title, company_name,
			company_name_normalized, location, city, description,
			salary_min, salary_max, salary_is_estimated, source,
			source_url, apply_url, posted_date, scouted_at, last_seen_at,
			is_active, matched_company_id, raw_json, search_query
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $17, TRUE, $18, $19, $20
		)
		ON CONFLICT (fingerprint) DO UPDATE SET
			last_seen_at = EXCLUDED.last_seen_at,
			is_active = TRUE,
			inactive_reason = NULL,
			matched_company_id = COALESCE(scouted_jobs.matched_company_id,
				EXCLUDED.matched_company_id)
		RETURNING id, (xmax = 0)`,
		uuid.New(), nullable(c.ExternalID), c.Fingerprint, c.Title, c.CompanyName,
		nullable(c.CompanyNameNormalized), nullable(c.Location), nullable(c.City), nullable(c.Description),
		c.SalaryMin, c.SalaryMax, c.SalaryIsEstimated, c.Source,
		nullable(c.SourceURL), nullable(c.ApplyURL), c.PostedDate, now,
		companyID, rawJSON, nullable(c.SearchQuery),
	).Scan(&id, &inserted)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("upsert scouted job: %w", err)
	}
	return id, inserted, nil
}

// MarkStale deactivates pool entries not re-observed within the staleness
// window. Returns how many rows were marked.
func (s *Store) MarkStale(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scouted_jobs
		SET is_active = FALSE, inactive_reason = $1
		WHERE is_active = TRUE AND last_seen_at < $2`,
		scout.InactiveReasonNotSeen, now.Add(-scout.StaleAfter),
	)
	if err != nil {
		return 0, fmt.Errorf("mark stale: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ActiveScoutedJobs returns the live pool, newest postings first.
func (s *Store) ActiveScoutedJobs(ctx context.Context) ([]*scout.ScoutedJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(external_id, ''), fingerprint, title, company_name,
			COALESCE(company_name_normalized, ''), COALESCE(location, ''),
			COALESCE(city, ''), COALESCE(description, ''),
			salary_min, salary_max, salary_is_estimated, source,
			COALESCE(source_url, ''), COALESCE(apply_url, ''),
			posted_date, scouted_at, last_seen_at, is_active,
			COALESCE(inactive_reason, ''), matched_company_id,
			COALESCE(search_query, '')
		FROM scouted_jobs
		WHERE is_active = TRUE
		ORDER BY posted_date DESC NULLS LAST, scouted_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query active pool: %w", err)
	}
	defer rows.Close()

	var jobs []*scout.ScoutedJob
	for rows.Next() {
		var j scout.ScoutedJob
		err := rows.Scan(
			&j.ID, &j.ExternalID, &j.Fingerprint, &j.Title, &j.CompanyName,
			&j.CompanyNameNorm, &j.Location, &j.City, &j.Description,
			&j.SalaryMin, &j.SalaryMax, &j.SalaryEstimated, &j.Source,
			&j.SourceURL, &j.ApplyURL, &j.PostedDate, &j.ScoutedAt,
			&j.LastSeenAt, &j.IsActive, &j.InactiveReason,
			&j.MatchedCompanyID, &j.SearchQuery,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scouted job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// KnownDedupState loads the dedup inputs for a user's on-demand run:
// source URLs, title/company pairs and external ids from prior results,
// plus the user's pipeline jobs so an already-tracked job is never
// re-surfaced.
func (s *Store) KnownDedupState(ctx context.Context, userID uuid.UUID) (dedup.Known, error) {
	var known dedup.Known

	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(source_url, ''), title, COALESCE(company_name, ''),
			COALESCE(normalized_data->>'external_id', '')
		FROM scout_results
		WHERE user_id = $1`, userID)
	if err != nil {
		return known, fmt.Errorf("query dedup state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url, title, company, externalID string
		if err := rows.Scan(&url, &title, &company, &externalID); err != nil {
			return known, fmt.Errorf("scan dedup state: %w", err)
		}
		known.Add(externalID, url, title, company)
	}
	if err := rows.Err(); err != nil {
		return known, err
	}

	jobRows, err := s.pool.Query(ctx, `
		SELECT COALESCE(jd_url, ''), role_title, company_name
		FROM pipeline_jobs
		WHERE user_id = $1`, userID)
	if err != nil {
		return known, fmt.Errorf("query pipeline dedup state: %w", err)
	}
	defer jobRows.Close()

	for jobRows.Next() {
		var url, title, company string
		if err := jobRows.Scan(&url, &title, &company); err != nil {
			return known, fmt.Errorf("scan pipeline dedup state: %w", err)
		}
		known.Add("", url, title, company)
	}
	return known, jobRows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
