package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/svailabs/jobscout/internal/scout"
)

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SaveRunResults writes a run's scout results and the pipeline jobs its
// promotions created in one transaction, so a crashed run never leaves a
// partial batch or orphaned pipeline entries behind.
func (s *Store) SaveRunResults(ctx context.Context, results []*scout.ScoutResult, promoted []*scout.PipelineJob) error {
	if len(results) == 0 && len(promoted) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, job := range promoted {
		if err := insertPipelineJob(ctx, tx, job); err != nil {
			return err
		}
	}

	for _, r := range results {
		normalized, err := json.Marshal(r.Normalized)
		if err != nil {
			normalized = []byte("null")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO scout_results (
				id, user_id, source, source_url, title, company_name,
				location, snippet, salary_raw, posted_date_raw,
				normalized_data, fit_score, b2c_validated, ai_reasoning,
				status, promoted_job_id, scout_run_id, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
				$13, $14, $15, $16, $17, $18)`,
			r.ID, r.UserID, r.Source, nullable(r.SourceURL), r.Title,
			nullable(r.CompanyName), nullable(r.Location), nullable(r.Snippet),
			nullable(r.SalaryRaw), nullable(r.PostedDateRaw), normalized,
			r.FitScore, r.B2CValidated, nullable(r.AIReasoning), r.Status,
			r.PromotedJobID, nullable(r.ScoutRunID), r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert scout result: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// InsertPipelineJob creates a single application-pipeline entry, used by
// the review flow. Run promotions go through SaveRunResults instead so
// they commit with their results.
func (s *Store) InsertPipelineJob(ctx context.Context, job *scout.PipelineJob) (uuid.UUID, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := insertPipelineJob(ctx, s.pool, job); err != nil {
		return uuid.Nil, err
	}
	return job.ID, nil
}

// insertPipelineJob writes one pipeline entry using the caller's ID. The
// pipeline table is owned by the main application.
func insertPipelineJob(ctx context.Context, db execer, job *scout.PipelineJob) error {
	_, err := db.Exec(ctx, `
		INSERT INTO pipeline_jobs (
			id, user_id, company_name, role_title, source_portal,
			jd_url, jd_text, status, fit_score, fit_reasoning,
			salary_range, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.UserID, job.CompanyName, job.RoleTitle, nullable(job.SourcePortal),
		nullable(job.JDURL), nullable(job.JDText), job.Status, job.FitScore,
		nullable(job.FitReasoning), nullable(job.SalaryRange), nullable(job.Note),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert pipeline job: %w", err)
	}
	return nil
}

// ScoutResultsByStatus lists a user's results with the given status,
// best-scored first.
func (s *Store) ScoutResultsByStatus(ctx context.Context, userID uuid.UUID, status string) ([]*scout.ScoutResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, source, COALESCE(source_url, ''), title,
			COALESCE(company_name, ''), COALESCE(location, ''),
			COALESCE(snippet, ''), COALESCE(salary_raw, ''),
			COALESCE(posted_date_raw, ''), fit_score, b2c_validated,
			COALESCE(ai_reasoning, ''), status, promoted_job_id,
			COALESCE(scout_run_id, ''), created_at
		FROM scout_results
		WHERE user_id = $1 AND status = $2
		ORDER BY fit_score DESC, created_at DESC`,
		userID, status)
	if err != nil {
		return nil, fmt.Errorf("query scout results: %w", err)
	}
	defer rows.Close()

	var results []*scout.ScoutResult
	for rows.Next() {
		var r scout.ScoutResult
		err := rows.Scan(
			&r.ID, &r.UserID, &r.Source, &r.SourceURL, &r.Title,
			&r.CompanyName, &r.Location, &r.Snippet, &r.SalaryRaw,
			&r.PostedDateRaw, &r.FitScore, &r.B2CValidated,
			&r.AIReasoning, &r.Status, &r.PromotedJobID,
			&r.ScoutRunID, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scout result: %w", err)
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}

// UpdateScoutResultStatus moves a result through the review lifecycle.
func (s *Store) UpdateScoutResultStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scout_results SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update scout result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scout result %s not found", id)
	}
	return nil
}
