package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/svailabs/jobscout/internal/scout"
)

// GetPreferences loads a user's preference row. A missing row returns
// (nil, nil) so the caller can derive one.
func (s *Store) GetPreferences(ctx context.Context, userID uuid.UUID) (*scout.Preferences, error) {
	var (
		p         scout.Preferences
		roles     []byte
		keywords  []byte
		locations []byte
		targetIDs []byte
		exclIDs   []byte
		targetInd []byte
		exclInd   []byte
		stages    []byte
		boosts    []byte
		penalties []byte
	)

	err := s.pool.QueryRow(ctx, `
		SELECT user_id, COALESCE(target_roles, 'null'),
			COALESCE(role_keywords, 'null'), COALESCE(target_locations, 'null'),
			COALESCE(location_flexibility, ''),
			COALESCE(target_company_ids, 'null'), COALESCE(excluded_company_ids, 'null'),
			COALESCE(target_industries, 'null'), COALESCE(excluded_industries, 'null'),
			COALESCE(company_stages, 'null'), min_salary,
			COALESCE(salary_flexibility, ''), min_score,
			COALESCE(learned_boosts, 'null'), COALESCE(learned_penalties, 'null'),
			synced_from_profile_at
		FROM scout_preferences
		WHERE user_id = $1`, userID).Scan(
		&p.UserID, &roles, &keywords, &locations, &p.LocationFlexibility,
		&targetIDs, &exclIDs, &targetInd, &exclInd, &stages, &p.MinSalary,
		&p.SalaryFlexibility, &p.MinScore, &boosts, &penalties,
		&p.SyncedFromProfileAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	_ = json.Unmarshal(roles, &p.TargetRoles)
	_ = json.Unmarshal(keywords, &p.RoleKeywords)
	_ = json.Unmarshal(locations, &p.TargetLocations)
	_ = json.Unmarshal(targetIDs, &p.TargetCompanyIDs)
	_ = json.Unmarshal(exclIDs, &p.ExcludedCompanyIDs)
	_ = json.Unmarshal(targetInd, &p.TargetIndustries)
	_ = json.Unmarshal(exclInd, &p.ExcludedIndustries)
	_ = json.Unmarshal(stages, &p.CompanyStages)
	_ = json.Unmarshal(boosts, &p.LearnedBoosts)
	_ = json.Unmarshal(penalties, &p.LearnedPenalties)
	return &p, nil
}

// SavePreferences upserts the full preference row.
func (s *Store) SavePreferences(ctx context.Context, p *scout.Preferences) error {
	marshal := func(v any) []byte {
		b, err := json.Marshal(v)
		if err != nil {
			return []byte("null")
		}
		return b
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO scout_preferences (
			user_id, target_roles, role_keywords, target_locations,
			location_flexibility, target_company_ids, excluded_company_ids,
			target_industries, excluded_industries, company_stages,
			min_salary, salary_flexibility, min_score,
			learned_boosts, learned_penalties, synced_from_profile_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16)
		ON CONFLICT (user_id) DO UPDATE SET
			target_roles = EXCLUDED.target_roles,
			role_keywords = EXCLUDED.role_keywords,
			target_locations = EXCLUDED.target_locations,
			location_flexibility = EXCLUDED.location_flexibility,
			target_company_ids = EXCLUDED.target_company_ids,
			excluded_company_ids = EXCLUDED.excluded_company_ids,
			target_industries = EXCLUDED.target_industries,
			excluded_industries = EXCLUDED.excluded_industries,
			company_stages = EXCLUDED.company_stages,
			min_salary = EXCLUDED.min_salary,
			salary_flexibility = EXCLUDED.salary_flexibility,
			min_score = EXCLUDED.min_score,
			learned_boosts = EXCLUDED.learned_boosts,
			learned_penalties = EXCLUDED.learned_penalties,
			synced_from_profile_at = EXCLUDED.synced_from_profile_at`,
		p.UserID, marshal(p.TargetRoles), marshal(p.RoleKeywords),
		marshal(p.TargetLocations), nullable(p.LocationFlexibility),
		marshal(p.TargetCompanyIDs), marshal(p.ExcludedCompanyIDs),
		marshal(p.TargetIndustries), marshal(p.ExcludedIndustries),
		marshal(p.CompanyStages), p.MinSalary, nullable(p.SalaryFlexibility),
		p.MinScore, marshal(p.LearnedBoosts), marshal(p.LearnedPenalties),
		p.SyncedFromProfileAt,
	)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// UserIDsWithPreferences returns every user with a preference row, for the
// pool scoring pass.
func (s *Store) UserIDsWithPreferences(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM scout_preferences ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query preference users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetProfile reads the user profile from the main application's table.
func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*scout.Profile, error) {
	var (
		p         scout.Profile
		roles     []byte
		locations []byte
		skills    []byte
		keywords  []byte
		inds      []byte
	)

	err := s.pool.QueryRow(ctx, `
		SELECT user_id, COALESCE(target_roles, 'null'),
			COALESCE(target_locations, 'null'),
			COALESCE(target_salary_range, ''),
			COALESCE(core_skills, 'null'), COALESCE(resume_keywords, 'null'),
			COALESCE(industries, 'null'), COALESCE(experience_level, '')
		FROM profiles
		WHERE user_id = $1`, userID).Scan(
		&p.UserID, &roles, &locations, &p.TargetSalaryRange,
		&skills, &keywords, &inds, &p.ExperienceLevel,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("profile for user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	_ = json.Unmarshal(roles, &p.TargetRoles)
	_ = json.Unmarshal(locations, &p.TargetLocations)
	_ = json.Unmarshal(skills, &p.CoreSkills)
	_ = json.Unmarshal(keywords, &p.ResumeKeywords)
	_ = json.Unmarshal(inds, &p.Industries)
	return &p, nil
}

// ResolveCompanyByNormalizedName matches a normalized company name against
// the company directory. A miss returns (nil, nil).
func (s *Store) ResolveCompanyByNormalizedName(ctx context.Context, nameNorm string) (*scout.Company, error) {
	if nameNorm == "" {
		return nil, nil
	}

	var c scout.Company
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(sector, ''), COALESCE(stage, ''),
			COALESCE(is_excluded, FALSE)
		FROM companies
		WHERE LOWER(name) = $1 OR name_normalized = $1
		LIMIT 1`, nameNorm).Scan(
		&c.ID, &c.Name, &c.Sector, &c.Stage, &c.IsExcluded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve company: %w", err)
	}
	return &c, nil
}

// ExcludedCompanyNames returns the lowercased names of directory companies
// flagged as excluded.
func (s *Store) ExcludedCompanyNames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT LOWER(name) FROM companies WHERE is_excluded = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("query excluded companies: %w", err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan excluded company: %w", err)
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}

// GetCompany loads one company directory entry. A miss returns (nil, nil).
func (s *Store) GetCompany(ctx context.Context, id uuid.UUID) (*scout.Company, error) {
	var c scout.Company
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(sector, ''), COALESCE(stage, ''),
			COALESCE(is_excluded, FALSE)
		FROM companies
		WHERE id = $1`, id).Scan(
		&c.ID, &c.Name, &c.Sector, &c.Stage, &c.IsExcluded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}
	return &c, nil
}
