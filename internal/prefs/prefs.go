// Package prefs manages scouting preferences: derivation from the user
// profile, re-sync on demand, and the feedback learning loop driven by
// dismiss reasons.
package prefs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/normalize"
	"github.com/svailabs/jobscout/internal/scout"
)

// Learning rule constants.
const (
	wrongCompanyPenalty = 15
	wrongRolePenalty    = 5
	maxPenaltyWords     = 5
	dismissThreshold    = 3
	salaryRaiseFactor   = 1.1
)

// DefaultExcludedIndustries seeds new preference rows.
var DefaultExcludedIndustries = []string{"Food Delivery"}

// Store is the persistence surface the service needs.
type Store interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (*scout.Preferences, error)
	SavePreferences(ctx context.Context, p *scout.Preferences) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*scout.Profile, error)
	// CountDismissals returns how many of the user's matches were dismissed
	// with the given reason, including the one just recorded.
	CountDismissals(ctx context.Context, userID uuid.UUID, reason string) (int, error)
}

// Service wraps preference persistence with derivation and learning.
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// FromProfile derives a fresh preference row. It never fails: a nil or
// empty profile yields a row with defaults only.
func FromProfile(userID uuid.UUID, profile *scout.Profile) *scout.Preferences {
	p := &scout.Preferences{
		UserID:             userID,
		ExcludedIndustries: append([]string(nil), DefaultExcludedIndustries...),
		MinScore:           scout.DefaultMinScore,
	}
	if profile == nil {
		return p
	}

	p.TargetRoles = append([]string(nil), profile.TargetRoles...)
	p.TargetLocations = append([]string(nil), profile.TargetLocations...)
	p.MinSalary = normalize.MinSalaryFromRange(profile.TargetSalaryRange)
	p.RoleKeywords = dedupeKeywords(profile.CoreSkills, profile.ResumeKeywords)
	return p
}

// GetOrCreate returns the user's preferences, deriving and persisting them
// from the profile on first access.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*scout.Preferences, error) {
	p, err := s.store.GetPreferences(ctx, userID)
	if err == nil && p != nil {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("profile unavailable, using default preferences",
			zap.String("user_id", userID.String()), zap.Error(err))
		profile = nil
	}
	p = FromProfile(userID, profile)
	if err := s.store.SavePreferences(ctx, p); err != nil {
		return nil, fmt.Errorf("save derived preferences: %w", err)
	}
	s.logger.Info("derived preferences from profile", zap.String("user_id", userID.String()))
	return p, nil
}

// SyncFromProfile re-derives the profile-sourced fields in place, keeping
// everything the user edited or the learning loop accumulated.
func (s *Service) SyncFromProfile(ctx context.Context, userID uuid.UUID) (*scout.Preferences, error) {
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	derived := FromProfile(userID, profile)
	p.TargetRoles = derived.TargetRoles
	p.TargetLocations = derived.TargetLocations
	p.RoleKeywords = derived.RoleKeywords
	if derived.MinSalary != nil {
		p.MinSalary = derived.MinSalary
	}
	now := time.Now().UTC()
	p.SyncedFromProfileAt = &now

	if err := s.store.SavePreferences(ctx, p); err != nil {
		return nil, fmt.Errorf("save synced preferences: %w", err)
	}
	return p, nil
}

// RecordDismissal applies the learning rule for a dismissed match and
// persists any change. The dismissal itself is assumed already stored, so
// reason counts include it.
func (s *Service) RecordDismissal(ctx context.Context, userID uuid.UUID, job *scout.ScoutedJob, reason string) error {
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	count := 1
	if reason == scout.DismissSalaryLow || reason == scout.DismissWrongLocation {
		count, err = s.store.CountDismissals(ctx, userID, reason)
		if err != nil {
			return fmt.Errorf("count dismissals: %w", err)
		}
	}

	if !ApplyDismissal(p, job, reason, count) {
		return nil
	}
	s.logger.Info("learned from dismissal",
		zap.String("user_id", userID.String()),
		zap.String("reason", reason),
		zap.Int("reason_count", count))
	if err := s.store.SavePreferences(ctx, p); err != nil {
		return fmt.Errorf("save learned preferences: %w", err)
	}
	return nil
}

// ApplyDismissal mutates preferences per the feedback rule for reason and
// reports whether anything changed. reasonCount is the user's cumulative
// dismissal count for this reason. Unknown reasons are a no-op.
func ApplyDismissal(p *scout.Preferences, job *scout.ScoutedJob, reason string, reasonCount int) bool {
	switch reason {
	case scout.DismissWrongCompany:
		kind, key := scout.AdjustCompanyName, normalize.ForMatching(job.CompanyName)
		if job.MatchedCompanyID != nil {
			kind, key = scout.AdjustCompany, job.MatchedCompanyID.String()
		}
		if key == "" {
			return false
		}
		addPenalty(p, kind, key, wrongCompanyPenalty)
		return true

	case scout.DismissSalaryLow:
		if reasonCount < dismissThreshold || p.MinSalary == nil {
			return false
		}
		raised := int(float64(*p.MinSalary) * salaryRaiseFactor)
		p.MinSalary = &raised
		return true

	case scout.DismissWrongLocation:
		if reasonCount < dismissThreshold {
			return false
		}
		if p.LocationFlexibility == scout.FlexStrict {
			return false
		}
		p.LocationFlexibility = scout.FlexStrict
		return true

	case scout.DismissWrongRole:
		words := normalize.PenaltyWords(job.Title)
		for _, w := range words {
			addPenalty(p, scout.AdjustTitleWord, w, wrongRolePenalty)
		}
		return len(words) > 0
	}

	return false
}

// addPenalty records a learned penalty. An existing (kind, key) record is
// bumped so repeated identical feedback keeps compounding.
func addPenalty(p *scout.Preferences, kind scout.AdjustmentKind, key string, points int) {
	for i, a := range p.LearnedPenalties {
		if a.Kind == kind && a.Key == key {
			p.LearnedPenalties[i].Points += points
			return
		}
	}
	p.LearnedPenalties = append(p.LearnedPenalties, scout.Adjustment{
		Kind:   kind,
		Key:    key,
		Points: points,
	})
}

func dedupeKeywords(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, kw := range list {
			k := strings.ToLower(strings.TrimSpace(kw))
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}
