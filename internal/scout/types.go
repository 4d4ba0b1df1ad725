// Package scout defines the domain types shared by the discovery engine:
// in-flight candidates, the persisted shared pool, per-user results and
// preferences.
package scout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Candidate is a normalized posting produced by a source adapter. It has
// no identity beyond its fingerprint until persisted.
type Candidate struct {
	ExternalID            string         `json:"external_id,omitempty"`
	Fingerprint           string         `json:"fingerprint"`
	Title                 string         `json:"title"`
	CompanyName           string         `json:"company_name"`
	CompanyNameNormalized string         `json:"company_name_normalized,omitempty"`
	Location              string         `json:"location,omitempty"`
	City                  string         `json:"city,omitempty"`
	Description           string         `json:"description,omitempty"`
	SalaryMin             *int           `json:"salary_min,omitempty"`
	SalaryMax             *int           `json:"salary_max,omitempty"`
	SalaryIsEstimated     bool           `json:"salary_is_estimated,omitempty"`
	SalaryRaw             string         `json:"salary_raw,omitempty"`
	Source                string         `json:"source"`
	SourceURL             string         `json:"source_url,omitempty"`
	ApplyURL              string         `json:"apply_url,omitempty"`
	PostedDate            *time.Time     `json:"posted_date,omitempty"`
	PostedDateRaw         string         `json:"posted_date_raw,omitempty"`
	SearchQuery           string         `json:"search_query,omitempty"`
	Raw                   map[string]any `json:"raw,omitempty"`

	// B2CHint is advisory input to the AI scorer, set by the pre-filter.
	B2CHint bool `json:"b2c_hint,omitempty"`
}

// ScoutedJob is a pool entry shared across users. It is created on first
// sighting and refreshed on every re-sighting; never hard-deleted.
type ScoutedJob struct {
	ID               uuid.UUID
	ExternalID       string
	Fingerprint      string
	Title            string
	CompanyName      string
	CompanyNameNorm  string
	Location         string
	City             string
	Description      string
	SalaryMin        *int
	SalaryMax        *int
	SalaryEstimated  bool
	Source           string
	SourceURL        string
	ApplyURL         string
	PostedDate       *time.Time
	ScoutedAt        time.Time
	LastSeenAt       time.Time
	IsActive         bool
	InactiveReason   string
	MatchedCompanyID *uuid.UUID
	SearchQuery      string
}

// Pool entries not re-observed for this long are marked inactive.
const (
	StaleAfter            = 7 * 24 * time.Hour
	InactiveReasonNotSeen = "not_seen_7d"
)

// ScoutResult is a per-user record from the on-demand AI-scored pipeline.
type ScoutResult struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Source        string
	SourceURL     string
	Title         string
	CompanyName   string
	Location      string
	Snippet       string
	SalaryRaw     string
	PostedDateRaw string
	Normalized    *Candidate
	FitScore      float64
	B2CValidated  bool
	AIReasoning   string
	Status        string
	PromotedJobID *uuid.UUID
	ScoutRunID    string
	CreatedAt     time.Time
}

// ScoutResult statuses.
const (
	ResultStatusNew       = "new"
	ResultStatusReviewed  = "reviewed"
	ResultStatusPromoted  = "promoted"
	ResultStatusDismissed = "dismissed"
)

// UserScoutedJob links a user to a shared pool entry with its deterministic
// relevance score. Unique per (user, scouted job).
type UserScoutedJob struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ScoutedJobID   uuid.UUID
	RelevanceScore int
	ScoreBreakdown map[string]int
	MatchReasons   []string
	Status         string
	MatchedAt      time.Time
	ViewedAt       *time.Time
	SavedAt        *time.Time
	DismissedAt    *time.Time
	DismissReason  string
	PipelineJobID  *uuid.UUID
}

// UserScoutedJob statuses.
const (
	MatchStatusNew       = "new"
	MatchStatusViewed    = "viewed"
	MatchStatusSaved     = "saved"
	MatchStatusDismissed = "dismissed"
)

// Dismiss reasons understood by the learning loop. Anything else is a no-op.
const (
	DismissWrongCompany  = "wrong_company"
	DismissSalaryLow     = "salary_low"
	DismissWrongLocation = "wrong_location"
	DismissWrongRole     = "wrong_role"
)

// AdjustmentKind discriminates what a learned adjustment is keyed by.
type AdjustmentKind string

const (
	AdjustCompany     AdjustmentKind = "company"
	AdjustCompanyName AdjustmentKind = "company_name"
	AdjustTitleWord   AdjustmentKind = "title_word"
)

// Adjustment is a learned score adjustment derived from feedback. Points is
// a positive magnitude; whether it boosts or penalizes depends on which list
// it lives in.
type Adjustment struct {
	Kind   AdjustmentKind `json:"kind"`
	Key    string         `json:"key"`
	Points int            `json:"points"`
}

// Preferences hold a user's scouting preferences. Derived from the profile
// on first access, independently editable after, mutated by learning.
type Preferences struct {
	UserID              uuid.UUID
	TargetRoles         []string
	RoleKeywords        []string
	TargetLocations     []string
	LocationFlexibility string
	TargetCompanyIDs    []uuid.UUID
	ExcludedCompanyIDs  []uuid.UUID
	TargetIndustries    []string
	ExcludedIndustries  []string
	CompanyStages       []string
	MinSalary           *int
	SalaryFlexibility   string
	MinScore            int
	LearnedBoosts       []Adjustment
	LearnedPenalties    []Adjustment
	SyncedFromProfileAt *time.Time
}

// Flexibility modes for location and salary preferences.
const (
	FlexPreferred = "preferred"
	FlexStrict    = "strict"
	FlexFlexible  = "flexible"
)

// DefaultMinScore is the match threshold for new preference rows.
const DefaultMinScore = 30

// Company is an internal directory entry used to attach stable references
// to postings.
type Company struct {
	ID         uuid.UUID
	Name       string
	Sector     string
	Stage      string
	IsExcluded bool
}

// User identifies a scout consumer.
type User struct {
	ID    uuid.UUID
	Email string
}

// Profile is the user profile preferences are derived from.
type Profile struct {
	UserID            uuid.UUID
	TargetRoles       []string
	TargetLocations   []string
	TargetSalaryRange string
	CoreSkills        []string
	ResumeKeywords    []string
	Industries        []string
	ExperienceLevel   string
}

// Summary renders the profile as context for the AI scorer.
func (p *Profile) Summary() string {
	if p == nil {
		return "No detailed profile available."
	}
	var parts []string
	if len(p.TargetRoles) > 0 {
		parts = append(parts, "Target roles: "+strings.Join(p.TargetRoles, ", "))
	}
	if len(p.TargetLocations) > 0 {
		parts = append(parts, "Target locations: "+strings.Join(p.TargetLocations, ", "))
	}
	if len(p.CoreSkills) > 0 {
		parts = append(parts, "Core skills: "+strings.Join(p.CoreSkills, ", "))
	}
	if len(p.Industries) > 0 {
		parts = append(parts, "Industries: "+strings.Join(p.Industries, ", "))
	}
	if p.ExperienceLevel != "" {
		parts = append(parts, "Experience level: "+p.ExperienceLevel)
	}
	if len(parts) == 0 {
		return "No detailed profile available."
	}
	return strings.Join(parts, "\n")
}

// PipelineJob is the application-pipeline record a promoted result copies
// into. Owned by the excluded CRUD layer; the engine only creates it.
type PipelineJob struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	CompanyName  string
	RoleTitle    string
	SourcePortal string
	JDURL        string
	JDText       string
	Status       string
	FitScore     float64
	FitReasoning string
	SalaryRange  string
	Note         string
}

// RunSummary reports the outcome of an on-demand run. A run always returns
// a summary; non-fatal problems land in Errors.
type RunSummary struct {
	RunID          string   `json:"run_id"`
	SourcesQueried []string `json:"sources_queried"`
	TotalFetched   int      `json:"total_fetched"`
	AfterDedup     int      `json:"after_dedup"`
	AfterPrefilter int      `json:"after_prefilter"`
	AIScored       int      `json:"ai_scored"`
	Promoted       int      `json:"promoted_to_pipeline"`
	SavedForReview int      `json:"saved_for_review"`
	Dismissed      int      `json:"dismissed"`
	Errors         []string `json:"errors"`
}

// PoolSummary reports the outcome of a shared-pool run.
type PoolSummary struct {
	RunID          string   `json:"run_id"`
	SourcesQueried []string `json:"sources_queried"`
	TotalFetched   int      `json:"total_fetched"`
	Inserted       int      `json:"inserted"`
	Refreshed      int      `json:"refreshed"`
	MarkedStale    int      `json:"marked_stale"`
	UsersScored    int      `json:"users_scored"`
	MatchesCreated int      `json:"matches_created"`
	Errors         []string `json:"errors"`
}

// NewRunID builds a sortable, unique run identifier.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("scout_%s_%s", now.UTC().Format("20060102_150405"), uuid.NewString()[:6])
}
