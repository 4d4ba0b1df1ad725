// Package engine wires the pipeline stages into the two orchestrators: the
// on-demand AI-scored run and the shared-pool refresh.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/ai"
	"github.com/svailabs/jobscout/internal/dedup"
	"github.com/svailabs/jobscout/internal/logger"
	"github.com/svailabs/jobscout/internal/notify"
	"github.com/svailabs/jobscout/internal/prefilter"
	"github.com/svailabs/jobscout/internal/scout"
	"github.com/svailabs/jobscout/internal/source"
)

// Promotion thresholds on the 0-10 AI fit scale.
const (
	promoteScore = 7
	reviewScore  = 5
)

// RunStore is the persistence surface of the on-demand pipeline.
type RunStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*scout.Profile, error)
	KnownDedupState(ctx context.Context, userID uuid.UUID) (dedup.Known, error)
	ExcludedCompanyNames(ctx context.Context) (map[string]struct{}, error)
	// SaveRunResults persists a run's results together with the pipeline
	// jobs its promotions created, atomically.
	SaveRunResults(ctx context.Context, results []*scout.ScoutResult, promoted []*scout.PipelineJob) error
}

// Notifier delivers run outcome messages.
type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, text string) error
}

// PrefsSource loads the user's scouting preferences, deriving them from
// the profile on first access.
type PrefsSource interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*scout.Preferences, error)
}

// Runner executes the on-demand pipeline:
// fetch, dedup, pre-filter, AI score, categorize, save, notify.
type Runner struct {
	store    RunStore
	prefs    PrefsSource
	adapters []source.Adapter
	scorer   ai.BatchScorer
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewRunner(store RunStore, prefs PrefsSource, adapters []source.Adapter, scorer ai.BatchScorer, notifier Notifier, logger *zap.Logger) *Runner {
	return &Runner{
		store:    store,
		prefs:    prefs,
		adapters: adapters,
		scorer:   scorer,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one full pipeline pass for the user. A summary always comes
// back; non-fatal problems are recorded in its Errors, and only persistence
// failures surface as a Go error.
func (r *Runner) Run(ctx context.Context, userID uuid.UUID) (*scout.RunSummary, error) {
	now := r.now()
	summary := &scout.RunSummary{RunID: scout.NewRunID(now)}
	log := logger.WithFields(r.logger, logger.RunFields(summary.RunID)...)
	log.Info("scout run starting", zap.String("user_id", userID.String()))

	if len(r.adapters) == 0 {
		summary.Errors = append(summary.Errors, "no sources configured")
		log.Warn("scout run skipped", zap.String("reason", "no sources configured"))
		return summary, nil
	}

	profile, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		log.Warn("profile unavailable, using defaults", zap.Error(err))
		profile = nil
	}

	var prefs *scout.Preferences
	if r.prefs != nil {
		prefs, err = r.prefs.GetOrCreate(ctx, userID)
		if err != nil {
			log.Warn("preferences unavailable, falling back to profile", zap.Error(err))
			prefs = nil
		}
	}

	roles, locations := searchInputs(prefs, profile)
	queries := source.QueriesForRoles(roles, locations)

	// 1. Fetch.
	fetched := source.FetchAll(ctx, r.adapters, queries, log)
	summary.SourcesQueried = fetched.SourcesQueried
	summary.Errors = append(summary.Errors, fetched.Errors...)
	summary.TotalFetched = len(fetched.Candidates)
	if summary.TotalFetched == 0 {
		log.Warn("no results fetched from any source")
		return summary, nil
	}

	// 2. Dedup against prior results and within the batch.
	known, err := r.store.KnownDedupState(ctx, userID)
	if err != nil {
		return summary, fmt.Errorf("load dedup state: %w", err)
	}
	deduped := dedup.Filter(fetched.Candidates, known)
	summary.AfterDedup = len(deduped)
	log.Info("dedup complete",
		zap.Int("in", summary.TotalFetched), zap.Int("out", summary.AfterDedup))

	// 3. Pre-filter.
	excluded, err := r.store.ExcludedCompanyNames(ctx)
	if err != nil {
		return summary, fmt.Errorf("load excluded companies: %w", err)
	}
	filtered := prefilter.Apply(deduped, prefilter.Rules{
		TargetRoles:       roles,
		TargetLocations:   locations,
		ExcludedCompanies: excluded,
	})
	summary.AfterPrefilter = len(filtered)
	log.Info("pre-filter complete",
		zap.Int("in", summary.AfterDedup), zap.Int("out", summary.AfterPrefilter))

	// 4. AI score in batches.
	scored := r.scoreAll(ctx, profile.Summary(), filtered, summary, log)
	summary.AIScored = len(scored)

	// 5. Categorize and persist.
	results := make([]*scout.ScoutResult, 0, len(scored))
	var promoted []*scout.ScoutResult
	var promotedJobs []*scout.PipelineJob
	for _, sc := range scored {
		result := &scout.ScoutResult{
			ID:            uuid.New(),
			UserID:        userID,
			Source:        sc.candidate.Source,
			SourceURL:     sc.candidate.SourceURL,
			Title:         sc.candidate.Title,
			CompanyName:   sc.candidate.CompanyName,
			Location:      sc.candidate.Location,
			Snippet:       sc.candidate.Description,
			SalaryRaw:     sc.candidate.SalaryRaw,
			PostedDateRaw: sc.candidate.PostedDateRaw,
			Normalized:    sc.candidate,
			FitScore:      sc.score.FitScore,
			B2CValidated:  sc.score.B2CValidated,
			AIReasoning:   sc.score.Reasoning,
			ScoutRunID:    summary.RunID,
			CreatedAt:     now,
		}

		switch {
		case sc.score.FitScore >= promoteScore:
			result.Status = scout.ResultStatusPromoted
			job := pipelineJob(userID, result, summary.RunID)
			result.PromotedJobID = &job.ID
			promotedJobs = append(promotedJobs, job)
			summary.Promoted++
			promoted = append(promoted, result)
		case sc.score.FitScore >= reviewScore:
			result.Status = scout.ResultStatusNew
			summary.SavedForReview++
		default:
			result.Status = scout.ResultStatusDismissed
			summary.Dismissed++
		}
		results = append(results, result)
	}

	if err := r.store.SaveRunResults(ctx, results, promotedJobs); err != nil {
		return summary, fmt.Errorf("save run results: %w", err)
	}

	log.Info("scout run complete",
		zap.Int("promoted", summary.Promoted),
		zap.Int("for_review", summary.SavedForReview),
		zap.Int("dismissed", summary.Dismissed))

	// 6. Notify.
	r.sendNotification(ctx, summary, promoted, log)

	return summary, nil
}

type scoredCandidate struct {
	candidate *scout.Candidate
	score     ai.JobScore
}

func (r *Runner) scoreAll(ctx context.Context, profileSummary string, items []*scout.Candidate, summary *scout.RunSummary, log *zap.Logger) []scoredCandidate {
	var scored []scoredCandidate
	for start := 0; start < len(items); start += ai.BatchSize {
		end := start + ai.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		scores, err := r.scorer.ScoreBatch(ctx, profileSummary, batch)
		if err != nil {
			log.Error("ai scoring failed", zap.Error(err))
			summary.Errors = append(summary.Errors, fmt.Sprintf("AI scoring error: %v", err))
			for _, c := range batch {
				scored = append(scored, scoredCandidate{
					candidate: c,
					score:     ai.JobScore{Reasoning: "Scoring unavailable"},
				})
			}
			continue
		}
		for i, c := range batch {
			scored = append(scored, scoredCandidate{candidate: c, score: scores[i]})
		}
	}
	return scored
}

func (r *Runner) sendNotification(ctx context.Context, summary *scout.RunSummary, promoted []*scout.ScoutResult, log *zap.Logger) {
	if r.notifier == nil || !r.notifier.Enabled() {
		return
	}

	var text string
	switch {
	case summary.Promoted > 0:
		text = notify.RunMessage(summary, promoted)
	case summary.SavedForReview > 0:
		text = notify.NoMatchesMessage(summary)
	default:
		return
	}

	if err := r.notifier.Send(ctx, text); err != nil {
		log.Error("notification failed", zap.Error(err))
		summary.Errors = append(summary.Errors, fmt.Sprintf("Telegram notification failed: %v", err))
	}
}

func pipelineJob(userID uuid.UUID, result *scout.ScoutResult, runID string) *scout.PipelineJob {
	return &scout.PipelineJob{
		ID:           uuid.New(),
		UserID:       userID,
		CompanyName:  result.CompanyName,
		RoleTitle:    result.Title,
		SourcePortal: result.Source,
		JDURL:        result.SourceURL,
		JDText:       result.Snippet,
		Status:       "Tracking",
		FitScore:     result.FitScore,
		FitReasoning: result.AIReasoning,
		SalaryRange:  result.SalaryRaw,
		Note: fmt.Sprintf("Auto-discovered by Job Scout (run %s). Fit score: %g/10.",
			runID, result.FitScore),
	}
}

// searchInputs picks the search roles and locations: preferences first,
// profile second, built-in defaults last.
func searchInputs(prefs *scout.Preferences, profile *scout.Profile) (roles, locations []string) {
	switch {
	case prefs != nil && len(prefs.TargetRoles) > 0:
		roles = prefs.TargetRoles
	case profile != nil && len(profile.TargetRoles) > 0:
		roles = profile.TargetRoles
	default:
		roles = []string{
			"Head of Growth", "VP Growth", "Director Growth Marketing",
			"Head of Marketing", "Growth Lead",
		}
	}
	if len(roles) > 5 {
		roles = roles[:5]
	}

	switch {
	case prefs != nil && len(prefs.TargetLocations) > 0:
		locations = prefs.TargetLocations
	case profile != nil && len(profile.TargetLocations) > 0:
		locations = profile.TargetLocations
	default:
		locations = []string{"Bangalore", "Remote"}
	}
	return roles, locations
}
