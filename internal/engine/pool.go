package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/logger"
	"github.com/svailabs/jobscout/internal/notify"
	"github.com/svailabs/jobscout/internal/scoring"
	"github.com/svailabs/jobscout/internal/scout"
	"github.com/svailabs/jobscout/internal/source"
)

// PoolStore is the persistence surface of the shared-pool refresh.
type PoolStore interface {
	UpsertScoutedJob(ctx context.Context, c *scout.Candidate, companyID *uuid.UUID, now time.Time) (uuid.UUID, bool, error)
	MarkStale(ctx context.Context, now time.Time) (int, error)
	ActiveScoutedJobs(ctx context.Context) ([]*scout.ScoutedJob, error)
	UserIDsWithPreferences(ctx context.Context) ([]uuid.UUID, error)
	GetPreferences(ctx context.Context, userID uuid.UUID) (*scout.Preferences, error)
	MatchedJobIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error)
	InsertMatch(ctx context.Context, m *scout.UserScoutedJob) (bool, error)
	ResolveCompanyByNormalizedName(ctx context.Context, nameNorm string) (*scout.Company, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*scout.Company, error)
}

// Pool refreshes the shared job pool and scores it for every user with
// preferences using the deterministic rubric. No AI calls.
type Pool struct {
	store    PoolStore
	adapters []source.Adapter
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewPool(store PoolStore, adapters []source.Adapter, notifier Notifier, logger *zap.Logger) *Pool {
	return &Pool{
		store:    store,
		adapters: adapters,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one pool refresh: ingest sightings, mark stale entries,
// then match the live pool against every user's preferences.
func (p *Pool) Run(ctx context.Context) (*scout.PoolSummary, error) {
	now := p.now()
	summary := &scout.PoolSummary{RunID: scout.NewRunID(now)}
	log := logger.WithFields(p.logger, logger.RunFields(summary.RunID)...)
	log.Info("pool run starting")

	if len(p.adapters) == 0 {
		summary.Errors = append(summary.Errors, "no sources configured")
		log.Warn("pool run skipped", zap.String("reason", "no sources configured"))
		return summary, nil
	}

	// 1. Ingest. Board adapters ignore queries; query-driven adapters run
	// the default grid.
	fetched := source.FetchAll(ctx, p.adapters, source.BuildQueries(nil, nil), log)
	summary.SourcesQueried = fetched.SourcesQueried
	summary.Errors = append(summary.Errors, fetched.Errors...)
	summary.TotalFetched = len(fetched.Candidates)

	companies := newCompanyCache(p.store)

	seen := make(map[string]struct{}, len(fetched.Candidates))
	for _, c := range fetched.Candidates {
		if c.Fingerprint == "" {
			continue
		}
		// First sighting wins within a batch.
		if _, dup := seen[c.Fingerprint]; dup {
			continue
		}
		seen[c.Fingerprint] = struct{}{}

		company, err := companies.resolveByName(ctx, c.CompanyNameNormalized)
		if err != nil {
			log.Debug("company resolution failed",
				zap.String("company", c.CompanyName), zap.Error(err))
		}
		var companyID *uuid.UUID
		if company != nil {
			companyID = &company.ID
		}

		_, inserted, err := p.store.UpsertScoutedJob(ctx, c, companyID, now)
		if err != nil {
			return summary, fmt.Errorf("upsert pool entry: %w", err)
		}
		if inserted {
			summary.Inserted++
		} else {
			summary.Refreshed++
		}
	}

	// 2. Staleness sweep.
	stale, err := p.store.MarkStale(ctx, now)
	if err != nil {
		return summary, fmt.Errorf("mark stale: %w", err)
	}
	summary.MarkedStale = stale

	// 3. Score the live pool per user.
	jobs, err := p.store.ActiveScoutedJobs(ctx)
	if err != nil {
		return summary, fmt.Errorf("load active pool: %w", err)
	}
	userIDs, err := p.store.UserIDsWithPreferences(ctx)
	if err != nil {
		return summary, fmt.Errorf("load users: %w", err)
	}

	for _, userID := range userIDs {
		matches, err := p.scoreForUser(ctx, userID, jobs, companies, now, log)
		if err != nil {
			log.Error("user scoring failed",
				zap.String("user_id", userID.String()), zap.Error(err))
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("user %s: %v", userID, err))
			continue
		}
		summary.UsersScored++
		summary.MatchesCreated += matches
	}

	log.Info("pool run complete",
		zap.Int("inserted", summary.Inserted),
		zap.Int("refreshed", summary.Refreshed),
		zap.Int("marked_stale", summary.MarkedStale),
		zap.Int("matches_created", summary.MatchesCreated))

	if p.notifier != nil && p.notifier.Enabled() && summary.MatchesCreated > 0 {
		if err := p.notifier.Send(ctx, notify.PoolMessage(summary)); err != nil {
			log.Error("notification failed", zap.Error(err))
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("Telegram notification failed: %v", err))
		}
	}
	return summary, nil
}

func (p *Pool) scoreForUser(ctx context.Context, userID uuid.UUID, jobs []*scout.ScoutedJob, companies *companyCache, now time.Time, log *zap.Logger) (int, error) {
	prefs, err := p.store.GetPreferences(ctx, userID)
	if err != nil {
		return 0, err
	}
	if prefs == nil {
		return 0, nil
	}
	minScore := prefs.MinScore
	if minScore <= 0 {
		minScore = scout.DefaultMinScore
	}

	existing, err := p.store.MatchedJobIDs(ctx, userID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, job := range jobs {
		if _, done := existing[job.ID]; done {
			continue
		}

		company, err := companies.resolve(ctx, job)
		if err != nil {
			log.Debug("company resolution failed",
				zap.String("company", job.CompanyName), zap.Error(err))
		}

		result := scoring.Score(job, prefs, company, now)
		if result.Total < minScore {
			continue
		}

		inserted, err := p.store.InsertMatch(ctx, &scout.UserScoutedJob{
			ID:             uuid.New(),
			UserID:         userID,
			ScoutedJobID:   job.ID,
			RelevanceScore: result.Total,
			ScoreBreakdown: result.Breakdown,
			MatchReasons:   result.Reasons,
			Status:         scout.MatchStatusNew,
			MatchedAt:      now,
		})
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

// companyCache memoizes directory lookups across users within one run.
type companyCache struct {
	store  PoolStore
	byID   map[uuid.UUID]*scout.Company
	byName map[string]*scout.Company
}

func newCompanyCache(store PoolStore) *companyCache {
	return &companyCache{
		store:  store,
		byID:   make(map[uuid.UUID]*scout.Company),
		byName: make(map[string]*scout.Company),
	}
}

func (c *companyCache) resolve(ctx context.Context, job *scout.ScoutedJob) (*scout.Company, error) {
	if job.MatchedCompanyID != nil {
		if cached, ok := c.byID[*job.MatchedCompanyID]; ok {
			return cached, nil
		}
		company, err := c.store.GetCompany(ctx, *job.MatchedCompanyID)
		if err != nil {
			return nil, err
		}
		c.byID[*job.MatchedCompanyID] = company
		return company, nil
	}

	return c.resolveByName(ctx, job.CompanyNameNorm)
}

func (c *companyCache) resolveByName(ctx context.Context, nameNorm string) (*scout.Company, error) {
	if nameNorm == "" {
		return nil, nil
	}
	if cached, ok := c.byName[nameNorm]; ok {
		return cached, nil
	}
	company, err := c.store.ResolveCompanyByNormalizedName(ctx, nameNorm)
	if err != nil {
		return nil, err
	}
	c.byName[nameNorm] = company
	return company, nil
}
