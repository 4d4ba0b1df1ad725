package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/ai"
	"github.com/svailabs/jobscout/internal/dedup"
	"github.com/svailabs/jobscout/internal/scout"
	"github.com/svailabs/jobscout/internal/source"
)

type stubAdapter struct {
	name       string
	candidates []*scout.Candidate
	err        error
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(_ context.Context, _ []source.Query) ([]*scout.Candidate, error) {
	return s.candidates, s.err
}

type stubScorer struct {
	scores []ai.JobScore
	err    error
	calls  int
}

func (s *stubScorer) ScoreBatch(_ context.Context, _ string, jobs []*scout.Candidate) ([]ai.JobScore, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]ai.JobScore, len(jobs))
	for i := range jobs {
		idx := len(out)*(s.calls-1) + i
		if idx < len(s.scores) {
			out[i] = s.scores[idx]
		}
	}
	return out, nil
}

type stubNotifier struct {
	enabled bool
	sent    []string
	err     error
}

func (s *stubNotifier) Enabled() bool { return s.enabled }

func (s *stubNotifier) Send(_ context.Context, text string) error {
	s.sent = append(s.sent, text)
	return s.err
}

type fakeRunStore struct {
	profile      *scout.Profile
	known        dedup.Known
	excluded     map[string]struct{}
	savedResults []*scout.ScoutResult
	pipelineJobs []*scout.PipelineJob
	saveErr      error
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{
		known:    dedup.Known{},
		excluded: map[string]struct{}{},
	}
}

func (f *fakeRunStore) GetProfile(_ context.Context, _ uuid.UUID) (*scout.Profile, error) {
	if f.profile == nil {
		return nil, errors.New("no profile")
	}
	return f.profile, nil
}

func (f *fakeRunStore) KnownDedupState(_ context.Context, _ uuid.UUID) (dedup.Known, error) {
	return f.known, nil
}

func (f *fakeRunStore) ExcludedCompanyNames(_ context.Context) (map[string]struct{}, error) {
	return f.excluded, nil
}

// SaveRunResults mirrors the real store: results and pipeline jobs land
// together or not at all.
func (f *fakeRunStore) SaveRunResults(_ context.Context, results []*scout.ScoutResult, promoted []*scout.PipelineJob) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedResults = append(f.savedResults, results...)
	f.pipelineJobs = append(f.pipelineJobs, promoted...)
	return nil
}

func candidate(title, company, url string) *scout.Candidate {
	return &scout.Candidate{
		Title:       title,
		CompanyName: company,
		Location:    "Bangalore",
		Source:      "adzuna",
		SourceURL:   url,
		Description: "consumer growth role",
	}
}

func TestRunnerRunEndToEnd(t *testing.T) {
	store := newFakeRunStore()
	store.profile = &scout.Profile{
		TargetRoles:     []string{"VP Growth"},
		TargetLocations: []string{"Bangalore"},
	}
	adapters := []source.Adapter{
		&stubAdapter{name: "adzuna", candidates: []*scout.Candidate{
			candidate("VP Growth", "PhonePe", "https://a.example/1"),
			candidate("Head of Marketing", "CRED", "https://a.example/2"),
			candidate("Director Growth", "Meesho", "https://a.example/3"),
		}},
	}
	scorer := &stubScorer{scores: []ai.JobScore{
		{FitScore: 8.5, B2CValidated: true, Reasoning: "strong"},
		{FitScore: 6, B2CValidated: true, Reasoning: "maybe"},
		{FitScore: 2, Reasoning: "weak"},
	}}
	notifier := &stubNotifier{enabled: true}

	runner := NewRunner(store, nil, adapters, scorer, notifier, zap.NewNop())
	summary, err := runner.Run(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}

	if summary.TotalFetched != 3 || summary.AfterDedup != 3 || summary.AfterPrefilter != 3 {
		t.Fatalf("unexpected funnel: %+v", summary)
	}
	if summary.AIScored != 3 || summary.Promoted != 1 || summary.SavedForReview != 1 || summary.Dismissed != 1 {
		t.Fatalf("unexpected categorization: %+v", summary)
	}

	if len(store.pipelineJobs) != 1 {
		t.Fatalf("expected 1 pipeline job, got %d", len(store.pipelineJobs))
	}
	pj := store.pipelineJobs[0]
	if pj.Status != "Tracking" || pj.CompanyName != "PhonePe" {
		t.Fatalf("unexpected pipeline job: %+v", pj)
	}
	if !strings.Contains(pj.Note, summary.RunID) {
		t.Fatalf("pipeline note missing run id: %q", pj.Note)
	}

	if len(store.savedResults) != 3 {
		t.Fatalf("expected 3 saved results, got %d", len(store.savedResults))
	}
	var promotedResult *scout.ScoutResult
	for _, r := range store.savedResults {
		if r.Status == scout.ResultStatusPromoted {
			promotedResult = r
		}
		if r.ScoutRunID != summary.RunID {
			t.Fatalf("result missing run id: %+v", r)
		}
	}
	if promotedResult == nil || promotedResult.PromotedJobID == nil {
		t.Fatalf("promoted result not linked to pipeline job")
	}
	if *promotedResult.PromotedJobID != pj.ID {
		t.Fatalf("promoted result links %s, pipeline job is %s", *promotedResult.PromotedJobID, pj.ID)
	}

	if len(notifier.sent) != 1 || !strings.Contains(notifier.sent[0], "Promoted to pipeline: 1") {
		t.Fatalf("unexpected notification: %v", notifier.sent)
	}
}

func TestRunnerSaveFailureLeavesNoPipelineJobs(t *testing.T) {
	store := newFakeRunStore()
	store.profile = &scout.Profile{TargetRoles: []string{"VP Growth"}}
	store.saveErr = errors.New("connection lost")
	adapters := []source.Adapter{
		&stubAdapter{name: "adzuna", candidates: []*scout.Candidate{
			candidate("VP Growth", "PhonePe", "https://a.example/1"),
		}},
	}
	scorer := &stubScorer{scores: []ai.JobScore{{FitScore: 9, Reasoning: "strong"}}}

	runner := NewRunner(store, nil, adapters, scorer, nil, zap.NewNop())
	if _, err := runner.Run(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected a persistence error")
	}
	if len(store.pipelineJobs) != 0 || len(store.savedResults) != 0 {
		t.Fatalf("failed save must not leave partial writes: jobs=%d results=%d",
			len(store.pipelineJobs), len(store.savedResults))
	}
}

func TestRunnerNoSources(t *testing.T) {
	runner := NewRunner(newFakeRunStore(), nil, nil, &stubScorer{}, nil, zap.NewNop())
	summary, err := runner.Run(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalFetched != 0 || len(summary.Errors) != 1 {
		t.Fatalf("expected zeroed summary with error string: %+v", summary)
	}
	if summary.Errors[0] != "no sources configured" {
		t.Fatalf("unexpected error string: %q", summary.Errors[0])
	}
}

func TestRunnerNothingFetched(t *testing.T) {
	adapters := []source.Adapter{&stubAdapter{name: "adzuna"}}
	scorer := &stubScorer{}
	runner := NewRunner(newFakeRunStore(), nil, adapters, scorer, nil, zap.NewNop())

	summary, err := runner.Run(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalFetched != 0 || summary.AIScored != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if scorer.calls != 0 {
		t.Fatal("scorer must not run on an empty fetch")
	}
}

func TestRunnerDedupAcrossSources(t *testing.T) {
	store := newFakeRunStore()
	store.profile = &scout.Profile{TargetRoles: []string{"VP Growth"}}
	// Same job from two adapters with near-identical title and company.
	adapters := []source.Adapter{
		&stubAdapter{name: "adzuna", candidates: []*scout.Candidate{
			candidate("VP Growth Marketing", "PhonePe", "https://a.example/1"),
		}},
		&stubAdapter{name: "greenhouse", candidates: []*scout.Candidate{
			candidate("VP, Growth Marketing", "PhonePe", "https://g.example/2"),
		}},
	}
	scorer := &stubScorer{scores: []ai.JobScore{{FitScore: 6, Reasoning: "ok"}}}

	runner := NewRunner(store, nil, adapters, scorer, nil, zap.NewNop())
	summary, err := runner.Run(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalFetched != 2 || summary.AfterDedup != 1 {
		t.Fatalf("fuzzy cross-source dedup failed: %+v", summary)
	}
}

func TestRunnerScoringFailureDegrades(t *testing.T) {
	store := newFakeRunStore()
	store.profile = &scout.Profile{TargetRoles: []string{"VP Growth"}}
	adapters := []source.Adapter{
		&stubAdapter{name: "adzuna", candidates: []*scout.Candidate{
			candidate("VP Growth", "PhonePe", "https://a.example/1"),
		}},
	}
	scorer := &stubScorer{err: errors.New("model unavailable")}

	runner := NewRunner(store, nil, adapters, scorer, nil, zap.NewNop())
	summary, err := runner.Run(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if summary.AIScored != 1 || summary.Dismissed != 1 {
		t.Fatalf("failed batch must still be saved: %+v", summary)
	}
	if len(store.savedResults) != 1 || store.savedResults[0].AIReasoning != "Scoring unavailable" {
		t.Fatalf("unexpected saved result: %+v", store.savedResults)
	}
	found := false
	for _, e := range summary.Errors {
		if strings.Contains(e, "AI scoring error") {
			found = true
		}
	}
	if !found {
		t.Fatalf("scoring error not recorded: %v", summary.Errors)
	}
}

func TestRunnerBatchesOfFive(t *testing.T) {
	store := newFakeRunStore()
	store.profile = &scout.Profile{TargetRoles: []string{"VP Growth"}}
	companies := []string{"PhonePe", "CRED", "Meesho", "Zepto", "Swiggy", "Razorpay", "Groww"}
	var candidates []*scout.Candidate
	for i, company := range companies {
		candidates = append(candidates, candidate(
			"VP Growth", company, fmt.Sprintf("https://a.example/%d", i)))
	}
	adapters := []source.Adapter{&stubAdapter{name: "adzuna", candidates: candidates}}
	scorer := &stubScorer{}

	runner := NewRunner(store, nil, adapters, scorer, nil, zap.NewNop())
	if _, err := runner.Run(context.Background(), uuid.New()); err != nil {
		t.Fatal(err)
	}
	if scorer.calls != 2 {
		t.Fatalf("expected 2 batches for 7 jobs, got %d", scorer.calls)
	}
}

type stubPrefs struct {
	prefs *scout.Preferences
	err   error
}

func (s *stubPrefs) GetOrCreate(_ context.Context, _ uuid.UUID) (*scout.Preferences, error) {
	return s.prefs, s.err
}

func TestSearchInputsPreferPreferences(t *testing.T) {
	prefs := &scout.Preferences{
		TargetRoles:     []string{"Head of Growth"},
		TargetLocations: []string{"Mumbai"},
	}
	profile := &scout.Profile{
		TargetRoles:     []string{"VP Growth"},
		TargetLocations: []string{"Bangalore"},
	}

	roles, locations := searchInputs(prefs, profile)
	if len(roles) != 1 || roles[0] != "Head of Growth" {
		t.Fatalf("preferences must win: %v", roles)
	}
	if len(locations) != 1 || locations[0] != "Mumbai" {
		t.Fatalf("preferences must win: %v", locations)
	}

	roles, locations = searchInputs(nil, profile)
	if roles[0] != "VP Growth" || locations[0] != "Bangalore" {
		t.Fatalf("profile fallback broken: %v %v", roles, locations)
	}

	roles, locations = searchInputs(nil, nil)
	if len(roles) != 5 || len(locations) != 2 {
		t.Fatalf("defaults broken: %v %v", roles, locations)
	}
}

func TestRunnerUsesPreferenceRoles(t *testing.T) {
	store := newFakeRunStore()
	adapter := &recordingAdapter{}
	scorer := &stubScorer{}
	prefs := &stubPrefs{prefs: &scout.Preferences{
		TargetRoles:     []string{"Head of Growth"},
		TargetLocations: []string{"Mumbai"},
	}}

	runner := NewRunner(store, prefs, []source.Adapter{adapter}, scorer, nil, zap.NewNop())
	if _, err := runner.Run(context.Background(), uuid.New()); err != nil {
		t.Fatal(err)
	}

	if len(adapter.queries) != 1 {
		t.Fatalf("expected 1 query, got %d", len(adapter.queries))
	}
	q := adapter.queries[0]
	if q.Text != "Head of Growth Mumbai" || q.Location != "Mumbai" {
		t.Fatalf("query not built from preferences: %+v", q)
	}
}

type recordingAdapter struct {
	queries []source.Query
}

func (r *recordingAdapter) Name() string { return "recording" }

func (r *recordingAdapter) Fetch(_ context.Context, queries []source.Query) ([]*scout.Candidate, error) {
	r.queries = append(r.queries, queries...)
	return nil, nil
}
