package prefs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/scout"
)

type fakeStore struct {
	prefs      map[uuid.UUID]*scout.Preferences
	profiles   map[uuid.UUID]*scout.Profile
	dismissals map[string]int
	saves      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prefs:      make(map[uuid.UUID]*scout.Preferences),
		profiles:   make(map[uuid.UUID]*scout.Profile),
		dismissals: make(map[string]int),
	}
}

func (f *fakeStore) GetPreferences(_ context.Context, userID uuid.UUID) (*scout.Preferences, error) {
	return f.prefs[userID], nil
}

func (f *fakeStore) SavePreferences(_ context.Context, p *scout.Preferences) error {
	f.prefs[p.UserID] = p
	f.saves++
	return nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID uuid.UUID) (*scout.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, errors.New("profile not found")
	}
	return p, nil
}

func (f *fakeStore) CountDismissals(_ context.Context, _ uuid.UUID, reason string) (int, error) {
	return f.dismissals[reason], nil
}

func TestFromProfile(t *testing.T) {
	userID := uuid.New()
	profile := &scout.Profile{
		UserID:            userID,
		TargetRoles:       []string{"VP Growth", "Head of Marketing"},
		TargetLocations:   []string{"Bangalore"},
		TargetSalaryRange: "₹80-120 Lakh",
		CoreSkills:        []string{"Growth", "Retention"},
		ResumeKeywords:    []string{"growth", "CAC"},
	}

	p := FromProfile(userID, profile)
	if len(p.TargetRoles) != 2 || len(p.TargetLocations) != 1 {
		t.Fatalf("roles/locations not carried over: %+v", p)
	}
	if p.MinSalary == nil || *p.MinSalary != 8_000_000 {
		t.Fatalf("expected min salary 8000000, got %v", p.MinSalary)
	}
	// "growth" appears in both skills and keywords, case-insensitively.
	if len(p.RoleKeywords) != 3 {
		t.Fatalf("expected 3 deduped keywords, got %v", p.RoleKeywords)
	}
	if p.MinScore != scout.DefaultMinScore {
		t.Fatalf("expected default min score, got %d", p.MinScore)
	}
	if len(p.ExcludedIndustries) != 1 || p.ExcludedIndustries[0] != "Food Delivery" {
		t.Fatalf("expected default excluded industries, got %v", p.ExcludedIndustries)
	}
}

func TestFromProfileNil(t *testing.T) {
	p := FromProfile(uuid.New(), nil)
	if p.MinScore != scout.DefaultMinScore || len(p.TargetRoles) != 0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestGetOrCreateDerivesOnce(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	store.profiles[userID] = &scout.Profile{UserID: userID, TargetRoles: []string{"VP Growth"}}
	svc := NewService(store, zap.NewNop())

	first, err := svc.GetOrCreate(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if store.saves != 1 {
		t.Fatalf("expected one save, got %d", store.saves)
	}
	second, err := svc.GetOrCreate(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if store.saves != 1 || first.UserID != second.UserID {
		t.Fatalf("second call must reuse the stored row")
	}
}

func TestSyncFromProfileKeepsLearned(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	store.profiles[userID] = &scout.Profile{UserID: userID, TargetRoles: []string{"CMO"}}
	store.prefs[userID] = &scout.Preferences{
		UserID:      userID,
		TargetRoles: []string{"VP Growth"},
		LearnedPenalties: []scout.Adjustment{
			{Kind: scout.AdjustTitleWord, Key: "sales", Points: 5},
		},
	}
	svc := NewService(store, zap.NewNop())

	p, err := svc.SyncFromProfile(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.TargetRoles) != 1 || p.TargetRoles[0] != "CMO" {
		t.Fatalf("roles not re-derived: %v", p.TargetRoles)
	}
	if len(p.LearnedPenalties) != 1 {
		t.Fatalf("learned penalties must survive sync: %v", p.LearnedPenalties)
	}
	if p.SyncedFromProfileAt == nil {
		t.Fatal("sync timestamp not set")
	}
}

func TestApplyDismissalWrongCompanyByID(t *testing.T) {
	companyID := uuid.New()
	p := &scout.Preferences{}
	job := &scout.ScoutedJob{CompanyName: "Acme Technologies", MatchedCompanyID: &companyID}

	if !ApplyDismissal(p, job, scout.DismissWrongCompany, 1) {
		t.Fatal("expected change")
	}
	if len(p.LearnedPenalties) != 1 {
		t.Fatalf("expected 1 penalty, got %v", p.LearnedPenalties)
	}
	adj := p.LearnedPenalties[0]
	if adj.Kind != scout.AdjustCompany || adj.Key != companyID.String() || adj.Points != 15 {
		t.Fatalf("unexpected adjustment: %+v", adj)
	}

	// Same company again stacks on the existing record.
	if !ApplyDismissal(p, job, scout.DismissWrongCompany, 2) {
		t.Fatal("repeat dismissal must still change preferences")
	}
	if len(p.LearnedPenalties) != 1 {
		t.Fatalf("repeat dismissal must not add a second record: %v", p.LearnedPenalties)
	}
	if p.LearnedPenalties[0].Points != 30 {
		t.Fatalf("expected compounded penalty 30, got %d", p.LearnedPenalties[0].Points)
	}
}

func TestApplyDismissalWrongRoleCompounds(t *testing.T) {
	p := &scout.Preferences{}
	job := &scout.ScoutedJob{Title: "Sales Manager"}

	if !ApplyDismissal(p, job, scout.DismissWrongRole, 1) {
		t.Fatal("expected change")
	}
	if !ApplyDismissal(p, job, scout.DismissWrongRole, 2) {
		t.Fatal("repeat dismissal must still change preferences")
	}
	if len(p.LearnedPenalties) != 2 {
		t.Fatalf("expected 2 title words, got %v", p.LearnedPenalties)
	}
	for _, adj := range p.LearnedPenalties {
		if adj.Points != 10 {
			t.Fatalf("expected compounded penalty 10 for %q, got %d", adj.Key, adj.Points)
		}
	}
}

func TestApplyDismissalWrongCompanyByName(t *testing.T) {
	p := &scout.Preferences{}
	job := &scout.ScoutedJob{CompanyName: "Acme Technologies"}

	if !ApplyDismissal(p, job, scout.DismissWrongCompany, 1) {
		t.Fatal("expected change")
	}
	adj := p.LearnedPenalties[0]
	if adj.Kind != scout.AdjustCompanyName || adj.Key != "acme technologies" {
		t.Fatalf("unexpected adjustment: %+v", adj)
	}
}

func TestApplyDismissalSalaryLowThreshold(t *testing.T) {
	min := 8_000_000
	p := &scout.Preferences{MinSalary: &min}
	job := &scout.ScoutedJob{Title: "VP Growth"}

	if ApplyDismissal(p, job, scout.DismissSalaryLow, 2) {
		t.Fatal("below threshold must be a no-op")
	}
	if !ApplyDismissal(p, job, scout.DismissSalaryLow, 3) {
		t.Fatal("expected change at threshold")
	}
	if *p.MinSalary != 8_800_000 {
		t.Fatalf("expected exactly +10%%, got %d", *p.MinSalary)
	}
}

func TestApplyDismissalWrongLocationThreshold(t *testing.T) {
	p := &scout.Preferences{LocationFlexibility: scout.FlexPreferred}
	job := &scout.ScoutedJob{Location: "Mumbai"}

	if ApplyDismissal(p, job, scout.DismissWrongLocation, 2) {
		t.Fatal("below threshold must be a no-op")
	}
	if !ApplyDismissal(p, job, scout.DismissWrongLocation, 3) {
		t.Fatal("expected change at threshold")
	}
	if p.LocationFlexibility != scout.FlexStrict {
		t.Fatalf("expected strict, got %q", p.LocationFlexibility)
	}
	// Already strict: nothing left to do.
	if ApplyDismissal(p, job, scout.DismissWrongLocation, 4) {
		t.Fatal("already strict must be a no-op")
	}
}

func TestApplyDismissalWrongRole(t *testing.T) {
	p := &scout.Preferences{}
	job := &scout.ScoutedJob{Title: "Senior Sales Development Representative for SaaS Growth"}

	if !ApplyDismissal(p, job, scout.DismissWrongRole, 1) {
		t.Fatal("expected change")
	}
	if len(p.LearnedPenalties) != 5 {
		t.Fatalf("expected 5 penalty words, got %v", p.LearnedPenalties)
	}
	for _, adj := range p.LearnedPenalties {
		if adj.Kind != scout.AdjustTitleWord || adj.Points != 5 || len(adj.Key) < 3 {
			t.Fatalf("unexpected adjustment: %+v", adj)
		}
	}
	// "for" is under three characters and must be skipped.
	for _, adj := range p.LearnedPenalties {
		if adj.Key == "for" {
			t.Fatal("short word leaked into penalties")
		}
	}
}

func TestApplyDismissalUnknownReason(t *testing.T) {
	p := &scout.Preferences{}
	if ApplyDismissal(p, &scout.ScoutedJob{Title: "x"}, "changed_my_mind", 10) {
		t.Fatal("unknown reason must be a no-op")
	}
}

func TestRecordDismissalPersists(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	min := 8_000_000
	store.prefs[userID] = &scout.Preferences{UserID: userID, MinSalary: &min}
	store.dismissals[scout.DismissSalaryLow] = 3
	svc := NewService(store, zap.NewNop())

	err := svc.RecordDismissal(context.Background(), userID, &scout.ScoutedJob{Title: "x"}, scout.DismissSalaryLow)
	if err != nil {
		t.Fatal(err)
	}
	if got := *store.prefs[userID].MinSalary; got != 8_800_000 {
		t.Fatalf("expected persisted raise, got %d", got)
	}
}
