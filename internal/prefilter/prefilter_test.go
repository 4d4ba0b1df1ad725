package prefilter

import (
	"testing"

	"github.com/svailabs/jobscout/internal/scout"
)

func TestApplyExcludedCompany(t *testing.T) {
	items := []*scout.Candidate{
		{Title: "VP Growth", CompanyName: "BadCo", Location: "Bangalore"},
		{Title: "VP Growth", CompanyName: "GoodCo", Location: "Bangalore"},
	}
	rules := Rules{ExcludedCompanies: map[string]struct{}{"badco": {}}}

	got := Apply(items, rules)
	if len(got) != 1 || got[0].CompanyName != "GoodCo" {
		t.Fatalf("expected only GoodCo to pass, got %d", len(got))
	}
}

func TestApplyExcludedKeyword(t *testing.T) {
	item := &scout.Candidate{Title: "Director Sales", CompanyName: "Global Staffing Solutions", Location: "Bangalore"}
	if Pass(item, Rules{}) {
		t.Fatalf("staffing company must not pass")
	}
}

func TestApplyLocationGate(t *testing.T) {
	rules := Rules{TargetLocations: []string{"Pune"}}

	cases := []struct {
		location string
		want     bool
	}{
		{"Bangalore, KA", true},
		{"Remote", true},
		{"Pune, MH", true},       // user target location
		{"New York, NY", false},
		{"", true},               // unknown location passes
	}
	for _, tc := range cases {
		item := &scout.Candidate{Title: "VP Marketing", CompanyName: "Acme", Location: tc.location}
		if got := Pass(item, rules); got != tc.want {
			t.Fatalf("location %q: got %v, want %v", tc.location, got, tc.want)
		}
	}
}

func TestApplySeniorityGate(t *testing.T) {
	if !Pass(&scout.Candidate{Title: "Head of Growth", CompanyName: "Acme"}, Rules{}) {
		t.Fatalf("seniority keyword should pass")
	}
	if Pass(&scout.Candidate{Title: "Sales Associate", CompanyName: "Acme"}, Rules{}) {
		t.Fatalf("junior title with no target roles must not pass")
	}
	// No seniority keyword, but fuzzy-matches a target role.
	rules := Rules{TargetRoles: []string{"Growth Marketing Manager"}}
	if !Pass(&scout.Candidate{Title: "Growth Marketing Mgr - Consumer Apps", CompanyName: "Acme"}, rules) {
		t.Fatalf("fuzzy target-role match should pass")
	}
}

func TestB2CHintIsAdvisory(t *testing.T) {
	b2c := &scout.Candidate{Title: "VP Growth", CompanyName: "Acme", Description: "Leading D2C marketplace"}
	plain := &scout.Candidate{Title: "VP Growth", CompanyName: "Acme", Description: "Enterprise infrastructure"}

	if !Pass(b2c, Rules{}) || !b2c.B2CHint {
		t.Fatalf("expected b2c hint set on passing candidate")
	}
	if !Pass(plain, Rules{}) {
		t.Fatalf("missing b2c keyword must not gate")
	}
	if plain.B2CHint {
		t.Fatalf("expected b2c hint false")
	}
}
