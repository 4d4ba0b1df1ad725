package dedup

import (
	"testing"

	"github.com/svailabs/jobscout/internal/scout"
)

func candidate(id, url, title, company string) *scout.Candidate {
	return &scout.Candidate{
		ExternalID:  id,
		SourceURL:   url,
		Title:       title,
		CompanyName: company,
	}
}

func TestFilterExternalID(t *testing.T) {
	items := []*scout.Candidate{
		candidate("adz-1", "https://a.example/1", "VP Growth", "Acme"),
		candidate("adz-1", "https://a.example/other", "Completely Different", "Other Co"),
	}

	got := Filter(items, Known{ExternalIDs: map[string]struct{}{}})
	if len(got) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(got))
	}

	got = Filter(items[:1], Known{ExternalIDs: map[string]struct{}{"adz-1": {}}})
	if len(got) != 0 {
		t.Fatalf("known external id should drop candidate, got %d survivors", len(got))
	}
}

func TestFilterURL(t *testing.T) {
	items := []*scout.Candidate{
		candidate("", "https://a.example/1", "VP Growth", "Acme"),
		candidate("", "https://a.example/1", "Other Role", "Other Co"),
		candidate("", "https://a.example/2", "Head of Sales", "Beta"),
	}

	got := Filter(items, Known{URLs: map[string]struct{}{"https://a.example/2": {}}})
	if len(got) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(got))
	}
	if got[0].Title != "VP Growth" {
		t.Fatalf("wrong survivor: %s", got[0].Title)
	}
}

func TestFilterFuzzyPair(t *testing.T) {
	items := []*scout.Candidate{
		candidate("", "https://a.example/1", "VP Growth Marketing", "PhonePe"),
		// Near-identical title and company, different URL.
		candidate("", "https://b.example/2", "VP Growth Marketing ", "PhonePe India"),
		// Same company, unrelated title — must survive.
		candidate("", "https://b.example/3", "Staff Data Engineer", "PhonePe"),
	}

	got := Filter(items, Known{})
	if len(got) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(got))
	}
	if got[0].SourceURL != "https://a.example/1" || got[1].SourceURL != "https://b.example/3" {
		t.Fatalf("wrong survivors or order: %v, %v", got[0].SourceURL, got[1].SourceURL)
	}
}

func TestFilterIdempotence(t *testing.T) {
	items := []*scout.Candidate{
		candidate("", "https://a.example/1", "VP Growth", "Acme"),
		candidate("", "https://a.example/2", "Head of Marketing", "Beta"),
		candidate("", "https://a.example/1", "VP Growth", "Acme"),
	}

	first := Filter(items, Known{})
	second := Filter(items, Known{})
	if len(first) != len(second) {
		t.Fatalf("dedup is not idempotent: %d vs %d", len(first), len(second))
	}

	// Second run against a store containing the first run's output.
	known := Known{URLs: map[string]struct{}{}}
	for _, c := range first {
		known.URLs[c.SourceURL] = struct{}{}
		known.Pairs = append(known.Pairs, TitleCompany{Title: c.Title, Company: c.CompanyName})
	}
	if got := Filter(items, known); len(got) != 0 {
		t.Fatalf("expected empty surviving set, got %d", len(got))
	}
}

func TestKnownAdd(t *testing.T) {
	var known Known
	known.Add("adz-1", "https://a.example/1", "VP Growth", "Acme")
	known.Add("", "", "Head of Marketing", "Beta")

	if _, ok := known.ExternalIDs["adz-1"]; !ok {
		t.Fatal("external id not recorded")
	}
	if _, ok := known.URLs["https://a.example/1"]; !ok {
		t.Fatal("url not recorded")
	}
	if _, ok := known.ExternalIDs[""]; ok {
		t.Fatal("empty external id must be skipped")
	}
	if _, ok := known.URLs[""]; ok {
		t.Fatal("empty url must be skipped")
	}
	if len(known.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(known.Pairs))
	}
}

func TestFilterAgainstTrackedJobs(t *testing.T) {
	// State folded from a user's existing pipeline entries: url and
	// (title, company) only, no external ids.
	var known Known
	known.Add("", "https://a.example/1", "VP Growth", "PhonePe")
	known.Add("", "", "Head of Marketing", "CRED")

	items := []*scout.Candidate{
		candidate("", "https://a.example/1", "Unrelated Role", "Other Co"),
		candidate("", "https://b.example/2", "VP Growth", "PhonePe"),
		candidate("", "https://b.example/3", "Head of Marketing", "CRED"),
		candidate("", "https://b.example/4", "Staff Data Engineer", "Zepto"),
	}

	got := Filter(items, known)
	if len(got) != 1 || got[0].SourceURL != "https://b.example/4" {
		t.Fatalf("tracked jobs must be dropped: %d survivors", len(got))
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	items := []*scout.Candidate{
		candidate("", "u1", "Role A", "Co A"),
		candidate("", "u2", "Role B", "Co B"),
		candidate("", "u3", "Role C", "Co C"),
	}
	got := Filter(items, Known{})
	for i, c := range got {
		if c != items[i] {
			t.Fatalf("order not preserved at %d", i)
		}
	}
}
