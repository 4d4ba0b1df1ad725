// Package prefilter is the cheap rule-based relevance gate applied before
// any paid scoring call.
package prefilter

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/svailabs/jobscout/internal/scout"
)

// roleSimilarityThreshold is the partial-ratio bar for matching a title
// against a user's target roles when no seniority keyword is present.
const roleSimilarityThreshold = 70

var locationKeywords = []string{
	"bangalore", "bengaluru", "remote", "india", "work from home",
	"hybrid", "pan india", "anywhere in india",
}

var seniorityKeywords = []string{
	"director", "vp", "vice president", "head of", "lead",
	"principal", "senior director", "chief", "svp", "avp",
	"general manager", "gm",
}

var b2cKeywords = []string{
	"b2c", "consumer", "d2c", "direct to consumer", "marketplace",
	"e-commerce", "ecommerce", "fintech", "edtech", "healthtech",
	"gaming", "social", "media", "entertainment", "food",
	"delivery", "mobility", "travel", "retail",
}

// excludedKeywords blocks staffing agencies and body shops by company name.
var excludedKeywords = []string{
	"staffing", "recruitment agency", "consulting firm",
	"body shopping", "manpower",
}

// Rules carry the per-user inputs to the gate.
type Rules struct {
	TargetRoles       []string
	TargetLocations   []string
	ExcludedCompanies map[string]struct{} // lowercased names
}

// Apply returns the candidates that pass the gate, in input order. Passing
// candidates get their advisory B2CHint set; the hint never gates.
func Apply(items []*scout.Candidate, rules Rules) []*scout.Candidate {
	passed := make([]*scout.Candidate, 0, len(items))
	for _, item := range items {
		if Pass(item, rules) {
			passed = append(passed, item)
		}
	}
	return passed
}

// Pass evaluates a single candidate against the gate.
func Pass(item *scout.Candidate, rules Rules) bool {
	title := strings.ToLower(item.Title)
	company := strings.ToLower(item.CompanyName)
	location := strings.ToLower(item.Location)
	snippet := strings.ToLower(item.Description)

	if _, excluded := rules.ExcludedCompanies[company]; excluded {
		return false
	}
	for _, kw := range excludedKeywords {
		if strings.Contains(company, kw) {
			return false
		}
	}

	// Unknown location is not penalized.
	if location != "" && !locationOK(location, rules.TargetLocations) {
		return false
	}

	if !seniorityOK(title, rules.TargetRoles) {
		return false
	}

	combined := title + " " + company + " " + location + " " + snippet
	item.B2CHint = containsAny(combined, b2cKeywords)

	return true
}

func locationOK(location string, targets []string) bool {
	if containsAny(location, locationKeywords) {
		return true
	}
	for _, loc := range targets {
		if strings.Contains(location, strings.ToLower(loc)) {
			return true
		}
	}
	return false
}

func seniorityOK(title string, targetRoles []string) bool {
	if containsAny(title, seniorityKeywords) {
		return true
	}
	for _, role := range targetRoles {
		if fuzzy.PartialRatio(strings.ToLower(role), title) > roleSimilarityThreshold {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
