// Package scoring ranks pool jobs against user preferences with a
// deterministic, explainable rubric. No I/O; safe to call across a large
// backlog.
package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/svailabs/jobscout/internal/normalize"
	"github.com/svailabs/jobscout/internal/scout"
)

// Result is the outcome of scoring one job for one user. Total is clamped
// to [0,100]; the breakdown keeps the unclamped per-factor values.
type Result struct {
	Total     int
	Breakdown map[string]int
	Reasons   []string
}

// Factor point values. The sum is signed and only clamped at the very end,
// so strict-mode penalties can zero out an otherwise strong match.
const (
	titleExactPts    = 40
	titleTwoKwPts    = 25
	titleOneKwPts    = 15
	companyTargetPts = 25
	industryPts      = 15
	stagePts         = 10
	locationPts      = 15
	locationPenalty  = -20
	salaryFullPts    = 10
	salaryNearPts    = 5
	salaryPenalty    = -15
	keywordCapPts    = 5
	salaryNearFactor = 0.85
)

// Score rates a job against preferences. company may be nil when the
// posting could not be matched to the directory. Hard filters (excluded
// company or industry) short-circuit to zero.
func Score(job *scout.ScoutedJob, prefs *scout.Preferences, company *scout.Company, now time.Time) Result {
	breakdown := make(map[string]int)
	var reasons []string

	companyID := job.MatchedCompanyID
	if company != nil {
		companyID = &company.ID
	}

	// Hard filters.
	if companyID != nil {
		for _, ex := range prefs.ExcludedCompanyIDs {
			if ex == *companyID {
				return Result{Total: 0, Breakdown: map[string]int{"hard_filter": 0}, Reasons: []string{"Company is excluded"}}
			}
		}
	}
	if company != nil && len(prefs.ExcludedIndustries) > 0 {
		industry := normalize.ForMatching(company.Sector)
		if industry != "" {
			for _, ex := range prefs.ExcludedIndustries {
				exNorm := normalize.ForMatching(ex)
				if exNorm != "" && (strings.Contains(industry, exNorm) || strings.Contains(exNorm, industry)) {
					return Result{Total: 0, Breakdown: map[string]int{"hard_filter": 0}, Reasons: []string{"Industry is excluded"}}
				}
			}
		}
	}

	// 1. Title (0-40).
	titleNorm := normalize.ForMatching(job.Title)
	titlePts := 0
	exactRole := false
	for _, role := range prefs.TargetRoles {
		r := normalize.ForMatching(role)
		if r != "" && strings.Contains(titleNorm, r) {
			exactRole = true
			break
		}
	}
	if exactRole {
		titlePts = titleExactPts
		reasons = append(reasons, "Exact match with target role")
	} else {
		keywords := prefs.RoleKeywords
		if len(keywords) == 0 {
			for _, role := range prefs.TargetRoles {
				keywords = append(keywords, strings.Fields(role)...)
			}
		}
		hits := 0
		for _, kw := range keywords {
			k := normalize.ForMatching(kw)
			if k != "" && strings.Contains(titleNorm, k) {
				hits++
			}
		}
		switch {
		case hits >= 2:
			titlePts = titleTwoKwPts
			reasons = append(reasons, "2+ keyword matches in title")
		case hits == 1:
			titlePts = titleOneKwPts
			reasons = append(reasons, "1 keyword match in title")
		}
	}
	breakdown["title"] = titlePts

	// 2. Company (0-25).
	companyPts := 0
	switch {
	case companyID != nil && containsID(prefs.TargetCompanyIDs, *companyID):
		companyPts = companyTargetPts
		reasons = append(reasons, "Company in target list")
	case company != nil && overlapsTerm(company.Sector, prefs.TargetIndustries):
		companyPts = industryPts
		reasons = append(reasons, "Industry matches target")
	case company != nil && overlapsTerm(company.Stage, prefs.CompanyStages):
		companyPts = stagePts
		reasons = append(reasons, "Company stage matches preferred")
	}
	breakdown["company"] = companyPts

	// 3. Location (-20..15).
	locNorm := normalize.ForMatching(job.Location)
	cityNorm := normalize.ForMatching(job.City)
	locationScore := 0
	if strings.Contains(locNorm, "remote") || strings.Contains(cityNorm, "remote") {
		locationScore = locationPts
		reasons = append(reasons, "Remote role")
	} else {
		for _, tl := range prefs.TargetLocations {
			t := normalize.ForMatching(tl)
			if t != "" && (strings.Contains(locNorm, t) || strings.Contains(cityNorm, t)) {
				locationScore = locationPts
				reasons = append(reasons, "City matches target location")
				break
			}
		}
	}
	if locationScore == 0 && flexibility(prefs.LocationFlexibility, scout.FlexPreferred) == scout.FlexStrict && len(prefs.TargetLocations) > 0 {
		locationScore = locationPenalty
		reasons = append(reasons, "Location mismatch (strict mode)")
	}
	breakdown["location"] = locationScore

	// 4. Salary (-15..10).
	salaryScore := 0
	if prefs.MinSalary != nil {
		if jobSal := effectiveMinSalary(job); jobSal != nil {
			switch {
			case *jobSal >= *prefs.MinSalary:
				salaryScore = salaryFullPts
				reasons = append(reasons, "Meets minimum salary")
			case float64(*jobSal) >= float64(*prefs.MinSalary)*salaryNearFactor:
				salaryScore = salaryNearPts
				reasons = append(reasons, "Within 85% of minimum salary")
			case flexibility(prefs.SalaryFlexibility, scout.FlexFlexible) == scout.FlexStrict:
				salaryScore = salaryPenalty
				reasons = append(reasons, "Below minimum (strict mode)")
			}
		}
	}
	breakdown["salary"] = salaryScore

	// 5. Keywords in description (0-5).
	kwPts := 0
	if len(prefs.RoleKeywords) > 0 && job.Description != "" {
		kwPts = normalize.KeywordOverlap(job.Description, prefs.RoleKeywords)
		if kwPts > keywordCapPts {
			kwPts = keywordCapPts
		}
		if kwPts > 0 {
			reasons = append(reasons, fmt.Sprintf("%d role keywords in description", kwPts))
		}
	}
	breakdown["keywords"] = kwPts

	// 6. Recency (0-5).
	recencyPts := 0
	if job.PostedDate != nil {
		days := int(now.Sub(*job.PostedDate).Hours() / 24)
		switch {
		case days <= 1:
			recencyPts = 5
			reasons = append(reasons, "Posted ≤1 day ago")
		case days <= 3:
			recencyPts = 3
			reasons = append(reasons, "Posted ≤3 days ago")
		case days <= 7:
			recencyPts = 1
			reasons = append(reasons, "Posted ≤7 days ago")
		}
	}
	breakdown["recency"] = recencyPts

	// 7. Learned adjustments (unbounded).
	learned := sumAdjustments(prefs.LearnedBoosts, job, companyID) -
		sumAdjustments(prefs.LearnedPenalties, job, companyID)
	if learned != 0 {
		sign := ""
		if learned > 0 {
			sign = "+"
		}
		reasons = append(reasons, fmt.Sprintf("Learned adjustment: %s%d", sign, learned))
	}
	breakdown["learned"] = learned

	total := 0
	for _, v := range breakdown {
		total += v
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return Result{Total: total, Breakdown: breakdown, Reasons: reasons}
}

// sumAdjustments totals the adjustments matching this job: company id,
// normalized company name, or title-word substring.
func sumAdjustments(adjs []scout.Adjustment, job *scout.ScoutedJob, companyID *uuid.UUID) int {
	if len(adjs) == 0 {
		return 0
	}
	nameNorm := normalize.ForMatching(job.CompanyName)
	titleNorm := normalize.ForMatching(job.Title)

	total := 0
	for _, a := range adjs {
		switch a.Kind {
		case scout.AdjustCompany:
			if companyID != nil && a.Key == companyID.String() {
				total += a.Points
			}
		case scout.AdjustCompanyName:
			if nameNorm != "" && normalize.ForMatching(a.Key) == nameNorm {
				total += a.Points
			}
		case scout.AdjustTitleWord:
			if a.Key != "" && strings.Contains(titleNorm, a.Key) {
				total += a.Points
			}
		}
	}
	return total
}

func effectiveMinSalary(job *scout.ScoutedJob) *int {
	if job.SalaryMin != nil {
		return job.SalaryMin
	}
	return job.SalaryMax
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// overlapsTerm reports whether the normalized value matches any of the
// terms by substring in either direction.
func overlapsTerm(value string, terms []string) bool {
	v := normalize.ForMatching(value)
	if v == "" {
		return false
	}
	for _, term := range terms {
		t := normalize.ForMatching(term)
		if t != "" && (strings.Contains(v, t) || strings.Contains(t, v)) {
			return true
		}
	}
	return false
}

func flexibility(v, fallback string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return fallback
	}
	return v
}
