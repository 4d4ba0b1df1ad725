// Package normalize holds the pure canonicalization helpers the engine is
// built on: company/title cleanup, city extraction, posted-date and salary
// parsing, and the dedup fingerprint. Everything here is deterministic and
// side-effect free.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var companyStripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s+india\b`),
	regexp.MustCompile(`(?i)\s+pvt\.?\s*ltd\.?`),
	regexp.MustCompile(`(?i)\s+private\s+limited`),
	regexp.MustCompile(`(?i)\s+technologies\b`),
	regexp.MustCompile(`(?i)\s+tech\b`),
	regexp.MustCompile(`(?i)\s+limited\b`),
	regexp.MustCompile(`(?i)\s+ltd\.?`),
	regexp.MustCompile(`(?i)\s+inc\.?`),
	regexp.MustCompile(`(?i)\s+llc\b`),
	regexp.MustCompile(`(?i)\s+corp\.?`),
}

// titleAbbrevs substitutes long forms so "Vice President" and "VP" collide.
var titleAbbrevs = []struct{ full, abbr string }{
	{"vice president", "vp"},
	{"senior", "sr"},
	{"assistant", "asst"},
	{"associate", "assoc"},
	{"director", "dir"},
	{"manager", "mgr"},
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Company lowercases a company name and strips common legal-entity
// suffixes ("India", "Pvt Ltd", "Technologies", ...).
func Company(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}
	for _, re := range companyStripPatterns {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

var titlePunctRe = regexp.MustCompile(`[.,]`)

// Title lowercases a job title, drops periods and commas, and abbreviates
// common seniority terms so "Sr." / "Senior" / "sr" all collide.
func Title(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	if s == "" {
		return ""
	}
	s = titlePunctRe.ReplaceAllString(s, "")
	for _, a := range titleAbbrevs {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(a.full) + `\b`)
		s = re.ReplaceAllString(s, a.abbr)
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// City returns the first comma-delimited segment of a free-text location,
// or "" when there is none.
func City(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	first, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(first)
}

// Fingerprint is the stable dedup join key: SHA-256 over normalized
// "company|title|city". Stable across runs and across adapters.
func Fingerprint(company, title, location string) string {
	city := strings.ToLower(strings.TrimSpace(City(location)))
	payload := Company(company) + "|" + Title(title) + "|" + city
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

var (
	daysAgoRe   = regexp.MustCompile(`(\d+)\s*days?\s*ago`)
	weeksAgoRe  = regexp.MustCompile(`(\d+)\s*weeks?\s*ago`)
	monthsAgoRe = regexp.MustCompile(`(\d+)\s*months?\s*ago`)
)

// PostedDate converts relative date phrases ("2 days ago", "yesterday",
// "just posted", "last week") to an absolute timestamp relative to now.
// Unrecognized text returns (zero, false). Day granularity is enough.
func PostedDate(text string, now time.Time) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return time.Time{}, false
	}

	if m := daysAgoRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, -n), true
	}
	if m := weeksAgoRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, -7*n), true
	}
	if m := monthsAgoRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, -30*n), true
	}

	switch {
	case strings.Contains(s, "yesterday"):
		return now.AddDate(0, 0, -1), true
	case strings.Contains(s, "today"), strings.Contains(s, "just posted"):
		return now, true
	case strings.Contains(s, "last week"):
		return now.AddDate(0, 0, -7), true
	case strings.Contains(s, "last month"):
		return now.AddDate(0, 0, -30), true
	}

	return time.Time{}, false
}

const lakh = 100_000

var (
	estimatedRe   = regexp.MustCompile(`(?i)estimated|approx\.?|approximately|~|up to`)
	lakhRangeRe   = regexp.MustCompile(`(?i)(?:₹|Rs\.?|INR)?\s*([\d.]+)\s*(?:-|to)\s*([\d.]+)\s*(?:lakh|lpa|lac)`)
	lakhSingleRe  = regexp.MustCompile(`(?i)(?:₹|Rs\.?|INR)?\s*([\d.]+)\s*(?:lakh|lpa|lac)`)
	bareRangeRe   = regexp.MustCompile(`(?i)([\d.]+)\s*-\s*([\d.]+)`)
	bareNumberRe  = regexp.MustCompile(`(\d+)`)
)

// Salary extracts (min, max) in INR from free text like "₹50-80 Lakh" or
// "90 LPA". The estimated flag is set when the text hedges ("approx", "~",
// "up to"). Returns (nil, nil, false) when nothing matches.
func Salary(text string) (min, max *int, estimated bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, nil, false
	}
	estimated = estimatedRe.MatchString(s)

	if m := lakhRangeRe.FindStringSubmatch(s); m != nil {
		lo := toLakh(m[1])
		hi := toLakh(m[2])
		return &lo, &hi, estimated
	}
	if m := lakhSingleRe.FindStringSubmatch(s); m != nil {
		v := toLakh(m[1])
		return &v, &v, estimated
	}
	if m := bareRangeRe.FindStringSubmatch(s); m != nil {
		// Bare ranges in this market are quoted in lakhs.
		lo := toLakh(m[1])
		hi := toLakh(m[2])
		return &lo, &hi, estimated
	}

	return nil, nil, estimated
}

// MinSalaryFromRange parses the lower bound of a salary-range string for
// preference derivation. Bare numbers under 1000 are read as lakhs.
func MinSalaryFromRange(text string) *int {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	if m := lakhRangeRe.FindStringSubmatch(s); m != nil {
		v := toLakh(m[1])
		return &v
	}
	if m := lakhSingleRe.FindStringSubmatch(s); m != nil {
		v := toLakh(m[1])
		return &v
	}
	if m := bareNumberRe.FindStringSubmatch(s); m != nil {
		v, _ := strconv.Atoi(m[1])
		if v < 1000 {
			v *= lakh
		}
		return &v
	}
	return nil
}

func toLakh(s string) int {
	f, _ := strconv.ParseFloat(s, 64)
	return int(f * lakh)
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// ForMatching lowercases, strips punctuation and collapses whitespace so
// substring checks in the scorer are tolerant of formatting.
func ForMatching(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return ""
	}
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "at": {}, "in": {},
	"on": {}, "to": {}, "for": {}, "and": {}, "or": {},
}

// TitleKeywords splits a title into meaningful words for keyword scoring.
func TitleKeywords(title string) []string {
	var words []string
	for _, w := range strings.Fields(ForMatching(title)) {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}

// PenaltyWords extracts up to five words (>=3 chars, punctuation stripped)
// from a dismissed title for the wrong_role learning rule.
func PenaltyWords(title string) []string {
	var words []string
	for _, w := range strings.Fields(ForMatching(title)) {
		if len(w) < 3 {
			continue
		}
		words = append(words, w)
		if len(words) == 5 {
			break
		}
	}
	return words
}

// KeywordOverlap counts how many keywords appear in text. Multi-word
// keywords match when every part is present.
func KeywordOverlap(text string, keywords []string) int {
	textNorm := ForMatching(text)
	if textNorm == "" || len(keywords) == 0 {
		return 0
	}
	textWords := make(map[string]struct{})
	for _, w := range strings.Fields(textNorm) {
		textWords[w] = struct{}{}
	}

	count := 0
	for _, kw := range keywords {
		kwNorm := ForMatching(kw)
		if kwNorm == "" {
			continue
		}
		all := true
		for _, part := range strings.Fields(kwNorm) {
			if _, ok := textWords[part]; ok {
				continue
			}
			if !strings.Contains(textNorm, part) {
				all = false
				break
			}
		}
		if all {
			count++
		}
	}
	return count
}
