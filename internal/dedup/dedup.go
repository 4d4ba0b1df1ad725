// Package dedup removes duplicate candidates within a batch and against
// the persisted store.
package dedup

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/svailabs/jobscout/internal/scout"
)

// similarityThreshold is the fuzzy title/company ratio (0-100 scale) above
// which two postings count as the same job.
const similarityThreshold = 85

// TitleCompany is a (title, company) pair used for fuzzy matching.
type TitleCompany struct {
	Title   string
	Company string
}

// Known is the persisted state duplicates are checked against. All sets
// may be empty.
type Known struct {
	// ExternalIDs already seen, for sources with stable ids.
	ExternalIDs map[string]struct{}
	// URLs already persisted in the relevant scope.
	URLs map[string]struct{}
	// Pairs of (title, company) already persisted.
	Pairs []TitleCompany
}

// Add folds one persisted row into the known state. Empty ids and URLs
// are skipped; the (title, company) pair is always recorded.
func (k *Known) Add(externalID, url, title, company string) {
	if externalID != "" {
		if k.ExternalIDs == nil {
			k.ExternalIDs = make(map[string]struct{})
		}
		k.ExternalIDs[externalID] = struct{}{}
	}
	if url != "" {
		if k.URLs == nil {
			k.URLs = make(map[string]struct{})
		}
		k.URLs[url] = struct{}{}
	}
	k.Pairs = append(k.Pairs, TitleCompany{Title: title, Company: company})
}

// Filter returns the candidates that survive dedup, in input order.
// Checks run in order, first match wins: external id, exact URL (store,
// then batch), fuzzy title+company (store, then batch). Accepted ids,
// URLs and pairs are tracked incrementally so within-batch duplicates
// are caught too.
func Filter(items []*scout.Candidate, known Known) []*scout.Candidate {
	seenIDs := make(map[string]struct{})
	seenURLs := make(map[string]struct{})
	var seenPairs []TitleCompany

	unique := make([]*scout.Candidate, 0, len(items))

	for _, item := range items {
		if item.ExternalID != "" {
			if contains(known.ExternalIDs, item.ExternalID) {
				continue
			}
			if _, ok := seenIDs[item.ExternalID]; ok {
				continue
			}
		}

		if item.SourceURL != "" {
			if contains(known.URLs, item.SourceURL) {
				continue
			}
			if _, ok := seenURLs[item.SourceURL]; ok {
				continue
			}
		}

		if matchesAny(item, known.Pairs) || matchesAny(item, seenPairs) {
			continue
		}

		if item.ExternalID != "" {
			seenIDs[item.ExternalID] = struct{}{}
		}
		if item.SourceURL != "" {
			seenURLs[item.SourceURL] = struct{}{}
		}
		seenPairs = append(seenPairs, TitleCompany{Title: item.Title, Company: item.CompanyName})
		unique = append(unique, item)
	}

	return unique
}

func matchesAny(item *scout.Candidate, pairs []TitleCompany) bool {
	title := strings.ToLower(item.Title)
	company := strings.ToLower(item.CompanyName)
	for _, p := range pairs {
		if fuzzy.Ratio(title, strings.ToLower(p.Title)) > similarityThreshold &&
			fuzzy.Ratio(company, strings.ToLower(p.Company)) > similarityThreshold {
			return true
		}
	}
	return false
}

func contains(set map[string]struct{}, key string) bool {
	if set == nil {
		return false
	}
	_, ok := set[key]
	return ok
}
