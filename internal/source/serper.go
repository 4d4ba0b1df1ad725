package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/normalize"
	"github.com/svailabs/jobscout/internal/scout"
)

const serperAPIURL = "https://google.serper.dev/search"

// titleSeparators split "Role at Company" style search result titles.
var titleSeparators = []string{" at ", " - ", " | ", " — "}

// Serper is the supplementary plain-search fallback. Organic results carry
// no structured job data, so company names are parsed out of the result
// title and location is left empty.
type Serper struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewSerper(apiKey string, logger *zap.Logger) *Serper {
	return &Serper{
		apiKey: apiKey,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		APIURL: serperAPIURL,
	}
}

func (s *Serper) Name() string { return "serper" }

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (s *Serper) Fetch(ctx context.Context, queries []Query) ([]*scout.Candidate, error) {
	var all []*scout.Candidate
	for _, query := range queries {
		payload := map[string]any{
			"q":        query.Text + " jobs",
			"gl":       "in",
			"location": "Bangalore, Karnataka, India",
			"type":     "search",
			"num":      10,
		}
		headers := map[string]string{"X-API-KEY": s.apiKey}

		var resp serperResponse
		if err := postJSON(ctx, s.HTTPClient, s.APIURL, headers, payload, &resp); err != nil {
			s.logger.Warn("serper query failed",
				zap.String("query", query.Text), zap.Error(err))
			continue
		}

		for _, item := range resp.Organic {
			if c := s.normalize(item.Title, item.Link, item.Snippet, query.Text); c != nil {
				all = append(all, c)
			}
		}
	}
	return all, nil
}

func (s *Serper) normalize(title, link, snippet, searchQuery string) *scout.Candidate {
	if title == "" || link == "" {
		return nil
	}

	company := "Unknown"
	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx != -1 {
			rest := strings.TrimSpace(title[idx+len(sep):])
			if rest != "" {
				company = rest
			}
			title = strings.TrimSpace(title[:idx])
			break
		}
	}

	return &scout.Candidate{
		Fingerprint:           normalize.Fingerprint(company, title, ""),
		Title:                 truncate(title, 500),
		CompanyName:           truncate(company, 500),
		CompanyNameNormalized: normalize.Company(company),
		Description:           truncate(snippet, 2000),
		Source:                s.Name(),
		SourceURL:             link,
		SearchQuery:           searchQuery,
	}
}
