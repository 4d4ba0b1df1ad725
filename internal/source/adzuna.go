package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/normalize"
	"github.com/svailabs/jobscout/internal/scout"
)

const (
	adzunaAPIURL  = "https://api.adzuna.com/v1/api/jobs/in/search/1"
	adzunaPerPage = 10
)

// Adzuna is the primary structured job source.
type Adzuna struct {
	appID      string
	appKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewAdzuna(appID, appKey string, logger *zap.Logger) *Adzuna {
	return &Adzuna{
		appID:  appID,
		appKey: appKey,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		APIURL: adzunaAPIURL,
	}
}

func (a *Adzuna) Name() string { return "adzuna" }

type adzunaResponse struct {
	Results []adzunaJob `json:"results"`
}

type adzunaJob struct {
	ID          any     `json:"id"`
	Title       string  `json:"title"`
	RedirectURL string  `json:"redirect_url"`
	Description string  `json:"description"`
	SalaryMin   float64 `json:"salary_min"`
	SalaryMax   float64 `json:"salary_max"`
	Created     string  `json:"created"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	Category struct {
		Label string `json:"label"`
	} `json:"category"`
}

func (a *Adzuna) Fetch(ctx context.Context, queries []Query) ([]*scout.Candidate, error) {
	var all []*scout.Candidate
	var lastErr error
	failed := 0

	for _, query := range queries {
		q := url.Values{}
		q.Set("app_id", a.appID)
		q.Set("app_key", a.appKey)
		q.Set("results_per_page", strconv.Itoa(adzunaPerPage))
		q.Set("what", query.Text)
		q.Set("where", query.Location)
		q.Set("content-type", "application/json")

		var resp adzunaResponse
		if err := getJSON(ctx, a.HTTPClient, a.APIURL, q, nil, &resp); err != nil {
			a.logger.Warn("adzuna query failed",
				zap.String("query", query.Text), zap.Error(err))
			lastErr = err
			failed++
			continue
		}

		for _, item := range resp.Results {
			if c := a.normalize(item, query.Text); c != nil {
				all = append(all, c)
			}
		}
	}

	if failed == len(queries) && lastErr != nil {
		return nil, fmt.Errorf("all queries failed: %w", lastErr)
	}
	return all, nil
}

func (a *Adzuna) normalize(item adzunaJob, searchQuery string) *scout.Candidate {
	if item.Title == "" {
		return nil
	}
	company := item.Company.DisplayName
	if company == "" {
		company = "Unknown"
	}
	location := item.Location.DisplayName

	c := &scout.Candidate{
		ExternalID:            externalID(item.ID),
		Fingerprint:           normalize.Fingerprint(company, item.Title, location),
		Title:                 truncate(item.Title, 500),
		CompanyName:           truncate(company, 500),
		CompanyNameNormalized: normalize.Company(company),
		Location:              truncate(location, 500),
		City:                  normalize.City(location),
		Description:           truncate(item.Description, 2000),
		Source:                a.Name(),
		SourceURL:             truncate(item.RedirectURL, 2000),
		ApplyURL:              truncate(item.RedirectURL, 2000),
		PostedDateRaw:         truncate(item.Created, 100),
		SearchQuery:           searchQuery,
		Raw: map[string]any{
			"category_label": item.Category.Label,
		},
	}

	if item.SalaryMin > 0 {
		min := int(item.SalaryMin)
		c.SalaryMin = &min
		c.SalaryRaw = fmt.Sprintf("%d+", min)
	}
	if item.SalaryMax > 0 {
		max := int(item.SalaryMax)
		c.SalaryMax = &max
		if c.SalaryMin != nil {
			c.SalaryRaw = fmt.Sprintf("%d-%d", *c.SalaryMin, max)
		}
	}

	if item.Created != "" {
		if t, err := time.Parse(time.RFC3339, item.Created); err == nil {
			c.PostedDate = &t
		}
	}

	return c
}

func externalID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	default:
		return ""
	}
}
