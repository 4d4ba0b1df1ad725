package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/normalize"
	"github.com/svailabs/jobscout/internal/scout"
)

const (
	serpAPIURL       = "https://serpapi.com/search"
	serpAPIEngine    = "google_jobs"
	serpAPIPerQuery  = 10
	maxDescriptionLn = 10_000
)

// SerpAPI fetches from the Google Jobs engine, following pagination tokens
// until it has enough results for the query.
type SerpAPI struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewSerpAPI(apiKey string, logger *zap.Logger) *SerpAPI {
	return &SerpAPI{
		apiKey: apiKey,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		APIURL: serpAPIURL,
	}
}

func (s *SerpAPI) Name() string { return "serpapi" }

type serpAPIResponse struct {
	Error       string           `json:"error"`
	JobsResults []map[string]any `json:"jobs_results"`
	Pagination  struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"serpapi_pagination"`
}

type serpAPIJob struct {
	JobID              string `mapstructure:"job_id"`
	Title              string `mapstructure:"title"`
	CompanyName        string `mapstructure:"company_name"`
	Location           string `mapstructure:"location"`
	Description        string `mapstructure:"description"`
	ShareLink          string `mapstructure:"share_link"`
	Link               string `mapstructure:"link"`
	DetectedExtensions struct {
		PostedAt string `mapstructure:"posted_at"`
		Salary   string `mapstructure:"salary"`
	} `mapstructure:"detected_extensions"`
	ApplyOptions []struct {
		Link string `mapstructure:"link"`
	} `mapstructure:"apply_options"`
}

func (s *SerpAPI) Fetch(ctx context.Context, queries []Query) ([]*scout.Candidate, error) {
	var all []*scout.Candidate
	for _, query := range queries {
		candidates, err := s.search(ctx, query)
		if err != nil {
			s.logger.Warn("serpapi query failed",
				zap.String("query", query.Text), zap.Error(err))
			continue
		}
		all = append(all, candidates...)
	}
	return all, nil
}

func (s *SerpAPI) search(ctx context.Context, query Query) ([]*scout.Candidate, error) {
	var results []*scout.Candidate
	nextToken := ""

	for len(results) < serpAPIPerQuery {
		q := url.Values{}
		q.Set("engine", serpAPIEngine)
		q.Set("q", query.Text)
		q.Set("location", query.Location)
		q.Set("api_key", s.apiKey)
		if nextToken != "" {
			q.Set("next_page_token", nextToken)
		}

		var resp serpAPIResponse
		if err := getJSON(ctx, s.HTTPClient, s.APIURL, q, nil, &resp); err != nil {
			return nil, err
		}
		if resp.Error != "" || len(resp.JobsResults) == 0 {
			break
		}

		for _, raw := range resp.JobsResults {
			var item serpAPIJob
			if err := mapstructure.Decode(raw, &item); err != nil {
				continue
			}
			if c := s.normalize(item, raw, query.Text); c != nil {
				results = append(results, c)
			}
		}

		nextToken = resp.Pagination.NextPageToken
		if nextToken == "" {
			break
		}
	}

	if len(results) > serpAPIPerQuery {
		results = results[:serpAPIPerQuery]
	}
	return results, nil
}

func (s *SerpAPI) normalize(item serpAPIJob, raw map[string]any, searchQuery string) *scout.Candidate {
	if item.Title == "" || item.CompanyName == "" {
		return nil
	}

	applyURL := ""
	if len(item.ApplyOptions) > 0 {
		applyURL = item.ApplyOptions[0].Link
	}
	if applyURL == "" {
		applyURL = item.Link
	}
	sourceURL := item.ShareLink
	if sourceURL == "" {
		sourceURL = applyURL
	}

	c := &scout.Candidate{
		ExternalID:            item.JobID,
		Fingerprint:           normalize.Fingerprint(item.CompanyName, item.Title, item.Location),
		Title:                 truncate(item.Title, 500),
		CompanyName:           truncate(item.CompanyName, 500),
		CompanyNameNormalized: normalize.Company(item.CompanyName),
		Location:              truncate(item.Location, 500),
		City:                  normalize.City(item.Location),
		Description:           truncate(item.Description, maxDescriptionLn),
		Source:                s.Name(),
		SourceURL:             sourceURL,
		ApplyURL:              applyURL,
		PostedDateRaw:         item.DetectedExtensions.PostedAt,
		SalaryRaw:             item.DetectedExtensions.Salary,
		SearchQuery:           searchQuery,
		Raw:                   raw,
	}

	if c.PostedDateRaw != "" {
		if t, ok := normalize.PostedDate(c.PostedDateRaw, time.Now().UTC()); ok {
			c.PostedDate = &t
		}
	}

	if c.SalaryRaw != "" {
		c.SalaryMin, c.SalaryMax, c.SalaryIsEstimated = normalize.Salary(c.SalaryRaw)
	}
	if c.SalaryMin == nil && mentionsSalary(item.Description) {
		c.SalaryMin, c.SalaryMax, _ = normalize.Salary(item.Description)
	}

	return c
}

// mentionsSalary gates the description fallback so bare numeric ranges like
// "5-8 years" are not read as pay.
func mentionsSalary(description string) bool {
	if description == "" {
		return false
	}
	d := strings.ToLower(description)
	return strings.Contains(d, "lakh") || strings.Contains(d, "lpa") || strings.Contains(d, "lac")
}
