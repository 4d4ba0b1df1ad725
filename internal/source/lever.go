package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/normalize"
	"github.com/svailabs/jobscout/internal/scout"
)

const leverAPIURL = "https://api.lever.co/v0/postings"

// Lever crawls the public postings API of a fixed set of target companies.
// It ignores search queries.
type Lever struct {
	boards     map[string]string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewLever(logger *zap.Logger) *Lever {
	return &Lever{
		boards: LeverBoards,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		APIURL: leverAPIURL,
	}
}

func (l *Lever) Name() string { return "lever" }

type leverJob struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	HostedURL        string `json:"hostedUrl"`
	ApplyURL         string `json:"applyUrl"`
	DescriptionPlain string `json:"descriptionPlain"`
	Description      string `json:"description"`
	Categories       struct {
		Location     string   `json:"location"`
		AllLocations []string `json:"allLocations"`
	} `json:"categories"`
}

func (l *Lever) Fetch(ctx context.Context, _ []Query) ([]*scout.Candidate, error) {
	var all []*scout.Candidate

	for _, leverID := range sortedValues(l.boards) {
		url := fmt.Sprintf("%s/%s?mode=json", l.APIURL, leverID)
		displayName := companyNameFromSlug(leverID)

		var postings []leverJob
		if err := getJSON(ctx, l.HTTPClient, url, nil, nil, &postings); err != nil {
			l.logger.Warn("lever board failed",
				zap.String("board", leverID), zap.Error(err))
			continue
		}

		for _, job := range postings {
			if job.Text == "" || job.HostedURL == "" {
				continue
			}

			location := job.Categories.Location
			if location == "" && len(job.Categories.AllLocations) > 0 {
				location = strings.Join(job.Categories.AllLocations, ", ")
			}

			description := job.DescriptionPlain
			if description == "" {
				description = stripHTML(job.Description)
			}

			applyURL := job.ApplyURL
			if applyURL == "" {
				applyURL = job.HostedURL
			}

			all = append(all, &scout.Candidate{
				ExternalID:            job.ID,
				Fingerprint:           normalize.Fingerprint(displayName, job.Text, location),
				Title:                 truncate(job.Text, 500),
				CompanyName:           displayName,
				CompanyNameNormalized: normalize.Company(displayName),
				Location:              truncate(location, 500),
				City:                  normalize.City(location),
				Description:           description,
				Source:                l.Name(),
				SourceURL:             job.HostedURL,
				ApplyURL:              applyURL,
			})
		}
	}

	return all, nil
}
