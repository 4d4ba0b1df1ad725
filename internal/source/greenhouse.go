package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/normalize"
	"github.com/svailabs/jobscout/internal/scout"
)

const greenhouseAPIURL = "https://boards-api.greenhouse.io/v1/boards"

// Greenhouse crawls the public board API of a fixed set of target
// companies. It ignores search queries.
type Greenhouse struct {
	boards     map[string]string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewGreenhouse(logger *zap.Logger) *Greenhouse {
	return &Greenhouse{
		boards: GreenhouseBoards,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		APIURL: greenhouseAPIURL,
	}
}

func (g *Greenhouse) Name() string { return "greenhouse" }

type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

type greenhouseJob struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	AbsoluteURL string      `json:"absolute_url"`
	Content     string      `json:"content"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
}

func (g *Greenhouse) Fetch(ctx context.Context, _ []Query) ([]*scout.Candidate, error) {
	var all []*scout.Candidate

	for _, boardID := range sortedValues(g.boards) {
		url := fmt.Sprintf("%s/%s/jobs?content=true", g.APIURL, boardID)
		displayName := companyNameFromSlug(boardID)

		var resp greenhouseResponse
		if err := getJSON(ctx, g.HTTPClient, url, nil, nil, &resp); err != nil {
			g.logger.Warn("greenhouse board failed",
				zap.String("board", boardID), zap.Error(err))
			continue
		}

		for _, job := range resp.Jobs {
			if job.Title == "" || job.AbsoluteURL == "" {
				continue
			}
			location := job.Location.Name
			all = append(all, &scout.Candidate{
				ExternalID:            job.ID.String(),
				Fingerprint:           normalize.Fingerprint(displayName, job.Title, location),
				Title:                 truncate(job.Title, 500),
				CompanyName:           displayName,
				CompanyNameNormalized: normalize.Company(displayName),
				Location:              truncate(location, 500),
				City:                  normalize.City(location),
				Description:           stripHTML(job.Content),
				Source:                g.Name(),
				SourceURL:             job.AbsoluteURL,
				ApplyURL:              job.AbsoluteURL,
			})
		}
	}

	return all, nil
}
