// Package source holds the job board adapters and the fan-out that runs
// them. Each adapter turns a provider response into normalized candidates;
// per-adapter failures degrade the run instead of aborting it.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/svailabs/jobscout/internal/scout"
)

const (
	adapterTimeout = 30 * time.Second
	maxConcurrent  = 4
)

// DefaultSearchTemplates expand against DefaultLocations when the user has
// no explicit target roles.
var DefaultSearchTemplates = []string{
	"VP Growth {location}",
	"Head of Growth {location}",
	"Director Growth {location}",
	"VP Marketing {location}",
	"Head of Marketing {location}",
	"Director Performance Marketing {location}",
	"Chief of Staff {location}",
	"Head of Strategy {location}",
	"Business Head {location}",
	"P&L Head {location}",
}

var DefaultLocations = []string{"Bangalore", "India"}

// Query is one search request against the query-driven adapters. Board
// adapters ignore queries and return their full listings.
type Query struct {
	Text     string
	Location string
}

// BuildQueries expands templates against locations. Templates without a
// {location} placeholder are emitted once per location anyway, with the
// location carried separately.
func BuildQueries(templates, locations []string) []Query {
	if len(templates) == 0 {
		templates = DefaultSearchTemplates
	}
	if len(locations) == 0 {
		locations = DefaultLocations
	}
	var queries []Query
	for _, tpl := range templates {
		for _, loc := range locations {
			queries = append(queries, Query{
				Text:     strings.ReplaceAll(tpl, "{location}", loc),
				Location: loc,
			})
		}
	}
	return queries
}

// QueriesForRoles builds queries from a user's target roles, falling back
// to the default templates when none are set.
func QueriesForRoles(roles, locations []string) []Query {
	if len(roles) == 0 {
		return BuildQueries(nil, locations)
	}
	templates := make([]string, 0, len(roles))
	for _, role := range roles {
		templates = append(templates, role+" {location}")
	}
	return BuildQueries(templates, locations)
}

// Adapter is one job provider.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, queries []Query) ([]*scout.Candidate, error)
}

// Result is the combined outcome of a fan-out across adapters.
type Result struct {
	Candidates     []*scout.Candidate
	SourcesQueried []string
	Errors         []string
}

// FetchAll runs every adapter concurrently with a per-adapter timeout.
// Candidates come back grouped in adapter order. An adapter error is
// recorded, not fatal; an adapter that errors is still counted as queried.
func FetchAll(ctx context.Context, adapters []Adapter, queries []Query, logger *zap.Logger) *Result {
	type outcome struct {
		candidates []*scout.Candidate
		err        error
	}
	outcomes := make([]outcome, len(adapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, adapter := range adapters {
		g.Go(func() error {
			actx, cancel := context.WithTimeout(gctx, adapterTimeout)
			defer cancel()

			start := time.Now()
			candidates, err := adapter.Fetch(actx, queries)
			if err != nil {
				logger.Warn("source fetch failed",
					zap.String("source", adapter.Name()),
					zap.Error(err))
				outcomes[i] = outcome{err: err}
				return nil
			}
			logger.Info("source fetch complete",
				zap.String("source", adapter.Name()),
				zap.Int("count", len(candidates)),
				zap.Duration("took", time.Since(start)))
			outcomes[i] = outcome{candidates: candidates}
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{}
	for i, adapter := range adapters {
		result.SourcesQueried = append(result.SourcesQueried, adapter.Name())
		if outcomes[i].err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: %v", adapter.Name(), outcomes[i].err))
			continue
		}
		result.Candidates = append(result.Candidates, outcomes[i].candidates...)
	}
	return result
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, q url.Values, headers map[string]string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return json.Unmarshal(data, target)
}

func postJSON(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return json.Unmarshal(data, target)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
