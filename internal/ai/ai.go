// Package ai defines the batch scoring surface backed by an LLM provider.
package ai

import (
	"context"

	"github.com/svailabs/jobscout/internal/scout"
)

// BatchSize is how many jobs are scored per model call.
const BatchSize = 5

// FailedReasoning marks entries the model could not score.
const FailedReasoning = "AI scoring failed"

// JobScore is the model's verdict for one job in a batch.
type JobScore struct {
	FitScore     float64
	B2CValidated bool
	Reasoning    string
}

// BatchScorer scores a batch of candidates against a profile summary. The
// result always has one entry per input job, in input order; entries the
// model skipped or garbled come back zeroed rather than as an error.
type BatchScorer interface {
	ScoreBatch(ctx context.Context, profileSummary string, jobs []*scout.Candidate) ([]JobScore, error)
}
