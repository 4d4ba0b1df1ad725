package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/svailabs/jobscout/internal/ai"
	"github.com/svailabs/jobscout/internal/scout"
	"github.com/svailabs/jobscout/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	maxDescriptionChars = 1500
	maxAttempts         = 3
	initialBackoff      = 2 * time.Second
)

// Scorer batches candidates into a single prompt and parses the model's
// JSON verdicts. Transient API failures are retried with exponential
// backoff; an unparseable response zeroes the whole batch instead of
// failing the run.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	backoff   time.Duration
}

func NewScorer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
		backoff:   initialBackoff,
	}
}

func (s *Scorer) ScoreBatch(ctx context.Context, profileSummary string, jobs []*scout.Candidate) ([]ai.JobScore, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	prompt := buildPrompt(profileSummary, jobs)

	s.logger.Debug("gemini batch scoring request",
		zap.Int("batch_size", len(jobs)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini batch scoring response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	scores, err := parseResponse(raw, len(jobs))
	if err != nil {
		s.logger.Warn("unparseable scoring response, zeroing batch",
			zap.Int("batch_size", len(jobs)),
			zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
			zap.Error(err),
		)
		return failedBatch(len(jobs)), nil
	}

	return scores, nil
}

func (s *Scorer) generate(ctx context.Context, prompt string) (string, error) {
	backoff := s.backoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := s.generator.GenerateContent(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !retryable(err) || attempt == maxAttempts {
			break
		}

		s.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := utils.WaitFor(ctx, backoff); err != nil {
			return "", err
		}
		backoff *= 2
	}

	return "", fmt.Errorf("gemini scoring: %w", lastErr)
}

func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return false
}

func buildPrompt(profileSummary string, jobs []*scout.Candidate) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Profile:\n{{PROFILE_SUMMARY}}\n\nJobs:\n{{JOB_LIST}}\n\nJSON Response:"
	}

	var list strings.Builder
	for i, job := range jobs {
		if i > 0 {
			list.WriteString("\n")
		}
		list.WriteString(jobBlock(i+1, job))
	}

	prompt := strings.ReplaceAll(template, "{{PROFILE_SUMMARY}}", profileSummary)
	prompt = strings.ReplaceAll(prompt, "{{JOB_LIST}}", list.String())
	return prompt
}

func jobBlock(index int, job *scout.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job %d:\n", index)
	fmt.Fprintf(&b, "  Title: %s\n", job.Title)
	fmt.Fprintf(&b, "  Company: %s\n", job.CompanyName)
	if job.Location != "" {
		fmt.Fprintf(&b, "  Location: %s\n", job.Location)
	}
	if job.SalaryRaw != "" {
		fmt.Fprintf(&b, "  Salary: %s\n", job.SalaryRaw)
	}
	if job.PostedDateRaw != "" {
		fmt.Fprintf(&b, "  Posted: %s\n", job.PostedDateRaw)
	}
	if desc := strings.TrimSpace(job.Description); desc != "" {
		if utf8.RuneCountInString(desc) > maxDescriptionChars {
			desc = string([]rune(desc)[:maxDescriptionChars]) + "..."
		}
		fmt.Fprintf(&b, "  Description: %s\n", desc)
	}
	hint := "no"
	if job.B2CHint {
		hint = "yes"
	}
	fmt.Fprintf(&b, "  Consumer signals detected: %s\n", hint)
	return b.String()
}

func parseResponse(raw string, batchSize int) ([]ai.JobScore, error) {
	cleaned := extractJSON(raw)

	var entries []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	// Jobs the model skipped stay at zero.
	scores := make([]ai.JobScore, batchSize)
	for _, entry := range entries {
		idx := int(coerceFloat(entry["index"]))
		if idx < 1 || idx > batchSize {
			continue
		}
		score := coerceFloat(entry["fit_score"])
		if math.IsNaN(score) {
			score = 0
		}
		scores[idx-1] = ai.JobScore{
			FitScore:     score,
			B2CValidated: coerceBool(entry["b2c_validated"]),
			Reasoning:    coerceString(entry["reasoning"]),
		}
	}
	return scores, nil
}

func failedBatch(n int) []ai.JobScore {
	scores := make([]ai.JobScore, n)
	for i := range scores {
		scores[i] = ai.JobScore{Reasoning: ai.FailedReasoning}
	}
	return scores
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
