// Package notify delivers run outcome messages over Telegram. Delivery is
// best-effort: a failed send degrades the run, never fails it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/scout"
)

const telegramAPIURL = "https://api.telegram.org"

// Telegram sends messages through the Bot API.
type Telegram struct {
	token      string
	chatID     string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewTelegram(token, chatID string, logger *zap.Logger) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		APIURL: telegramAPIURL,
	}
}

// Enabled reports whether both the token and the chat id are configured.
func (t *Telegram) Enabled() bool {
	return t != nil && t.token != "" && t.chatID != ""
}

// Send posts one Markdown message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.APIURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage: bad status: %s", resp.Status)
	}

	t.logger.Debug("telegram notification sent")
	return nil
}

// RunMessage renders the notification for a run that promoted jobs.
func RunMessage(summary *scout.RunSummary, promoted []*scout.ScoutResult) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("*Job Scout Run Complete* (%s)\n", summary.RunID))
	lines = append(lines, fmt.Sprintf("Fetched: %d | Deduped: %d | Filtered: %d | Scored: %d",
		summary.TotalFetched, summary.AfterDedup, summary.AfterPrefilter, summary.AIScored))
	lines = append(lines, fmt.Sprintf("*Promoted to pipeline: %d*", summary.Promoted))
	lines = append(lines, fmt.Sprintf("For review: %d | Dismissed: %d\n",
		summary.SavedForReview, summary.Dismissed))

	for _, r := range promoted {
		lines = append(lines, fmt.Sprintf("  %s @ %s -- Score: %.1f/10",
			r.Title, r.CompanyName, r.FitScore))
	}
	return strings.Join(lines, "\n")
}

// PoolMessage renders the aggregate notification for a shared-pool run.
func PoolMessage(summary *scout.PoolSummary) string {
	return fmt.Sprintf("*Job Scout Pool Refresh* (%s)\n"+
		"Fetched: %d | New: %d | Refreshed: %d | Marked stale: %d\n"+
		"*%d new matches* across %d users.",
		summary.RunID, summary.TotalFetched, summary.Inserted,
		summary.Refreshed, summary.MarkedStale,
		summary.MatchesCreated, summary.UsersScored)
}

// NoMatchesMessage renders the variant for a run with nothing promoted.
func NoMatchesMessage(summary *scout.RunSummary) string {
	return fmt.Sprintf("*Job Scout* (%s): No strong matches this run. "+
		"%d jobs saved for review, %d dismissed.",
		summary.RunID, summary.SavedForReview, summary.Dismissed)
}
