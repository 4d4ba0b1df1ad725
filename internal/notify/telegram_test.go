package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/scout"
)

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/bottok/sendMessage") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "42", zap.NewNop())
	tg.APIURL = srv.URL

	if err := tg.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" || got["parse_mode"] != "Markdown" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestSendDisabled(t *testing.T) {
	tg := NewTelegram("", "", zap.NewNop())
	if tg.Enabled() {
		t.Fatal("expected disabled")
	}
	// No server configured: Send must be a no-op, not a panic or error.
	if err := tg.Send(context.Background(), "ignored"); err != nil {
		t.Fatal(err)
	}
}

func TestRunMessage(t *testing.T) {
	summary := &scout.RunSummary{
		RunID:          "scout_20250615_080000_abc123",
		TotalFetched:   40,
		AfterDedup:     25,
		AfterPrefilter: 12,
		AIScored:       12,
		Promoted:       2,
		SavedForReview: 4,
		Dismissed:      6,
	}
	promoted := []*scout.ScoutResult{
		{Title: "VP Growth", CompanyName: "PhonePe", FitScore: 8.5},
		{Title: "Head of Marketing", CompanyName: "CRED", FitScore: 7},
	}

	msg := RunMessage(summary, promoted)
	if !strings.Contains(msg, "*Promoted to pipeline: 2*") {
		t.Fatalf("promoted count missing:\n%s", msg)
	}
	if !strings.Contains(msg, "VP Growth @ PhonePe -- Score: 8.5/10") {
		t.Fatalf("promoted listing missing:\n%s", msg)
	}
	if !strings.Contains(msg, "Fetched: 40 | Deduped: 25 | Filtered: 12 | Scored: 12") {
		t.Fatalf("counts line missing:\n%s", msg)
	}
}

func TestNoMatchesMessage(t *testing.T) {
	msg := NoMatchesMessage(&scout.RunSummary{RunID: "r1", SavedForReview: 3, Dismissed: 5})
	if !strings.Contains(msg, "No strong matches") || !strings.Contains(msg, "3 jobs saved for review") {
		t.Fatalf("unexpected message: %s", msg)
	}
}
