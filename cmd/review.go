package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/logger"
	"github.com/svailabs/jobscout/internal/prefs"
	"github.com/svailabs/jobscout/internal/scout"
	"github.com/svailabs/jobscout/internal/store"
)

const (
	PromptBack     = "Back"
	PromptPromote  = "Promote to pipeline"
	PromptReviewed = "Mark reviewed"
	PromptDismiss  = "Dismiss"
	PromptSave     = "Save"
	PromptViewed   = "Mark viewed"
)

// Dismiss options shown for pool matches. The reasons feed the learning
// loop; "Not interested" does not.
var dismissOptions = []struct {
	Label  string
	Reason string
}{
	{"Wrong role", scout.DismissWrongRole},
	{"Wrong company", scout.DismissWrongCompany},
	{"Wrong location", scout.DismissWrongLocation},
	{"Salary too low", scout.DismissSalaryLow},
	{"Not interested", "not_interested"},
}

var errBack = errors.New("back requested")

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Interactively review new scout results or pool matches",
	Run: func(cmd *cobra.Command, _ []string) {
		review(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringP("user", "u", "", "user id (uuid) to review for")
	reviewCmd.Flags().BoolP("matches", "m", false, "review pool matches instead of run results")
	_ = reviewCmd.MarkFlagRequired("user")
}

func review(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	userID, err := uuid.Parse(cmd.Flag("user").Value.String())
	if err != nil {
		logger.Fatal("parsing user id", zap.Error(err))
	}

	st, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err))
	}
	defer st.Close()

	if cmd.Flag("matches").Value.String() == "true" {
		err = reviewMatches(ctx, st, userID, logger)
	} else {
		err = reviewResults(ctx, st, userID, logger)
	}
	if err != nil {
		logger.Fatal("review failed", zap.Error(err))
	}
}

// reviewResults walks the user's unreviewed on-demand results.
func reviewResults(ctx context.Context, st *store.Store, userID uuid.UUID, logger *zap.Logger) error {
	for {
		results, err := st.ScoutResultsByStatus(ctx, userID, scout.ResultStatusNew)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			logger.Info("nothing to review")
			return nil
		}

		items := make([]string, 0, len(results)+1)
		for _, r := range results {
			items = append(items, fmt.Sprintf("%s / %s / %.1f/10", r.Title, r.CompanyName, r.FitScore))
		}

		idx, selected, err := (&promptui.Select{
			Label: fmt.Sprintf("%d results to review", len(results)),
			Items: append(items, PromptBack),
		}).Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		if err := handleResult(ctx, st, results[idx], logger); err != nil {
			if errors.Is(err, errBack) {
				continue
			}
			return err
		}
	}
}

func handleResult(ctx context.Context, st *store.Store, result *scout.ScoutResult, logger *zap.Logger) error {
	fmt.Printf("\n%s @ %s\n%s\n%s\n\n", result.Title, result.CompanyName, result.SourceURL, result.AIReasoning)

	_, action, err := (&promptui.Select{
		Label: "Action",
		Items: []string{PromptPromote, PromptReviewed, PromptDismiss, PromptBack},
	}).Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptPromote:
		jobID, err := st.InsertPipelineJob(ctx, &scout.PipelineJob{
			UserID:       result.UserID,
			CompanyName:  result.CompanyName,
			RoleTitle:    result.Title,
			SourcePortal: result.Source,
			JDURL:        result.SourceURL,
			JDText:       result.Snippet,
			Status:       "Tracking",
			FitScore:     result.FitScore,
			FitReasoning: result.AIReasoning,
			SalaryRange:  result.SalaryRaw,
			Note:         "Promoted from scout review.",
		})
		if err != nil {
			return err
		}
		logger.Info("promoted to pipeline", zap.String("pipeline_job_id", jobID.String()))
		return st.UpdateScoutResultStatus(ctx, result.ID, scout.ResultStatusPromoted)
	case PromptReviewed:
		return st.UpdateScoutResultStatus(ctx, result.ID, scout.ResultStatusReviewed)
	case PromptDismiss:
		return st.UpdateScoutResultStatus(ctx, result.ID, scout.ResultStatusDismissed)
	default:
		return errBack
	}
}

// reviewMatches walks the user's new pool matches. Dismissals feed the
// preference learning loop.
func reviewMatches(ctx context.Context, st *store.Store, userID uuid.UUID, logger *zap.Logger) error {
	svc := prefs.NewService(st, logger)

	for {
		matches, err := st.MatchesByStatus(ctx, userID, scout.MatchStatusNew)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			logger.Info("no new matches")
			return nil
		}

		jobs := make([]*scout.ScoutedJob, len(matches))
		items := make([]string, 0, len(matches)+1)
		for i, m := range matches {
			_, job, err := st.MatchWithJob(ctx, m.ID)
			if err != nil {
				return err
			}
			jobs[i] = job
			items = append(items, fmt.Sprintf("%s / %s / %d pts", job.Title, job.CompanyName, m.RelevanceScore))
		}

		idx, selected, err := (&promptui.Select{
			Label: fmt.Sprintf("%d new matches", len(matches)),
			Items: append(items, PromptBack),
		}).Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		if err := handleMatch(ctx, st, svc, userID, matches[idx], jobs[idx]); err != nil {
			if errors.Is(err, errBack) {
				continue
			}
			return err
		}
	}
}

func handleMatch(ctx context.Context, st *store.Store, svc *prefs.Service, userID uuid.UUID, match *scout.UserScoutedJob, job *scout.ScoutedJob) error {
	fmt.Printf("\n%s @ %s (%d pts)\n", job.Title, job.CompanyName, match.RelevanceScore)
	for _, reason := range match.MatchReasons {
		fmt.Printf("  - %s\n", reason)
	}
	fmt.Println()

	_, action, err := (&promptui.Select{
		Label: "Action",
		Items: []string{PromptSave, PromptViewed, PromptDismiss, PromptBack},
	}).Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptSave:
		return st.UpdateMatchStatus(ctx, match.ID, scout.MatchStatusSaved, time.Now().UTC())
	case PromptViewed:
		return st.UpdateMatchStatus(ctx, match.ID, scout.MatchStatusViewed, time.Now().UTC())
	case PromptDismiss:
		return dismissMatch(ctx, st, svc, userID, match, job)
	default:
		return errBack
	}
}

// dismissMatch asks for a reason, records the dismissal and feeds the
// learning loop.
func dismissMatch(ctx context.Context, st *store.Store, svc *prefs.Service, userID uuid.UUID, match *scout.UserScoutedJob, job *scout.ScoutedJob) error {
	items := make([]string, 0, len(dismissOptions)+1)
	for _, opt := range dismissOptions {
		items = append(items, opt.Label)
	}

	idx, selected, err := (&promptui.Select{
		Label: "Dismiss reason",
		Items: append(items, PromptBack),
	}).Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return errBack
	}

	reason := dismissOptions[idx].Reason
	if err := st.DismissMatch(ctx, match.ID, reason, time.Now().UTC()); err != nil {
		return err
	}
	return svc.RecordDismissal(ctx, userID, job, reason)
}
