package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/engine"
	"github.com/svailabs/jobscout/internal/logger"
	"github.com/svailabs/jobscout/internal/prefs"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the on-demand discovery pipeline for one user",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("user", "u", "", "user id (uuid) to scout for")
	_ = runCmd.MarkFlagRequired("user")
}

// run is the on-demand pipeline command.
func run(cmd *cobra.Command) {
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

	logger.Info("starting jobscout", zap.String("version", version))

	userID, err := uuid.Parse(cmd.Flag("user").Value.String())
	if err != nil {
		logger.Fatal("parsing user id", zap.Error(err))
	}

	st, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err))
	}
	defer st.Close()

	adapters := buildAdapters(config, logger)
	if len(adapters) == 0 {
		logger.Fatal("no sources configured",
			zap.String("hint", "configure at least one source under the sources key"))
	}

	scorer, err := buildScorer(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai scorer", zap.Error(err))
	}

	notifier := buildNotifier(config.Telegram, logger)
	prefsSvc := prefs.NewService(st, logger)

	runner := engine.NewRunner(st, prefsSvc, adapters, scorer, notifier, logger)
	summary, err := runner.Run(ctx, userID)
	if err != nil {
		logger.Fatal("scout run failed", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(pretty))
}
