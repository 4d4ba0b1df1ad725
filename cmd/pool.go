package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/engine"
	"github.com/svailabs/jobscout/internal/logger"
	"github.com/svailabs/jobscout/internal/scheduler"
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Refresh the shared job pool and rescore it for every user",
	Run: func(cmd *cobra.Command, _ []string) {
		pool(cmd)
	},
}

func init() {
	rootCmd.AddCommand(poolCmd)

	poolCmd.Flags().StringP("schedule", "s", "", "cron spec for recurring runs (default: run once and exit)")
	viper.BindPFlag("pool.schedule", poolCmd.Flags().Lookup("schedule"))
}

// pool runs the shared-pool refresh, once or on a schedule.
func pool(_ *cobra.Command) {
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

	st, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err))
	}
	defer st.Close()

	adapters := buildAdapters(config, logger)
	notifier := buildNotifier(config.Telegram, logger)
	eng := engine.NewPool(st, adapters, notifier, logger)

	spec := viper.GetString("pool.schedule")
	if spec == "" {
		summary, err := eng.Run(ctx)
		if err != nil {
			logger.Fatal("pool run failed", zap.Error(err))
		}
		pretty, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(pretty))
		return
	}

	rdb, err := buildRedis(ctx, config.Redis)
	if err != nil {
		logger.Fatal("connecting to redis", zap.Error(err))
	}
	defer rdb.Close()

	sched := scheduler.New(scheduler.NewRedisLock(rdb, app), logger)
	err = sched.Add(spec, "pool-refresh", func(ctx context.Context) error {
		_, err := eng.Run(ctx)
		return err
	})
	if err != nil {
		logger.Fatal("scheduling pool refresh", zap.Error(err))
	}

	sched.Start()
	logger.Info("scheduler started", zap.String("spec", spec))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	sched.Stop()
}
