package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/svailabs/jobscout/internal/ai"
	"github.com/svailabs/jobscout/internal/ai/gemini"
	"github.com/svailabs/jobscout/internal/logger"
	"github.com/svailabs/jobscout/internal/notify"
	"github.com/svailabs/jobscout/internal/secrets"
	"github.com/svailabs/jobscout/internal/source"
	"github.com/svailabs/jobscout/internal/store"
)

// openStore connects to Postgres and wraps it in the scout store.
func openStore(ctx context.Context, config *Config, log *zap.Logger) (*store.Store, error) {
	databaseURL, err := secrets.Load(secrets.Source{
		Name:  "database url",
		Value: config.DatabaseURL,
		File:  config.DatabaseURLFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set database-url, database-url-file or DATABASE_URL)", err)
	}

	pool, err := store.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return store.New(pool, log), nil
}

// buildAdapters assembles the configured source adapters. Sources without
// credentials are skipped with a log line, not an error: a run with any
// source is better than no run.
func buildAdapters(config *Config, log *zap.Logger) []source.Adapter {
	var adapters []source.Adapter
	if config.Sources == nil {
		return adapters
	}

	if c := config.Sources.Adzuna; c != nil && c.AppID != "" {
		appKey, err := secrets.Load(secrets.Source{
			Name: "adzuna app key", Value: c.AppKey, File: c.AppKeyFile,
		})
		if err != nil {
			log.Warn("skipping adzuna", zap.Error(err))
		} else {
			adapters = append(adapters, source.NewAdzuna(c.AppID, appKey, log))
		}
	}

	if c := config.Sources.SerpAPI; c != nil {
		apiKey, err := secrets.Load(secrets.Source{
			Name: "serpapi api key", Value: c.APIKey, File: c.APIKeyFile,
		})
		if err != nil {
			log.Warn("skipping serpapi", zap.Error(err))
		} else {
			adapters = append(adapters, source.NewSerpAPI(apiKey, log))
		}
	}

	if c := config.Sources.Serper; c != nil {
		apiKey, err := secrets.Load(secrets.Source{
			Name: "serper api key", Value: c.APIKey, File: c.APIKeyFile,
		})
		if err != nil {
			log.Warn("skipping serper", zap.Error(err))
		} else {
			adapters = append(adapters, source.NewSerper(apiKey, log))
		}
	}

	if c := config.Sources.Greenhouse; c != nil && c.Enabled {
		adapters = append(adapters, source.NewGreenhouse(log))
	}
	if c := config.Sources.Lever; c != nil && c.Enabled {
		adapters = append(adapters, source.NewLever(log))
	}

	return adapters
}

// buildScorer creates the AI batch scorer from config.
func buildScorer(ctx context.Context, config *AIConfig, log *zap.Logger) (ai.BatchScorer, error) {
	if config == nil || config.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(config.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", config.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.Gemini.Model)
	if err != nil {
		return nil, err
	}

	scorerLogger := log.With(logger.ScorerFields("gemini", generator.Model())...)
	return gemini.NewScorer(generator, scorerLogger, config.Gemini.MaxLogLength), nil
}

// buildNotifier creates the Telegram notifier. Missing credentials yield a
// disabled notifier.
func buildNotifier(config *TelegramConfig, log *zap.Logger) *notify.Telegram {
	if config == nil {
		return notify.NewTelegram("", "", log)
	}

	token, err := secrets.Load(secrets.Source{
		Name: "telegram token", Value: config.Token, File: config.TokenFile,
	})
	if err != nil {
		log.Debug("telegram notifications disabled", zap.Error(err))
		return notify.NewTelegram("", "", log)
	}
	return notify.NewTelegram(token, config.ChatID, log)
}

// buildRedis connects the redis client used for scheduler leases.
func buildRedis(ctx context.Context, config *RedisConfig) (*redis.Client, error) {
	if config == nil || config.Addr == "" {
		return nil, errors.New("redis.addr is required for scheduled runs")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
