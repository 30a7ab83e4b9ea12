package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/nirujan123/risk-engine/internal/config"
	"github.com/nirujan123/risk-engine/internal/finance"
	"github.com/nirujan123/risk-engine/internal/openai"
	"github.com/nirujan123/risk-engine/internal/risk"
	"github.com/nirujan123/risk-engine/internal/storage"
	"github.com/nirujan123/risk-engine/internal/telegram"
)

// Notifier delivers a finished run somewhere outside the run directory.
type Notifier interface {
	NotifyRun(runName string, m risk.RiskMetrics, chart []byte, commentary string) error
}

// Commentator produces narrative text for a metrics record.
type Commentator interface {
	Commentary(ctx context.Context, m risk.RiskMetrics) (string, error)
}

// SourceFactory builds the price source for a run. The closer releases cache handles.
type SourceFactory func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (finance.PriceSource, io.Closer, error)

// NewPriceSource wires the Yahoo client behind the configured cache backend.
func NewPriceSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (finance.PriceSource, io.Closer, error) {
	cache, err := storage.Open(ctx, storage.Options{
		Backend:   cfg.Data.CacheBackend,
		Dir:       cfg.Data.CacheDir,
		RedisAddr: cfg.Data.RedisAddr,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open price cache: %w", err)
	}
	var hosts []string
	if cfg.Data.BaseURL != "" {
		hosts = []string{cfg.Data.BaseURL}
	}
	client := finance.NewClient(finance.ClientOptions{
		Hosts:          hosts,
		Timeout:        cfg.Data.Timeout,
		RequestsPerSec: cfg.Data.RequestsPerSec,
		Logger:         logger,
	})
	yahoo := finance.NewYahooSource(client, cfg.Data.MaxConcurrency, logger)
	return finance.NewCachedSource(yahoo, cache, cfg.Data.ForceRefresh, logger), cache, nil
}

// NewTelegramNotifier is the default notifier factory.
func NewTelegramNotifier(cfg *config.Config, logger zerolog.Logger) (Notifier, error) {
	return telegram.NewNotifier(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, logger)
}

// NewOpenAICommentator is the default commentator factory.
func NewOpenAICommentator(cfg *config.Config) Commentator {
	return openai.NewCommentator(cfg.Commentary.APIKey, cfg.Commentary.Model)
}
