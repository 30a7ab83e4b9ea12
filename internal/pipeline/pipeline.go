package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nirujan123/risk-engine/internal/config"
	"github.com/nirujan123/risk-engine/internal/finance"
	"github.com/nirujan123/risk-engine/internal/report"
	"github.com/nirujan123/risk-engine/internal/risk"
)

const (
	snapshotFile   = "config_snapshot.yaml"
	outputsDir     = "outputs"
	commentaryFile = "commentary.md"
)

// Runner executes one configured risk run end to end.
type Runner struct {
	Console        io.Writer
	Now            func() time.Time
	NewSource      SourceFactory
	NewNotifier    func(cfg *config.Config, logger zerolog.Logger) (Notifier, error)
	NewCommentator func(cfg *config.Config) Commentator
}

// NewRunner returns a Runner wired to Yahoo, Telegram and OpenAI.
func NewRunner() *Runner {
	return &Runner{
		Console:        os.Stderr,
		Now:            time.Now,
		NewSource:      NewPriceSource,
		NewNotifier:    NewTelegramNotifier,
		NewCommentator: NewOpenAICommentator,
	}
}

// Result describes a finished run.
type Result struct {
	RunID     string
	RunDir    string
	Metrics   risk.RiskMetrics
	Artifacts report.Artifacts
}

// Run creates the run directory, fetches prices, computes every metric and
// only then writes artifacts. Commentary and notification failures are logged
// and do not fail the run.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (Result, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	runDir, err := CreateRunDir(cfg.Outputs.BaseDir, cfg.RunName, now())
	if err != nil {
		return Result{}, err
	}

	logger, closer := NewRunLogger(runDir, r.Console)
	defer closer.Close()

	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Logger()
	logger.Info().Str("run_dir", runDir).Msg("run started")
	logger.Info().Strs("tickers", cfg.Universe.Tickers).
		Str("start", cfg.DateRange.Start).
		Str("end", cfg.DateRange.End).
		Str("interval", cfg.Data.Interval).
		Bool("auto_adjust", cfg.Data.AutoAdjust).
		Msg("config loaded")

	if cfg.Outputs.SaveConfigSnapshot {
		if err := cfg.WriteSnapshot(filepath.Join(runDir, snapshotFile)); err != nil {
			return Result{}, err
		}
	}

	res, err := r.execute(ctx, cfg, runDir, runID, logger)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		return Result{}, err
	}
	logger.Info().Msg("run finished")
	return res, nil
}

func (r *Runner) execute(ctx context.Context, cfg *config.Config, runDir, runID string, logger zerolog.Logger) (Result, error) {
	source, closer, err := r.NewSource(ctx, cfg, logger)
	if err != nil {
		return Result{}, err
	}
	if closer != nil {
		defer closer.Close()
	}

	req := finance.Request{
		Tickers:    cfg.Universe.Tickers,
		Start:      cfg.DateRange.Start,
		End:        cfg.DateRange.End,
		Interval:   cfg.Data.Interval,
		AutoAdjust: cfg.Data.AutoAdjust,
	}
	prices, err := source.Prices(ctx, req)
	if err != nil {
		return Result{}, err
	}
	logger.Info().Int("rows", prices.Rows()).Str("price_basis", prices.PriceBasis()).Msg("prices loaded")

	start, err := cfg.StartDate()
	if err != nil {
		return Result{}, err
	}
	end, err := cfg.EndDate()
	if err != nil {
		return Result{}, err
	}
	weights := risk.EqualWeights(cfg.Universe.Tickers)
	logger.Info().Int("instruments", len(weights)).Float64("weight_sum", weights.Sum()).Msg("equal weights assigned")
	assessment, err := risk.Assemble(prices, weights, risk.Options{
		Level:       cfg.Risk.ConfidenceLevel,
		TradingDays: cfg.Risk.TradingDays,
		Start:       start,
		End:         end,
		RunID:       runID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to compute risk metrics: %w", err)
	}
	m := assessment.Metrics
	logger.Info().
		Float64("vol_daily", m.VolDaily).
		Float64("vol_annual", m.VolAnnual).
		Float64("max_drawdown", m.MaxDrawdown).
		Float64("var", m.VaR).
		Float64("es", m.ES).
		Float64("parametric_var", m.ParametricVaR).
		Msg("metrics computed")

	arts, err := report.WriteAll(filepath.Join(runDir, outputsDir), assessment, report.Options{
		Prometheus: cfg.Outputs.PrometheusTextfile,
	})
	if err != nil {
		return Result{}, err
	}
	logger.Info().Str("dir", arts.Dir).Msg("artifacts written")

	commentary := r.commentary(ctx, cfg, m, arts.Dir, logger)
	r.notify(cfg, m, arts, commentary, logger)

	return Result{RunID: runID, RunDir: runDir, Metrics: m, Artifacts: arts}, nil
}

func (r *Runner) commentary(ctx context.Context, cfg *config.Config, m risk.RiskMetrics, dir string, logger zerolog.Logger) string {
	if !cfg.Commentary.Enabled || r.NewCommentator == nil {
		return ""
	}
	cctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()
	text, err := r.NewCommentator(cfg).Commentary(cctx, m)
	if err != nil {
		logger.Warn().Err(err).Msg("commentary failed")
		return ""
	}
	if err := os.WriteFile(filepath.Join(dir, commentaryFile), []byte(text+"\n"), 0o644); err != nil {
		logger.Warn().Err(err).Msg("failed to write commentary")
		return text
	}
	logger.Info().Str("file", commentaryFile).Msg("commentary written")
	return text
}

func (r *Runner) notify(cfg *config.Config, m risk.RiskMetrics, arts report.Artifacts, commentary string, logger zerolog.Logger) {
	if !cfg.Notify.Telegram.Enabled || r.NewNotifier == nil {
		return
	}
	n, err := r.NewNotifier(cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram notifier unavailable")
		return
	}
	chart, err := os.ReadFile(arts.DrawdownChart)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read drawdown chart")
		chart = nil
	}
	if err := n.NotifyRun(cfg.RunName, m, chart, commentary); err != nil {
		logger.Warn().Err(err).Msg("telegram notification failed")
	}
}
