package pipeline

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nirujan123/risk-engine/internal/config"
	"github.com/nirujan123/risk-engine/internal/finance"
	"github.com/nirujan123/risk-engine/internal/report"
	"github.com/nirujan123/risk-engine/internal/risk"
)

type fakeSource struct {
	pm  risk.PriceMatrix
	err error
	req finance.Request
}

func (f *fakeSource) Prices(_ context.Context, req finance.Request) (risk.PriceMatrix, error) {
	f.req = req
	return f.pm, f.err
}

type fakeNotifier struct {
	calls      int
	chart      []byte
	commentary string
	err        error
}

func (f *fakeNotifier) NotifyRun(_ string, _ risk.RiskMetrics, chart []byte, commentary string) error {
	f.calls++
	f.chart = chart
	f.commentary = commentary
	return f.err
}

type fakeCommentator struct {
	text string
	err  error
}

func (f fakeCommentator) Commentary(context.Context, risk.RiskMetrics) (string, error) {
	return f.text, f.err
}

func twoAssetPrices() risk.PriceMatrix {
	dates := make([]time.Time, 5)
	for i := range dates {
		dates[i] = time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC)
	}
	return risk.PriceMatrix{
		Dates:    dates,
		Tickers:  []string{"AAPL", "MSFT"},
		Values:   [][]float64{{100, 50}, {102, 50.5}, {101, 49}, {105, 51}, {103, 52}},
		Adjusted: true,
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		RunName:   "test",
		Universe:  config.UniverseConfig{Tickers: []string{"AAPL", "MSFT"}},
		DateRange: config.DateRangeConfig{Start: "2024-01-01", End: "2024-02-01"},
		Outputs:   config.OutputsConfig{BaseDir: filepath.Join(t.TempDir(), "runs"), SaveConfigSnapshot: true},
		Data: config.DataConfig{
			CacheDir:       filepath.Join(t.TempDir(), "cache"),
			CacheBackend:   config.BackendFile,
			Interval:       "1d",
			AutoAdjust:     true,
			Timeout:        time.Second,
			MaxConcurrency: 1,
		},
		Risk: config.RiskConfig{ConfidenceLevel: 0.95, TradingDays: 252},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func testRunner(src finance.PriceSource) *Runner {
	return &Runner{
		Console: io.Discard,
		Now:     func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) },
		NewSource: func(context.Context, *config.Config, zerolog.Logger) (finance.PriceSource, io.Closer, error) {
			return src, nil, nil
		},
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{pm: twoAssetPrices()}

	res, err := testRunner(src).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.Outputs.BaseDir, "2025-03-04_05-06-07_test"), res.RunDir)
	assert.Equal(t, "2024-01-01", src.req.Start)
	assert.True(t, src.req.AutoAdjust)

	for _, name := range []string{"run.log", "config_snapshot.yaml"} {
		_, err := os.Stat(filepath.Join(res.RunDir, name))
		assert.NoError(t, err, name)
	}
	for _, name := range []string{report.MetricsFile, report.PortfolioReturnsFile, report.DrawdownCSVFile, report.DrawdownChartFile} {
		_, err := os.Stat(filepath.Join(res.RunDir, "outputs", name))
		assert.NoError(t, err, name)
	}

	m, err := report.ReadMetricsJSON(res.Artifacts.Metrics)
	require.NoError(t, err)
	assert.Equal(t, res.Metrics.VaR, m.VaR)
	assert.Equal(t, res.RunID, m.RunID)
	assert.Equal(t, "2024-01-01", m.Start.Format(risk.DateLayout))
	assert.Equal(t, "2024-02-01", m.End.Format(risk.DateLayout))
	assert.Less(t, m.MaxDrawdown, 0.0)
	assert.InDelta(t, m.VolDaily*math.Sqrt(252), m.VolAnnual, 1e-15)

	log, err := os.ReadFile(filepath.Join(res.RunDir, "run.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "run started")
	assert.Contains(t, string(log), "metrics computed")
	assert.Contains(t, string(log), "weight_sum=1")
}

func TestRunDirMustNotExist(t *testing.T) {
	cfg := testConfig(t)
	r := testRunner(&fakeSource{pm: twoAssetPrices()})

	_, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), cfg)
	assert.ErrorContains(t, err, "failed to create run dir")
}

func TestRunFailureWritesNoArtifacts(t *testing.T) {
	cfg := testConfig(t)
	bad := twoAssetPrices()
	bad.Values[2][1] = 0

	_, err := testRunner(&fakeSource{pm: bad}).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, risk.ErrInvalidPrice)

	dirs, err := os.ReadDir(cfg.Outputs.BaseDir)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	_, err = os.Stat(filepath.Join(cfg.Outputs.BaseDir, dirs[0].Name(), "outputs"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSourceError(t *testing.T) {
	cfg := testConfig(t)
	_, err := testRunner(&fakeSource{err: errors.New("yahoo down")}).Run(context.Background(), cfg)
	assert.ErrorContains(t, err, "yahoo down")
}

func TestRunCommentaryAndNotify(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commentary.Enabled = true
	cfg.Notify.Telegram.Enabled = true
	cfg.Notify.Telegram.ChatID = 7

	n := &fakeNotifier{}
	r := testRunner(&fakeSource{pm: twoAssetPrices()})
	r.NewCommentator = func(*config.Config) Commentator { return fakeCommentator{text: "**Summary:** fine"} }
	r.NewNotifier = func(*config.Config, zerolog.Logger) (Notifier, error) { return n, nil }

	res, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(res.Artifacts.Dir, "commentary.md"))
	require.NoError(t, err)
	assert.Equal(t, "**Summary:** fine\n", string(b))
	assert.Equal(t, 1, n.calls)
	assert.NotEmpty(t, n.chart)
	assert.Equal(t, "**Summary:** fine", n.commentary)
}

func TestRunOptionalFailuresDoNotFailRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commentary.Enabled = true
	cfg.Notify.Telegram.Enabled = true
	cfg.Notify.Telegram.ChatID = 7

	r := testRunner(&fakeSource{pm: twoAssetPrices()})
	r.NewCommentator = func(*config.Config) Commentator { return fakeCommentator{err: errors.New("quota")} }
	r.NewNotifier = func(*config.Config, zerolog.Logger) (Notifier, error) { return &fakeNotifier{err: errors.New("blocked")}, nil }

	res, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(res.Artifacts.Dir, "commentary.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestCreateRunDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "runs")
	now := time.Date(2024, 12, 31, 23, 59, 58, 0, time.FixedZone("EST", -5*3600))
	dir, err := CreateRunDir(base, "nightly", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "2025-01-01_04-59-58_nightly"), dir)
}
