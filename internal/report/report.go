package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/nirujan123/risk-engine/internal/risk"
)

// Artifact file names under a run's outputs directory.
const (
	MetricsFile          = "metrics.json"
	PortfolioReturnsFile = "portfolio_returns.csv"
	DrawdownCSVFile      = "drawdown.csv"
	DrawdownChartFile    = "drawdown.png"
	PrometheusFile       = "metrics.prom"
)

// Artifacts lists the files written for one assessment.
type Artifacts struct {
	Dir              string
	Metrics          string
	PortfolioReturns string
	DrawdownCSV      string
	DrawdownChart    string
	Prometheus       string
}

// Options toggles the optional artifacts.
type Options struct {
	Prometheus bool
}

// WriteAll writes every artifact for a into dir, creating it if needed.
// All required artifacts are encoded in memory first, so an encoding or
// rendering failure leaves nothing on disk.
func WriteAll(dir string, a risk.Assessment, opts Options) (Artifacts, error) {
	metrics, err := encodeMetrics(a.Metrics)
	if err != nil {
		return Artifacts{}, err
	}
	returnsCSV, err := encodeSeriesCSV("portfolio_return", a.Portfolio)
	if err != nil {
		return Artifacts{}, err
	}
	drawdownCSV, err := encodeSeriesCSV("drawdown", a.Drawdown)
	if err != nil {
		return Artifacts{}, err
	}
	chart, err := RenderDrawdownChart(a.Drawdown, a.Metrics.MaxDrawdown)
	if err != nil {
		return Artifacts{}, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("failed to create outputs dir: %w", err)
	}
	out := Artifacts{
		Dir:              dir,
		Metrics:          filepath.Join(dir, MetricsFile),
		PortfolioReturns: filepath.Join(dir, PortfolioReturnsFile),
		DrawdownCSV:      filepath.Join(dir, DrawdownCSVFile),
		DrawdownChart:    filepath.Join(dir, DrawdownChartFile),
	}
	files := []struct {
		path string
		data []byte
	}{
		{out.Metrics, metrics},
		{out.PortfolioReturns, returnsCSV},
		{out.DrawdownCSV, drawdownCSV},
		{out.DrawdownChart, chart},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0o644); err != nil {
			return Artifacts{}, fmt.Errorf("failed to write %s: %w", filepath.Base(f.path), err)
		}
	}
	if opts.Prometheus {
		out.Prometheus = filepath.Join(dir, PrometheusFile)
		if err := WritePrometheusTextfile(out.Prometheus, a.Metrics); err != nil {
			return Artifacts{}, err
		}
	}
	return out, nil
}

func encodeMetrics(m risk.RiskMetrics) ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metrics: %w", err)
	}
	return append(b, '\n'), nil
}

// WriteMetricsJSON writes the metrics document indented by two spaces.
func WriteMetricsJSON(path string, m risk.RiskMetrics) error {
	b, err := encodeMetrics(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// ReadMetricsJSON parses a metrics document written by WriteMetricsJSON.
func ReadMetricsJSON(path string) (risk.RiskMetrics, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return risk.RiskMetrics{}, fmt.Errorf("failed to read metrics: %w", err)
	}
	var m risk.RiskMetrics
	if err := json.Unmarshal(b, &m); err != nil {
		return risk.RiskMetrics{}, fmt.Errorf("failed to parse metrics: %w", err)
	}
	return m, nil
}

// WriteSeriesCSV writes a two-column Date,<column> file.
func WriteSeriesCSV(path, column string, s risk.Series) error {
	b, err := encodeSeriesCSV(column, s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func encodeSeriesCSV(column string, s risk.Series) ([]byte, error) {
	if len(s.Dates) != len(s.Values) {
		return nil, fmt.Errorf("%s series has %d dates but %d values", column, len(s.Dates), len(s.Values))
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Date", column}); err != nil {
		return nil, err
	}
	for i, v := range s.Values {
		rec := []string{s.Dates[i].Format(risk.DateLayout), strconv.FormatFloat(v, 'g', -1, 64)}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", column, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", column, err)
	}
	return buf.Bytes(), nil
}
