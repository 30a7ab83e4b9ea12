package report

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nirujan123/risk-engine/internal/risk"
)

// WritePrometheusTextfile exports the scalar metrics in the node_exporter
// textfile format.
func WritePrometheusTextfile(path string, m risk.RiskMetrics) error {
	reg := prometheus.NewRegistry()
	level := strconv.FormatFloat(m.Level, 'f', -1, 64)

	gauges := []struct {
		name, help string
		value      float64
		labels     prometheus.Labels
	}{
		{"risk_engine_volatility_daily", "Daily portfolio volatility.", m.VolDaily, nil},
		{"risk_engine_volatility_annual", "Annualised portfolio volatility.", m.VolAnnual, nil},
		{"risk_engine_max_drawdown", "Maximum drawdown of the portfolio wealth path.", m.MaxDrawdown, nil},
		{"risk_engine_var_historical", "Historical Value-at-Risk as a return.", m.VaR, prometheus.Labels{"level": level}},
		{"risk_engine_expected_shortfall", "Historical Expected Shortfall as a return.", m.ES, prometheus.Labels{"level": level}},
		{"risk_engine_var_parametric", "Normal-approximation Value-at-Risk as a return.", m.ParametricVaR, prometheus.Labels{"level": level}},
	}
	for _, g := range gauges {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        g.name,
			Help:        g.help,
			ConstLabels: g.labels,
		})
		gauge.Set(g.value)
		if err := reg.Register(gauge); err != nil {
			return fmt.Errorf("failed to register %s: %w", g.name, err)
		}
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write prometheus textfile: %w", err)
	}
	return nil
}
