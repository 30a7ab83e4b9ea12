package risk

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultLevel is the confidence level used for VaR and ES.
const DefaultLevel = 0.95

// Options controls metric assembly.
type Options struct {
	Level       float64
	TradingDays int
	// Start and End label the requested window. When zero the first and last
	// price dates are used.
	Start time.Time
	End   time.Time
	RunID string
}

// DefaultOptions returns the 95% / 252-day configuration.
func DefaultOptions() Options {
	return Options{Level: DefaultLevel, TradingDays: TradingDaysPerYear}
}

// RiskMetrics is the scalar summary of one assessment.
type RiskMetrics struct {
	Tickers       []string
	Start         time.Time
	End           time.Time
	VolDaily      float64
	VolAnnual     float64
	MaxDrawdown   float64
	VaR           float64
	ES            float64
	ParametricVaR float64
	Level         float64
	TradingDays   int
	PriceBasis    string
	RunID         string
}

// Assessment bundles the metrics with the intermediate series they were derived from.
type Assessment struct {
	Metrics    RiskMetrics
	Returns    ReturnMatrix
	Covariance CovarianceMatrix
	Portfolio  Series
	Drawdown   Series
}

// Assemble runs the full pipeline: log returns, covariance, portfolio
// volatility, drawdown and tail risk. Nil weights mean equal weights.
// Either every metric is computed or an error is returned.
func Assemble(prices PriceMatrix, weights Weights, opts Options) (Assessment, error) {
	const op = "Assemble"
	if err := validateLevel(op, opts.Level); err != nil {
		return Assessment{}, err
	}
	if opts.TradingDays <= 0 {
		opts.TradingDays = TradingDaysPerYear
	}
	if weights == nil {
		weights = EqualWeights(prices.Tickers)
	}

	returns, err := LogReturns(prices)
	if err != nil {
		return Assessment{}, err
	}
	cov, err := Covariance(returns)
	if err != nil {
		return Assessment{}, err
	}
	volDaily, err := PortfolioVolatility(weights, cov)
	if err != nil {
		return Assessment{}, err
	}
	port, err := PortfolioReturns(weights, returns)
	if err != nil {
		return Assessment{}, err
	}
	dd, err := Drawdown(port)
	if err != nil {
		return Assessment{}, err
	}

	hvar, err := HistoricalVaR(port.Values, opts.Level)
	if err != nil {
		return Assessment{}, err
	}
	es, err := HistoricalES(port.Values, opts.Level)
	if err != nil {
		return Assessment{}, err
	}
	pvar, err := ParametricVaR(port.Values, opts.Level)
	if err != nil {
		return Assessment{}, err
	}

	start, end := opts.Start, opts.End
	if start.IsZero() {
		start = prices.Dates[0]
	}
	if end.IsZero() {
		end = prices.Dates[len(prices.Dates)-1]
	}

	m := RiskMetrics{
		Tickers:       append([]string(nil), prices.Tickers...),
		Start:         start,
		End:           end,
		VolDaily:      volDaily,
		VolAnnual:     Annualize(volDaily, opts.TradingDays),
		MaxDrawdown:   minDrawdown(dd),
		VaR:           hvar,
		ES:            es,
		ParametricVaR: pvar,
		Level:         opts.Level,
		TradingDays:   opts.TradingDays,
		PriceBasis:    prices.PriceBasis(),
		RunID:         opts.RunID,
	}
	return Assessment{
		Metrics:    m,
		Returns:    returns,
		Covariance: cov,
		Portfolio:  port,
		Drawdown:   dd,
	}, nil
}

// LevelPercent renders a confidence level as a percentage: 0.95 -> "95", 0.975 -> "97.5".
func LevelPercent(level float64) string {
	return strconv.FormatFloat(math.Round(level*1000)/10, 'f', -1, 64)
}

// LevelSuffix renders a confidence level as a key suffix: 0.95 -> "95", 0.975 -> "97_5".
func LevelSuffix(level float64) string {
	return strings.ReplaceAll(LevelPercent(level), ".", "_")
}

// MarshalJSON writes the flat, key-ordered metrics document.
func (m RiskMetrics) MarshalJSON() ([]byte, error) {
	sfx := LevelSuffix(m.Level)
	fields := []struct {
		key   string
		value any
	}{
		{"tickers", m.Tickers},
		{"start", m.Start.Format(DateLayout)},
		{"end", m.End.Format(DateLayout)},
		{"vol_daily", m.VolDaily},
		{"vol_annual", m.VolAnnual},
		{"max_drawdown", m.MaxDrawdown},
		{"var_" + sfx, m.VaR},
		{"es_" + sfx, m.ES},
		{"parametric_var_" + sfx, m.ParametricVaR},
		{"level", m.Level},
		{"trading_days", m.TradingDays},
		{"price_basis", m.PriceBasis},
		{"run_id", m.RunID},
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", f.key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a document produced by MarshalJSON. A missing level
// defaults to DefaultLevel, which selects the _95 keys.
func (m *RiskMetrics) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := RiskMetrics{Level: DefaultLevel}
	if v, ok := raw["level"]; ok {
		if err := json.Unmarshal(v, &out.Level); err != nil {
			return fmt.Errorf("failed to decode level: %w", err)
		}
	}
	sfx := LevelSuffix(out.Level)

	var start, end string
	required := []struct {
		key string
		dst any
	}{
		{"tickers", &out.Tickers},
		{"start", &start},
		{"end", &end},
		{"vol_daily", &out.VolDaily},
		{"vol_annual", &out.VolAnnual},
		{"max_drawdown", &out.MaxDrawdown},
		{"var_" + sfx, &out.VaR},
		{"es_" + sfx, &out.ES},
		{"parametric_var_" + sfx, &out.ParametricVaR},
	}
	for _, f := range required {
		v, ok := raw[f.key]
		if !ok {
			return fmt.Errorf("metrics document is missing %q", f.key)
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return fmt.Errorf("failed to decode %s: %w", f.key, err)
		}
	}
	optional := []struct {
		key string
		dst any
	}{
		{"trading_days", &out.TradingDays},
		{"price_basis", &out.PriceBasis},
		{"run_id", &out.RunID},
	}
	for _, f := range optional {
		if v, ok := raw[f.key]; ok {
			if err := json.Unmarshal(v, f.dst); err != nil {
				return fmt.Errorf("failed to decode %s: %w", f.key, err)
			}
		}
	}

	var err error
	if out.Start, err = time.Parse(DateLayout, start); err != nil {
		return fmt.Errorf("failed to parse start: %w", err)
	}
	if out.End, err = time.Parse(DateLayout, end); err != nil {
		return fmt.Errorf("failed to parse end: %w", err)
	}
	*m = out
	return nil
}
