package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Quantile returns the p-quantile of values by linear interpolation between
// order statistics at position p*(n-1). values is not modified.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, p)
}

func quantileSorted(vals []float64, p float64) float64 {
	if p <= 0 {
		return vals[0]
	}
	if p >= 1 {
		return vals[len(vals)-1]
	}
	pos := p * float64(len(vals)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(vals) {
		return vals[lo]
	}
	frac := pos - float64(lo)
	return vals[lo] + (vals[hi]-vals[lo])*frac
}

func validateLevel(op string, level float64) error {
	if math.IsNaN(level) || level <= 0 || level >= 1 {
		return invalidLevel(op, level)
	}
	return nil
}

func validateReturns(op string, returns []float64, required int) error {
	if len(returns) < required {
		return insufficientData(op, required, len(returns))
	}
	for _, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return newError(CodeNumerical, op, "non-finite return %v", r)
		}
	}
	return nil
}

// HistoricalVaR is the (1-level) quantile of the returns. It is a return, so a
// loss shows up as a negative number.
func HistoricalVaR(returns []float64, level float64) (float64, error) {
	const op = "HistoricalVaR"
	if err := validateLevel(op, level); err != nil {
		return 0, err
	}
	if err := validateReturns(op, returns, 1); err != nil {
		return 0, err
	}
	return Quantile(returns, 1-level), nil
}

// HistoricalES is the mean of all returns at or below the historical VaR.
func HistoricalES(returns []float64, level float64) (float64, error) {
	const op = "HistoricalES"
	v, err := HistoricalVaR(returns, level)
	if err != nil {
		return 0, err
	}
	return tailMean(op, returns, v)
}

// tailMean averages the returns at or below threshold. Linear interpolation
// keeps VaR >= min(returns), so the tail is never empty when threshold comes
// from HistoricalVaR on the same returns.
func tailMean(op string, returns []float64, v float64) (float64, error) {
	var sum float64
	var n int
	for _, r := range returns {
		if r <= v {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0, newError(CodeEmptyTail, op, "no returns at or below VaR %v", v).With("var", v)
	}
	return sum / float64(n), nil
}

// ParametricVaR is mu + z*sigma under a normal approximation, where z is the
// standard normal quantile at 1-level and sigma the N-1 sample standard deviation.
func ParametricVaR(returns []float64, level float64) (float64, error) {
	const op = "ParametricVaR"
	if err := validateLevel(op, level); err != nil {
		return 0, err
	}
	if err := validateReturns(op, returns, 2); err != nil {
		return 0, err
	}
	mu := stat.Mean(returns, nil)
	sigma := stat.StdDev(returns, nil)
	z := distuv.UnitNormal.Quantile(1 - level)
	v := mu + z*sigma
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, newError(CodeNumerical, op, "non-finite parametric VaR %v", v)
	}
	return v, nil
}
