package risk

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

const (
	// TradingDaysPerYear is the default annualisation factor for daily data.
	TradingDaysPerYear = 252

	// VarianceTolerance bounds the round-off allowed below zero in wᵀΣw before
	// the result is treated as a numerical failure.
	VarianceTolerance = 1e-12
)

// PortfolioVariance computes wᵀΣw with w aligned to the covariance labels.
func PortfolioVariance(w Weights, cov CovarianceMatrix) (float64, error) {
	const op = "PortfolioVariance"
	vec, err := w.Align(op, cov.Tickers)
	if err != nil {
		return 0, err
	}
	v := mat.Inner(vec, cov.sym, vec)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, newError(CodeNumerical, op, "non-finite portfolio variance %v", v)
	}
	return v, nil
}

// PortfolioVolatility returns sqrt(wᵀΣw). Tiny negative variances from
// round-off are clamped to zero; anything below -VarianceTolerance is an error.
func PortfolioVolatility(w Weights, cov CovarianceMatrix) (float64, error) {
	const op = "PortfolioVolatility"
	v, err := PortfolioVariance(w, cov)
	if err != nil {
		return 0, err
	}
	if v < -VarianceTolerance {
		return 0, newError(CodeNumerical, op, "negative portfolio variance %v", v).With("variance", v)
	}
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v), nil
}

// PortfolioReturns computes the weighted sum of each return row.
func PortfolioReturns(w Weights, returns ReturnMatrix) (Series, error) {
	const op = "PortfolioReturns"
	if err := returns.validateShape(op); err != nil {
		return Series{}, err
	}
	if returns.Rows() == 0 {
		return Series{}, insufficientData(op, 1, 0)
	}
	vec, err := w.Align(op, returns.Tickers)
	if err != nil {
		return Series{}, err
	}
	var out mat.VecDense
	out.MulVec(returnsDense(returns), vec)

	values := make([]float64, returns.Rows())
	for t := range values {
		values[t] = out.AtVec(t)
		if math.IsNaN(values[t]) || math.IsInf(values[t], 0) {
			return Series{}, newError(CodeNumerical, op, "non-finite portfolio return %v", values[t]).
				With("date", returns.Dates[t].Format(DateLayout))
		}
	}
	return Series{
		Dates:  append([]time.Time(nil), returns.Dates...),
		Values: values,
	}, nil
}

// Annualize scales a daily volatility by sqrt(tradingDays).
func Annualize(daily float64, tradingDays int) float64 {
	return daily * math.Sqrt(float64(tradingDays))
}
