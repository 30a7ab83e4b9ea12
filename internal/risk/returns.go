package risk

import (
	"math"
	"time"
)

// LogReturns converts prices to r[t,i] = ln(P[t,i] / P[t-1,i]). The first row is
// dropped, so the result has one row fewer than the input and the same column order.
func LogReturns(prices PriceMatrix) (ReturnMatrix, error) {
	return transform("LogReturns", prices, func(prev, cur float64) float64 {
		return math.Log(cur / prev)
	})
}

// SimpleReturns converts prices to r[t,i] = P[t,i] / P[t-1,i] - 1.
func SimpleReturns(prices PriceMatrix) (ReturnMatrix, error) {
	return transform("SimpleReturns", prices, func(prev, cur float64) float64 {
		return cur/prev - 1
	})
}

func transform(op string, prices PriceMatrix, fn func(prev, cur float64) float64) (ReturnMatrix, error) {
	if err := prices.validateShape(op); err != nil {
		return ReturnMatrix{}, err
	}
	if prices.Rows() < 2 {
		return ReturnMatrix{}, insufficientData(op, 2, prices.Rows())
	}

	// Validate every price before producing any output
	for t, row := range prices.Values {
		for i, p := range row {
			if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				return ReturnMatrix{}, invalidPrice(op, prices.Tickers[i], prices.Dates[t].Format(DateLayout), p)
			}
		}
	}

	n := prices.Rows() - 1
	out := ReturnMatrix{
		Dates:   append([]time.Time(nil), prices.Dates[1:]...),
		Tickers: append([]string(nil), prices.Tickers...),
		Values:  make([][]float64, n),
	}
	for t := 1; t <= n; t++ {
		row := make([]float64, len(prices.Tickers))
		for i := range prices.Tickers {
			r := fn(prices.Values[t-1][i], prices.Values[t][i])
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return ReturnMatrix{}, newError(CodeInvalidPrice, op, "non-finite return %v", r).
					With("ticker", prices.Tickers[i]).
					With("date", prices.Dates[t].Format(DateLayout))
			}
			row[i] = r
		}
		out.Values[t-1] = row
	}
	return out, nil
}
