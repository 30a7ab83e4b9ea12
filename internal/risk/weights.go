package risk

import "gonum.org/v1/gonum/mat"

// Weights maps instrument identifier to portfolio weight.
type Weights map[string]float64

// EqualWeights assigns 1/N to each ticker.
func EqualWeights(tickers []string) Weights {
	w := make(Weights, len(tickers))
	if len(tickers) == 0 {
		return w
	}
	each := 1.0 / float64(len(tickers))
	for _, t := range tickers {
		w[t] = each
	}
	return w
}

// Align reindexes the weights to the given column order. Alignment is by
// identifier only; a ticker with no weight is an error.
func (w Weights) Align(op string, tickers []string) (*mat.VecDense, error) {
	out := make([]float64, len(tickers))
	for i, t := range tickers {
		v, ok := w[t]
		if !ok {
			return nil, missingWeight(op, t)
		}
		out[i] = v
	}
	return mat.NewVecDense(len(out), out), nil
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}
