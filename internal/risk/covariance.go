package risk

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CovarianceMatrix is the sample covariance of a ReturnMatrix, labelled by
// instrument on both axes.
type CovarianceMatrix struct {
	Tickers []string
	sym     *mat.SymDense
}

// At returns the covariance between instruments i and j.
func (c CovarianceMatrix) At(i, j int) float64 { return c.sym.At(i, j) }

// Get returns the covariance between two named instruments.
func (c CovarianceMatrix) Get(a, b string) (float64, bool) {
	i, j := indexOf(c.Tickers, a), indexOf(c.Tickers, b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return c.sym.At(i, j), true
}

// Dim returns the number of instruments.
func (c CovarianceMatrix) Dim() int { return len(c.Tickers) }

// Matrix returns a copy of the underlying symmetric matrix.
func (c CovarianceMatrix) Matrix() *mat.SymDense {
	n := c.Dim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(c.sym)
	return out
}

// Covariance estimates the unbiased (N-1) sample covariance of the returns.
func Covariance(returns ReturnMatrix) (CovarianceMatrix, error) {
	const op = "Covariance"
	if err := returns.validateShape(op); err != nil {
		return CovarianceMatrix{}, err
	}
	if returns.Rows() < 2 {
		return CovarianceMatrix{}, insufficientData(op, 2, returns.Rows())
	}
	x := returnsDense(returns)

	var sym mat.SymDense
	stat.CovarianceMatrix(&sym, x, nil)

	n := len(returns.Tickers)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := sym.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return CovarianceMatrix{}, newError(CodeNumerical, op, "non-finite covariance %v", v).
					With("row", returns.Tickers[i]).
					With("col", returns.Tickers[j])
			}
		}
	}
	return CovarianceMatrix{
		Tickers: append([]string(nil), returns.Tickers...),
		sym:     &sym,
	}, nil
}

// returnsDense lays the return rows out as a T x N dense matrix.
func returnsDense(returns ReturnMatrix) *mat.Dense {
	rows, cols := returns.Rows(), len(returns.Tickers)
	data := make([]float64, 0, rows*cols)
	for _, row := range returns.Values {
		data = append(data, row...)
	}
	return mat.NewDense(rows, cols, data)
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
