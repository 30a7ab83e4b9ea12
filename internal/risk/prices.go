package risk

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used in errors, CSV and JSON output.
const DateLayout = "2006-01-02"

// PriceMatrix holds close prices: one row per trading date, one column per instrument.
// Values[t][i] is the close of Tickers[i] on Dates[t].
type PriceMatrix struct {
	Dates   []time.Time
	Tickers []string
	Values  [][]float64
	// Adjusted records whether closes are split/dividend adjusted.
	Adjusted bool
}

// PriceBasis returns "adjusted" or "raw".
func (p PriceMatrix) PriceBasis() string {
	if p.Adjusted {
		return "adjusted"
	}
	return "raw"
}

// Rows returns the number of dates.
func (p PriceMatrix) Rows() int { return len(p.Dates) }

// Column returns the index of ticker, or -1.
func (p PriceMatrix) Column(ticker string) int {
	for i, t := range p.Tickers {
		if t == ticker {
			return i
		}
	}
	return -1
}

// validateShape checks the structural invariants: unique tickers, strictly
// increasing dates and rectangular values.
func (p PriceMatrix) validateShape(op string) error {
	if len(p.Tickers) == 0 {
		return newError(CodeInsufficientData, op, "price matrix has no instruments")
	}
	seen := make(map[string]struct{}, len(p.Tickers))
	for _, t := range p.Tickers {
		if _, dup := seen[t]; dup {
			return newError(CodeInvalidPrice, op, "duplicate instrument %q", t).With("ticker", t)
		}
		seen[t] = struct{}{}
	}
	if len(p.Values) != len(p.Dates) {
		return newError(CodeInvalidPrice, op, "matrix has %d rows but %d dates", len(p.Values), len(p.Dates))
	}
	for t := range p.Values {
		if len(p.Values[t]) != len(p.Tickers) {
			return newError(CodeInvalidPrice, op, "row %d has %d values, expected %d", t, len(p.Values[t]), len(p.Tickers)).
				With("date", p.Dates[t].Format(DateLayout))
		}
		if t > 0 && !p.Dates[t].After(p.Dates[t-1]) {
			return newError(CodeInvalidPrice, op, "dates must be strictly increasing").
				With("date", p.Dates[t].Format(DateLayout))
		}
	}
	return nil
}

// Series is a date-indexed scalar series.
type Series struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Values) }

// ReturnMatrix is a PriceMatrix transformed to per-period returns. It has one
// fewer row than the prices it came from.
type ReturnMatrix struct {
	Dates   []time.Time
	Tickers []string
	Values  [][]float64
}

// Rows returns the number of return observations.
func (r ReturnMatrix) Rows() int { return len(r.Dates) }

func (r ReturnMatrix) String() string {
	return fmt.Sprintf("ReturnMatrix(%d x %d)", len(r.Dates), len(r.Tickers))
}

// validateShape checks that the matrix has instruments and one full row per date.
func (r ReturnMatrix) validateShape(op string) error {
	if len(r.Tickers) == 0 {
		return newError(CodeInsufficientData, op, "return matrix has no instruments")
	}
	if len(r.Values) != len(r.Dates) {
		return newError(CodeInvalidPrice, op, "matrix has %d rows but %d dates", len(r.Values), len(r.Dates))
	}
	for t, row := range r.Values {
		if len(row) != len(r.Tickers) {
			return newError(CodeInvalidPrice, op, "row %d has %d values, expected %d", t, len(row), len(r.Tickers)).
				With("date", r.Dates[t].Format(DateLayout))
		}
	}
	return nil
}
