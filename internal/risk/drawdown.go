package risk

import "time"

// Drawdown compounds the returns into a wealth path W and reports
// D[t] = W[t]/M[t] - 1 where M is the running maximum of W.
// Values are <= 0 and exactly 0 at every new peak. A return at or below -1
// drives wealth non-positive and is reported as ErrNumerical.
func Drawdown(returns Series) (Series, error) {
	const op = "Drawdown"
	out := Series{
		Dates:  append([]time.Time(nil), returns.Dates...),
		Values: make([]float64, len(returns.Values)),
	}
	wealth := 1.0
	peak := 0.0
	for t, r := range returns.Values {
		wealth *= 1 + r
		if !(wealth > 0) {
			err := newError(CodeNumerical, op, "non-positive wealth %v after return %v", wealth, r).
				With("index", t).
				With("return", r)
			if t < len(returns.Dates) {
				err = err.With("date", returns.Dates[t].Format(DateLayout))
			}
			return Series{}, err
		}
		if t == 0 || wealth > peak {
			peak = wealth
		}
		if wealth == peak {
			out.Values[t] = 0
			continue
		}
		out.Values[t] = wealth/peak - 1
	}
	return out, nil
}

// MaxDrawdown is the minimum of the drawdown series, 0 for an empty or
// non-decreasing path.
func MaxDrawdown(returns Series) (float64, error) {
	dd, err := Drawdown(returns)
	if err != nil {
		return 0, err
	}
	return minDrawdown(dd), nil
}

func minDrawdown(dd Series) float64 {
	mdd := 0.0
	for _, d := range dd.Values {
		if d < mdd {
			mdd = d
		}
	}
	return mdd
}
