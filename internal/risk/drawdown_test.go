package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(values ...float64) Series {
	return Series{Dates: days(len(values)), Values: values}
}

func TestDrawdown(t *testing.T) {
	tests := []struct {
		name    string
		returns Series
		want    []float64
		mdd     float64
	}{
		{
			name:    "strictly increasing",
			returns: series(0.01, 0.02, 0.005),
			want:    []float64{0, 0, 0},
			mdd:     0,
		},
		{
			name:    "drop then recover",
			returns: series(0.10, -0.50, 1.00, 0.10),
			want:    []float64{0, -0.5, 0, 0},
			mdd:     -0.5,
		},
		{
			name:    "first return negative",
			returns: series(-0.20, -0.25),
			want:    []float64{0, -0.25},
			mdd:     -0.25,
		},
		{
			name:    "flat",
			returns: series(0, 0, 0),
			want:    []float64{0, 0, 0},
			mdd:     0,
		},
		{
			name:    "empty",
			returns: Series{},
			want:    []float64{},
			mdd:     0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd, err := Drawdown(tt.returns)
			require.NoError(t, err)
			assert.Len(t, dd.Values, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], dd.Values[i], 1e-12)
			}
			mdd, err := MaxDrawdown(tt.returns)
			require.NoError(t, err)
			assert.InDelta(t, tt.mdd, mdd, 1e-12)
		})
	}
}

func TestDrawdownNonPositiveAndZeroAtPeaks(t *testing.T) {
	rets := series(0.02, -0.01, 0.015, -0.03, 0.04, 0.01, -0.02, 0.005)
	dd, err := Drawdown(rets)
	require.NoError(t, err)

	wealth, peak := 1.0, 0.0
	for i, r := range rets.Values {
		wealth *= 1 + r
		assert.LessOrEqual(t, dd.Values[i], 0.0)
		if wealth >= peak {
			peak = wealth
			assert.Equal(t, 0.0, dd.Values[i], "index %d is a running max", i)
		}
	}
	assert.Equal(t, rets.Dates, dd.Dates)
}

func TestDrawdownRejectsNonPositiveWealth(t *testing.T) {
	tests := []struct {
		name    string
		returns Series
	}{
		{"return below -1", series(0.05, -1.2, 0.1)},
		{"total loss", series(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Drawdown(tt.returns)
			assert.ErrorIs(t, err, ErrNumerical)
			_, err = MaxDrawdown(tt.returns)
			assert.ErrorIs(t, err, ErrNumerical)
		})
	}
}

func TestAssembleCrashBelowMinusOneLogReturn(t *testing.T) {
	// 100 -> 20 is a log return of about -1.61.
	_, err := Assemble(matrix([]string{"A"}, []float64{100, 20, 30, 25}), nil, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNumerical)
}
