package finance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nirujan123/risk-engine/internal/risk"
)

func TestFingerprint(t *testing.T) {
	req := Request{Tickers: []string{"MSFT", "AAPL"}, Start: "2022-01-01", End: "2023-01-01", Interval: "1d", AutoAdjust: true}
	assert.Equal(t, "895c4f04a6ed2457", req.Fingerprint())
	assert.Equal(t, "prices_895c4f04a6ed2457", req.CacheKey())

	reordered := req
	reordered.Tickers = []string{"AAPL", "MSFT"}
	assert.Equal(t, req.Fingerprint(), reordered.Fingerprint())

	raw := req
	raw.AutoAdjust = false
	assert.NotEqual(t, req.Fingerprint(), raw.Fingerprint())

	weekly := req
	weekly.Interval = "1wk"
	assert.NotEqual(t, req.Fingerprint(), weekly.Fingerprint())
	assert.Len(t, weekly.Fingerprint(), 16)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]risk.PriceMatrix
	getErr  error
}

func (m *memCache) Get(_ context.Context, key string) (risk.PriceMatrix, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return risk.PriceMatrix{}, false, m.getErr
	}
	pm, ok := m.entries[key]
	return pm, ok, nil
}

func (m *memCache) Put(_ context.Context, key string, pm risk.PriceMatrix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]risk.PriceMatrix{}
	}
	m.entries[key] = pm
	return nil
}

type countingSource struct {
	calls int
	pm    risk.PriceMatrix
	err   error
}

func (c *countingSource) Prices(_ context.Context, req Request) (risk.PriceMatrix, error) {
	c.calls++
	if c.err != nil {
		return risk.PriceMatrix{}, c.err
	}
	return Reorder(c.pm, req.Tickers)
}

func samplePrices() risk.PriceMatrix {
	return risk.PriceMatrix{
		Dates:    []time.Time{date(2), date(3), date(4)},
		Tickers:  []string{"AAPL", "MSFT"},
		Values:   [][]float64{{100, 50}, {101, 51}, {102, 49}},
		Adjusted: true,
	}
}

func sampleRequest() Request {
	return Request{Tickers: []string{"AAPL", "MSFT"}, Start: "2024-01-01", End: "2024-02-01", Interval: "1d", AutoAdjust: true}
}

func TestCachedSourceMissThenHit(t *testing.T) {
	cache := &memCache{}
	src := &countingSource{pm: samplePrices()}
	cs := NewCachedSource(src, cache, false, zerolog.Nop())

	first, err := cs.Prices(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Contains(t, cache.entries, sampleRequest().CacheKey())

	second, err := cs.Prices(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "second call served from cache")
	assert.Equal(t, first, second)
}

func TestCachedSourceReordersCachedColumns(t *testing.T) {
	cache := &memCache{}
	src := &countingSource{pm: samplePrices()}
	cs := NewCachedSource(src, cache, false, zerolog.Nop())

	_, err := cs.Prices(context.Background(), sampleRequest())
	require.NoError(t, err)

	req := sampleRequest()
	req.Tickers = []string{"MSFT", "AAPL"}
	pm, err := cs.Prices(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, []string{"MSFT", "AAPL"}, pm.Tickers)
	assert.Equal(t, []float64{50, 100}, pm.Values[0])
}

func TestCachedSourceForceRefresh(t *testing.T) {
	cache := &memCache{}
	src := &countingSource{pm: samplePrices()}
	cs := NewCachedSource(src, cache, true, zerolog.Nop())

	for i := 0; i < 2; i++ {
		_, err := cs.Prices(context.Background(), sampleRequest())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, src.calls)
}

func TestCachedSourceRefetchesOnCacheError(t *testing.T) {
	cache := &memCache{getErr: errors.New("disk on fire")}
	src := &countingSource{pm: samplePrices()}
	cs := NewCachedSource(src, cache, false, zerolog.Nop())

	_, err := cs.Prices(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestCachedSourcePropagatesDownloadError(t *testing.T) {
	src := &countingSource{err: errors.New("yahoo down")}
	cs := NewCachedSource(src, &memCache{}, false, zerolog.Nop())

	_, err := cs.Prices(context.Background(), sampleRequest())
	assert.ErrorContains(t, err, "yahoo down")
}

func TestReorderRejectsUnknownTicker(t *testing.T) {
	_, err := Reorder(samplePrices(), []string{"AAPL", "GOOG"})
	assert.ErrorContains(t, err, "GOOG")

	_, err = Reorder(samplePrices(), []string{"AAPL"})
	assert.Error(t, err)
}

func TestFingerprintPreservesTickerCase(t *testing.T) {
	upper := Request{Tickers: []string{"AAPL"}, Start: "2022-01-01", End: "2023-01-01", Interval: "1d", AutoAdjust: true}
	lower := upper
	lower.Tickers = []string{"aapl"}
	assert.NotEqual(t, upper.Fingerprint(), lower.Fingerprint())
}
