package finance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(d int) int64 {
	return time.Date(2024, time.January, d, 14, 30, 0, 0, time.UTC).Unix()
}

func date(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func chartBody(t *testing.T, symbol string, ts []int64, closes, adj []any) []byte {
	t.Helper()
	doc := map[string]any{
		"chart": map[string]any{
			"result": []any{map[string]any{
				"meta":      map[string]any{"symbol": symbol, "currency": "USD", "gmtoffset": -18000, "timezone": "EST"},
				"timestamp": ts,
				"indicators": map[string]any{
					"quote":    []any{map[string]any{"close": closes}},
					"adjclose": []any{map[string]any{"adjclose": adj}},
				},
			}},
			"error": nil,
		},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return b
}

func testClient(hosts ...string) *Client {
	return NewClient(ClientOptions{
		Hosts:          hosts,
		Timeout:        5 * time.Second,
		RequestsPerSec: 1000,
		Backoffs:       []time.Duration{time.Millisecond},
		Logger:         zerolog.Nop(),
	})
}

func yahooServer(t *testing.T, bodies map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		body, ok := bodies[symbol]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
			return
		}
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		assert.NotEmpty(t, r.URL.Query().Get("period2"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestYahooSourceAlignsAndUsesAdjustedCloses(t *testing.T) {
	srv := yahooServer(t, map[string][]byte{
		"AAPL": chartBody(t, "AAPL",
			[]int64{bar(2), bar(3), bar(4), bar(5)},
			[]any{101.0, 102.0, nil, 104.0},
			[]any{100.0, 101.0, nil, 103.0}),
		"MSFT": chartBody(t, "MSFT",
			[]int64{bar(2), bar(3), bar(4), bar(5)},
			[]any{51.0, 52.0, 53.0, 54.0},
			[]any{50.0, 51.0, 52.0, 53.0}),
	})

	src := NewYahooSource(testClient(srv.URL), 2, zerolog.Nop())
	pm, err := src.Prices(context.Background(), Request{
		Tickers:    []string{"MSFT", "AAPL"},
		Start:      "2024-01-01",
		End:        "2024-01-31",
		Interval:   "1d",
		AutoAdjust: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"MSFT", "AAPL"}, pm.Tickers)
	assert.Equal(t, []time.Time{date(2), date(3), date(5)}, pm.Dates)
	assert.Equal(t, [][]float64{{50, 100}, {51, 101}, {53, 103}}, pm.Values)
	assert.True(t, pm.Adjusted)
}

func TestYahooSourceRawCloses(t *testing.T) {
	srv := yahooServer(t, map[string][]byte{
		"SPY": chartBody(t, "SPY",
			[]int64{bar(2), bar(3)},
			[]any{470.0, 472.5},
			[]any{460.0, 462.5}),
	})

	src := NewYahooSource(testClient(srv.URL), 1, zerolog.Nop())
	pm, err := src.Prices(context.Background(), Request{
		Tickers: []string{"SPY"}, Start: "2024-01-01", End: "2024-01-31", Interval: "1d",
	})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{470}, {472.5}}, pm.Values)
	assert.False(t, pm.Adjusted)
	assert.Equal(t, "raw", pm.PriceBasis())
}

func TestYahooSourceUnknownSymbol(t *testing.T) {
	srv := yahooServer(t, map[string][]byte{})
	src := NewYahooSource(testClient(srv.URL), 1, zerolog.Nop())
	_, err := src.Prices(context.Background(), Request{
		Tickers: []string{"NOPE"}, Start: "2024-01-01", End: "2024-01-31", Interval: "1d",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestClientFailsOverToSecondHost(t *testing.T) {
	var badHits int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&badHits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("Edge: Too Many Requests"))
	}))
	defer bad.Close()
	good := yahooServer(t, map[string][]byte{
		"AAPL": chartBody(t, "AAPL", []int64{bar(2), bar(3)}, []any{1.0, 2.0}, []any{1.0, 2.0}),
	})

	src := NewYahooSource(testClient(bad.URL, good.URL), 1, zerolog.Nop())
	pm, err := src.Prices(context.Background(), Request{
		Tickers: []string{"AAPL"}, Start: "2024-01-01", End: "2024-01-31", Interval: "1d", AutoAdjust: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, pm.Rows())
	assert.Equal(t, int32(1), atomic.LoadInt32(&badHits))
}

func TestClientRetriesThenGivesUp(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.fetchChart(context.Background(), "AAPL", date(1), date(31), "1d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClientHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testClient(srv.URL).fetchChart(ctx, "AAPL", date(1), date(31), "1d")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestWindowValidation(t *testing.T) {
	src := NewYahooSource(testClient("http://127.0.0.1:0"), 1, zerolog.Nop())
	_, err := src.Prices(context.Background(), Request{Tickers: []string{"A"}, Start: "2024-02-01", End: "2024-01-01", Interval: "1d"})
	assert.ErrorContains(t, err, "must be before")

	_, err = src.Prices(context.Background(), Request{Start: "2024-01-01", End: "2024-02-01", Interval: "1d"})
	assert.ErrorContains(t, err, "no tickers")
}

func TestToDailyKeepsLastBarPerDate(t *testing.T) {
	ds := toDaily("X", []int64{bar(3), bar(2), bar(3) + 3600}, []float64{10, 9, 11}, -18000)
	assert.Equal(t, []time.Time{date(2), date(3)}, ds.Dates)
	assert.Equal(t, []float64{9, 11}, ds.Closes)
}
