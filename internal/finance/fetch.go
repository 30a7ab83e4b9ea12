package finance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// DefaultHosts are the Yahoo chart endpoints tried in order.
var DefaultHosts = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

var defaultBackoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

// errPermanent marks responses that will not improve on retry.
var errPermanent = errors.New("permanent yahoo error")

// ClientOptions configures a Yahoo chart client.
type ClientOptions struct {
	// Hosts overrides DefaultHosts, mainly for tests.
	Hosts          []string
	Timeout        time.Duration
	RequestsPerSec float64
	Backoffs       []time.Duration
	Logger         zerolog.Logger
}

// Client downloads daily chart data from Yahoo with host failover, a per-host
// rate limit and a per-host circuit breaker.
type Client struct {
	http     *http.Client
	hosts    []string
	backoffs []time.Duration
	limiters map[string]*rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
	log      zerolog.Logger
}

func NewClient(opts ClientOptions) *Client {
	hosts := opts.Hosts
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	backoffs := opts.Backoffs
	if backoffs == nil {
		backoffs = defaultBackoffs
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}

	c := &Client{
		http:     &http.Client{Timeout: timeout},
		hosts:    hosts,
		backoffs: backoffs,
		limiters: make(map[string]*rate.Limiter, len(hosts)),
		breakers: make(map[string]*gobreaker.CircuitBreaker, len(hosts)),
		log:      opts.Logger.With().Str("component", "yahoo").Logger(),
	}
	for _, h := range hosts {
		host := h
		c.limiters[host] = rate.NewLimiter(rate.Limit(rps), 1)
		c.breakers[host] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        host,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errPermanent)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.log.Warn().Str("host", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			},
		})
	}
	return c
}

// fetchChart downloads one symbol's chart between start (inclusive) and end (exclusive).
func (c *Client) fetchChart(ctx context.Context, symbol string, start, end time.Time, interval string) (yahooChartResult, error) {
	var lastErr error
	for attempt := 0; attempt < len(c.backoffs)+1; attempt++ {
		for _, host := range c.hosts {
			res, err := c.fetchFromHost(ctx, host, symbol, start, end, interval)
			if err == nil {
				return res, nil
			}
			if ctx.Err() != nil {
				return yahooChartResult{}, ctx.Err()
			}
			if errors.Is(err, errPermanent) {
				return yahooChartResult{}, err
			}
			c.log.Debug().Err(err).Str("symbol", symbol).Str("host", host).Int("attempt", attempt).Msg("yahoo request failed")
			lastErr = err
		}
		if attempt < len(c.backoffs) {
			select {
			case <-ctx.Done():
				return yahooChartResult{}, ctx.Err()
			case <-time.After(c.backoffs[attempt]):
			}
		}
	}
	return yahooChartResult{}, fmt.Errorf("failed to fetch %s: %w", symbol, lastErr)
}

func (c *Client) fetchFromHost(ctx context.Context, host, symbol string, start, end time.Time, interval string) (yahooChartResult, error) {
	if err := c.limiters[host].Wait(ctx); err != nil {
		return yahooChartResult{}, err
	}
	out, err := c.breakers[host].Execute(func() (interface{}, error) {
		return c.get(ctx, host, symbol, start, end, interval)
	})
	if err != nil {
		return yahooChartResult{}, err
	}
	return out.(yahooChartResult), nil
}

func (c *Client) get(ctx context.Context, host, symbol string, start, end time.Time, interval string) (yahooChartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=%s&events=div,splits&includeAdjustedClose=true",
		host, url.PathEscape(symbol), start.Unix(), end.Unix(), url.QueryEscape(interval))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return yahooChartResult{}, fmt.Errorf("failed to build yahoo request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/history", strings.ToUpper(symbol)))

	resp, err := c.http.Do(req)
	if err != nil {
		return yahooChartResult{}, err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return yahooChartResult{}, fmt.Errorf("failed to read yahoo response: %w", readErr)
	}
	if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
		return yahooChartResult{}, fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", host)
	}

	var yc yahooChartResp
	if resp.StatusCode != http.StatusOK {
		// Yahoo answers unknown symbols with a 404 and a chart.error payload.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			if json.Unmarshal(body, &yc) == nil && yc.Chart.Error != nil {
				return yahooChartResult{}, fmt.Errorf("%w: %s: %s", errPermanent, yc.Chart.Error.Code, yc.Chart.Error.Description)
			}
			return yahooChartResult{}, fmt.Errorf("%w: yahoo %s returned %d: %s", errPermanent, host, resp.StatusCode, preview(body))
		}
		return yahooChartResult{}, fmt.Errorf("yahoo %s returned %d: %s", host, resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return yahooChartResult{}, fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	if err := json.Unmarshal(body, &yc); err != nil {
		return yahooChartResult{}, fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
	}
	if yc.Chart.Error != nil {
		return yahooChartResult{}, fmt.Errorf("%w: %s: %s", errPermanent, yc.Chart.Error.Code, yc.Chart.Error.Description)
	}
	if len(yc.Chart.Result) == 0 {
		return yahooChartResult{}, fmt.Errorf("%w: no data for %s", errPermanent, symbol)
	}
	return yc.Chart.Result[0], nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
