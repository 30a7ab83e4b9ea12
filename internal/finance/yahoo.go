package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nirujan123/risk-engine/internal/risk"
)

// YahooSource builds price matrices from Yahoo daily charts.
type YahooSource struct {
	client         *Client
	maxConcurrency int
	log            zerolog.Logger
}

func NewYahooSource(client *Client, maxConcurrency int, logger zerolog.Logger) *YahooSource {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &YahooSource{
		client:         client,
		maxConcurrency: maxConcurrency,
		log:            logger.With().Str("component", "prices").Logger(),
	}
}

// Prices fetches every ticker concurrently and aligns them on the dates all
// of them traded. Columns follow req.Tickers.
func (s *YahooSource) Prices(ctx context.Context, req Request) (risk.PriceMatrix, error) {
	if len(req.Tickers) == 0 {
		return risk.PriceMatrix{}, fmt.Errorf("no tickers requested")
	}
	start, end, err := req.window()
	if err != nil {
		return risk.PriceMatrix{}, err
	}

	series := make([]dailySeries, len(req.Tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, symbol := range req.Tickers {
		i, symbol := i, symbol
		g.Go(func() error {
			res, err := s.client.fetchChart(gctx, symbol, start, end, req.Interval)
			if err != nil {
				return err
			}
			ds, err := extractSeries(symbol, res, req.AutoAdjust)
			if err != nil {
				return err
			}
			series[i] = ds
			s.log.Debug().Str("symbol", symbol).Int("points", len(ds.Dates)).Msg("fetched series")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return risk.PriceMatrix{}, err
	}

	return alignSeries(series, req.AutoAdjust)
}

// alignSeries builds a rectangular matrix over the common dates.
func alignSeries(series []dailySeries, adjusted bool) (risk.PriceMatrix, error) {
	common, err := intersectDates(series)
	if err != nil {
		return risk.PriceMatrix{}, err
	}
	tickers := make([]string, len(series))
	lookup := make([]map[time.Time]float64, len(series))
	for i, s := range series {
		tickers[i] = s.Symbol
		mp := make(map[time.Time]float64, len(s.Dates))
		for j, d := range s.Dates {
			mp[d] = s.Closes[j]
		}
		lookup[i] = mp
	}
	values := make([][]float64, len(common))
	for t, d := range common {
		row := make([]float64, len(series))
		for i := range series {
			row[i] = lookup[i][d]
		}
		values[t] = row
	}
	return risk.PriceMatrix{
		Dates:    common,
		Tickers:  tickers,
		Values:   values,
		Adjusted: adjusted,
	}, nil
}
