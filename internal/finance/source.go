package finance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nirujan123/risk-engine/internal/risk"
)

// Request identifies a price download. Start and End are YYYY-MM-DD; End is exclusive.
type Request struct {
	Tickers    []string
	Start      string
	End        string
	Interval   string
	AutoAdjust bool
}

// PriceSource returns a validated-shape price matrix for a request.
type PriceSource interface {
	Prices(ctx context.Context, req Request) (risk.PriceMatrix, error)
}

// PriceCache stores price matrices under a fingerprint key.
type PriceCache interface {
	Get(ctx context.Context, key string) (risk.PriceMatrix, bool, error)
	Put(ctx context.Context, key string, prices risk.PriceMatrix) error
}

// Fingerprint is the first 16 hex chars of sha256 over
// "sorted,tickers|start|end|interval|True/False". Ticker order does not matter.
func (r Request) Fingerprint() string {
	sorted := append([]string(nil), r.Tickers...)
	sort.Strings(sorted)
	adjust := "False"
	if r.AutoAdjust {
		adjust = "True"
	}
	raw := strings.Join([]string{strings.Join(sorted, ","), r.Start, r.End, r.Interval, adjust}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

// CacheKey is the entry name used by the cache backends.
func (r Request) CacheKey() string {
	return "prices_" + r.Fingerprint()
}

func (r Request) window() (time.Time, time.Time, error) {
	start, err := time.Parse(risk.DateLayout, r.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", r.Start, err)
	}
	end, err := time.Parse(risk.DateLayout, r.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", r.End, err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s must be before end %s", r.Start, r.End)
	}
	return start, end, nil
}

// CachedSource serves requests from a PriceCache and falls back to the
// wrapped source on a miss, storing what it fetched.
type CachedSource struct {
	source       PriceSource
	cache        PriceCache
	forceRefresh bool
	log          zerolog.Logger
}

func NewCachedSource(source PriceSource, cache PriceCache, forceRefresh bool, logger zerolog.Logger) *CachedSource {
	return &CachedSource{
		source:       source,
		cache:        cache,
		forceRefresh: forceRefresh,
		log:          logger.With().Str("component", "price_cache").Logger(),
	}
}

func (c *CachedSource) Prices(ctx context.Context, req Request) (risk.PriceMatrix, error) {
	key := req.CacheKey()
	if !c.forceRefresh {
		pm, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Str("key", key).Msg("cache read failed, refetching")
		case ok:
			if pm.Adjusted != req.AutoAdjust {
				c.log.Warn().Str("key", key).Msg("cached price basis does not match request, refetching")
				break
			}
			out, err := Reorder(pm, req.Tickers)
			if err != nil {
				c.log.Warn().Err(err).Str("key", key).Msg("cached entry unusable, refetching")
				break
			}
			c.log.Info().Str("key", key).Int("rows", out.Rows()).Msg("cache hit")
			return out, nil
		default:
			c.log.Info().Str("key", key).Msg("cache miss")
		}
	} else {
		c.log.Info().Str("key", key).Msg("force refresh, skipping cache")
	}

	pm, err := c.source.Prices(ctx, req)
	if err != nil {
		return risk.PriceMatrix{}, fmt.Errorf("failed to download prices: %w", err)
	}
	if err := c.cache.Put(ctx, key, pm); err != nil {
		return risk.PriceMatrix{}, fmt.Errorf("failed to store prices in cache: %w", err)
	}
	return pm, nil
}

// Reorder returns a copy of pm whose columns follow tickers exactly.
func Reorder(pm risk.PriceMatrix, tickers []string) (risk.PriceMatrix, error) {
	if len(pm.Tickers) != len(tickers) {
		return risk.PriceMatrix{}, fmt.Errorf("matrix has %d instruments, want %d", len(pm.Tickers), len(tickers))
	}
	idx := make([]int, len(tickers))
	for i, t := range tickers {
		j := pm.Column(t)
		if j < 0 {
			return risk.PriceMatrix{}, fmt.Errorf("matrix has no column %q", t)
		}
		idx[i] = j
	}
	values := make([][]float64, len(pm.Values))
	for r, row := range pm.Values {
		if len(row) != len(pm.Tickers) {
			return risk.PriceMatrix{}, fmt.Errorf("row %d has %d values, expected %d", r, len(row), len(pm.Tickers))
		}
		out := make([]float64, len(tickers))
		for i, j := range idx {
			out[i] = row[j]
		}
		values[r] = out
	}
	return risk.PriceMatrix{
		Dates:    append([]time.Time(nil), pm.Dates...),
		Tickers:  append([]string(nil), tickers...),
		Values:   values,
		Adjusted: pm.Adjusted,
	}, nil
}
