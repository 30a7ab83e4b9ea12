package storage

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/nirujan123/risk-engine/internal/risk"
)

// priceEntry is the serialized form of a cached price matrix.
type priceEntry struct {
	Tickers    []string    `json:"tickers"`
	Dates      []string    `json:"dates"`
	Values     [][]float64 `json:"values"`
	PriceBasis string      `json:"price_basis"`
	CreatedAt  time.Time   `json:"created_at"`
}

func encodePrices(pm risk.PriceMatrix) ([]byte, error) {
	dates := make([]string, len(pm.Dates))
	for i, d := range pm.Dates {
		dates[i] = d.Format(risk.DateLayout)
	}
	b, err := json.Marshal(priceEntry{
		Tickers:    pm.Tickers,
		Dates:      dates,
		Values:     pm.Values,
		PriceBasis: pm.PriceBasis(),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode price entry: %w", err)
	}
	return b, nil
}

func decodePrices(b []byte) (risk.PriceMatrix, error) {
	var e priceEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return risk.PriceMatrix{}, fmt.Errorf("failed to decode price entry: %w", err)
	}
	if len(e.Values) != len(e.Dates) {
		return risk.PriceMatrix{}, fmt.Errorf("corrupt price entry: %d rows for %d dates", len(e.Values), len(e.Dates))
	}
	dates := make([]time.Time, len(e.Dates))
	for i, s := range e.Dates {
		d, err := time.Parse(risk.DateLayout, s)
		if err != nil {
			return risk.PriceMatrix{}, fmt.Errorf("corrupt price entry date %q: %w", s, err)
		}
		dates[i] = d
	}
	var adjusted bool
	switch e.PriceBasis {
	case "adjusted":
		adjusted = true
	case "raw":
	default:
		return risk.PriceMatrix{}, fmt.Errorf("corrupt price entry: unknown price basis %q", e.PriceBasis)
	}
	return risk.PriceMatrix{
		Dates:    dates,
		Tickers:  e.Tickers,
		Values:   e.Values,
		Adjusted: adjusted,
	}, nil
}
