package finance

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// dropNullPoints removes points where close is null, keeping timestamp and
// value arrays aligned. Non-positive closes are kept so the risk engine can
// reject them with the offending date.
func dropNullPoints(ts []int64, cl []*float64) ([]int64, []float64) {
	if len(ts) != len(cl) {
		n := len(ts)
		if len(cl) < n {
			n = len(cl)
		}
		ts = ts[:n]
		cl = cl[:n]
	}
	outTs := make([]int64, 0, len(ts))
	outCl := make([]float64, 0, len(cl))
	for i := 0; i < len(ts); i++ {
		if cl[i] == nil {
			continue
		}
		outTs = append(outTs, ts[i])
		outCl = append(outCl, *cl[i])
	}
	return outTs, outCl
}

// toDaily converts exchange timestamps to calendar dates using the exchange
// gmtoffset. A date seen twice keeps the later bar.
func toDaily(symbol string, ts []int64, cl []float64, gmtOffset int64) dailySeries {
	byDate := make(map[time.Time]float64, len(ts))
	for i, t := range ts {
		local := time.Unix(t+gmtOffset, 0).UTC()
		d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		byDate[d] = cl[i]
	}
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	closes := make([]float64, len(dates))
	for i, d := range dates {
		closes[i] = byDate[d]
	}
	return dailySeries{Symbol: symbol, Dates: dates, Closes: closes}
}

// extractSeries picks adjusted or raw closes from a chart result.
func extractSeries(symbol string, res yahooChartResult, adjusted bool) (dailySeries, error) {
	var closes []*float64
	if adjusted {
		if len(res.Indicators.AdjClose) == 0 {
			return dailySeries{}, fmt.Errorf("%s: yahoo returned no adjusted closes", symbol)
		}
		closes = res.Indicators.AdjClose[0].AdjClose
	} else {
		if len(res.Indicators.Quote) == 0 {
			return dailySeries{}, fmt.Errorf("%s: yahoo returned no quotes", symbol)
		}
		closes = res.Indicators.Quote[0].Close
	}
	ts, cl := dropNullPoints(res.Timestamp, closes)
	if len(ts) == 0 {
		return dailySeries{}, fmt.Errorf("%s: no data", symbol)
	}
	return toDaily(symbol, ts, cl, res.Meta.GmtOffset), nil
}

// intersectDates returns the dates present in every series, ascending.
func intersectDates(series []dailySeries) ([]time.Time, error) {
	if len(series) == 0 {
		return nil, errors.New("no series fetched")
	}
	count := map[time.Time]int{}
	for _, s := range series {
		for _, d := range s.Dates {
			count[d]++
		}
	}
	common := make([]time.Time, 0, len(count))
	for d, c := range count {
		if c == len(series) {
			common = append(common, d)
		}
	}
	if len(common) == 0 {
		return nil, errors.New("no overlapping dates across instruments")
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })
	return common, nil
}
