package finance

import "time"

// yahooChartResp mirrors the Yahoo v8 chart response (trimmed to needed fields).
// Closes are pointers because Yahoo emits null for halted or partial sessions.
type yahooChartResp struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *yahooError        `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Currency  string `json:"currency"`
		GmtOffset int64  `json:"gmtoffset"`
		Timezone  string `json:"timezone"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// dailySeries is one instrument's closes keyed by calendar date.
type dailySeries struct {
	Symbol string
	Dates  []time.Time
	Closes []float64
}
