package report

import (
	"errors"
	"fmt"

	"github.com/vicanso/go-charts/v2"

	"github.com/nirujan123/risk-engine/internal/risk"
)

// RenderDrawdownChart draws the drawdown series as a PNG line chart.
func RenderDrawdownChart(dd risk.Series, maxDrawdown float64) ([]byte, error) {
	if dd.Len() == 0 {
		return nil, errors.New("no drawdown points to plot")
	}

	xLabels := make([]string, dd.Len())
	for i, d := range dd.Dates {
		if dd.Len() <= 60 {
			xLabels[i] = d.Format("Jan 02")
		} else {
			xLabels[i] = d.Format("Jan '06")
		}
	}

	// Drawdown is never positive, so the top of the axis is 0 plus padding.
	minVal := maxDrawdown
	padding := -minVal * 0.05
	if padding == 0 {
		padding = 0.01
	}
	yMin := minVal - padding
	yMax := padding

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		[][]float64{dd.Values},
		charts.PNGTypeOption(),
		charts.TitleTextOptionFunc("Drawdown", fmt.Sprintf("Date vs Drawdown | Max: %.2f%%", maxDrawdown*100)),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}
