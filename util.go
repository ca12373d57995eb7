package tsanalysis

import (
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-tsanalysis/forecast"
	"github.com/aouyang1/go-tsanalysis/stats"
	"github.com/aouyang1/go-tsanalysis/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values are
// rendered as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	lineData := make([][]opts.LineData, len(y))
	for i := 0; i < len(y); i++ {
		lineData[i] = make([]opts.LineData, 0, len(y[i]))
		for j := 0; j < len(y[i]); j++ {
			if math.IsNaN(y[i][j]) {
				lineData[i] = append(lineData[i], opts.LineData{Value: "-"})
				continue
			}
			lineData[i] = append(lineData[i], opts.LineData{Value: y[i][j]})
		}
	}

	line = line.SetXAxis(t)
	for i, series := range seriesName {
		line = line.AddSeries(series, lineData[i])
	}

	return line
}

// LineForecast generates an echart line chart of the history followed by the forecast with its
// upper and lower bounds.
func LineForecast(history *timedataset.TimeDataset, points []forecast.Point) *charts.Line {
	n := history.Len() + len(points)
	t := make([]time.Time, 0, n)
	actual := make([]float64, 0, n)
	yhat := make([]float64, 0, n)
	upper := make([]float64, 0, n)
	lower := make([]float64, 0, n)

	for i := range history.T {
		t = append(t, history.T[i])
		actual = append(actual, history.Y[i])
		yhat = append(yhat, math.NaN())
		upper = append(upper, math.NaN())
		lower = append(lower, math.NaN())
	}
	for _, p := range points {
		t = append(t, p.Time)
		actual = append(actual, math.NaN())
		yhat = append(yhat, p.Value)
		upper = append(upper, p.Upper)
		lower = append(lower, p.Lower)
	}

	return LineTSeries(
		"Forecast",
		[]string{"Actual", "Forecast", "Upper", "Lower"},
		t,
		[][]float64{actual, yhat, upper, lower},
	)
}

// PlotDecomposition renders the observed series and its components as an html page.
func PlotDecomposition(w io.Writer, t []time.Time, dec *stats.Decomposition) error {
	page := components.NewPage()
	page.AddCharts(
		LineTSeries("Observed", []string{"Observed"}, t, [][]float64{dec.Observed}),
		LineTSeries("Trend", []string{"Trend"}, t, [][]float64{dec.Trend}),
		LineTSeries("Seasonal", []string{"Seasonal"}, t, [][]float64{dec.Seasonal}),
		LineTSeries("Residual", []string{"Residual"}, t, [][]float64{dec.Residual}),
	)
	return page.Render(w)
}

// PlotForecast renders the history and forecast as an html page.
func PlotForecast(w io.Writer, history *timedataset.TimeDataset, points []forecast.Point) error {
	page := components.NewPage()
	page.AddCharts(LineForecast(history, points))
	return page.Render(w)
}
