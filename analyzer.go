// Package tsanalysis produces time series and causal diagnostics for columns of a tabular
// dataset. Dates are parsed with a cascade of strategies, the series is resampled onto a regular
// grid and then tested for stationarity, decomposed and forecast. Failures of those last steps
// are reported inside the result instead of aborting the call.
package tsanalysis

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/aouyang1/go-tsanalysis/dataset"
	"github.com/aouyang1/go-tsanalysis/dateparse"
	"github.com/aouyang1/go-tsanalysis/forecast"
	"github.com/aouyang1/go-tsanalysis/stats"
	"github.com/aouyang1/go-tsanalysis/timedataset"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNilDataset      = errors.New("no dataset provided")
	ErrInvalidHorizon  = errors.New("horizon must be positive")
	ErrNoNumericValues = errors.New("no rows with numeric values in both columns")
)

// TimeSeriesRequest selects the columns to analyze. Frequency is an optional alias such as "D"
// or "W-MON" and a zero Horizon uses the configured default.
type TimeSeriesRequest struct {
	DateColumn  string `json:"date_column"`
	ValueColumn string `json:"value_column"`
	Frequency   string `json:"freq,omitempty"`
	Horizon     int    `json:"horizon,omitempty"`
}

// CausalRequest tests whether XColumn Granger-causes YColumn. A zero MaxLag uses the configured
// default.
type CausalRequest struct {
	XColumn string `json:"x_column"`
	YColumn string `json:"y_column"`
	MaxLag  int    `json:"max_lag,omitempty"`
}

// AnalyzeTimeSeries parses, resamples and diagnoses one value column against a date column.
// Only missing columns, an invalid request or unusable dates return an error.
func AnalyzeTimeSeries(ds *dataset.Dataset, req TimeSeriesRequest, opt *Options) (*DiagnosticBundle, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	dateCol, err := ds.Column(req.DateColumn)
	if err != nil {
		return nil, err
	}
	valueCol, err := ds.Column(req.ValueColumn)
	if err != nil {
		return nil, err
	}

	var hint *timedataset.Frequency
	if req.Frequency != "" {
		f, err := timedataset.ParseFrequency(req.Frequency)
		if err != nil {
			return nil, fmt.Errorf("unable to parse frequency, %w", err)
		}
		hint = &f
	}

	horizon := req.Horizon
	if horizon == 0 {
		horizon = opt.ForecastOptions.Horizon
	}
	if horizon < 0 {
		return nil, fmt.Errorf("got %d, %w", horizon, ErrInvalidHorizon)
	}

	// rows without a numeric value are dropped before any date parsing
	values := valueCol.Floats()
	dates := make([]any, 0, len(values))
	y := make([]float64, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		dates = append(dates, dateCol.Values[i])
		y = append(y, v)
	}

	parser, err := dateparse.New(opt.ParseOptions)
	if err != nil {
		return nil, err
	}
	parsed, outcome, err := parser.ParseSeries(dates, y)
	if err != nil {
		return nil, err
	}

	resampled, freq, err := timedataset.Resample(parsed, hint)
	if err != nil {
		return nil, fmt.Errorf("unable to resample series, %w", err)
	}

	bundle := &DiagnosticBundle{
		NObs:      resampled.Len(),
		Frequency: freq.String(),
		ParseInfo: *outcome,
	}

	// each step works on its own copy and writes a distinct part of the bundle
	var g errgroup.Group
	g.Go(func() error {
		bundle.ADF = runADF(resampled.DropNan().Y, opt)
		return nil
	})
	g.Go(func() error {
		bundle.DecompositionPlot = runDecomposition(resampled.DropNan(), opt)
		return nil
	})
	g.Go(func() error {
		fopt := *opt.ForecastOptions
		fopt.Horizon = horizon
		history := resampled.DropNan()
		res := forecast.Run(history, freq, &fopt)

		bundle.ForecastState = res.State
		bundle.ForecastError = res.Error
		if res.State == forecast.StateFailed {
			return nil
		}
		bundle.ForecastModel = res.Model.String()
		bundle.ForecastFit = res.Model
		bundle.Forecast = res.Points
		bundle.FitScores = res.Scores()
		bundle.ForecastPlot = render(opt, "forecast", func(w io.Writer) error {
			return PlotForecast(w, history, res.Points)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func runADF(y []float64, opt *Options) ADFReport {
	adfOpt := *opt.ADFOptions
	res, err := stats.ADF(y, &adfOpt)
	if err != nil {
		slog.Warn("unable to run stationarity test", "n", len(y), "error", err.Error())
		return ADFReport{Error: err.Error()}
	}
	return ADFReport{Result: res}
}

func runDecomposition(td *timedataset.TimeDataset, opt *Options) *string {
	period := stats.DecompositionPeriod(td.Len())
	dec, err := stats.Decompose(td.Y, period)
	if err != nil {
		slog.Debug("skipping decomposition", "n", td.Len(), "period", period, "error", err.Error())
		return nil
	}
	return render(opt, "decomp", func(w io.Writer) error {
		return PlotDecomposition(w, td.T, dec)
	})
}

// render saves a chart page to the configured sink and returns its reference.
func render(opt *Options, prefix string, fn func(io.Writer) error) *string {
	if opt.Sink == nil {
		return nil
	}
	ref, err := opt.Sink.Save(prefix, fn)
	if err != nil {
		slog.Warn("unable to save chart", "prefix", prefix, "error", err.Error())
		return nil
	}
	return &ref
}

// AnalyzeCausality correlates two numeric columns and runs a Granger causality test of x on y.
// Rows where either column is missing or not numeric are dropped first.
func AnalyzeCausality(ds *dataset.Dataset, req CausalRequest, opt *Options) (*CausalResult, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	xCol, err := ds.Column(req.XColumn)
	if err != nil {
		return nil, err
	}
	yCol, err := ds.Column(req.YColumn)
	if err != nil {
		return nil, err
	}

	maxLag := req.MaxLag
	if maxLag == 0 {
		maxLag = opt.MaxLag
	}
	if maxLag < 0 {
		return nil, fmt.Errorf("got %d, %w", maxLag, ErrInvalidMaxLag)
	}

	xRaw, yRaw := xCol.Floats(), yCol.Floats()
	x := make([]float64, 0, len(xRaw))
	y := make([]float64, 0, len(yRaw))
	for i := range xRaw {
		if math.IsNaN(xRaw[i]) || math.IsNaN(yRaw[i]) {
			continue
		}
		x = append(x, xRaw[i])
		y = append(y, yRaw[i])
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("%q and %q, %w", req.XColumn, req.YColumn, ErrNoNumericValues)
	}

	res := &CausalResult{
		Correlation: stats.Pearson(x, y),
		NObs:        len(x),
	}
	lags, err := stats.GrangerCausality(x, y, maxLag)
	if err != nil {
		slog.Warn("unable to run granger causality test", "x", req.XColumn, "y", req.YColumn, "error", err.Error())
		res.GrangerError = err.Error()
		return res, nil
	}
	res.GrangerPValues = make(map[string]float64, len(lags))
	for lag, l := range lags {
		res.GrangerPValues[strconv.Itoa(lag)] = l.PValue
	}
	return res, nil
}
