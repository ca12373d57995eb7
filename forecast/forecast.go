// Package forecast projects a series forward with an automatically selected ARIMA model and
// falls back to a fixed order when automatic selection fails.
package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/aouyang1/go-tsanalysis/models"
	"github.com/aouyang1/go-tsanalysis/timedataset"
)

var (
	ErrInsufficientTrainingData = errors.New("insufficient training data")
	ErrNonFiniteForecast        = errors.New("forecast contains non-finite values")
	ErrInvalidHorizon           = errors.New("horizon must be positive")
	ErrInvalidConfidence        = errors.New("confidence must be in (0, 1)")
)

// State tells which stage of the model cascade produced the forecast.
type State string

const (
	StatePrimary  State = "primary"
	StateFallback State = "fallback"
	StateFailed   State = "failed"
)

type Options struct {
	Horizon    int               `json:"horizon"`
	Confidence float64           `json:"confidence"`
	Auto       *AutoARIMAOptions `json:"auto"`

	// FallbackOrder is fit without an intercept when automatic selection fails.
	FallbackOrder models.Order `json:"fallback_order"`
}

func NewDefaultOptions() *Options {
	return &Options{
		Horizon:       12,
		Confidence:    0.95,
		Auto:          NewDefaultAutoARIMAOptions(),
		FallbackOrder: models.Order{P: 1, D: 1, Q: 1},
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.Horizon <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.Horizon, ErrInvalidHorizon)
	}
	if o.Confidence <= 0 || o.Confidence >= 1 || math.IsNaN(o.Confidence) {
		return nil, fmt.Errorf("got %f, %w", o.Confidence, ErrInvalidConfidence)
	}
	auto, err := o.Auto.Validate()
	if err != nil {
		return nil, err
	}
	out := *o
	out.Auto = auto
	return &out, nil
}

// Point is one forecast step with its interval.
type Point struct {
	Time  time.Time `json:"ds"`
	Value float64   `json:"yhat"`
	Lower float64   `json:"yhat_lower"`
	Upper float64   `json:"yhat_upper"`
}

// Result is the outcome of Run. Points and Model are nil when State is StateFailed, in which
// case Error describes every rejected stage.
type Result struct {
	State  State   `json:"state"`
	Model  *Model  `json:"model"`
	Points []Point `json:"points"`
	Error  string  `json:"error,omitempty"`
}

// Scores returns the in-sample scores of the selected model.
func (r *Result) Scores() *Scores {
	if r == nil || r.Model == nil {
		return nil
	}
	return r.Model.Scores
}

type fitter func(y []float64, opt *Options) (*models.ARIMA, error)

type stage struct {
	state State
	fit   fitter
}

func fitAuto(y []float64, opt *Options) (*models.ARIMA, error) {
	return AutoARIMA(y, opt.Auto)
}

func fitFallback(y []float64, opt *Options) (*models.ARIMA, error) {
	m, err := models.NewARIMA(&models.ARIMAOptions{
		Order:        opt.FallbackOrder,
		FitIntercept: false,
		MaxIter:      opt.Auto.MaxIter,
	})
	if err != nil {
		return nil, err
	}
	if err := m.Fit(y); err != nil {
		return nil, err
	}
	return m, nil
}

var defaultStages = []stage{
	{StatePrimary, fitAuto},
	{StateFallback, fitFallback},
}

// Run forecasts opt.Horizon steps past the last timestamp of td, spaced by freq. It never
// returns an error; failures are reported through the result state.
func Run(td *timedataset.TimeDataset, freq timedataset.Frequency, opt *Options) *Result {
	return run(td, freq, opt, defaultStages)
}

func run(td *timedataset.TimeDataset, freq timedataset.Frequency, opt *Options, stages []stage) *Result {
	opt, err := opt.Validate()
	if err != nil {
		return &Result{State: StateFailed, Error: err.Error()}
	}
	if td == nil || td.Len() == 0 {
		return &Result{State: StateFailed, Error: ErrInsufficientTrainingData.Error()}
	}

	y := make([]float64, len(td.Y))
	copy(y, td.Y)
	end := timedataset.TimeSlice(td.T).EndTime()

	reasons := make([]string, 0, len(stages))
	for _, s := range stages {
		res, err := attempt(s, y, end, freq, opt)
		if err == nil {
			return res
		}
		slog.Warn("forecast stage rejected", "state", s.state, "error", err.Error())
		reasons = append(reasons, fmt.Sprintf("%s: %s", s.state, err))
	}
	return &Result{State: StateFailed, Error: strings.Join(reasons, "; ")}
}

func attempt(s stage, y []float64, end time.Time, freq timedataset.Frequency, opt *Options) (*Result, error) {
	m, err := s.fit(y, opt)
	if err != nil {
		return nil, fmt.Errorf("unable to fit model, %w", err)
	}
	mean, lower, upper, err := m.Forecast(opt.Horizon, opt.Confidence)
	if err != nil {
		return nil, fmt.Errorf("unable to forecast %s, %w", m.Order(), err)
	}

	points := make([]Point, opt.Horizon)
	t := end
	for i := range points {
		if !finite(mean[i]) || !finite(lower[i]) || !finite(upper[i]) {
			return nil, fmt.Errorf("%s at step %d, %w", m.Order(), i+1, ErrNonFiniteForecast)
		}
		t = freq.Next(t)
		points[i] = Point{
			Time:  t,
			Value: mean[i],
			Lower: lower[i],
			Upper: upper[i],
		}
	}

	model := NewModel(m, end)
	scores, err := NewScores(m.Fitted(), y)
	if err != nil {
		slog.Warn("unable to score forecast model", "order", m.Order().String(), "error", err.Error())
	} else {
		model.Scores = scores
	}

	return &Result{
		State:  s.state,
		Model:  model,
		Points: points,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
