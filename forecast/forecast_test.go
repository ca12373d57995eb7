package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/aouyang1/go-tsanalysis/models"
	"github.com/aouyang1/go-tsanalysis/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStub = errors.New("stub failure")

func weeklySeries(t *testing.T, n int) *timedataset.TimeDataset {
	ts := timedataset.GenerateT(n, timedataset.Frequency{Unit: timedataset.Week, N: 1, Anchor: time.Sunday},
		time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC))
	y := timedataset.GenerateTrendY(n, 100, 0.5).
		Add(timedataset.GenerateWaveY(n, 10, 52, 0)).
		Add(timedataset.GenerateNoise(n, 1.0, 7))
	td, err := timedataset.NewUnivariateDataset(ts, y)
	require.Nil(t, err)
	return td
}

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt *Options
		err error
	}{
		"nil":            {nil, nil},
		"zero horizon":   {&Options{Horizon: 0, Confidence: 0.95}, ErrInvalidHorizon},
		"bad confidence": {&Options{Horizon: 3, Confidence: 1.2}, ErrInvalidConfidence},
		"bad auto":       {&Options{Horizon: 3, Confidence: 0.9, Auto: &AutoARIMAOptions{MaxQ: -1}}, ErrInvalidMaxOrder},
		"auto defaulted": {&Options{Horizon: 3, Confidence: 0.9}, nil},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var orig Options
			if td.opt != nil {
				orig = *td.opt
			}
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.NotNil(t, opt.Auto)
			if td.opt != nil {
				assert.Equal(t, orig, *td.opt)
			}
		})
	}
}

func TestRunWeekly(t *testing.T) {
	td := weeklySeries(t, 104)
	freq, err := timedataset.ParseFrequency("W")
	require.Nil(t, err)

	res := Run(td, freq, &Options{Horizon: 12, Confidence: 0.95})
	require.NotEqual(t, StateFailed, res.State, res.Error)
	require.Len(t, res.Points, 12)
	require.NotNil(t, res.Model)
	assert.NotNil(t, res.Scores())
	assert.Empty(t, res.Error)

	prev := td.T[td.Len()-1]
	assert.Equal(t, prev, res.Model.TrainEndTime)
	for _, p := range res.Points {
		assert.Equal(t, prev.AddDate(0, 0, 7), p.Time)
		assert.LessOrEqual(t, p.Lower, p.Value)
		assert.GreaterOrEqual(t, p.Upper, p.Value)
		prev = p.Time
	}

	again := Run(td, freq, &Options{Horizon: 12, Confidence: 0.95})
	assert.Equal(t, res, again)
}

func TestRunMonthStart(t *testing.T) {
	freq := timedataset.Frequency{Unit: timedataset.MonthStart, N: 1}
	n := 48
	ts := timedataset.GenerateT(n, freq, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	y := timedataset.GenerateWaveY(n, 3, 12, 0).Add(timedataset.GenerateNoise(n, 0.3, 3))
	td, err := timedataset.NewUnivariateDataset(ts, y)
	require.Nil(t, err)

	res := Run(td, freq, &Options{Horizon: 3, Confidence: 0.8})
	require.NotEqual(t, StateFailed, res.State, res.Error)
	expected := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, p := range res.Points {
		assert.Equal(t, expected[i], p.Time)
	}
}

func TestRunStates(t *testing.T) {
	failing := func([]float64, *Options) (*models.ARIMA, error) {
		return nil, errStub
	}

	td := weeklySeries(t, 60)
	freq := timedataset.Frequency{Unit: timedataset.Week, N: 1, Anchor: time.Sunday}

	testData := map[string]struct {
		td       *timedataset.TimeDataset
		opt      *Options
		stages   []stage
		expected State
		model    string
		errParts []string
	}{
		"primary": {
			td:       td,
			stages:   []stage{{StatePrimary, fitFallback}, {StateFallback, failing}},
			expected: StatePrimary,
			model:    "ARIMA(1,1,1)",
		},
		"fallback after fit error": {
			td:       td,
			stages:   []stage{{StatePrimary, failing}, {StateFallback, fitFallback}},
			expected: StateFallback,
			model:    "ARIMA(1,1,1)",
		},
		"all stages fail": {
			td:       td,
			stages:   []stage{{StatePrimary, failing}, {StateFallback, failing}},
			expected: StateFailed,
			errParts: []string{"primary: unable to fit model, stub failure", "fallback: unable to fit model, stub failure"},
		},
		"too short for any model": {
			td:       &timedataset.TimeDataset{T: td.T[:5], Y: td.Y[:5]},
			stages:   defaultStages,
			expected: StateFailed,
			errParts: []string{"primary:", "fallback:", models.ErrInsufficientObs.Error()},
		},
		"empty series": {
			td:       &timedataset.TimeDataset{},
			stages:   defaultStages,
			expected: StateFailed,
			errParts: []string{ErrInsufficientTrainingData.Error()},
		},
		"invalid options": {
			td:       td,
			opt:      &Options{Horizon: -1, Confidence: 0.95},
			stages:   defaultStages,
			expected: StateFailed,
			errParts: []string{ErrInvalidHorizon.Error()},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := run(td.td, freq, td.opt, td.stages)
			assert.Equal(t, td.expected, res.State)
			if td.expected == StateFailed {
				assert.Nil(t, res.Points)
				assert.Nil(t, res.Model)
				assert.Nil(t, res.Scores())
				for _, part := range td.errParts {
					assert.Contains(t, res.Error, part)
				}
				return
			}
			assert.Empty(t, res.Error)
			assert.Equal(t, td.model, res.Model.String())
			assert.Len(t, res.Points, NewDefaultOptions().Horizon)
		})
	}
}
