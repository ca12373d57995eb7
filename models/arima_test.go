package models

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func simulateARMA(n int, ar, ma []float64, mean float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	burn := 100
	y := make([]float64, n+burn)
	e := make([]float64, n+burn)
	for t := 0; t < n+burn; t++ {
		e[t] = rng.NormFloat64()
		v := mean + e[t]
		for i := 1; i <= len(ar) && t-i >= 0; i++ {
			v += ar[i-1] * (y[t-i] - mean)
		}
		for j := 1; j <= len(ma) && t-j >= 0; j++ {
			v += ma[j-1] * e[t-j]
		}
		y[t] = v
	}
	return y[burn:]
}

func TestARIMAOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *ARIMAOptions
		err      error
		expected *ARIMAOptions
	}{
		"nil": {nil, nil, NewDefaultARIMAOptions()},
		"negative order": {
			opt: &ARIMAOptions{Order: Order{P: -1}},
			err: ErrNegativeOrder,
		},
		"negative conditioning start": {
			opt: &ARIMAOptions{CondStart: -1},
			err: ErrNegativeCondStart,
		},
		"zero iterations falls back to default": {
			opt:      &ARIMAOptions{Order: Order{P: 2}},
			expected: &ARIMAOptions{Order: Order{P: 2}, MaxIter: 1000},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var orig ARIMAOptions
			if td.opt != nil {
				orig = *td.opt
			}
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
			if td.opt != nil {
				assert.Equal(t, orig, *td.opt)
			}
		})
	}
}

func TestARIMACondStart(t *testing.T) {
	y := simulateARMA(200, nil, nil, 5.0, 11)

	m, err := NewARIMA(&ARIMAOptions{FitIntercept: true, CondStart: 4})
	require.Nil(t, err)
	require.Nil(t, m.Fit(y))

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	var ssr float64
	for _, v := range y[4:] {
		ssr += (v - mean) * (v - mean)
	}
	assert.InDelta(t, mean, m.Mean(), 1e-9)
	assert.InDelta(t, ssr/float64(len(y)-4), m.Sigma2(), 1e-9)

	short, err := NewARIMA(&ARIMAOptions{CondStart: 100})
	require.Nil(t, err)
	assert.ErrorIs(t, short.Fit(y[:20]), ErrInsufficientObs)
}

func TestARIMAAICScaleInvariance(t *testing.T) {
	base := simulateARMA(150, nil, nil, 0.0, 5)

	testData := map[string]struct {
		scale float64
	}{
		"unit":  {1.0},
		"large": {1e4},
		"small": {1e-2},
	}

	aicGap := func(y []float64) float64 {
		aic := make([]float64, 2)
		for i, p := range []int{0, 3} {
			m, err := NewARIMA(&ARIMAOptions{Order: Order{P: p}, FitIntercept: true, CondStart: 3})
			require.Nil(t, err)
			require.Nil(t, m.Fit(y))
			aic[i] = m.AIC()
		}
		return aic[1] - aic[0]
	}
	expected := aicGap(base)

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			y := make([]float64, len(base))
			for i, v := range base {
				y[i] = 50*td.scale + td.scale*v
			}
			assert.InDelta(t, expected, aicGap(y), 1e-3)
		})
	}
}

func TestOrderString(t *testing.T) {
	assert.Equal(t, "ARIMA(1,1,1)", Order{P: 1, D: 1, Q: 1}.String())
}

func TestDifference(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, Difference([]float64{0, 1, 3, 6}))
	assert.Nil(t, Difference([]float64{1}))
}

func TestPacfToCoef(t *testing.T) {
	coef := pacfToCoef([]float64{math.Atanh(0.5)})
	assert.InDeltaSlice(t, []float64{0.5}, coef, 1e-12)

	// two partial autocorrelations r1, r2 give phi1 = r1(1-r2), phi2 = r2
	coef = pacfToCoef([]float64{math.Atanh(0.5), math.Atanh(0.2)})
	assert.InDeltaSlice(t, []float64{0.4, 0.2}, coef, 1e-12)
}

func TestARIMAFit(t *testing.T) {
	testData := map[string]struct {
		y         []float64
		opt       *ARIMAOptions
		ar        []float64
		ma        []float64
		mean      float64
		tol       float64
		meanTol   float64
		sigma2Tol float64
	}{
		"ar1 with mean": {
			y:         simulateARMA(600, []float64{0.6}, nil, 10.0, 1),
			opt:       &ARIMAOptions{Order: Order{P: 1}, FitIntercept: true},
			ar:        []float64{0.6},
			ma:        []float64{},
			mean:      10.0,
			tol:       0.1,
			meanTol:   0.4,
			sigma2Tol: 0.2,
		},
		"ma1 without mean": {
			y:         simulateARMA(600, nil, []float64{0.5}, 0.0, 2),
			opt:       &ARIMAOptions{Order: Order{Q: 1}},
			ar:        []float64{},
			ma:        []float64{0.5},
			mean:      0.0,
			tol:       0.1,
			meanTol:   1e-12,
			sigma2Tol: 0.2,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			m, err := NewARIMA(td.opt)
			require.Nil(t, err)
			require.Nil(t, m.Fit(td.y))

			assert.InDeltaSlice(t, td.ar, m.ARCoef(), td.tol)
			assert.InDeltaSlice(t, td.ma, m.MACoef(), td.tol)
			assert.InDelta(t, td.mean, m.Mean(), td.meanTol)
			assert.InDelta(t, 1.0, m.Sigma2(), td.sigma2Tol)
			assert.False(t, math.IsNaN(m.AIC()))
			assert.Greater(t, m.BIC(), m.AIC())
		})
	}
}

func TestARIMAFitErrors(t *testing.T) {
	testData := map[string]struct {
		y   []float64
		err error
	}{
		"too short": {
			y:   []float64{1, 2, 3, 4, 5},
			err: ErrInsufficientObs,
		},
		"nan": {
			y:   append(simulateARMA(30, nil, nil, 0, 3), math.NaN()),
			err: ErrNonFiniteInput,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			m, err := NewARIMA(nil)
			require.Nil(t, err)
			assert.ErrorIs(t, m.Fit(td.y), td.err)
		})
	}
}

func TestARIMARandomWalkForecast(t *testing.T) {
	y := []float64{1, 3, 2, 4, 3, 5, 4, 6, 5, 7, 6, 8, 7}
	m, err := NewARIMA(&ARIMAOptions{Order: Order{D: 1}})
	require.Nil(t, err)
	require.Nil(t, m.Fit(y))

	// differences alternate +2, -1 so sigma2 is the mean of their squares
	diffs := Difference(y)
	var ss float64
	for _, v := range diffs {
		ss += v * v
	}
	sigma2 := ss / float64(len(diffs))
	assert.InDelta(t, sigma2, m.Sigma2(), 1e-12)

	mean, lower, upper, err := m.Forecast(4, 0.95)
	require.Nil(t, err)
	z := distuv.UnitNormal.Quantile(0.975)
	for s := 0; s < 4; s++ {
		assert.InDelta(t, 7.0, mean[s], 1e-12)
		half := z * math.Sqrt(sigma2*float64(s+1))
		assert.InDelta(t, 7.0-half, lower[s], 1e-9)
		assert.InDelta(t, 7.0+half, upper[s], 1e-9)
	}

	fitted := m.Fitted()
	assert.True(t, math.IsNaN(fitted[0]))
	assert.InDelta(t, y[len(y)-2], fitted[len(y)-1], 1e-12)
}

func TestARIMAForecastErrors(t *testing.T) {
	m, err := NewARIMA(nil)
	require.Nil(t, err)
	_, _, _, err = m.Forecast(3, 0.95)
	assert.ErrorIs(t, err, ErrNotFit)

	require.Nil(t, m.Fit(simulateARMA(50, []float64{0.3}, nil, 0, 4)))
	_, _, _, err = m.Forecast(0, 0.95)
	assert.ErrorIs(t, err, ErrInvalidHorizon)
	_, _, _, err = m.Forecast(3, 1.0)
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestARIMAForecastIntervalsWiden(t *testing.T) {
	y := simulateARMA(200, []float64{0.5}, []float64{0.3}, 0, 5)
	for i := 1; i < len(y); i++ {
		y[i] += y[i-1]
	}
	m, err := NewARIMA(nil)
	require.Nil(t, err)
	require.Nil(t, m.Fit(y))

	mean, lower, upper, err := m.Forecast(12, 0.95)
	require.Nil(t, err)
	require.Len(t, mean, 12)
	prevWidth := 0.0
	for s := range mean {
		assert.Less(t, lower[s], mean[s])
		assert.Greater(t, upper[s], mean[s])
		width := upper[s] - lower[s]
		assert.Greater(t, width, prevWidth)
		prevWidth = width
	}
}

func TestPsiWeights(t *testing.T) {
	m := &ARIMA{
		opt: &ARIMAOptions{Order: Order{P: 1, D: 1}},
		ar:  []float64{0.5},
	}
	assert.InDeltaSlice(t, []float64{1, 1.5, 1.75, 1.875}, m.psiWeights(4), 1e-12)

	m = &ARIMA{
		opt: &ARIMAOptions{Order: Order{Q: 1}},
		ma:  []float64{0.4},
	}
	assert.InDeltaSlice(t, []float64{1, 0.4, 0, 0}, m.psiWeights(4), 1e-12)
}
