package stats

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidPeriod = errors.New("seasonal period must be at least 2")

// Decomposition holds the additive components of a series. Trend and residual are NaN where
// the centered moving average window does not fit.
type Decomposition struct {
	Period   int       `json:"period"`
	Observed []float64 `json:"observed"`
	Trend    []float64 `json:"trend"`
	Seasonal []float64 `json:"seasonal"`
	Residual []float64 `json:"residual"`
}

// DecompositionPeriod is the default periodicity used for a series of length n.
func DecompositionPeriod(n int) int {
	return max(2, n/6)
}

// Decompose splits y into trend + seasonal + residual using a centered moving average trend
// (2 x period for even periods) and zero mean phase averages for the seasonal component.
func Decompose(y []float64, period int) (*Decomposition, error) {
	if period < 2 {
		return nil, fmt.Errorf("got %d, %w", period, ErrInvalidPeriod)
	}
	if err := checkFinite(y); err != nil {
		return nil, err
	}
	n := len(y)
	if n < 2*period {
		return nil, fmt.Errorf("need %d observations for period %d, got %d, %w", 2*period, period, n, ErrSeriesTooShort)
	}

	filt := make([]float64, period)
	for i := range filt {
		filt[i] = 1.0 / float64(period)
	}
	if period%2 == 0 {
		filt = make([]float64, period+1)
		for i := range filt {
			filt[i] = 1.0 / float64(period)
		}
		filt[0] /= 2.0
		filt[period] /= 2.0
	}
	half := len(filt) / 2

	trend := make([]float64, n)
	detrended := make([]float64, n)
	for t := 0; t < n; t++ {
		if t < half || t+half >= n {
			trend[t] = math.NaN()
			detrended[t] = math.NaN()
			continue
		}
		var v float64
		for k, w := range filt {
			v += w * y[t-half+k]
		}
		trend[t] = v
		detrended[t] = y[t] - v
	}

	phase := make([]float64, period)
	for i := 0; i < period; i++ {
		var sum float64
		var cnt int
		for t := i; t < n; t += period {
			if math.IsNaN(detrended[t]) {
				continue
			}
			sum += detrended[t]
			cnt++
		}
		phase[i] = sum / float64(cnt)
	}
	var phaseMean float64
	for _, v := range phase {
		phaseMean += v
	}
	phaseMean /= float64(period)

	seasonal := make([]float64, n)
	resid := make([]float64, n)
	for t := 0; t < n; t++ {
		seasonal[t] = phase[t%period] - phaseMean
		resid[t] = detrended[t] - seasonal[t]
	}

	observed := make([]float64, n)
	copy(observed, y)
	return &Decomposition{
		Period:   period,
		Observed: observed,
		Trend:    trend,
		Seasonal: seasonal,
		Residual: resid,
	}, nil
}
