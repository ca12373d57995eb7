package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aouyang1/go-tsanalysis/models"
	"github.com/aouyang1/go-tsanalysis/stats"
)

var (
	ErrNoCandidateFit   = errors.New("no candidate order could be fit")
	ErrInvalidMaxOrder  = errors.New("maximum orders must be non-negative")
	ErrInvalidKPSSAlpha = errors.New("kpss significance must be in (0, 1)")
)

// AutoARIMAOptions bounds the order search. D is chosen with repeated KPSS tests at Alpha and
// (p, q) by a stepwise AIC search.
type AutoARIMAOptions struct {
	MaxP    int     `json:"max_p"`
	MaxQ    int     `json:"max_q"`
	MaxD    int     `json:"max_d"`
	Alpha   float64 `json:"alpha"`
	MaxIter int     `json:"max_iterations"`
}

func NewDefaultAutoARIMAOptions() *AutoARIMAOptions {
	return &AutoARIMAOptions{
		MaxP:    5,
		MaxQ:    5,
		MaxD:    2,
		Alpha:   0.05,
		MaxIter: 1000,
	}
}

func (o *AutoARIMAOptions) Validate() (*AutoARIMAOptions, error) {
	if o == nil {
		return NewDefaultAutoARIMAOptions(), nil
	}
	if o.MaxP < 0 || o.MaxQ < 0 || o.MaxD < 0 {
		return nil, fmt.Errorf("got p=%d d=%d q=%d, %w", o.MaxP, o.MaxD, o.MaxQ, ErrInvalidMaxOrder)
	}
	if o.Alpha <= 0 || o.Alpha >= 1 {
		return nil, fmt.Errorf("got %f, %w", o.Alpha, ErrInvalidKPSSAlpha)
	}
	out := *o
	if out.MaxIter <= 0 {
		out.MaxIter = NewDefaultAutoARIMAOptions().MaxIter
	}
	return &out, nil
}

// NDiffs returns the number of differences needed for y to pass the KPSS level stationarity
// test at alpha, up to maxD.
func NDiffs(y []float64, alpha float64, maxD int) (int, error) {
	x := y
	for d := 0; d < maxD; d++ {
		res, err := stats.KPSS(x, -1)
		if errors.Is(err, stats.ErrConstantSeries) {
			return d, nil
		}
		if err != nil {
			return 0, fmt.Errorf("unable to test stationarity at d=%d, %w", d, err)
		}
		if res.Stationary(alpha) {
			return d, nil
		}
		x = models.Difference(x)
	}
	return maxD, nil
}

// AutoARIMA selects and fits a non-seasonal ARIMA model. Starting from (2,d,2), (0,d,0),
// (1,d,0) and (0,d,1) it moves to the neighbouring (p, q) with the lowest AIC until no
// neighbour improves. An intercept is fit when d <= 1. Every candidate conditions on the same
// leading MaxP values so their AIC values are computed over one residual sample.
func AutoARIMA(y []float64, opt *AutoARIMAOptions) (*models.ARIMA, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	d, err := NDiffs(y, opt.Alpha, opt.MaxD)
	if err != nil {
		return nil, err
	}

	// no fittable candidate has p above this, see models.MinARIMAObs
	condStart := max(0, min(opt.MaxP, len(y)-d-models.MinARIMAObs))

	type pq struct{ p, q int }
	visited := make(map[pq]bool)
	var (
		best    *models.ARIMA
		bestAIC = math.Inf(1)
		lastErr error
	)
	try := func(c pq) bool {
		if c.p < 0 || c.q < 0 || c.p > opt.MaxP || c.q > opt.MaxQ || visited[c] {
			return false
		}
		visited[c] = true

		m, err := models.NewARIMA(&models.ARIMAOptions{
			Order:        models.Order{P: c.p, D: d, Q: c.q},
			FitIntercept: d <= 1,
			MaxIter:      opt.MaxIter,
			CondStart:    condStart,
		})
		if err != nil {
			lastErr = err
			return false
		}
		if err := m.Fit(y); err != nil {
			lastErr = err
			return false
		}
		aic := m.AIC()
		if math.IsNaN(aic) || aic >= bestAIC {
			return false
		}
		best, bestAIC = m, aic
		return true
	}

	for _, c := range []pq{{2, 2}, {0, 0}, {1, 0}, {0, 1}} {
		try(c)
	}
	if best == nil {
		if lastErr == nil {
			lastErr = models.ErrFitFailed
		}
		return nil, fmt.Errorf("d=%d, %w, %w", d, ErrNoCandidateFit, lastErr)
	}

	for improved := true; improved; {
		improved = false
		o := best.Order()
		for _, step := range []pq{{-1, 0}, {1, 0}, {0, -1}, {0, 1}, {-1, -1}, {1, 1}, {-1, 1}, {1, -1}} {
			if try(pq{o.P + step.p, o.Q + step.q}) {
				improved = true
			}
		}
	}
	slog.Debug("selected arima order", "order", best.Order().String(), "aic", bestAIC, "candidates", len(visited))
	return best, nil
}
