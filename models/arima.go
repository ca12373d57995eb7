package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinARIMAObs is the number of observations required beyond p+d+q to fit an ARIMA model.
const MinARIMAObs = 10

// Order is the (p, d, q) order of an ARIMA model.
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

func (o Order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

type ARIMAOptions struct {
	Order Order `json:"order"`

	// FitIntercept adds a mean to the differenced series. It is ignored for d > 1.
	FitIntercept bool `json:"fit_intercept"`
	MaxIter      int  `json:"max_iterations"`

	// CondStart is the number of leading differenced values the sum of squares and the
	// likelihood condition on. Values below p are raised to p. Models fit with the same
	// CondStart share a residual sample and their information criteria are comparable.
	CondStart int `json:"cond_start"`
}

func NewDefaultARIMAOptions() *ARIMAOptions {
	return &ARIMAOptions{
		Order:        Order{P: 1, D: 1, Q: 1},
		FitIntercept: false,
		MaxIter:      1000,
	}
}

func (o *ARIMAOptions) Validate() (*ARIMAOptions, error) {
	if o == nil {
		return NewDefaultARIMAOptions(), nil
	}
	if o.Order.P < 0 || o.Order.D < 0 || o.Order.Q < 0 {
		return nil, fmt.Errorf("got %s, %w", o.Order, ErrNegativeOrder)
	}
	if o.CondStart < 0 {
		return nil, fmt.Errorf("got %d, %w", o.CondStart, ErrNegativeCondStart)
	}
	out := *o
	if out.MaxIter <= 0 {
		out.MaxIter = NewDefaultARIMAOptions().MaxIter
	}
	return &out, nil
}

// ARIMA is a non-seasonal autoregressive integrated moving average model fit by conditional
// sum of squares. AR and MA coefficients are reparameterized through partial autocorrelations
// so every fit is stationary and invertible.
type ARIMA struct {
	opt *ARIMAOptions

	ar        []float64
	ma        []float64
	mean      float64
	sigma2    float64
	logLik    float64
	nResid    int
	start     int
	intercept bool

	levels [][]float64 // levels[k] is the series differenced k times
	resid  []float64   // residuals aligned with levels[d]
}

func NewARIMA(opt *ARIMAOptions) (*ARIMA, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &ARIMA{opt: opt}, nil
}

func (a *ARIMA) Order() Order {
	return a.opt.Order
}

// Fit estimates the model on the input series which must be finite.
func (a *ARIMA) Fit(y []float64) error {
	p, d, q := a.opt.Order.P, a.opt.Order.D, a.opt.Order.Q
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value at %d is %f, %w", i, v, ErrNonFiniteInput)
		}
	}
	if len(y) < p+d+q+MinARIMAObs {
		return fmt.Errorf("%s needs %d observations, got %d, %w",
			a.opt.Order, p+d+q+MinARIMAObs, len(y), ErrInsufficientObs)
	}

	a.levels = make([][]float64, d+1)
	a.levels[0] = make([]float64, len(y))
	copy(a.levels[0], y)
	for k := 1; k <= d; k++ {
		a.levels[k] = Difference(a.levels[k-1])
	}
	w := a.levels[d]
	a.intercept = a.opt.FitIntercept && d <= 1
	a.start = max(p, a.opt.CondStart)
	if len(w)-a.start < 2 {
		return fmt.Errorf("%s conditioning on %d of %d values, %w",
			a.opt.Order, a.start, len(w), ErrInsufficientObs)
	}

	loc := 0.0
	if a.intercept {
		loc = stat.Mean(w, nil)
	}
	var scale float64
	for _, v := range w {
		scale += (v - loc) * (v - loc)
	}
	scale = math.Sqrt(scale / float64(len(w)))

	a.ar = make([]float64, p)
	a.ma = make([]float64, q)
	a.mean = loc
	if scale > 0 && p+q > 0 {
		if err := a.optimize(w, loc, scale); err != nil {
			return err
		}
	}

	a.resid = cssResiduals(w, a.ar, a.ma, a.mean)
	var ssr float64
	for _, e := range a.resid[a.start:] {
		ssr += e * e
	}
	a.nResid = len(w) - a.start
	a.sigma2 = ssr / float64(a.nResid)

	// a perfect fit has zero variance, keep the likelihood finite so model comparison still works
	s2 := math.Max(a.sigma2, 1e-300)
	n := float64(a.nResid)
	a.logLik = -n / 2.0 * (math.Log(2.0*math.Pi*s2) + 1.0)
	return nil
}

func (a *ARIMA) optimize(w []float64, loc, scale float64) error {
	p, q, start := len(a.ar), len(a.ma), a.start
	z := make([]float64, len(w))
	for i, v := range w {
		z[i] = (v - loc) / scale
	}

	nParams := p + q
	if a.intercept {
		nParams++
	}
	x0 := make([]float64, nParams)

	unpack := func(x []float64) ([]float64, []float64, float64) {
		ar := pacfToCoef(x[:p])
		ma := pacfToCoef(x[p : p+q])
		// MA polynomial is 1 + theta(B), invertibility flips the sign of the AR form
		floats.Scale(-1.0, ma)
		var mu float64
		if a.intercept {
			mu = x[p+q]
		}
		return ar, ma, mu
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			ar, ma, mu := unpack(x)
			res := cssResiduals(z, ar, ma, mu)
			var ssr float64
			for _, e := range res[start:] {
				ssr += e * e
			}
			return ssr
		},
	}
	settings := &optimize.Settings{
		MajorIterations: a.opt.MaxIter,
	}
	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{SimplexSize: 0.5})
	if res == nil || math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		if err == nil {
			err = ErrFitFailed
		}
		return fmt.Errorf("unable to minimize conditional sum of squares for %s, %w", a.opt.Order, err)
	}

	ar, ma, mu := unpack(res.X)
	a.ar = ar
	a.ma = ma
	a.mean = loc + scale*mu
	return nil
}

// cssResiduals computes the one step prediction errors of an ARMA model on w with mean mu,
// conditioning on the first len(ar) values and zero pre-sample errors.
func cssResiduals(w, ar, ma []float64, mu float64) []float64 {
	p, q := len(ar), len(ma)
	res := make([]float64, len(w))
	for t := p; t < len(w); t++ {
		pred := mu
		for i := 1; i <= p; i++ {
			pred += ar[i-1] * (w[t-i] - mu)
		}
		for j := 1; j <= q && t-j >= 0; j++ {
			pred += ma[j-1] * res[t-j]
		}
		res[t] = w[t] - pred
	}
	return res
}

// pacfToCoef maps unconstrained values to the coefficients of a stationary AR polynomial using
// tanh transformed partial autocorrelations and the Durbin-Levinson recursion.
func pacfToCoef(u []float64) []float64 {
	coef := make([]float64, len(u))
	tmp := make([]float64, len(u))
	for k := 0; k < len(u); k++ {
		r := math.Tanh(u[k])
		copy(tmp, coef)
		for j := 0; j < k; j++ {
			coef[j] = tmp[j] - r*tmp[k-1-j]
		}
		coef[k] = r
	}
	return coef
}

// Difference returns the first difference of x.
func Difference(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

// Forecast predicts h steps past the end of the training series with a two sided interval at
// the given confidence level.
func (a *ARIMA) Forecast(h int, confidence float64) (mean, lower, upper []float64, err error) {
	if a.levels == nil {
		return nil, nil, nil, ErrNotFit
	}
	if h <= 0 {
		return nil, nil, nil, fmt.Errorf("got %d, %w", h, ErrInvalidHorizon)
	}
	if confidence <= 0 || confidence >= 1 || math.IsNaN(confidence) {
		return nil, nil, nil, fmt.Errorf("got %f, %w", confidence, ErrInvalidConfidence)
	}

	d := a.opt.Order.D
	w := a.levels[d]
	n := len(w)

	hist := make([]float64, n+h)
	copy(hist, w)
	errs := make([]float64, n+h)
	copy(errs, a.resid)

	for t := n; t < n+h; t++ {
		pred := a.mean
		for i := 1; i <= len(a.ar); i++ {
			pred += a.ar[i-1] * (hist[t-i] - a.mean)
		}
		for j := 1; j <= len(a.ma); j++ {
			pred += a.ma[j-1] * errs[t-j]
		}
		hist[t] = pred
	}

	mean = hist[n:]
	for k := d - 1; k >= 0; k-- {
		prev := a.levels[k][len(a.levels[k])-1]
		integrated := make([]float64, h)
		for s := 0; s < h; s++ {
			prev += mean[s]
			integrated[s] = prev
		}
		mean = integrated
	}

	z := distuv.UnitNormal.Quantile(1.0 - (1.0-confidence)/2.0)
	psi := a.psiWeights(h)
	lower = make([]float64, h)
	upper = make([]float64, h)
	var cum float64
	for s := 0; s < h; s++ {
		cum += psi[s] * psi[s]
		half := z * math.Sqrt(a.sigma2*cum)
		lower[s] = mean[s] - half
		upper[s] = mean[s] + half
	}
	return mean, lower, upper, nil
}

// psiWeights returns the first n MA(infinity) weights of the integrated model.
func (a *ARIMA) psiWeights(n int) []float64 {
	// phi(B)(1-B)^d as 1 - sum(full[i] B^(i+1))
	poly := []float64{1.0}
	for _, c := range a.ar {
		poly = append(poly, -c)
	}
	for k := 0; k < a.opt.Order.D; k++ {
		next := make([]float64, len(poly)+1)
		for i, c := range poly {
			next[i] += c
			next[i+1] -= c
		}
		poly = next
	}
	full := make([]float64, len(poly)-1)
	for i := 1; i < len(poly); i++ {
		full[i-1] = -poly[i]
	}

	psi := make([]float64, n)
	psi[0] = 1.0
	for j := 1; j < n; j++ {
		if j <= len(a.ma) {
			psi[j] = a.ma[j-1]
		}
		for i := 1; i <= len(full) && i <= j; i++ {
			psi[j] += full[i-1] * psi[j-i]
		}
	}
	return psi
}

// Fitted returns the in-sample one step predictions on the original scale. Points without
// enough history are NaN.
func (a *ARIMA) Fitted() []float64 {
	if a.levels == nil {
		return nil
	}
	y := a.levels[0]
	d, p := a.opt.Order.D, a.opt.Order.P
	fitted := make([]float64, len(y))
	for t := range y {
		idx := t - d
		if idx < p {
			fitted[t] = math.NaN()
			continue
		}
		fitted[t] = y[t] - a.resid[idx]
	}
	return fitted
}

func (a *ARIMA) ARCoef() []float64 {
	c := make([]float64, len(a.ar))
	copy(c, a.ar)
	return c
}

func (a *ARIMA) MACoef() []float64 {
	c := make([]float64, len(a.ma))
	copy(c, a.ma)
	return c
}

// Mean is the estimated mean of the differenced series, zero when no intercept is fit.
func (a *ARIMA) Mean() float64 {
	return a.mean
}

func (a *ARIMA) Sigma2() float64 {
	return a.sigma2
}

func (a *ARIMA) LogLikelihood() float64 {
	return a.logLik
}

func (a *ARIMA) numParams() int {
	k := len(a.ar) + len(a.ma) + 1
	if a.intercept {
		k++
	}
	return k
}

// AIC is the Akaike information criterion including the innovation variance as a parameter.
func (a *ARIMA) AIC() float64 {
	return -2.0*a.logLik + 2.0*float64(a.numParams())
}

// BIC is the Bayesian information criterion over the conditioned residual sample.
func (a *ARIMA) BIC() float64 {
	return -2.0*a.logLik + float64(a.numParams())*math.Log(float64(a.nResid))
}
