package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rankTol is the relative size below which a diagonal entry of R marks a rank deficient design.
const rankTol = 1e-10

type OLSOptions struct {
	FitIntercept bool `json:"fit_intercept"`
}

func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept: true,
	}
}

// Validate returns the default options when none are set.
func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		return NewDefaultOLSOptions(), nil
	}
	return o, nil
}

// OLSRegression computes ordinary least squares using QR factorization and keeps the residual
// statistics needed for t-tests and F-tests.
type OLSRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64

	stdErr []float64 // aligned with the design including the intercept column
	ssr    float64
	nObs   int
	dfRes  int
}

func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{
		opt: opt,
	}, nil
}

func withOnes(x mat.Matrix) mat.Matrix {
	m, _ := x.Dims()
	ones := make([]float64, m)
	floats.AddConst(1.0, ones)
	onesMx := mat.NewDense(1, m, ones)
	var xWithOnes mat.Dense
	xWithOnes.Stack(onesMx, x.T())
	return xWithOnes.T()
}

func (o *OLSRegression) Fit(x, y mat.Matrix) error {
	if o.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}

	m, n := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	if o.opt.FitIntercept {
		x = withOnes(x)
		_, n = x.Dims()
	}
	if m <= n {
		return fmt.Errorf("%d observations for %d parameters, %w", m, n, ErrInsufficientObs)
	}

	qr := new(mat.QR)
	qr.Factorize(x)
	q := new(mat.Dense)
	r := new(mat.Dense)
	qr.QTo(q)
	qr.RTo(r)

	var maxDiag float64
	for i := 0; i < n; i++ {
		maxDiag = math.Max(maxDiag, math.Abs(r.At(i, i)))
	}
	for i := 0; i < n; i++ {
		if math.Abs(r.At(i, i)) <= rankTol*maxDiag || maxDiag == 0 {
			return fmt.Errorf("column %d is collinear, %w", i, ErrSingularDesign)
		}
	}

	yq := new(mat.Dense)
	yq.Mul(y.T(), q)

	// back substitution on the upper triangular R
	c := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		c[i] = yq.At(0, i)
		for j := i + 1; j < n; j++ {
			c[i] -= c[j] * r.At(i, j)
		}
		c[i] /= r.At(i, i)
	}

	fitted := mat.NewVecDense(m, nil)
	fitted.MulVec(x, mat.NewVecDense(n, c))
	var ssr float64
	for i := 0; i < m; i++ {
		res := y.At(i, 0) - fitted.AtVec(i)
		ssr += res * res
	}

	// cov(beta) = sigma^2 * (R'R)^-1 = sigma^2 * R^-1 R^-T
	rSq := mat.DenseCopyOf(r.Slice(0, n, 0, n))
	var rInv mat.Dense
	if err := rInv.Inverse(rSq); err != nil {
		return fmt.Errorf("unable to invert R factor, %w", ErrSingularDesign)
	}
	o.nObs = m
	o.dfRes = m - n
	o.ssr = ssr
	sigma2 := ssr / float64(o.dfRes)
	o.stdErr = make([]float64, n)
	for i := 0; i < n; i++ {
		row := rInv.RawRowView(i)
		o.stdErr[i] = math.Sqrt(sigma2 * floats.Dot(row, row))
	}

	if o.opt.FitIntercept {
		o.intercept = c[0]
		o.coef = c[1:]
	} else {
		o.intercept = 0
		o.coef = c
	}
	return nil
}

func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}

	coef := o.coef
	if o.opt.FitIntercept {
		coef = append([]float64{o.intercept}, o.coef...)
		x = withOnes(x)
	}

	n := len(coef)
	xT := x.T()
	xn, _ := xT.Dims()
	if xn != n {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", xn, n, ErrFeatureLenMismatch)
	}
	coefMx := mat.NewDense(1, n, coef)

	var res mat.Dense
	res.Mul(coefMx, xT)
	return res.RawRowView(0), nil
}

func (o *OLSRegression) Score(x, y mat.Matrix) (float64, error) {
	if o.opt == nil {
		return 0.0, ErrNoOptions
	}
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := o.Predict(x)
	if err != nil {
		return 0.0, err
	}
	ySlice := mat.Col(nil, 0, y)
	return stat.RSquaredFrom(res, ySlice, nil), nil
}

func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

func (o *OLSRegression) Coef() []float64 {
	c := make([]float64, len(o.coef))
	copy(c, o.coef)
	return c
}

// CoefStdErr returns the standard error of each coefficient, excluding the intercept.
func (o *OLSRegression) CoefStdErr() []float64 {
	if o.opt.FitIntercept && len(o.stdErr) > 0 {
		return o.stdErr[1:]
	}
	return o.stdErr
}

// TValues returns coef/stderr for each coefficient, excluding the intercept.
func (o *OLSRegression) TValues() []float64 {
	se := o.CoefStdErr()
	t := make([]float64, len(o.coef))
	for i := range o.coef {
		t[i] = o.coef[i] / se[i]
	}
	return t
}

// SSR is the residual sum of squares of the last fit.
func (o *OLSRegression) SSR() float64 {
	return o.ssr
}

func (o *OLSRegression) NumObs() int {
	return o.nObs
}

// DFResid is the residual degrees of freedom, observations minus parameters.
func (o *OLSRegression) DFResid() int {
	return o.dfRes
}

// LogLikelihood is the gaussian log likelihood at the maximum likelihood variance.
func (o *OLSRegression) LogLikelihood() float64 {
	n := float64(o.nObs)
	return -n / 2.0 * (math.Log(2.0*math.Pi) + math.Log(o.ssr/n) + 1.0)
}

// AIC is the Akaike information criterion counting every regression parameter.
func (o *OLSRegression) AIC() float64 {
	k := float64(o.nObs - o.dfRes)
	return -2.0*o.LogLikelihood() + 2.0*k
}
