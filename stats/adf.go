package stats

import (
	"errors"
	"fmt"
	"math"

	mat_ "github.com/aouyang1/go-tsanalysis/mat"
	"github.com/aouyang1/go-tsanalysis/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrSeriesTooShort  = errors.New("series is too short")
	ErrConstantSeries  = errors.New("series is constant")
	ErrNonFiniteSeries = errors.New("series contains non-finite values")
)

// ADFOptions configures the augmented Dickey-Fuller test. A negative MaxLag selects
// 12*(n/100)^(1/4) lags and AutoLag picks the lag minimizing AIC up to MaxLag.
type ADFOptions struct {
	MaxLag  int  `json:"max_lag"`
	AutoLag bool `json:"auto_lag"`
}

func NewDefaultADFOptions() *ADFOptions {
	return &ADFOptions{
		MaxLag:  -1,
		AutoLag: true,
	}
}

// ADFResult holds the outcome of an augmented Dickey-Fuller unit root test with a constant.
type ADFResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	UsedLag   int     `json:"used_lag"`
	NObs      int     `json:"n_obs"`
}

// ADF runs the augmented Dickey-Fuller test of the null hypothesis that y has a unit root,
// regressing diff(y) on a constant, the lagged level and lagged differences.
func ADF(y []float64, opt *ADFOptions) (*ADFResult, error) {
	if opt == nil {
		opt = NewDefaultADFOptions()
	}
	if err := checkFinite(y); err != nil {
		return nil, err
	}
	n := len(y)
	if n < 4 {
		return nil, fmt.Errorf("%d observations, %w", n, ErrSeriesTooShort)
	}
	if isConstant(y) {
		return nil, ErrConstantSeries
	}

	maxLag := opt.MaxLag
	if maxLag < 0 {
		maxLag = int(math.Ceil(12.0 * math.Pow(float64(n)/100.0, 0.25)))
	}
	// one trend term, keep enough rows for the regression
	maxLag = min(maxLag, n/2-2)
	if maxLag < 0 {
		return nil, fmt.Errorf("%d observations, %w", n, ErrSeriesTooShort)
	}

	diff := models.Difference(y)
	usedLag := maxLag
	if opt.AutoLag && maxLag > 0 {
		best := math.Inf(1)
		for lag := 0; lag <= maxLag; lag++ {
			// every candidate uses the sample of the largest lag so AIC values are comparable
			reg, err := adfRegression(y, diff, lag, maxLag)
			if err != nil {
				return nil, err
			}
			if aic := reg.AIC(); aic < best {
				best = aic
				usedLag = lag
			}
		}
	}

	reg, err := adfRegression(y, diff, usedLag, usedLag)
	if err != nil {
		return nil, err
	}
	stat := reg.TValues()[0]
	if math.IsNaN(stat) || math.IsInf(stat, 0) {
		return nil, fmt.Errorf("test statistic is %f, %w", stat, models.ErrSingularDesign)
	}
	return &ADFResult{
		Statistic: stat,
		PValue:    MacKinnonPValue(stat),
		UsedLag:   usedLag,
		NObs:      reg.NumObs(),
	}, nil
}

// adfRegression fits diff[t] ~ 1 + y[t] + diff[t-1] ... diff[t-lag] for t >= start.
func adfRegression(y, diff []float64, lag, start int) (*models.OLSRegression, error) {
	nRows := len(diff) - start
	if nRows <= lag+2 {
		return nil, fmt.Errorf("%d rows for lag %d, %w", nRows, lag, ErrSeriesTooShort)
	}
	var lagged [][]float64
	if lag > 0 {
		var err error
		lagged, err = mat_.Lagged(diff, lag, start)
		if err != nil {
			return nil, err
		}
	}
	rows, err := mat_.HStack(mat_.Column(y[start:len(diff)]), lagged)
	if err != nil {
		return nil, err
	}
	x, err := mat_.NewDenseFromArray(rows)
	if err != nil {
		return nil, err
	}
	target := mat.NewDense(nRows, 1, append([]float64(nil), diff[start:]...))

	reg, err := models.NewOLSRegression(&models.OLSOptions{FitIntercept: true})
	if err != nil {
		return nil, err
	}
	if err := reg.Fit(x, target); err != nil {
		return nil, fmt.Errorf("unable to fit dickey-fuller regression with %d lags, %w", lag, err)
	}
	return reg, nil
}

// MacKinnon (1994, 2010) approximate p-value surface for the constant-only regression with a
// single series.
var (
	tauMaxC      = 2.74
	tauMinC      = -18.83
	tauStarC     = -1.61
	tauSmallPC   = []float64{2.1659, 1.4412, 0.038269}
	tauLargePC   = []float64{1.7339, 0.93202, -0.12745, -0.010368}
	normalCDFDst = distuv.UnitNormal
)

// MacKinnonPValue returns the approximate asymptotic p-value of a Dickey-Fuller statistic.
func MacKinnonPValue(stat float64) float64 {
	if stat > tauMaxC {
		return 1.0
	}
	if stat < tauMinC {
		return 0.0
	}
	coef := tauLargePC
	if stat <= tauStarC {
		coef = tauSmallPC
	}
	return normalCDFDst.CDF(polyval(coef, stat))
}

// polyval evaluates c[0] + c[1]x + c[2]x^2 + ...
func polyval(c []float64, x float64) float64 {
	var v float64
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}

func checkFinite(y []float64) error {
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value at %d is %f, %w", i, v, ErrNonFiniteSeries)
		}
	}
	return nil
}

func isConstant(y []float64) bool {
	for i := 1; i < len(y); i++ {
		if y[i] != y[0] {
			return false
		}
	}
	return true
}
