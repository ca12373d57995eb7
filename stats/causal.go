package stats

import (
	"errors"
	"fmt"
	"math"

	mat_ "github.com/aouyang1/go-tsanalysis/mat"
	"github.com/aouyang1/go-tsanalysis/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrLenMismatch       = errors.New("series have different lengths")
	ErrInvalidMaxLag     = errors.New("max lag must be positive")
	ErrInsufficientObs   = errors.New("insufficient observations")
	ErrConstantRegressor = errors.New("the x values include a column with constant values and so the test statistic cannot be computed")
)

// Pearson returns the correlation coefficient of x and y, or nil when it is undefined.
func Pearson(x, y []float64) *float64 {
	if len(x) != len(y) || len(x) < 2 {
		return nil
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	return &r
}

// GrangerLag is the sum of squared residuals F-test of one lag order.
type GrangerLag struct {
	FStat  float64 `json:"f_stat"`
	PValue float64 `json:"p_value"`
	DFNum  int     `json:"df_num"`
	DFDen  int     `json:"df_denom"`
}

// GrangerCausality tests whether lags of x help predict y beyond lags of y alone for every lag
// order from 1 to maxLag.
func GrangerCausality(x, y []float64, maxLag int) (map[int]*GrangerLag, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("x has %d values and y has %d, %w", len(x), len(y), ErrLenMismatch)
	}
	if maxLag < 1 {
		return nil, fmt.Errorf("got %d, %w", maxLag, ErrInvalidMaxLag)
	}
	if err := checkFinite(x); err != nil {
		return nil, err
	}
	if err := checkFinite(y); err != nil {
		return nil, err
	}
	n := len(y)
	if n <= 3*maxLag+1 {
		return nil, fmt.Errorf("maximum allowable lag is %d for %d observations, %w", (n-2)/3, n, ErrInsufficientObs)
	}
	if isConstant(x) || isConstant(y) {
		return nil, ErrConstantRegressor
	}

	res := make(map[int]*GrangerLag, maxLag)
	for lag := 1; lag <= maxLag; lag++ {
		ownLags, err := mat_.Lagged(y, lag, lag)
		if err != nil {
			return nil, err
		}
		crossLags, err := mat_.Lagged(x, lag, lag)
		if err != nil {
			return nil, err
		}
		joint, err := mat_.HStack(ownLags, crossLags)
		if err != nil {
			return nil, err
		}
		target := y[lag:]

		restricted, err := fitSSR(ownLags, target)
		if err != nil {
			return nil, fmt.Errorf("unable to fit restricted model at lag %d, %w", lag, err)
		}
		unrestricted, err := fitSSR(joint, target)
		if err != nil {
			return nil, fmt.Errorf("unable to fit unrestricted model at lag %d, %w", lag, err)
		}

		dfDen := unrestricted.DFResid()
		f := ((restricted.SSR() - unrestricted.SSR()) / float64(lag)) / (unrestricted.SSR() / float64(dfDen))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("f statistic at lag %d is %f, %w", lag, f, models.ErrSingularDesign)
		}
		dist := distuv.F{D1: float64(lag), D2: float64(dfDen)}
		res[lag] = &GrangerLag{
			FStat:  f,
			PValue: dist.Survival(f),
			DFNum:  lag,
			DFDen:  dfDen,
		}
	}
	return res, nil
}

func fitSSR(rows [][]float64, target []float64) (*models.OLSRegression, error) {
	x, err := mat_.NewDenseFromArray(rows)
	if err != nil {
		return nil, err
	}
	y := mat.NewDense(len(target), 1, append([]float64(nil), target...))
	reg, err := models.NewOLSRegression(&models.OLSOptions{FitIntercept: true})
	if err != nil {
		return nil, err
	}
	if err := reg.Fit(x, y); err != nil {
		return nil, err
	}
	return reg, nil
}
