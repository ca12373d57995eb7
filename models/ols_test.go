package models

import (
	"math"
	"testing"

	mat_ "github.com/aouyang1/go-tsanalysis/mat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestOLSOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *OLSOptions
		err      error
		expected *OLSOptions
	}{
		"nil": {nil, nil, NewDefaultOLSOptions()},
		"valid": {
			&OLSOptions{
				FitIntercept: true,
			}, nil,
			&OLSOptions{
				FitIntercept: true,
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorAs(t, err, &td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestOLSRegression(t *testing.T) {
	tol := 1e-5
	testData := map[string]struct {
		x         [][]float64
		y         []float64
		opt       *OLSOptions
		intercept float64
		coef      []float64
	}{
		"ols model intercept": {
			x: [][]float64{
				{0, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y:         []float64{2, 31, 109, 62, 87},
			intercept: 2.0,
			coef:      []float64{3.0, 4.0},
		},
		"ols model no intercept": {
			x: [][]float64{
				{1, 0, 0},
				{1, 3, 5},
				{1, 9, 20},
				{1, 12, 6},
				{1, 15, 10},
			},
			y: []float64{2, 31, 109, 62, 87},
			opt: &OLSOptions{
				FitIntercept: false,
			},
			intercept: 0.0,
			coef:      []float64{2.0, 3.0, 4.0},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, err := mat_.NewDenseFromArray(td.x)
			require.Nil(t, err)

			y := mat.NewDense(len(td.y), 1, td.y)

			model, err := NewOLSRegression(td.opt)
			require.Nil(t, err)

			testModel(t, model, x, y, td.intercept, td.coef, tol)
			assert.InDelta(t, 0.0, model.SSR(), tol)
			assert.Equal(t, 5, model.NumObs())
		})
	}
}

func TestOLSRegressionInference(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{4, 4, 8, 8, 12, 12}

	xMx, err := mat_.NewDenseFromArray(x)
	require.Nil(t, err)
	model, err := NewOLSRegression(nil)
	require.Nil(t, err)
	require.Nil(t, model.Fit(xMx, mat.NewDense(len(y), 1, y)))

	var sxx, sxy float64
	for i := range y {
		sxx += (x[i][0] - 3.5) * (x[i][0] - 3.5)
		sxy += (x[i][0] - 3.5) * (y[i] - 8.0)
	}
	slope := sxy / sxx
	intercept := 8.0 - slope*3.5
	assert.InDelta(t, slope, model.Coef()[0], 1e-9)
	assert.InDelta(t, intercept, model.Intercept(), 1e-9)
	assert.Equal(t, 4, model.DFResid())

	var ssr float64
	for i := range y {
		r := y[i] - (intercept + slope*x[i][0])
		ssr += r * r
	}
	assert.InDelta(t, ssr, model.SSR(), 1e-9)

	// se(slope) = sqrt(sigma^2 / sum((x - xbar)^2))
	se := math.Sqrt(ssr / 4.0 / sxx)
	assert.InDelta(t, se, model.CoefStdErr()[0], 1e-9)
	assert.InDelta(t, slope/se, model.TValues()[0], 1e-9)

	n := 6.0
	ll := -n / 2 * (math.Log(2*math.Pi) + math.Log(ssr/n) + 1)
	assert.InDelta(t, ll, model.LogLikelihood(), 1e-9)
	assert.InDelta(t, -2*ll+4, model.AIC(), 1e-9)
}

func TestOLSRegressionErrors(t *testing.T) {
	testData := map[string]struct {
		x   [][]float64
		y   []float64
		err error
	}{
		"collinear columns": {
			x:   [][]float64{{1, 2}, {2, 4}, {3, 6}, {4, 8}},
			y:   []float64{1, 2, 3, 4},
			err: ErrSingularDesign,
		},
		"constant column with intercept": {
			x:   [][]float64{{3}, {3}, {3}, {3}},
			y:   []float64{1, 2, 3, 4},
			err: ErrSingularDesign,
		},
		"too few rows": {
			x:   [][]float64{{1}, {2}},
			y:   []float64{1, 2},
			err: ErrInsufficientObs,
		},
		"row mismatch": {
			x:   [][]float64{{1}, {2}, {3}},
			y:   []float64{1, 2},
			err: ErrTargetLenMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, err := mat_.NewDenseFromArray(td.x)
			require.Nil(t, err)
			model, err := NewOLSRegression(nil)
			require.Nil(t, err)
			err = model.Fit(x, mat.NewDense(len(td.y), 1, td.y))
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func BenchmarkOLSRegression(b *testing.B) {
	x, y, err := generateBenchData(1000, 100)
	if err != nil {
		b.Fatal(err)
	}

	for i := 0; i < b.N; i++ {
		model, err := NewOLSRegression(
			&OLSOptions{
				FitIntercept: false,
			},
		)
		if err != nil {
			b.Error(err)
			continue
		}
		if err := model.Fit(x, y); err != nil {
			b.Error(err)
			continue
		}
	}
}
