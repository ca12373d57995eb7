// Package models is a collection of regression and ARIMA fitting implementations used by the
// diagnostics and forecasting steps.
package models

import (
	"gonum.org/v1/gonum/mat"
)

// Regressor is a linear model fit on a design matrix and a single column target.
type Regressor interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}
