package models

import (
	"errors"
)

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrTargetLenMismatch  = errors.New("target length does not match target rows")
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetMatrix     = errors.New("no target matrix")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrSingularDesign     = errors.New("design matrix is singular")
	ErrInsufficientObs    = errors.New("not enough observations for the number of parameters")
	ErrNegativeOrder      = errors.New("model order must be non-negative")
	ErrNonFiniteInput     = errors.New("input series contains non-finite values")
	ErrNotFit             = errors.New("model has not been fit")
	ErrInvalidHorizon     = errors.New("forecast horizon must be positive")
	ErrInvalidConfidence  = errors.New("confidence level must be in (0, 1)")
	ErrFitFailed          = errors.New("model optimization failed")
	ErrNegativeCondStart  = errors.New("conditioning start must be non-negative")
)
