package tsanalysis

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-tsanalysis/artifact"
	"github.com/aouyang1/go-tsanalysis/dateparse"
	"github.com/aouyang1/go-tsanalysis/forecast"
	"github.com/aouyang1/go-tsanalysis/stats"
)

const (
	DefaultHorizon = 12
	DefaultMaxLag  = 4
)

var ErrInvalidMaxLag = errors.New("max lag must be positive")

// Options configures both analyses. A nil Sink skips chart rendering.
type Options struct {
	ParseOptions    *dateparse.Options `json:"parse_options"`
	ADFOptions      *stats.ADFOptions  `json:"adf_options"`
	ForecastOptions *forecast.Options  `json:"forecast_options"`
	MaxLag          int                `json:"max_lag"`

	Sink artifact.Sink `json:"-"`
}

func NewDefaultOptions() *Options {
	return &Options{
		ParseOptions:    dateparse.NewDefaultOptions(),
		ADFOptions:      stats.NewDefaultADFOptions(),
		ForecastOptions: forecast.NewDefaultOptions(),
		MaxLag:          DefaultMaxLag,
	}
}

// Validate returns a copy with unset sub-options filled with defaults. The receiver and its
// sub-options are left untouched so one Options can be shared between goroutines.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	out := *o

	parseOpt, err := o.ParseOptions.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid parse options, %w", err)
	}
	out.ParseOptions = parseOpt

	adfOpt := stats.NewDefaultADFOptions()
	if o.ADFOptions != nil {
		*adfOpt = *o.ADFOptions
	}
	out.ADFOptions = adfOpt

	forecastOpt, err := o.ForecastOptions.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid forecast options, %w", err)
	}
	out.ForecastOptions = forecastOpt

	if out.MaxLag == 0 {
		out.MaxLag = DefaultMaxLag
	}
	if out.MaxLag < 0 {
		return nil, fmt.Errorf("got %d, %w", out.MaxLag, ErrInvalidMaxLag)
	}
	return &out, nil
}
