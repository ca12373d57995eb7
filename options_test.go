package tsanalysis

import (
	"sync"
	"testing"

	"github.com/aouyang1/go-tsanalysis/dateparse"
	"github.com/aouyang1/go-tsanalysis/forecast"
	"github.com/aouyang1/go-tsanalysis/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt func() *Options
		err error
	}{
		"nil": {
			opt: func() *Options { return nil },
		},
		"partial": {
			opt: func() *Options {
				return &Options{
					ParseOptions:    &dateparse.Options{Threshold: 0.9, EpochMillisDigits: 13},
					ForecastOptions: &forecast.Options{Horizon: 3, Confidence: 0.9},
				}
			},
		},
		"custom adf": {
			opt: func() *Options {
				opt := NewDefaultOptions()
				opt.ADFOptions = &stats.ADFOptions{MaxLag: 2}
				opt.MaxLag = 6
				return opt
			},
		},
		"negative max lag": {
			opt: func() *Options {
				opt := NewDefaultOptions()
				opt.MaxLag = -1
				return opt
			},
			err: ErrInvalidMaxLag,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			in := td.opt()
			orig := td.opt()

			out, err := in.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.Equal(t, orig, in)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, orig, in)

			require.NotNil(t, out.ParseOptions)
			require.NotNil(t, out.ADFOptions)
			require.NotNil(t, out.ForecastOptions)
			require.NotNil(t, out.ForecastOptions.Auto)
			assert.Greater(t, out.ParseOptions.SampleSize, 0)
			assert.Greater(t, out.MaxLag, 0)
			if in != nil {
				assert.NotSame(t, in, out)
				if in.ADFOptions != nil {
					assert.Equal(t, *in.ADFOptions, *out.ADFOptions)
					assert.NotSame(t, in.ADFOptions, out.ADFOptions)
				}
			}
		})
	}
}

func TestOptionsValidateShared(t *testing.T) {
	shared := &Options{
		ParseOptions:    &dateparse.Options{Threshold: 0.9, EpochMillisDigits: 13},
		ForecastOptions: &forecast.Options{Horizon: 3, Confidence: 0.9},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := shared.Validate()
			assert.Nil(t, err)
			assert.Equal(t, DefaultMaxLag, out.MaxLag)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, shared.MaxLag)
	assert.Nil(t, shared.ADFOptions)
	assert.Equal(t, 0, shared.ParseOptions.SampleSize)
	assert.Nil(t, shared.ForecastOptions.Auto)
}
