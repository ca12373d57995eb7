package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKPSSPValue(t *testing.T) {
	testData := map[string]struct {
		stat     float64
		expected float64
	}{
		"below table":       {0.1, 0.10},
		"at five percent":   {0.463, 0.05},
		"between 10 and 5":  {0.405, 0.075},
		"above table":       {1.0, 0.01},
		"at one percent":    {0.739, 0.01},
		"between 2.5 and 1": {0.6565, 0.0175},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, td.expected, kpssPValue(td.stat), 1e-9)
		})
	}
}

func TestKPSS(t *testing.T) {
	n := 200
	wave := make([]float64, n)
	trend := make([]float64, n)
	for i := 0; i < n; i++ {
		wave[i] = math.Sin(2.0 * math.Pi * float64(i) / 7.0)
		trend[i] = float64(i) + wave[i]
	}

	res, err := KPSS(wave, -1)
	require.Nil(t, err)
	assert.Equal(t, 4, res.Lags)
	assert.True(t, res.Stationary(0.05))

	res, err = KPSS(trend, -1)
	require.Nil(t, err)
	assert.InDelta(t, 0.01, res.PValue, 1e-12)
	assert.False(t, res.Stationary(0.05))

	_, err = KPSS([]float64{2, 2, 2, 2}, -1)
	assert.ErrorIs(t, err, ErrConstantSeries)

	_, err = KPSS([]float64{1, 2}, -1)
	assert.ErrorIs(t, err, ErrSeriesTooShort)
}
