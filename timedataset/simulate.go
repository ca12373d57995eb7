package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateT returns n timestamps stepping by freq from start.
func GenerateT(n int, freq Frequency, start time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := freq.Floor(start)
	for i := 0; i < n; i++ {
		t = append(t, ct)
		ct = freq.Next(ct)
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// SetNaN marks every index in idx as missing.
func (s Series) SetNaN(idx ...int) Series {
	for _, i := range idx {
		if i >= 0 && i < len(s) {
			s[i] = math.NaN()
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateTrendY returns a straight line with the given intercept and per point slope.
func GenerateTrendY(n int, intercept, slope float64) Series {
	y := make([]float64, n)
	for i := range y {
		y[i] = intercept + slope*float64(i)
	}
	return Series(y)
}

// GenerateWaveY returns a sine wave over the point index with the given period in points.
func GenerateWaveY(n int, amp, period, phase float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, amp*math.Sin(2.0*math.Pi*float64(i)/period+phase))
	}
	return Series(y)
}

// GenerateNoise returns gaussian noise of the given scale. The seed makes the series repeatable.
func GenerateNoise(n int, scale float64, seed uint64) Series {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, rng.NormFloat64()*scale)
	}
	return Series(y)
}
