package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// level stationarity critical values at 10%, 5%, 2.5% and 1% (Kwiatkowski et al. 1992)
var (
	kpssCritStats  = []float64{0.347, 0.463, 0.574, 0.739}
	kpssCritPValue = []float64{0.10, 0.05, 0.025, 0.01}
)

type KPSSResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Lags      int     `json:"lags"`
}

// Stationary reports whether the level stationarity null is kept at significance alpha.
func (k *KPSSResult) Stationary(alpha float64) bool {
	return k.PValue >= alpha
}

// KPSS tests the null hypothesis that y is level stationary. A negative lags value uses the
// short Bartlett window trunc(4*(n/100)^(1/4)). The p-value is interpolated from the critical
// value table and clamped to [0.01, 0.10].
func KPSS(y []float64, lags int) (*KPSSResult, error) {
	if err := checkFinite(y); err != nil {
		return nil, err
	}
	n := len(y)
	if n < 3 {
		return nil, fmt.Errorf("%d observations, %w", n, ErrSeriesTooShort)
	}
	if isConstant(y) {
		return nil, ErrConstantSeries
	}
	if lags < 0 {
		lags = int(math.Trunc(4.0 * math.Pow(float64(n)/100.0, 0.25)))
	}
	lags = min(lags, n-1)

	mean := stat.Mean(y, nil)
	resid := make([]float64, n)
	for i, v := range y {
		resid[i] = v - mean
	}

	var eta, partial float64
	for _, e := range resid {
		partial += e
		eta += partial * partial
	}
	eta /= float64(n) * float64(n)

	var s2 float64
	for _, e := range resid {
		s2 += e * e
	}
	for l := 1; l <= lags; l++ {
		w := 1.0 - float64(l)/float64(lags+1)
		var cov float64
		for t := l; t < n; t++ {
			cov += resid[t] * resid[t-l]
		}
		s2 += 2.0 * w * cov
	}
	s2 /= float64(n)
	if s2 <= 0 {
		return nil, fmt.Errorf("long run variance is %f, %w", s2, ErrConstantSeries)
	}

	statistic := eta / s2
	return &KPSSResult{
		Statistic: statistic,
		PValue:    kpssPValue(statistic),
		Lags:      lags,
	}, nil
}

func kpssPValue(statistic float64) float64 {
	if statistic <= kpssCritStats[0] {
		return kpssCritPValue[0]
	}
	last := len(kpssCritStats) - 1
	if statistic >= kpssCritStats[last] {
		return kpssCritPValue[last]
	}
	for i := 1; i <= last; i++ {
		if statistic <= kpssCritStats[i] {
			frac := (statistic - kpssCritStats[i-1]) / (kpssCritStats[i] - kpssCritStats[i-1])
			return kpssCritPValue[i-1] + frac*(kpssCritPValue[i]-kpssCritPValue[i-1])
		}
	}
	return kpssCritPValue[last]
}
