package timedataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a strictly increasing time
// slice and value slice.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if err := checkLengths(t, y); err != nil {
		return nil, err
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if i > 0 && !currT.After(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		lastT = currT
	}

	td := &TimeDataset{T: t, Y: y}
	return td.Copy(), nil
}

// NewObservedDataset accepts unordered observations that may repeat timestamps and returns them
// sorted by time. The relative order of equal timestamps is kept.
func NewObservedDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if err := checkLengths(t, y); err != nil {
		return nil, err
	}

	idx := make([]int, len(t))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return t[idx[i]].Before(t[idx[j]])
	})

	td := &TimeDataset{
		T: make([]time.Time, len(t)),
		Y: make([]float64, len(t)),
	}
	for i, j := range idx {
		td.T[i] = t[j]
		td.Y[i] = y[j]
	}
	return td, nil
}

func checkLengths(t []time.Time, y []float64) error {
	if len(y) == 0 {
		return ErrNoTrainingData
	}
	if len(t) != len(y) {
		return fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}
	return nil
}

func (td *TimeDataset) Copy() *TimeDataset {
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.T))

	copy(tSeries, td.T)
	copy(ySeries, td.Y)

	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// DropNan returns a copy without the points whose value is NaN.
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}
	out := &TimeDataset{
		T: make([]time.Time, 0, len(td.T)),
		Y: make([]float64, 0, len(td.Y)),
	}
	for i, v := range td.Y {
		if math.IsNaN(v) {
			continue
		}
		out.T = append(out.T, td.T[i])
		out.Y = append(out.Y, v)
	}
	return out
}

func (td *TimeDataset) Len() int {
	return len(td.T)
}
