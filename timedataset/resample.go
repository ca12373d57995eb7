package timedataset

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Resample aligns the dataset onto a regular grid of freq. A nil freq is inferred from the
// timestamps and falls back to Daily. Week and period end grids label each bucket with its
// closing date, other grids with the opening one. Values sharing a grid bucket are averaged
// and empty interior buckets are linearly interpolated. Buckets before the first or after the
// last observed value stay NaN.
func Resample(td *TimeDataset, freq *Frequency) (*TimeDataset, Frequency, error) {
	if td == nil || len(td.T) == 0 {
		return nil, Frequency{}, ErrNoTrainingData
	}
	sorted, err := NewObservedDataset(td.T, td.Y)
	if err != nil {
		return nil, Frequency{}, err
	}

	var f Frequency
	if freq != nil {
		if freq.N < 1 {
			return nil, Frequency{}, fmt.Errorf("got %d, %w", freq.N, ErrInvalidMultiple)
		}
		f = *freq
	} else {
		f, err = TimeSlice(sorted.T).InferFrequency()
		if err != nil {
			slog.Debug("unable to infer frequency, using daily", "error", err.Error())
			f = Daily
		}
	}

	var (
		grid   []time.Time
		sums   []float64
		counts []int
	)
	// start anchored buckets are [label, next), end anchored ones are (prev, label] by date
	first := TimeSlice(sorted.T).StartTime()
	label := f.Floor(first)
	if f.EndAnchored() {
		label = f.Ceil(first)
	}
	next := f.Next(label)
	grid = append(grid, label)
	sums = append(sums, 0)
	counts = append(counts, 0)

	pastBucket := func(t time.Time) bool {
		if f.EndAnchored() {
			return f.Ceil(t).After(label)
		}
		return !t.Before(next)
	}

	for i, t := range sorted.T {
		for pastBucket(t) {
			label = next
			next = f.Next(label)
			grid = append(grid, label)
			sums = append(sums, 0)
			counts = append(counts, 0)
		}
		if math.IsNaN(sorted.Y[i]) {
			continue
		}
		k := len(grid) - 1
		sums[k] += sorted.Y[i]
		counts[k]++
	}

	y := make([]float64, len(grid))
	for k := range grid {
		if counts[k] == 0 {
			y[k] = math.NaN()
			continue
		}
		y[k] = sums[k] / float64(counts[k])
	}
	Interpolate(y)

	return &TimeDataset{T: grid, Y: y}, f, nil
}

// Interpolate fills NaN values between two known values in place using linear interpolation on
// the index. Leading and trailing NaN values are left untouched.
func Interpolate(y []float64) {
	prev := -1
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (v - y[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				y[j] = y[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
}
