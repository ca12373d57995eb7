package timedataset

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrCannotInferFreq = errors.New("cannot infer frequency from time slice")
	ErrDuplicateTime   = errors.New("time slice has duplicate timestamps")
)

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}
	lastTime = t[len(t)-1]
	return lastTime
}

// Sorted returns an ascending copy of the time slice.
func (t TimeSlice) Sorted() TimeSlice {
	s := make(TimeSlice, len(t))
	copy(s, t)
	slices.SortStableFunc(s, func(a, b time.Time) int { return a.Compare(b) })
	return s
}

// InferFrequency returns the frequency that exactly generates every consecutive timestamp. The
// input may be unsorted. At least 3 timestamps are needed and irregular spacing is an error.
func (t TimeSlice) InferFrequency() (Frequency, error) {
	if len(t) < 3 {
		return Frequency{}, fmt.Errorf("need at least 3 timestamps, got %d, %w", len(t), ErrCannotInferFreq)
	}
	s := t.Sorted()
	for i := 1; i < len(s); i++ {
		if s[i].Equal(s[i-1]) {
			return Frequency{}, fmt.Errorf("at %s, %w", s[i], ErrDuplicateTime)
		}
	}

	for _, f := range candidateFrequencies(s[0], s[1]) {
		if s.generatedBy(f) {
			return f, nil
		}
	}
	return Frequency{}, ErrCannotInferFreq
}

func (t TimeSlice) generatedBy(f Frequency) bool {
	for i := 1; i < len(t); i++ {
		if !f.Next(t[i-1]).Equal(t[i]) {
			return false
		}
	}
	return true
}

// candidateFrequencies lists the frequencies that could step from a to b, most specific first.
func candidateFrequencies(a, b time.Time) []Frequency {
	var candidates []Frequency
	delta := b.Sub(a)

	ay, am, ad := a.Date()
	by, bm, _ := b.Date()
	months := (by-ay)*12 + int(bm-am)
	if months > 0 {
		isEnd := ad == monthEnd(ay, am, a.Location()).Day()
		switch {
		case months%12 == 0 && ad == 1:
			candidates = append(candidates, Frequency{Unit: YearStart, N: months / 12})
		case months%12 == 0 && isEnd:
			candidates = append(candidates, Frequency{Unit: YearEnd, N: months / 12})
		}
		switch {
		case months%3 == 0 && ad == 1:
			candidates = append(candidates, Frequency{Unit: QuarterStart, N: months / 3})
		case months%3 == 0 && isEnd:
			candidates = append(candidates, Frequency{Unit: QuarterEnd, N: months / 3})
		}
		switch {
		case ad == 1:
			candidates = append(candidates, Frequency{Unit: MonthStart, N: months})
		case isEnd:
			candidates = append(candidates, Frequency{Unit: MonthEnd, N: months})
		}
	}

	day := 24 * time.Hour
	switch {
	case delta <= 0:
	case delta%(7*day) == 0:
		candidates = append(candidates, Frequency{Unit: Week, N: int(delta / (7 * day)), Anchor: a.Weekday()})
		candidates = append(candidates, Frequency{Unit: Day, N: int(delta / day)})
	case delta%day == 0:
		candidates = append(candidates, Frequency{Unit: Day, N: int(delta / day)})
	case delta%time.Hour == 0:
		candidates = append(candidates, Frequency{Unit: Hour, N: int(delta / time.Hour)})
	case delta%time.Minute == 0:
		candidates = append(candidates, Frequency{Unit: Minute, N: int(delta / time.Minute)})
	case delta%time.Second == 0:
		candidates = append(candidates, Frequency{Unit: Second, N: int(delta / time.Second)})
	}

	// weekday only series step over weekends and possibly holidays
	if delta > 0 && delta%day == 0 && delta <= 4*day {
		candidates = append(candidates, Frequency{Unit: BusinessDay, N: 1}, Frequency{Unit: HolidayBusinessDay, N: 1})
	}
	return candidates
}
