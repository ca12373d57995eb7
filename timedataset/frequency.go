package timedataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnknownFrequency = errors.New("unknown frequency alias")
	ErrInvalidMultiple  = errors.New("frequency multiple must be positive")
)

// Unit is the base step of a Frequency.
type Unit int

const (
	Second Unit = iota
	Minute
	Hour
	Day
	BusinessDay
	HolidayBusinessDay // weekdays excluding observed US federal holidays
	Week
	MonthStart
	MonthEnd
	QuarterStart
	QuarterEnd
	YearStart
	YearEnd
)

var unitAlias = map[Unit]string{
	Second:             "S",
	Minute:             "min",
	Hour:               "H",
	Day:                "D",
	BusinessDay:        "B",
	HolidayBusinessDay: "C",
	Week:               "W",
	MonthStart:         "MS",
	MonthEnd:           "M",
	QuarterStart:       "QS",
	QuarterEnd:         "Q",
	YearStart:          "YS",
	YearEnd:            "Y",
}

var aliasUnit = map[string]Unit{
	"S":   Second,
	"T":   Minute,
	"MIN": Minute,
	"H":   Hour,
	"D":   Day,
	"B":   BusinessDay,
	"C":   HolidayBusinessDay,
	"W":   Week,
	"MS":  MonthStart,
	"M":   MonthEnd,
	"ME":  MonthEnd,
	"QS":  QuarterStart,
	"Q":   QuarterEnd,
	"QE":  QuarterEnd,
	"AS":  YearStart,
	"YS":  YearStart,
	"A":   YearEnd,
	"Y":   YearEnd,
	"YE":  YearEnd,
}

var weekdayAlias = map[string]time.Weekday{
	"SUN": time.Sunday,
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
}

// Frequency is a regular step between timestamps, N multiples of a Unit. Weekly frequencies are
// anchored on a weekday.
type Frequency struct {
	Unit   Unit
	N      int
	Anchor time.Weekday
}

// Daily is the frequency used when none can be inferred.
var Daily = Frequency{Unit: Day, N: 1}

// ParseFrequency reads a pandas style alias with an optional multiple, e.g. "D", "2H", "15T",
// "W-MON", "MS" or "QS-JAN". Month anchors on quarter and year aliases are accepted and ignored.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Frequency{}, fmt.Errorf("empty alias, %w", ErrUnknownFrequency)
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n := 1
	if i > 0 {
		var err error
		n, err = strconv.Atoi(s[:i])
		if err != nil {
			return Frequency{}, fmt.Errorf("unable to parse multiple of %q, %w", s, err)
		}
		if n < 1 {
			return Frequency{}, fmt.Errorf("got %d in %q, %w", n, s, ErrInvalidMultiple)
		}
	}

	alias, suffix, _ := strings.Cut(s[i:], "-")
	unit, exists := aliasUnit[alias]
	if !exists {
		return Frequency{}, fmt.Errorf("%q, %w", s, ErrUnknownFrequency)
	}
	f := Frequency{Unit: unit, N: n}
	if unit == Week {
		f.Anchor = time.Sunday
		if suffix != "" {
			wd, exists := weekdayAlias[suffix]
			if !exists {
				return Frequency{}, fmt.Errorf("weekday %q in %q, %w", suffix, s, ErrUnknownFrequency)
			}
			f.Anchor = wd
		}
	}
	return f, nil
}

func (f Frequency) String() string {
	alias, exists := unitAlias[f.Unit]
	if !exists {
		return "unknown"
	}
	if f.Unit == Week {
		alias += "-" + strings.ToUpper(f.Anchor.String()[:3])
	}
	if f.N > 1 {
		return strconv.Itoa(f.N) + alias
	}
	return alias
}

func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f Frequency) multiple() int {
	if f.N < 1 {
		return 1
	}
	return f.N
}

// Floor returns the grid anchor at or before t.
func (f Frequency) Floor(t time.Time) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch f.Unit {
	case Second:
		return t.Truncate(time.Second)
	case Minute:
		return t.Truncate(time.Minute)
	case Hour:
		return t.Truncate(time.Hour)
	case Day:
		return midnight
	case BusinessDay, HolidayBusinessDay:
		for !isBusinessDay(midnight, f.Unit == HolidayBusinessDay) {
			midnight = midnight.AddDate(0, 0, -1)
		}
		return midnight
	case Week:
		back := (int(midnight.Weekday()) - int(f.Anchor) + 7) % 7
		return midnight.AddDate(0, 0, -back)
	case MonthStart:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case MonthEnd:
		end := monthEnd(y, m, loc)
		if end.After(t) {
			return monthEnd(y, m-1, loc)
		}
		return end
	case QuarterStart:
		return time.Date(y, quarterFirstMonth(m), 1, 0, 0, 0, 0, loc)
	case QuarterEnd:
		end := monthEnd(y, quarterFirstMonth(m)+2, loc)
		if end.After(t) {
			return monthEnd(y, quarterFirstMonth(m)-1, loc)
		}
		return end
	case YearStart:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	case YearEnd:
		end := time.Date(y, time.December, 31, 0, 0, 0, 0, loc)
		if end.After(t) {
			return time.Date(y-1, time.December, 31, 0, 0, 0, 0, loc)
		}
		return end
	}
	return t
}

// EndAnchored reports whether grid labels close their bucket, as with week and period end units.
// Values on such a grid belong to the first label on or after their calendar date.
func (f Frequency) EndAnchored() bool {
	switch f.Unit {
	case Week, MonthEnd, QuarterEnd, YearEnd:
		return true
	}
	return false
}

// Ceil returns the period end label on or after the calendar date of t for end anchored units
// and Floor(t) otherwise.
func (f Frequency) Ceil(t time.Time) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch f.Unit {
	case Week:
		ahead := (int(f.Anchor) - int(midnight.Weekday()) + 7) % 7
		return midnight.AddDate(0, 0, ahead)
	case MonthEnd:
		return monthEnd(y, m, loc)
	case QuarterEnd:
		return monthEnd(y, quarterFirstMonth(m)+2, loc)
	case YearEnd:
		return time.Date(y, time.December, 31, 0, 0, 0, 0, loc)
	}
	return f.Floor(t)
}

// Next returns the timestamp one step after t. For calendar units t is expected to already sit
// on the grid, e.g. a month end for MonthEnd.
func (f Frequency) Next(t time.Time) time.Time {
	n := f.multiple()
	switch f.Unit {
	case Second:
		return t.Add(time.Duration(n) * time.Second)
	case Minute:
		return t.Add(time.Duration(n) * time.Minute)
	case Hour:
		return t.Add(time.Duration(n) * time.Hour)
	case Day:
		return t.AddDate(0, 0, n)
	case BusinessDay, HolidayBusinessDay:
		for i := 0; i < n; i++ {
			t = t.AddDate(0, 0, 1)
			for !isBusinessDay(t, f.Unit == HolidayBusinessDay) {
				t = t.AddDate(0, 0, 1)
			}
		}
		return t
	case Week:
		return t.AddDate(0, 0, 7*n)
	case MonthStart:
		return t.AddDate(0, n, 0)
	case QuarterStart:
		return t.AddDate(0, 3*n, 0)
	case YearStart:
		return t.AddDate(n, 0, 0)
	case MonthEnd:
		return shiftMonthEnd(t, n)
	case QuarterEnd:
		return shiftMonthEnd(t, 3*n)
	case YearEnd:
		return shiftMonthEnd(t, 12*n)
	}
	return t
}

// Add steps k times from t.
func (f Frequency) Add(t time.Time, k int) time.Time {
	for i := 0; i < k; i++ {
		t = f.Next(t)
	}
	return t
}

func monthEnd(y int, m time.Month, loc *time.Location) time.Time {
	// day 0 of the following month normalizes to the last day of m
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc)
}

func shiftMonthEnd(t time.Time, months int) time.Time {
	y, m, _ := t.Date()
	end := monthEnd(y, m+time.Month(months), t.Location())
	h, mi, s := t.Clock()
	return end.Add(time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute + time.Duration(s)*time.Second)
}

func quarterFirstMonth(m time.Month) time.Month {
	return time.Month((int(m)-1)/3*3 + 1)
}
