package timedataset

import (
	"sync"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

type civilDate struct {
	y int
	m time.Month
	d int
}

// observedHolidays caches the observed US federal holiday dates per calendar year.
var observedHolidays sync.Map // int -> map[civilDate]string

// HolidayCalendar is the holiday list used by the HolidayBusinessDay frequency.
var HolidayCalendar = us.Holidays

func holidaysInYear(year int) map[civilDate]string {
	if cached, exists := observedHolidays.Load(year); exists {
		return cached.(map[civilDate]string)
	}

	dates := make(map[civilDate]string)
	// a holiday of the next year can be observed on the last day of this year
	for _, y := range []int{year, year + 1} {
		for _, hol := range HolidayCalendar {
			addObserved(dates, hol, y, year)
		}
	}
	observedHolidays.Store(year, dates)
	return dates
}

func addObserved(dates map[civilDate]string, hol *cal.Holiday, calcYear, keepYear int) {
	_, observed := hol.Calc(calcYear)
	if observed.IsZero() {
		return
	}
	y, m, d := observed.Date()
	if y != keepYear {
		return
	}
	dates[civilDate{y, m, d}] = hol.Name
}

// Holiday returns the name of the observed US federal holiday falling on the date of t.
func Holiday(t time.Time) (string, bool) {
	y, m, d := t.Date()
	name, exists := holidaysInYear(y)[civilDate{y, m, d}]
	return name, exists
}

func isBusinessDay(t time.Time, excludeHolidays bool) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if !excludeHolidays {
		return true
	}
	_, holiday := Holiday(t)
	return !holiday
}
