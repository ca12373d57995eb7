package dateparse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	anydate "github.com/araddon/dateparse"
	"github.com/aouyang1/go-tsanalysis/dataset"
	"github.com/montanaflynn/stats"
)

// Strategy is one way of turning raw values into timestamps. Attempt returns a timestamp and a
// validity flag per value along with the success ratio and a human readable detail.
type Strategy interface {
	Name() Kind
	Attempt(values []any) ([]time.Time, []bool, float64, string)
}

// acceptor is implemented by strategies that commit under a rule other than the threshold.
type acceptor interface {
	accept(parsed, total int) bool
}

func ratio(parsed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(parsed) / float64(total)
}

// text returns the trimmed string form of a non-missing string value.
func text(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || dataset.IsMissing(s) {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// parseEach applies fn to every string value. Values that already hold a time.Time are kept.
func parseEach(values []any, fn func(string) (time.Time, bool)) ([]time.Time, []bool, int) {
	times := make([]time.Time, len(values))
	valid := make([]bool, len(values))
	var n int
	for i, v := range values {
		if t, ok := v.(time.Time); ok {
			times[i], valid[i] = t, true
			n++
			continue
		}
		s, ok := text(v)
		if !ok {
			continue
		}
		if t, ok := fn(s); ok {
			times[i], valid[i] = t.UTC(), true
			n++
		}
	}
	return times, valid, n
}

func layoutParser(layout string) func(string) (time.Time, bool) {
	return func(s string) (time.Time, bool) {
		t, err := time.Parse(layout, s)
		return t, err == nil
	}
}

// nativeStrategy commits when every non-missing value is already a timestamp.
type nativeStrategy struct{}

func (nativeStrategy) Name() Kind { return Native }

func (nativeStrategy) Attempt(values []any) ([]time.Time, []bool, float64, string) {
	times := make([]time.Time, len(values))
	valid := make([]bool, len(values))
	for i, v := range values {
		if dataset.IsMissing(v) {
			continue
		}
		t, ok := v.(time.Time)
		if !ok {
			return times, make([]bool, len(values)), 0, "column holds non timestamp values"
		}
		times[i], valid[i] = t, true
	}
	return times, valid, 1.0, "column already holds timestamps"
}

func (nativeStrategy) accept(parsed, _ int) bool {
	return parsed >= 1
}

type explicitStrategy struct {
	layout string
}

func (explicitStrategy) Name() Kind { return Explicit }

func (s explicitStrategy) Attempt(values []any) ([]time.Time, []bool, float64, string) {
	times, valid, n := parseEach(values, layoutParser(s.layout))
	return times, valid, ratio(n, len(values)),
		fmt.Sprintf("parsed %d/%d rows with layout %q", n, len(values), s.layout)
}

// bulkLayouts are tried in order when guessing the layout of a single value. Numeric dates are
// read month first.
var bulkLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1-2-2006 15:04:05",
	"1-2-2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01",
}

// bulkStrategy guesses one layout from the leading values and parses the whole column with it.
type bulkStrategy struct {
	sampleSize int
}

func (bulkStrategy) Name() Kind { return BulkInference }

func (s bulkStrategy) Attempt(values []any) ([]time.Time, []bool, float64, string) {
	layout := s.guessLayout(values)
	if layout == "" {
		return make([]time.Time, len(values)), make([]bool, len(values)), 0, "no layout matched the sampled values"
	}
	times, valid, n := parseEach(values, layoutParser(layout))
	return times, valid, ratio(n, len(values)),
		fmt.Sprintf("parsed %d/%d rows with inferred layout %q", n, len(values), layout)
}

// guessLayout returns the layout matching most sampled values, the first seen on ties.
func (s bulkStrategy) guessLayout(values []any) string {
	votes := make(map[string]int)
	var order []string
	sampled := 0
	for _, v := range values {
		if sampled >= s.sampleSize {
			break
		}
		str, ok := text(v)
		if !ok {
			continue
		}
		sampled++
		layout := layoutOf(str)
		if layout == "" {
			continue
		}
		if _, seen := votes[layout]; !seen {
			order = append(order, layout)
		}
		votes[layout]++
	}

	var best string
	for _, l := range order {
		if best == "" || votes[l] > votes[best] {
			best = l
		}
	}
	return best
}

func layoutOf(s string) string {
	for _, l := range bulkLayouts {
		if _, err := time.Parse(l, s); err == nil {
			return l
		}
	}
	l, err := anydate.ParseFormat(s)
	if err != nil {
		return ""
	}
	if _, err := time.Parse(l, s); err != nil {
		return ""
	}
	return l
}

type knownFormat struct {
	name   string
	layout string
}

var knownFormats = []knownFormat{
	{"YYYY-MM-DD", "2006-1-2"},
	{"DD-MM-YYYY", "2-1-2006"},
	{"MM/DD/YYYY", "1/2/2006"},
	{"DD/MM/YYYY", "2/1/2006"},
	{"YYYY/MM/DD", "2006/1/2"},
	{"YYYY-MM-DD HH:MM:SS", "2006-1-2 15:04:05"},
	{"DD-MM-YYYY HH:MM:SS", "2-1-2006 15:04:05"},
	{"MM/DD/YYYY HH:MM:SS", "1/2/2006 15:04:05"},
	{"DD/MM/YYYY HH:MM:SS", "2/1/2006 15:04:05"},
}

// knownFormatStrategy sweeps a fixed list of formats and keeps the first one reaching the
// threshold, or the best one when none does.
type knownFormatStrategy struct {
	threshold float64
}

func (knownFormatStrategy) Name() Kind { return KnownFormat }

func (s knownFormatStrategy) Attempt(values []any) ([]time.Time, []bool, float64, string) {
	var (
		bestTimes  []time.Time
		bestValid  []bool
		bestN      = -1
		bestFormat knownFormat
	)
	for _, f := range knownFormats {
		times, valid, n := parseEach(values, layoutParser(f.layout))
		if n > bestN {
			bestTimes, bestValid, bestN, bestFormat = times, valid, n, f
		}
		if meetsThreshold(n, len(values), s.threshold) {
			break
		}
	}
	return bestTimes, bestValid, ratio(bestN, len(values)),
		fmt.Sprintf("format %s parsed %d/%d rows", bestFormat.name, bestN, len(values))
}

// epochStrategy reads numeric values as seconds or milliseconds since the unix epoch. The unit
// is chosen by the median number of integer digits, so only one of the two instances applies to
// a given column.
type epochStrategy struct {
	millis       bool
	millisDigits int
}

func (s epochStrategy) Name() Kind {
	if s.millis {
		return EpochMillis
	}
	return EpochSeconds
}

func (s epochStrategy) Attempt(values []any) ([]time.Time, []bool, float64, string) {
	times := make([]time.Time, len(values))
	valid := make([]bool, len(values))

	nums := make([]float64, len(values))
	var digits stats.Float64Data
	for i, v := range values {
		f, ok := dataset.ToFloat(v)
		if !ok {
			continue
		}
		nums[i], valid[i] = f, true
		digits = append(digits, float64(len(strconv.FormatInt(int64(math.Abs(f)), 10))))
	}
	if len(digits) == 0 {
		return times, valid, 0, "no numeric values"
	}

	median, err := stats.Median(digits)
	if err != nil {
		return times, make([]bool, len(values)), 0, err.Error()
	}
	if (int(median) >= s.millisDigits) != s.millis {
		return times, make([]bool, len(values)), 0,
			fmt.Sprintf("median of %d digits does not match unit", int(median))
	}

	unit := "s"
	for i, ok := range valid {
		if !ok {
			continue
		}
		if s.millis {
			times[i] = time.UnixMilli(int64(nums[i])).UTC()
			continue
		}
		sec, frac := math.Modf(nums[i])
		times[i] = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	if s.millis {
		unit = "ms"
	}
	n := len(digits)
	return times, valid, ratio(n, len(values)),
		fmt.Sprintf("interpreted as epoch %s (%d/%d numeric)", unit, n, len(values))
}

// perValueStrategy parses every value on its own with a permissive parser and commits when any
// value resolves.
type perValueStrategy struct{}

func (perValueStrategy) Name() Kind { return PerValue }

func (perValueStrategy) Attempt(values []any) ([]time.Time, []bool, float64, string) {
	strs := make([]any, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case float64:
			if !math.IsNaN(val) && !math.IsInf(val, 0) {
				strs[i] = strconv.FormatFloat(val, 'f', -1, 64)
			}
		default:
			strs[i] = v
		}
	}
	times, valid, n := parseEach(strs, func(s string) (time.Time, bool) {
		t, err := anydate.ParseIn(s, time.UTC)
		return t, err == nil
	})
	return times, valid, ratio(n, len(values)),
		fmt.Sprintf("parsed %d/%d rows individually", n, len(values))
}

func (perValueStrategy) accept(parsed, _ int) bool {
	return parsed >= 1
}
