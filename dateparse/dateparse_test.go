package dateparse

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyStrings(n int, start time.Time, layout string) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i).Format(layout)
	}
	return out
}

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *Options
		expected *Options
		err      error
	}{
		"nil": {nil, NewDefaultOptions(), nil},
		"zero threshold": {
			opt: &Options{Threshold: 0, EpochMillisDigits: 13},
			err: ErrInvalidThreshold,
		},
		"threshold above one": {
			opt: &Options{Threshold: 1.5, EpochMillisDigits: 13},
			err: ErrInvalidThreshold,
		},
		"zero digits": {
			opt: &Options{Threshold: 0.8},
			err: ErrInvalidDigits,
		},
		"default sample size": {
			opt:      &Options{Threshold: 0.9, EpochMillisDigits: 12},
			expected: &Options{Threshold: 0.9, EpochMillisDigits: 12, SampleSize: 20},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var orig Options
			if td.opt != nil {
				orig = *td.opt
			}
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
			if td.opt != nil {
				assert.Equal(t, orig, *td.opt)
			}
		})
	}
}

func TestStrategies(t *testing.T) {
	p, err := New(nil)
	require.Nil(t, err)
	assert.Equal(t, []Kind{Native, BulkInference, KnownFormat, EpochSeconds, EpochMillis, PerValue}, p.Strategies())

	p, err = New(&Options{Threshold: 0.8, EpochMillisDigits: 13, DateFormat: "02.01.2006"})
	require.Nil(t, err)
	assert.Equal(t, Explicit, p.Strategies()[1])
}

func TestParse(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	testData := map[string]struct {
		values   []any
		opt      *Options
		strategy Kind
		ratio    float64
		detail   string
		first    time.Time
		valid    int
	}{
		"iso dates": {
			values:   dailyStrings(100, start, "2006-01-02"),
			strategy: BulkInference,
			ratio:    1.0,
			detail:   `parsed 100/100 rows with inferred layout "2006-1-2"`,
			first:    start,
			valid:    100,
		},
		"iso timestamps": {
			values:   dailyStrings(30, start.Add(90*time.Minute), time.RFC3339),
			strategy: BulkInference,
			ratio:    1.0,
			first:    start.Add(90 * time.Minute),
			valid:    30,
		},
		"month first slashes": {
			values:   dailyStrings(40, start, "01/02/2006"),
			strategy: BulkInference,
			ratio:    1.0,
			first:    start,
			valid:    40,
		},
		"day first dashes": {
			values:   dailyStrings(100, start, "02-01-2006"),
			strategy: KnownFormat,
			ratio:    1.0,
			detail:   "format DD-MM-YYYY parsed 100/100 rows",
			first:    start,
			valid:    100,
		},
		"day first slashes": {
			values:   dailyStrings(100, start, "02/01/2006"),
			strategy: KnownFormat,
			ratio:    1.0,
			detail:   "format DD/MM/YYYY parsed 100/100 rows",
			first:    start,
			valid:    100,
		},
		"day first with time": {
			values:   dailyStrings(60, start.Add(time.Hour), "02-01-2006 15:04:05"),
			strategy: KnownFormat,
			ratio:    1.0,
			first:    start.Add(time.Hour),
			valid:    60,
		},
		"epoch seconds": {
			values:   []any{1672531200.0, 1672617600.0, 1672704000.0, 1672790400.0},
			strategy: EpochSeconds,
			ratio:    1.0,
			detail:   "interpreted as epoch s (4/4 numeric)",
			first:    start,
			valid:    4,
		},
		"epoch millis": {
			values:   []any{1672531200000.0, 1672617600000.0, 1672704000000.0},
			strategy: EpochMillis,
			ratio:    1.0,
			detail:   "interpreted as epoch ms (3/3 numeric)",
			first:    start,
			valid:    3,
		},
		"epoch seconds as text": {
			values:   []any{"1672531200", "1672617600", "1672704000", "1672790400", "1672876800"},
			strategy: EpochSeconds,
			ratio:    1.0,
			first:    start,
			valid:    5,
		},
		"native": {
			values:   []any{start, nil, start.AddDate(0, 0, 1)},
			strategy: Native,
			ratio:    1.0,
			detail:   "column already holds timestamps",
			first:    start,
			valid:    2,
		},
		"explicit layout": {
			values:   dailyStrings(10, start, "02.01.2006"),
			opt:      &Options{Threshold: 0.8, EpochMillisDigits: 13, DateFormat: "02.01.2006"},
			strategy: Explicit,
			ratio:    1.0,
			detail:   `parsed 10/10 rows with layout "02.01.2006"`,
			first:    start,
			valid:    10,
		},
		"mostly valid with garbage": {
			values:   append(dailyStrings(9, start, "2006-01-02"), "garbage"),
			strategy: BulkInference,
			ratio:    0.9,
			first:    start,
			valid:    9,
		},
		"lower threshold": {
			values:   append(dailyStrings(3, start, "2006-01-02"), "x", "y"),
			opt:      &Options{Threshold: 0.5, EpochMillisDigits: 13},
			strategy: BulkInference,
			ratio:    0.6,
			first:    start,
			valid:    3,
		},
		"per value fallback": {
			values:   []any{"2023-01-01", "nope", "bad", "unknown", "foo"},
			strategy: PerValue,
			ratio:    0.2,
			first:    start,
			valid:    1,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			p, err := New(td.opt)
			require.Nil(t, err)
			res, err := p.Parse(td.values)
			require.Nil(t, err)

			assert.Equal(t, td.strategy, res.Outcome.Strategy)
			assert.InDelta(t, td.ratio, res.Outcome.SuccessRatio, 1e-12)
			if td.detail != "" {
				assert.Equal(t, td.detail, res.Outcome.Detail)
			}
			require.Len(t, res.Times, len(td.values))
			require.Len(t, res.Valid, len(td.values))
			assert.Equal(t, td.valid, countValid(res.Valid))
			for i, ok := range res.Valid {
				if ok {
					assert.True(t, td.first.Equal(res.Times[i]), "expected %s, got %s", td.first, res.Times[i])
					break
				}
			}
		})
	}
}

func TestParseFailure(t *testing.T) {
	p, err := New(nil)
	require.Nil(t, err)

	_, err = p.Parse([]any{nil, "", "n/a"})
	var perr *DateParseError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, ErrDateParse)
	assert.Equal(t, 3, perr.Total)
	assert.Equal(t, 0, perr.Parsed)

	_, err = p.Parse(nil)
	assert.ErrorIs(t, err, ErrEmptyAfterParse)
}

func TestMeetsThreshold(t *testing.T) {
	testData := map[string]struct {
		parsed    int
		total     int
		threshold float64
		expected  bool
	}{
		"exact":          {80, 100, 0.8, true},
		"below":          {79, 100, 0.8, false},
		"truncated":      {3, 4, 0.8, true},
		"needs one":      {0, 1, 0.8, false},
		"single of one":  {1, 1, 0.8, true},
		"small total":    {1, 2, 0.5, true},
		"full threshold": {9, 10, 1.0, false},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, meetsThreshold(td.parsed, td.total, td.threshold))
		})
	}
}

func TestEpochDigits(t *testing.T) {
	// twelve digit values count as seconds by default but as millis with a lower cutoff
	values := []any{167253120000.0, 167261760000.0, 167270400000.0}

	p, err := New(nil)
	require.Nil(t, err)
	res, err := p.Parse(values)
	require.Nil(t, err)
	assert.Equal(t, EpochSeconds, res.Outcome.Strategy)

	p, err = New(&Options{Threshold: 0.8, EpochMillisDigits: 12})
	require.Nil(t, err)
	res, err = p.Parse(values)
	require.Nil(t, err)
	assert.Equal(t, EpochMillis, res.Outcome.Strategy)
	assert.Equal(t, time.UnixMilli(167253120000).UTC(), res.Times[0])
}

func TestParseSeries(t *testing.T) {
	p, err := New(nil)
	require.Nil(t, err)

	dates := []any{"2023-01-03", "2023-01-01", "bad", "2023-01-02", "2023-01-04"}
	y := []float64{3, 1, math.NaN(), 2, 4}
	td, outcome, err := p.ParseSeries(dates, y)
	require.Nil(t, err)
	assert.Equal(t, BulkInference, outcome.Strategy)
	assert.Equal(t, []float64{1, 2, 3, 4}, td.Y)
	for i := 1; i < td.Len(); i++ {
		assert.True(t, td.T[i].After(td.T[i-1]))
	}

	_, _, err = p.ParseSeries(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyAfterParse)

	_, _, err = p.ParseSeries([]any{"2023-01-01"}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrLenMismatch)
}

func TestDeterministic(t *testing.T) {
	values := dailyStrings(50, time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), "02-01-2006")
	p, err := New(nil)
	require.Nil(t, err)

	first, err := p.Parse(values)
	require.Nil(t, err)
	second, err := p.Parse(values)
	require.Nil(t, err)
	assert.Equal(t, first, second)
}
