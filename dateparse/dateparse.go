// Package dateparse resolves a column of loosely typed date values into timestamps by trying an
// ordered list of parsing strategies, cheapest first, and committing to the first one that
// parses enough of the column.
package dateparse

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-tsanalysis/timedataset"
)

var (
	ErrDateParse        = errors.New("unable to parse date column")
	ErrEmptyAfterParse  = errors.New("no valid dates remain after parsing")
	ErrInvalidThreshold = errors.New("threshold must be in (0, 1]")
	ErrInvalidDigits    = errors.New("epoch millisecond digit count must be positive")
	ErrLenMismatch      = errors.New("dates and values have different lengths")
)

// DateParseError reports that no strategy recovered enough dates. Parsed is the best count any
// strategy reached.
type DateParseError struct {
	Total  int
	Parsed int
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("%s, parsed at most %d of %d values", ErrDateParse, e.Parsed, e.Total)
}

func (e *DateParseError) Unwrap() error {
	return ErrDateParse
}

// Kind names the strategy that produced a parse.
type Kind string

const (
	Native        Kind = "native"
	Explicit      Kind = "explicit"
	BulkInference Kind = "bulk_inference"
	KnownFormat   Kind = "known_format"
	EpochSeconds  Kind = "epoch_seconds"
	EpochMillis   Kind = "epoch_millis"
	PerValue      Kind = "per_value"
)

// Outcome describes how a column was parsed.
type Outcome struct {
	Strategy     Kind    `json:"strategy"`
	Detail       string  `json:"detail"`
	SuccessRatio float64 `json:"success_ratio"`
}

type Options struct {
	// Threshold is the fraction of values a strategy must parse before the parser commits to it.
	Threshold float64 `json:"threshold"`

	// EpochMillisDigits is the median digit count at or above which numeric values are read as
	// milliseconds instead of seconds since the unix epoch.
	EpochMillisDigits int `json:"epoch_millis_digits"`

	// DateFormat is an optional Go layout tried before any inference.
	DateFormat string `json:"date_format"`

	// SampleSize is the number of leading values used to guess a layout.
	SampleSize int `json:"sample_size"`
}

func NewDefaultOptions() *Options {
	return &Options{
		Threshold:         0.8,
		EpochMillisDigits: 13,
		SampleSize:        20,
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.Threshold <= 0 || o.Threshold > 1 {
		return nil, fmt.Errorf("got %f, %w", o.Threshold, ErrInvalidThreshold)
	}
	if o.EpochMillisDigits <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.EpochMillisDigits, ErrInvalidDigits)
	}
	out := *o
	if out.SampleSize <= 0 {
		out.SampleSize = NewDefaultOptions().SampleSize
	}
	return &out, nil
}

// Result holds one timestamp per input value. Valid marks the values that resolved.
type Result struct {
	Times   []time.Time
	Valid   []bool
	Outcome Outcome
}

// Parser runs its strategies in order.
type Parser struct {
	opt        *Options
	strategies []Strategy
}

func New(opt *Options) (*Parser, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	strategies := []Strategy{nativeStrategy{}}
	if opt.DateFormat != "" {
		strategies = append(strategies, explicitStrategy{layout: opt.DateFormat})
	}
	strategies = append(strategies,
		bulkStrategy{sampleSize: opt.SampleSize},
		knownFormatStrategy{threshold: opt.Threshold},
		epochStrategy{millisDigits: opt.EpochMillisDigits},
		epochStrategy{millis: true, millisDigits: opt.EpochMillisDigits},
		perValueStrategy{},
	)
	return &Parser{opt: opt, strategies: strategies}, nil
}

// Strategies lists the strategy names in the order they are tried.
func (p *Parser) Strategies() []Kind {
	names := make([]Kind, 0, len(p.strategies))
	for _, s := range p.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Parse returns the result of the first strategy that parses enough values. Values that failed
// to parse under the committed strategy are marked invalid.
func (p *Parser) Parse(values []any) (*Result, error) {
	total := len(values)
	if total == 0 {
		return nil, ErrEmptyAfterParse
	}

	best := 0
	for _, s := range p.strategies {
		times, valid, ratio, detail := s.Attempt(values)
		parsed := countValid(valid)
		best = max(best, parsed)

		if !p.accepts(s, parsed, total) {
			slog.Debug("date strategy rejected", "strategy", s.Name(), "parsed", parsed, "total", total)
			continue
		}
		return &Result{
			Times: times,
			Valid: valid,
			Outcome: Outcome{
				Strategy:     s.Name(),
				Detail:       detail,
				SuccessRatio: ratio,
			},
		}, nil
	}
	return nil, &DateParseError{Total: total, Parsed: best}
}

func (p *Parser) accepts(s Strategy, parsed, total int) bool {
	if a, ok := s.(acceptor); ok {
		return a.accept(parsed, total)
	}
	return meetsThreshold(parsed, total, p.opt.Threshold)
}

// meetsThreshold requires at least one parsed value and threshold of the total, truncated.
func meetsThreshold(parsed, total int, threshold float64) bool {
	return parsed >= max(1, int(threshold*float64(total)))
}

func countValid(valid []bool) int {
	var n int
	for _, v := range valid {
		if v {
			n++
		}
	}
	return n
}

// ParseSeries parses dates and pairs them with y, dropping the rows whose date did not resolve.
// The returned series is sorted by time and may repeat timestamps.
func (p *Parser) ParseSeries(dates []any, y []float64) (*timedataset.TimeDataset, *Outcome, error) {
	if len(dates) != len(y) {
		return nil, nil, fmt.Errorf("%d dates and %d values, %w", len(dates), len(y), ErrLenMismatch)
	}
	res, err := p.Parse(dates)
	if err != nil {
		return nil, nil, err
	}

	t := make([]time.Time, 0, len(dates))
	vals := make([]float64, 0, len(dates))
	for i, ok := range res.Valid {
		if !ok {
			continue
		}
		t = append(t, res.Times[i])
		vals = append(vals, y[i])
	}
	if len(t) == 0 {
		return nil, nil, ErrEmptyAfterParse
	}

	td, err := timedataset.NewObservedDataset(t, vals)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to build parsed series, %w", err)
	}
	return td, &res.Outcome, nil
}
