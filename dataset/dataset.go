// Package dataset holds tabular data as named columns of loosely typed values and provides the
// handle used by analyses to look columns up.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrColumnNotFound    = errors.New("column not found")
	ErrDuplicateColumn   = errors.New("duplicate column name")
	ErrColumnLenMismatch = errors.New("column has a different number of rows")
	ErrNoColumns         = errors.New("dataset has no columns")
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumber   Kind = "number"
	KindDatetime Kind = "datetime"
	KindBool     Kind = "bool"
	KindString   Kind = "string"
	KindEmpty    Kind = "empty"
)

// Column is a named sequence of values. A value is nil, float64, string, bool or time.Time.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// NewColumn builds a column and infers its kind from the non-missing values.
func NewColumn(name string, values []any) *Column {
	return &Column{
		Name:   name,
		Kind:   inferKind(values),
		Values: values,
	}
}

func inferKind(values []any) Kind {
	kind := KindEmpty
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		var k Kind
		switch v.(type) {
		case float64, float32, int, int32, int64:
			k = KindNumber
		case time.Time:
			k = KindDatetime
		case bool:
			k = KindBool
		default:
			k = KindString
		}
		if kind == KindEmpty {
			kind = k
			continue
		}
		if kind != k {
			return KindString
		}
	}
	return kind
}

// Floats coerces every value to a float, NaN where the value is missing or not numeric.
func (c *Column) Floats() []float64 {
	out := make([]float64, len(c.Values))
	for i, v := range c.Values {
		f, ok := ToFloat(v)
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

// Dataset is an immutable set of equal length columns. Analyses read from it and never modify
// its values.
type Dataset struct {
	ID     string
	Name   string
	cols   []*Column
	index  map[string]int
	nRows  int
	loaded time.Time
}

func New(name string, columns ...*Column) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	ds := &Dataset{
		ID:     uuid.NewString(),
		Name:   name,
		index:  make(map[string]int, len(columns)),
		nRows:  len(columns[0].Values),
		loaded: time.Now(),
	}
	for i, c := range columns {
		if _, exists := ds.index[c.Name]; exists {
			return nil, fmt.Errorf("%q, %w", c.Name, ErrDuplicateColumn)
		}
		if len(c.Values) != ds.nRows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d, %w", c.Name, len(c.Values), ds.nRows, ErrColumnLenMismatch)
		}
		ds.index[c.Name] = i
		ds.cols = append(ds.cols, c)
	}
	return ds, nil
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, error) {
	i, exists := d.index[name]
	if !exists {
		return nil, fmt.Errorf("%q, %w", name, ErrColumnNotFound)
	}
	return d.cols[i], nil
}

func (d *Dataset) Columns() []string {
	names := make([]string, 0, len(d.cols))
	for _, c := range d.cols {
		names = append(names, c.Name)
	}
	return names
}

func (d *Dataset) NumRows() int {
	return d.nRows
}

// LoadedAt is when the dataset handle was created.
func (d *Dataset) LoadedAt() time.Time {
	return d.loaded
}
