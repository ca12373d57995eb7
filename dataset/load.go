package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoHeader          = errors.New("file has no header row")
	ErrEmptySheet        = errors.New("workbook has no sheets")
)

// Load reads a .csv, .xlsx or .xlsm file into a dataset named after the file.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open dataset file, %w", err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path))
}

// Read dispatches on the extension of name.
func Read(r io.Reader, name string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r, name)
	case ".xlsx", ".xlsm":
		return ReadExcel(r, name)
	}
	return nil, fmt.Errorf("%q, %w", name, ErrUnsupportedFormat)
}

// ReadCSV reads a header row followed by records. Columns whose non-missing cells all parse as
// numbers become numeric, true/false columns become booleans and everything else stays text.
func ReadCSV(r io.Reader, name string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read csv, %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	header := rows[0]
	raw := make([][]any, len(header))
	for _, row := range rows[1:] {
		for j := range header {
			var cell any
			if j < len(row) {
				cell = row[j]
			}
			raw[j] = append(raw[j], cell)
		}
	}

	cols := make([]*Column, len(header))
	for j, h := range header {
		cols[j] = NewColumn(strings.TrimSpace(h), typeTextValues(raw[j]))
	}
	return New(name, cols...)
}

// typeTextValues converts text cells to numbers or booleans when the whole column agrees.
func typeTextValues(values []any) []any {
	out := make([]any, len(values))
	allNumeric, allBool, seen := true, true, false
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		seen = true
		s, _ := v.(string)
		if _, ok := ParseNumber(s); !ok {
			allNumeric = false
		}
		if _, ok := parseBool(s); !ok {
			allBool = false
		}
	}

	for i, v := range values {
		switch {
		case IsMissing(v):
			out[i] = nil
		case seen && allNumeric:
			out[i], _ = ParseNumber(v.(string))
		case seen && allBool:
			out[i], _ = parseBool(v.(string))
		default:
			out[i] = strings.TrimSpace(v.(string))
		}
	}
	return out
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// ReadExcel reads the first sheet of a workbook. Cells formatted as dates are converted to
// time.Time so date columns keep their native type.
func ReadExcel(r io.Reader, name string) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook, %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q, %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	header := rows[0]
	cols := make([]*Column, len(header))
	for j, h := range header {
		raw := make([]any, 0, len(rows)-1)
		for _, row := range rows[1:] {
			var cell any
			if j < len(row) {
				cell = row[j]
			}
			raw = append(raw, cell)
		}

		dateCol, err := isDateColumn(f, sheet, j, rows)
		if err != nil {
			return nil, err
		}
		var values []any
		if dateCol {
			values = excelDates(raw, f)
		} else {
			values = typeTextValues(raw)
		}
		cols[j] = NewColumn(strings.TrimSpace(h), values)
	}
	return New(name, cols...)
}

// isDateColumn checks the number format of the first non-empty data cell of column j.
func isDateColumn(f *excelize.File, sheet string, j int, rows [][]string) (bool, error) {
	for i := 1; i < len(rows); i++ {
		if j >= len(rows[i]) || strings.TrimSpace(rows[i][j]) == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(j+1, i+1)
		if err != nil {
			return false, fmt.Errorf("unable to resolve cell name, %w", err)
		}
		styleID, err := f.GetCellStyle(sheet, cell)
		if err != nil {
			return false, fmt.Errorf("unable to get style of %s, %w", cell, err)
		}
		style, err := f.GetStyle(styleID)
		if err != nil {
			return false, fmt.Errorf("unable to get style %d, %w", styleID, err)
		}
		return isDateFormat(style), nil
	}
	return false, nil
}

func isDateFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 22:
		return true
	case style.NumFmt >= 45 && style.NumFmt <= 47:
		return true
	}
	if style.CustomNumFmt != nil {
		fmtStr := strings.ToLower(*style.CustomNumFmt)
		return strings.Contains(fmtStr, "yy") || (strings.Contains(fmtStr, "d") && strings.Contains(fmtStr, "m"))
	}
	return false
}

func excelDates(raw []any, f *excelize.File) []any {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	out := make([]any, len(raw))
	for i, v := range raw {
		if IsMissing(v) {
			continue
		}
		serial, ok := ToFloat(v)
		if !ok {
			// text typed into a date formatted cell is left for the date parser
			out[i] = strings.TrimSpace(v.(string))
			continue
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			out[i] = v
			continue
		}
		out[i] = t
	}
	return out
}
