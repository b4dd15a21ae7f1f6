// Package pipeline turns an uploaded CSV into a forecast: load the observations, fit the
// forecaster, project the future rows and export them back to CSV.
package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-forecaster-studio/timedataset"
	"github.com/araddon/dateparse"
)

const (
	DefaultTimeColumn  = "ds"
	DefaultValueColumn = "y"
)

var (
	ErrEmptyInput      = errors.New("empty input")
	ErrMissingColumn   = errors.New("missing required column")
	ErrNoValidTimes    = errors.New("no rows with a valid timestamp")
	ErrDuplicateHeader = errors.New("duplicate column in header")
)

// LoadOptions names the header columns holding the timestamps and values
type LoadOptions struct {
	TimeColumn  string
	ValueColumn string
}

func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		TimeColumn:  DefaultTimeColumn,
		ValueColumn: DefaultValueColumn,
	}
}

// Observation is a single parsed row. A timestamp that cannot be parsed leaves TimeMissing set
// rather than failing the load. Empty or non numeric values are NaN.
type Observation struct {
	Timestamp   time.Time `json:"ds"`
	Value       float64   `json:"y"`
	TimeMissing bool      `json:"time_missing"`
}

// Table is the loaded upload in file order. BadValues counts the non empty value cells that are
// not numbers.
type Table struct {
	TimeColumn  string        `json:"time_column"`
	ValueColumn string        `json:"value_column"`
	Rows        []Observation `json:"rows"`
	BadValues   int           `json:"bad_values"`
}

// Load reads a CSV with a header row. Only the time and value columns are kept, any other column
// is ignored.
func Load(r io.Reader, opt LoadOptions) (*Table, error) {
	if opt.TimeColumn == "" {
		opt.TimeColumn = DefaultTimeColumn
	}
	if opt.ValueColumn == "" {
		opt.ValueColumn = DefaultValueColumn
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read csv header, %w", err)
	}

	timeIdx, valueIdx := -1, -1
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		switch col {
		case opt.TimeColumn:
			if timeIdx >= 0 {
				return nil, fmt.Errorf("%q, %w", col, ErrDuplicateHeader)
			}
			timeIdx = i
		case opt.ValueColumn:
			if valueIdx >= 0 {
				return nil, fmt.Errorf("%q, %w", col, ErrDuplicateHeader)
			}
			valueIdx = i
		}
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("%q, %w", opt.TimeColumn, ErrMissingColumn)
	}
	if valueIdx < 0 {
		return nil, fmt.Errorf("%q, %w", opt.ValueColumn, ErrMissingColumn)
	}

	tbl := &Table{
		TimeColumn:  opt.TimeColumn,
		ValueColumn: opt.ValueColumn,
	}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read csv row %d, %w", len(tbl.Rows)+2, err)
		}

		var obs Observation
		obs.Timestamp, obs.TimeMissing = parseTime(field(record, timeIdx))

		val, bad := parseValue(field(record, valueIdx))
		obs.Value = val
		if bad {
			tbl.BadValues++
		}
		tbl.Rows = append(tbl.Rows, obs)
	}
	return tbl, nil
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, true
	}
	return t, false
}

func parseValue(s string) (float64, bool) {
	if s == "" {
		return math.NaN(), false
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), true
	}
	return val, false
}

// Cutoff returns the latest valid timestamp and false when no row has one
func (t *Table) Cutoff() (time.Time, bool) {
	var cutoff time.Time
	var found bool
	for _, obs := range t.Rows {
		if obs.TimeMissing {
			continue
		}
		if !found || obs.Timestamp.After(cutoff) {
			cutoff = obs.Timestamp
			found = true
		}
	}
	return cutoff, found
}

// Series returns the rows with a valid timestamp sorted by time. Repeated timestamps are rejected
// with timedataset.ErrDuplicateTime.
func (t *Table) Series() (*timedataset.TimeDataset, error) {
	ts := make([]time.Time, 0, len(t.Rows))
	ys := make([]float64, 0, len(t.Rows))
	for _, obs := range t.Rows {
		if obs.TimeMissing {
			continue
		}
		ts = append(ts, obs.Timestamp)
		ys = append(ys, obs.Value)
	}
	if len(ts) == 0 {
		return nil, ErrNoValidTimes
	}
	return timedataset.NewSortedDataset(ts, ys)
}

// Head returns up to the first n rows in file order
func (t *Table) Head(n int) []Observation {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return t.Rows[:n]
}
