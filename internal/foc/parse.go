// Package foc parses the FOC sine-function trace and renders its execution
// paths: a polar view of each input angle and an angle/time scatter.
package foc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tracekit/internal/logging"
)

// WarmupPrefix marks trace lines recorded before measurement started.
const WarmupPrefix = "warmup"

// ErrMalformedRow is wrapped by every RowError.
var ErrMalformedRow = errors.New("malformed trace row")

// Record is one measured call: input angle in radians, elapsed time in
// cycles, and the branch path it took.
type Record struct {
	Angle float64
	Time  int64
	Path  string
}

// Dataset is the parsed trace in file order.
type Dataset struct {
	Records []Record
	// Paths lists distinct path identifiers in first-appearance order.
	Paths []string
}

// Groups returns the records of each path, aligned with Paths.
func (d *Dataset) Groups() [][]Record {
	idx := make(map[string]int, len(d.Paths))
	for i, p := range d.Paths {
		idx[p] = i
	}
	groups := make([][]Record, len(d.Paths))
	for _, r := range d.Records {
		i := idx[r.Path]
		groups[i] = append(groups[i], r)
	}
	return groups
}

// RowError describes one line that could not be parsed.
type RowError struct {
	Line int // 1-based
	Text string
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *RowError) Unwrap() []error {
	return []error{ErrMalformedRow, e.Err}
}

// Parse reads lines of the form
//
//	vq: 0.785,time: 412,PATH:0x80000000-0101
//
// Blank lines and warmup lines are skipped. Every malformed row is reported;
// if any row fails no dataset is returned.
func Parse(r io.Reader) (*Dataset, error) {
	ds := &Dataset{}
	seen := make(map[string]bool)
	var errs []error

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(raw, WarmupPrefix) {
			continue
		}
		rec, err := parseRecord(line)
		if err != nil {
			errs = append(errs, &RowError{Line: lineNo, Text: line, Err: err})
			continue
		}
		if !seen[rec.Path] {
			seen[rec.Path] = true
			ds.Paths = append(ds.Paths, rec.Path)
		}
		ds.Records = append(ds.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read foc trace: %w", err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ds, nil
}

// ParseFile parses the trace at path.
func ParseFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Plot("parsed %d records, %d paths from %s", len(ds.Records), len(ds.Paths), path)
	return ds, nil
}

func parseRecord(line string) (Record, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 3 {
		return Record{}, fmt.Errorf("want 3 fields, got %d", len(parts))
	}

	vq, err := fieldValue(parts[0], ": ")
	if err != nil {
		return Record{}, err
	}
	angle, err := strconv.ParseFloat(strings.TrimSpace(vq), 64)
	if err != nil {
		return Record{}, fmt.Errorf("angle: %w", err)
	}

	ts, err := fieldValue(parts[1], ": ")
	if err != nil {
		return Record{}, err
	}
	elapsed, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("time: %w", err)
	}

	id, err := fieldValue(parts[2], ":")
	if err != nil {
		return Record{}, err
	}
	path, err := fieldValue(id, "-")
	if err != nil {
		return Record{}, err
	}

	return Record{Angle: angle, Time: elapsed, Path: path}, nil
}

// fieldValue returns the second sep-separated segment of field.
func fieldValue(field, sep string) (string, error) {
	segs := strings.Split(field, sep)
	if len(segs) < 2 {
		return "", fmt.Errorf("field %q: missing %q", field, sep)
	}
	return segs[1], nil
}
