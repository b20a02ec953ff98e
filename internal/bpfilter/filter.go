// Package bpfilter extracts breakpoint-annotated lines from simulator logs.
package bpfilter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"tracekit/internal/logging"
)

// DefaultMarker is the literal prefix of breakpoint log lines.
const DefaultMarker = "[bp]:"

// Options controls how matching lines are written.
type Options struct {
	// Marker is the line prefix to match; DefaultMarker when empty.
	Marker string
	// Compact drops the blank line written after every match.
	Compact bool
}

func (o Options) marker() string {
	if o.Marker == "" {
		return DefaultMarker
	}
	return o.Marker
}

// HasMarker reports whether line starts with marker.
func HasMarker(line, marker string) bool {
	return strings.HasPrefix(line, marker)
}

// Filter copies every line of r that starts with the marker to w, unmodified
// and in order, and returns the number of matches. Each match is followed by
// an extra newline unless opts.Compact is set.
func Filter(r io.Reader, w io.Writer, opts Options) (int, error) {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	marker := opts.marker()

	matches := 0
	for {
		line, err := br.ReadString('\n')
		if line != "" && HasMarker(line, marker) {
			if werr := writeMatch(bw, line, opts.Compact); werr != nil {
				return matches, werr
			}
			matches++
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return matches, fmt.Errorf("read: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return matches, fmt.Errorf("write: %w", err)
	}
	return matches, nil
}

func writeMatch(w *bufio.Writer, line string, compact bool) error {
	if _, err := w.WriteString(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if compact && strings.HasSuffix(line, "\n") {
		return nil
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// FilterFile runs Filter over the file at path.
func FilterFile(path string, w io.Writer, opts Options) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	timer := logging.StartTimer(logging.CategoryFilter, "filter "+path)
	n, err := Filter(f, w, opts)
	timer.Stop()
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	logging.Filter("%s: %d matching lines", path, n)
	return n, nil
}
