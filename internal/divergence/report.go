package divergence

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"tracekit/internal/diff"
)

// Highlighter decorates values in the text report.
type Highlighter interface {
	Match(s string) string
	Divergence(s string) string
}

type plain struct{}

func (plain) Match(s string) string      { return s }
func (plain) Divergence(s string) string { return s }

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// WriteReport prints the human-readable summary of res. A nil highlighter prints plain text.
func WriteReport(w io.Writer, res Result, hl Highlighter) error {
	if hl == nil {
		hl = plain{}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "First line index: %d\n", res.AnchorIndex)
	if res.Diverged {
		fmt.Fprintf(&sb, "Most recent divergence found at address: %s\n", hl.Divergence(res.Divergence))
		fmt.Fprintf(&sb, "Most recent match: %s\n", hl.Match(orNone(res.LastMatch)))
		fmt.Fprintf(&sb, "First divergence: %s\n", hl.Divergence(res.Divergence))
		fmt.Fprintf(&sb, "At line count: %d\n", res.Count)
	} else {
		sb.WriteString("No divergence found. All addresses match.\n")
		fmt.Fprintf(&sb, "Everything matches up to the last reference address: %s\n", hl.Match(orNone(res.LastMatch)))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteJSON prints res as indented JSON.
func WriteJSON(w io.Writer, res Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// Context diffs the n reference addresses on each side of the divergence
// against the decoder addresses around the last match, in dump order.
// It returns nil when there is no divergence or n <= 0.
func Context(ref Reference, dump *Dump, res Result, n int) *diff.Result {
	if !res.Diverged || n <= 0 || res.DivergenceIndex < 0 {
		return nil
	}

	lo := max(res.AnchorIndex, res.DivergenceIndex-n)
	hi := min(len(ref), res.DivergenceIndex+n)
	refWin := make([]string, 0, hi-lo)
	for _, addr := range ref[lo:hi] {
		refWin = append(refWin, FormatAddress(addr))
	}

	keys := dump.Keys()
	pos := -1
	for i, k := range keys {
		if strings.EqualFold(k, res.LastMatch) {
			pos = i
			break
		}
	}
	// Align the last match in both windows: it sits just before the divergence.
	dlo := max(0, pos+1-n)
	dhi := min(len(keys), pos+1+n)
	dumpWin := make([]string, 0, max(0, dhi-dlo))
	for _, k := range keys[dlo:dhi] {
		dumpWin = append(dumpWin, strings.ToLower(k))
	}

	return diff.Lines("reference", "decoder", refWin, dumpWin, n)
}
