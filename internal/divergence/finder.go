package divergence

import (
	"errors"
	"fmt"
	"strings"

	"tracekit/internal/logging"
)

var (
	// ErrEmptyDump is returned when the decoder dump holds no addresses.
	ErrEmptyDump = errors.New("decoder dump has no address lines")
	// ErrMalformedAddress is returned when the first dump address lacks the 0x prefix.
	ErrMalformedAddress = errors.New("decoder address missing 0x prefix")
	// ErrAnchorNotFound is returned when the first dump address never occurs in the reference.
	ErrAnchorNotFound = errors.New("first decoder address not found in reference trace")
)

// Result is the outcome of a comparison.
// LastMatch is empty when nothing matched; Divergence is set only when Diverged.
type Result struct {
	AnchorIndex int    `json:"anchor_index"`
	LastMatch   string `json:"last_match,omitempty"`
	Divergence  string `json:"divergence,omitempty"`
	Diverged    bool   `json:"diverged"`
	Count       int    `json:"count"`
	// DivergenceIndex is the reference position of Divergence, -1 when none.
	DivergenceIndex int `json:"divergence_index"`
}

// FormatAddress turns a reference address into its decoder dump form.
func FormatAddress(addr string) string {
	return AddrPrefix + strings.ToLower(addr)
}

// Anchor returns the index of the first reference entry matching the first
// decoder address. Hex case is ignored; zero padding is not normalized.
func Anchor(ref Reference, dump *Dump) (int, error) {
	first, ok := dump.First()
	if !ok {
		return -1, ErrEmptyDump
	}
	if !strings.HasPrefix(first, AddrPrefix) {
		return -1, fmt.Errorf("%w: %q", ErrMalformedAddress, first)
	}
	want := strings.ToLower(strings.TrimPrefix(first, AddrPrefix))
	for i, addr := range ref {
		if strings.ToLower(addr) == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrAnchorNotFound, first)
}

// Find walks the reference from the anchor and stops at the first address the
// dump does not contain. Count is the number of consecutive matches before it.
func Find(ref Reference, dump *Dump) (Result, error) {
	anchor, err := Anchor(ref, dump)
	if err != nil {
		return Result{AnchorIndex: -1, DivergenceIndex: -1}, err
	}
	logging.DivergenceDebug("anchored at reference index %d", anchor)

	res := Result{AnchorIndex: anchor, DivergenceIndex: -1}
	for i := anchor; i < len(ref); i++ {
		addr := FormatAddress(ref[i])
		if !dump.Contains(addr) {
			res.Divergence = addr
			res.Diverged = true
			res.DivergenceIndex = i
			logging.Divergence("divergence at %s (reference index %d) after %d matches", addr, i, res.Count)
			return res, nil
		}
		res.LastMatch = addr
		res.Count++
	}

	logging.Divergence("no divergence; %d addresses matched", res.Count)
	return res, nil
}
