// Package divergence aligns a reference instruction trace with a decoder dump
// and reports the first reference address the decoder never produced.
package divergence

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"tracekit/internal/logging"

	"golang.org/x/sync/errgroup"
)

// DefaultSkipToken marks decoder dump lines that carry no address.
const DefaultSkipToken = "timestamp"

// AddrPrefix is the prefix decoder dump addresses carry.
const AddrPrefix = "0x"

// Reference is the ordered list of addresses from the reference trace,
// lowercase hex without prefix, in execution order.
type Reference []string

// ReadReference reads one address per line: the first comma-separated field
// of the trimmed line. Blank lines yield empty entries.
func ReadReference(r io.Reader) (Reference, error) {
	var ref Reference
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		addr, _, _ := strings.Cut(line, ",")
		ref = append(ref, addr)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}
	return ref, nil
}

// LoadReference reads the reference trace at path.
func LoadReference(path string) (Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ref, err := ReadReference(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.DivergenceDebug("loaded %d reference addresses from %s", len(ref), path)
	return ref, nil
}

// Dump is the decoder output: address -> instruction text, remembering the
// order in which addresses first appeared. A repeated address replaces the
// instruction but keeps its original position.
type Dump struct {
	keys  []string
	insns map[string]string
	// lower maps lowercased address -> address as written
	lower map[string]string
}

// NewDump returns an empty dump.
func NewDump() *Dump {
	return &Dump{
		insns: make(map[string]string),
		lower: make(map[string]string),
	}
}

// Set records insn for addr.
func (d *Dump) Set(addr, insn string) {
	if _, ok := d.insns[addr]; !ok {
		d.keys = append(d.keys, addr)
		if _, seen := d.lower[strings.ToLower(addr)]; !seen {
			d.lower[strings.ToLower(addr)] = addr
		}
	}
	d.insns[addr] = insn
}

// Len returns the number of distinct addresses.
func (d *Dump) Len() int {
	return len(d.keys)
}

// Keys returns addresses in first-occurrence order.
func (d *Dump) Keys() []string {
	return append([]string(nil), d.keys...)
}

// First returns the first address recorded.
func (d *Dump) First() (string, bool) {
	if len(d.keys) == 0 {
		return "", false
	}
	return d.keys[0], true
}

// Instruction returns the instruction text recorded for addr exactly as written.
func (d *Dump) Instruction(addr string) (string, bool) {
	insn, ok := d.insns[addr]
	return insn, ok
}

// Contains reports whether addr appears in the dump, ignoring hex case.
func (d *Dump) Contains(addr string) bool {
	_, ok := d.lower[strings.ToLower(addr)]
	return ok
}

// ReadDump parses decoder dump lines of the form "<address>: <instruction>".
// Lines without a colon, or containing skipToken, are ignored.
func ReadDump(r io.Reader, skipToken string) (*Dump, error) {
	d := NewDump()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, ":") {
			continue
		}
		if skipToken != "" && strings.Contains(line, skipToken) {
			continue
		}
		addr, insn, _ := strings.Cut(line, ":")
		d.Set(strings.TrimSpace(addr), strings.TrimSpace(insn))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read decoder dump: %w", err)
	}
	return d, nil
}

// LoadDump reads the decoder dump at path.
func LoadDump(path, skipToken string) (*Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ReadDump(f, skipToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.DivergenceDebug("loaded %d decoder addresses from %s", d.Len(), path)
	return d, nil
}

// Load reads the reference trace and the decoder dump concurrently.
func Load(ctx context.Context, refPath, dumpPath, skipToken string) (Reference, *Dump, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		ref  Reference
		dump *Dump
		g    errgroup.Group
	)
	g.Go(func() error {
		var err error
		ref, err = LoadReference(refPath)
		return err
	})
	g.Go(func() error {
		var err error
		dump, err = LoadDump(dumpPath, skipToken)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ref, dump, nil
}
