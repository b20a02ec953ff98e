// Package diff computes line-level diffs between two sequences of trace lines
// using the sergi/go-diff library, grouped into unified-style hunks.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Present only in the new sequence
	LineRemoved                 // Present only in the old sequence
)

// Line represents a single line in the diff.
// OldNum and NewNum are 1-based; zero means the line is absent on that side.
type Line struct {
	OldNum  int
	NewNum  int
	Content string
	Type    LineType
}

// Hunk represents a group of changes with surrounding context
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// Result is the diff of two named sequences
type Result struct {
	OldName string
	NewName string
	Hunks   []Hunk
}

// Empty reports whether the sequences were identical.
func (r *Result) Empty() bool {
	return len(r.Hunks) == 0
}

// Unified renders the result in unified diff format.
func (r *Result) Unified() string {
	if r.Empty() {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", r.OldName, r.NewName)
	for _, h := range r.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				sb.WriteByte('+')
			case LineRemoved:
				sb.WriteByte('-')
			default:
				sb.WriteByte(' ')
			}
			sb.WriteString(l.Content)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Engine provides diff computation
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates a new diff engine
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // Disable timeout for accuracy
	return &Engine{dmp: dmp}
}

// DefaultEngine is a shared engine for general use
var DefaultEngine = NewEngine()

// Lines is a convenience function using the default engine
func Lines(oldName, newName string, oldLines, newLines []string, contextLines int) *Result {
	return DefaultEngine.Lines(oldName, newName, oldLines, newLines, contextLines)
}

// Lines diffs two line sequences, keeping contextLines unchanged lines around each change.
func (e *Engine) Lines(oldName, newName string, oldLines, newLines []string, contextLines int) *Result {
	res := &Result{OldName: oldName, NewName: newName}

	// Line-level reduction: every line becomes one rune, so the diff never splits a line.
	a, b, lineArray := e.dmp.DiffLinesToChars(joinLines(oldLines), joinLines(newLines))
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	ops := toOperations(diffs)
	res.Hunks = groupIntoHunks(ops, contextLines)
	return res
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// operation is one line with the old/new positions consumed before it
type operation struct {
	line      Line
	oldBefore int
	newBefore int
}

func toOperations(diffs []diffmatchpatch.Diff) []operation {
	ops := make([]operation, 0)
	oldLine, newLine := 0, 0

	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		for _, content := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			op := operation{oldBefore: oldLine, newBefore: newLine}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldLine++
				newLine++
				op.line = Line{OldNum: oldLine, NewNum: newLine, Content: content, Type: LineContext}
			case diffmatchpatch.DiffDelete:
				oldLine++
				op.line = Line{OldNum: oldLine, Content: content, Type: LineRemoved}
			case diffmatchpatch.DiffInsert:
				newLine++
				op.line = Line{NewNum: newLine, Content: content, Type: LineAdded}
			}
			ops = append(ops, op)
		}
	}
	return ops
}

// groupIntoHunks keeps every change plus contextLines of context on each side,
// merging changes whose context windows touch.
func groupIntoHunks(ops []operation, contextLines int) []Hunk {
	if contextLines < 0 {
		contextLines = 0
	}
	keep := make([]bool, len(ops))
	for i, op := range ops {
		if op.line.Type == LineContext {
			continue
		}
		lo := max(0, i-contextLines)
		hi := min(len(ops)-1, i+contextLines)
		for j := lo; j <= hi; j++ {
			keep[j] = true
		}
	}

	var hunks []Hunk
	var cur *Hunk
	for i, op := range ops {
		if !keep[i] {
			if cur != nil {
				hunks = append(hunks, finishHunk(cur))
				cur = nil
			}
			continue
		}
		if cur == nil {
			cur = &Hunk{OldStart: op.oldBefore, NewStart: op.newBefore}
		}
		cur.Lines = append(cur.Lines, op.line)
	}
	if cur != nil {
		hunks = append(hunks, finishHunk(cur))
	}
	return hunks
}

func finishHunk(h *Hunk) Hunk {
	for _, l := range h.Lines {
		if l.Type != LineAdded {
			h.OldCount++
		}
		if l.Type != LineRemoved {
			h.NewCount++
		}
	}
	// Unified format starts at the first line of the hunk, or the line
	// before it when that side is empty.
	if h.OldCount > 0 {
		h.OldStart++
	}
	if h.NewCount > 0 {
		h.NewStart++
	}
	return *h
}
