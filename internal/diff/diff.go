// Package diff computes line diffs between an original file and the version
// proposed by the migration assistant, using the sergi/go-diff library, and
// renders them in unified format for judge prompts.
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
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line represents a single line in the diff
type Line struct {
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

// FileDiff represents changes to a single file
type FileDiff struct {
	OldPath  string
	NewPath  string
	Hunks    []Hunk
	IsNew    bool
	IsDelete bool
}

// Empty reports whether the two versions were identical.
func (f *FileDiff) Empty() bool { return len(f.Hunks) == 0 }

// Engine computes line diffs.
type Engine struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
}

// NewEngine creates an engine that keeps contextLines of unchanged lines
// around each change.
func NewEngine(contextLines int) *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{dmp: dmp, context: contextLines}
}

// DefaultEngine uses three lines of context, like git.
var DefaultEngine = NewEngine(3)

// ComputeDiff creates a FileDiff from old and new content.
func (e *Engine) ComputeDiff(oldPath, newPath, oldContent, newContent string) *FileDiff {
	fd := &FileDiff{
		OldPath:  oldPath,
		NewPath:  newPath,
		IsNew:    oldContent == "",
		IsDelete: newContent == "",
	}
	if oldContent == newContent {
		return fd
	}

	fd.Hunks = e.group(e.lineDiff(oldContent, newContent))
	return fd
}

// ComputeDiff is a convenience function using the default engine
func ComputeDiff(oldPath, newPath, oldContent, newContent string) *FileDiff {
	return DefaultEngine.ComputeDiff(oldPath, newPath, oldContent, newContent)
}

// Unified is ComputeDiff followed by rendering; identical inputs give "".
func Unified(oldPath, newPath, oldContent, newContent string) string {
	return ComputeDiff(oldPath, newPath, oldContent, newContent).String()
}

// lineDiff diffs the two texts line by line. Each distinct line is encoded
// as one rune so the library's rune diff works on whole lines.
func (e *Engine) lineDiff(oldContent, newContent string) []Line {
	codes := make(map[string]rune)
	var table []string
	encode := func(text string) []rune {
		var out []rune
		for _, l := range strings.SplitAfter(text, "\n") {
			if l == "" {
				continue
			}
			r, ok := codes[l]
			if !ok {
				r = lineRune(len(table))
				codes[l] = r
				table = append(table, l)
			}
			out = append(out, r)
		}
		return out
	}
	a, b := encode(oldContent), encode(newContent)
	decode := make(map[rune]string, len(table))
	for l, r := range codes {
		decode[r] = l
	}

	var out []Line
	for _, d := range e.dmp.DiffMainRunes(a, b, false) {
		typ := LineContext
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = LineAdded
		case diffmatchpatch.DiffDelete:
			typ = LineRemoved
		}
		for _, r := range d.Text {
			out = append(out, Line{Content: strings.TrimSuffix(decode[r], "\n"), Type: typ})
		}
	}
	return out
}

// lineRune maps a line index to a rune that survives a string round trip,
// stepping over the surrogate range.
func lineRune(i int) rune {
	r := rune(i + 1)
	if r >= 0xD800 {
		r += 0x800
	}
	return r
}

// group splits a flat line sequence into hunks. Changes closer than twice the
// context size share a hunk.
func (e *Engine) group(lines []Line) []Hunk {
	var changes []int
	for i, l := range lines {
		if l.Type != LineContext {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	// oldBefore[i] / newBefore[i]: lines of each side consumed before index i.
	oldBefore := make([]int, len(lines)+1)
	newBefore := make([]int, len(lines)+1)
	for i, l := range lines {
		oldBefore[i+1] = oldBefore[i]
		newBefore[i+1] = newBefore[i]
		if l.Type != LineAdded {
			oldBefore[i+1]++
		}
		if l.Type != LineRemoved {
			newBefore[i+1]++
		}
	}

	var hunks []Hunk
	for c := 0; c < len(changes); {
		last := c
		for last+1 < len(changes) && changes[last+1]-changes[last] <= 2*e.context+1 {
			last++
		}
		start := max(changes[c]-e.context, 0)
		end := min(changes[last]+e.context+1, len(lines))

		h := Hunk{
			OldCount: oldBefore[end] - oldBefore[start],
			NewCount: newBefore[end] - newBefore[start],
			Lines:    append([]Line(nil), lines[start:end]...),
		}
		h.OldStart = oldBefore[start] + 1
		if h.OldCount == 0 {
			h.OldStart--
		}
		h.NewStart = newBefore[start] + 1
		if h.NewCount == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)
		c = last + 1
	}
	return hunks
}

// String renders the diff in unified format.
func (f *FileDiff) String() string {
	if f.Empty() {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", f.OldPath, f.NewPath)
	for _, h := range f.Hunks {
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
