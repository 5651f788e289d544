package subtitle

import (
	"regexp"
	"sort"
	"time"
)

// represents a single timed karaoke line
//
// Lines are value objects: once loaded they are never mutated, only
// included in or excluded from the working sequence. Index is the line's
// position in the original file order and is the line's identity for the
// whole run.
type Line struct {
	Index int
	Start time.Duration
	End   time.Duration
	Style string
	Text  string
}

// bracketed ASS override blocks, e.g. {\k12} or {\c&H00FF00&\k8}
var tagPattern = regexp.MustCompile(`\{(.*?)\}`)

// returns the line text with all {...} override tags removed.
// The underlying Text is left untouched; karaoke timing tags must
// survive for note conversion.
func (l Line) PlainText() string {
	return tagPattern.ReplaceAllString(l.Text, "")
}

// reports whether the line's interval intersects another under half-open
// semantics: touching endpoints do not overlap.
func (l Line) Overlaps(other Line) bool {
	return l.Start < other.End && other.Start < l.End
}

// StyleCount pairs a style name with the number of lines using it
type StyleCount struct {
	Name  string
	Count int
}

// returns every style present in lines with its line count, in first-seen
// order so prompts stay stable between runs
func Styles(lines []Line) []StyleCount {
	counts := make(map[string]int)
	var order []string
	for _, line := range lines {
		if _, seen := counts[line.Style]; !seen {
			order = append(order, line.Style)
		}
		counts[line.Style]++
	}

	styles := make([]StyleCount, 0, len(order))
	for _, name := range order {
		styles = append(styles, StyleCount{Name: name, Count: counts[name]})
	}
	return styles
}

// keeps only lines in the given style
func InStyle(style string, lines []Line) []Line {
	var kept []Line
	for _, line := range lines {
		if line.Style == style {
			kept = append(kept, line)
		}
	}
	return kept
}

// SortByStart orders lines by start time, ties broken by original index
// so repeated runs present identical sequences.
func SortByStart(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Start != lines[j].Start {
			return lines[i].Start < lines[j].Start
		}
		return lines[i].Index < lines[j].Index
	})
}
