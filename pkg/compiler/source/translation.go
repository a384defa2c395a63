package source

import "sort"

// Interval maps a run of flattened lines, starting at StartLine, to a file.
// Flattened line StartLine corresponds to the 0-based line LineOffset of Filename.
type Interval struct {
	StartLine  int
	Filename   string
	LineOffset int
}

// LineNumberTranslation maps flattened line numbers back to source files.
// Intervals are sorted by StartLine.
type LineNumberTranslation struct {
	intervals []Interval
}

// Push starts a new interval. If the last interval starts at the same line
// (an include that produced no lines), it is replaced instead.
func (t *LineNumberTranslation) Push(startLine int, filename string, lineOffset int) {
	interval := Interval{StartLine: startLine, Filename: filename, LineOffset: lineOffset}
	if n := len(t.intervals); n > 0 && t.intervals[n-1].StartLine == startLine {
		t.intervals[n-1] = interval
		return
	}
	t.intervals = append(t.intervals, interval)
}

// Translate returns the file and 0-based line within that file for a flattened line number.
func (t *LineNumberTranslation) Translate(line int) (string, int) {
	if len(t.intervals) == 0 {
		return "", 0
	}
	// first interval starting after line, the one before it contains line
	idx := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].StartLine > line
	})
	if idx > 0 {
		idx--
	}
	interval := t.intervals[idx]
	lineInFile := line - interval.StartLine + interval.LineOffset
	if lineInFile < 0 {
		lineInFile = 0
	}
	return interval.Filename, lineInFile
}

// Intervals returns a copy of the table.
func (t *LineNumberTranslation) Intervals() []Interval {
	return append([]Interval(nil), t.intervals...)
}

// Reset clears the table.
func (t *LineNumberTranslation) Reset() {
	t.intervals = t.intervals[:0]
}
