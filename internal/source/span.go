package source

import "strings"

// Span is a half-open byte range [Start, End) into a module's source text.
// Spans survive the whole pipeline: the parser stamps them on every node,
// the emitter splices replacement text back in by span.
type Span struct {
	Start int
	End   int
}

func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

func (s Span) Len() int {
	return s.End - s.Start
}

// Slice returns the text covered by the span.
func (s Span) Slice(text string) string {
	if s.Start < 0 || s.End > len(text) || s.Start > s.End {
		return ""
	}
	return text[s.Start:s.End]
}

// File pairs a module URI with its source text and lazily computed line
// starts, so byte offsets can be turned into line/column positions for
// diagnostics.
type File struct {
	URI        string
	Text       string
	lineStarts []int
}

func NewFile(uri, text string) *File {
	return &File{URI: uri, Text: text}
}

func (f *File) ensureLineStarts() {
	if f.lineStarts != nil {
		return
	}
	f.lineStarts = append(f.lineStarts, 0)
	for i := 0; i < len(f.Text); i++ {
		if f.Text[i] == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
}

// Position converts a byte offset into a 1-based line/column position.
func (f *File) Position(offset int) *Position {
	f.ensureLineStarts()
	if offset < 0 {
		offset = 0
	}
	if offset > len(f.Text) {
		offset = len(f.Text)
	}
	// binary search for the last line start <= offset
	lo, hi := 0, len(f.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return &Position{Line: lo + 1, Column: offset - f.lineStarts[lo] + 1, Offset: offset}
}

// LocationOf converts a span into a Location within this file.
func (f *File) LocationOf(span Span) *Location {
	return NewLocation(f.Position(span.Start), f.Position(span.End))
}

// Line returns the 1-based line's text without its trailing newline.
func (f *File) Line(line int) string {
	f.ensureLineStarts()
	if line < 1 || line > len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[line-1]
	end := len(f.Text)
	if line < len(f.lineStarts) {
		end = f.lineStarts[line] - 1
	}
	return strings.TrimSuffix(f.Text[start:end], "\r")
}
