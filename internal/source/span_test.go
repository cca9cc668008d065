package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanSlice(t *testing.T) {
	text := "const x = 1;"
	assert.Equal(t, "x", NewSpan(6, 7).Slice(text))
	assert.Equal(t, "", NewSpan(5, 200).Slice(text))
	assert.Equal(t, "", NewSpan(7, 6).Slice(text))
}

func TestFilePosition(t *testing.T) {
	f := NewFile("test.ts", "ab\ncd\n\nefg")
	tests := []struct {
		offset int
		line   int
		column int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{4, 2, 2},
		{6, 3, 1},
		{7, 4, 1},
		{9, 4, 3},
	}
	for _, tt := range tests {
		pos := f.Position(tt.offset)
		assert.Equal(t, tt.line, pos.Line, "offset %d line", tt.offset)
		assert.Equal(t, tt.column, pos.Column, "offset %d column", tt.offset)
	}
}

func TestFileLine(t *testing.T) {
	f := NewFile("test.ts", "first\nsecond\r\nthird")
	assert.Equal(t, "first", f.Line(1))
	assert.Equal(t, "second", f.Line(2))
	assert.Equal(t, "third", f.Line(3))
	assert.Equal(t, "", f.Line(9))
}

func TestLocationContains(t *testing.T) {
	f := NewFile("test.ts", "abc\ndef\nghi")
	loc := f.LocationOf(NewSpan(4, 11))
	assert.True(t, loc.Contains(f.Position(5)))
	assert.False(t, loc.Contains(f.Position(0)))
}
