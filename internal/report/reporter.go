package report

import (
	"fmt"
	"os"
	"strings"

	"funee/colors"
	"funee/internal/source"
)

type BUNDLE_PHASE string

const (
	FETCHING_PHASE  BUNDLE_PHASE = "fetching"
	PARSING_PHASE   BUNDLE_PHASE = "parsing"
	RESOLVING_PHASE BUNDLE_PHASE = "resolving"
	GRAPH_PHASE     BUNDLE_PHASE = "building graph"
	MACRO_PHASE     BUNDLE_PHASE = "expanding macros"
	EMIT_PHASE      BUNDLE_PHASE = "emitting"
	RUNTIME_PHASE   BUNDLE_PHASE = "running"
)

var kindColor = map[KIND]colors.COLOR{
	PARSE_ERROR:             colors.RED,
	MISSING_EXPORT:          colors.RED,
	RE_EXPORT_CYCLE:         colors.RED,
	AMBIGUOUS_STAR_EXPORT:   colors.RED,
	UNRESOLVED_REFERENCE:    colors.RED,
	MACRO_RECURSION:         colors.RED,
	MACRO_TIMEOUT:           colors.RED,
	MACRO_RETURN_SHAPE:      colors.RED,
	CREATE_MACRO_UNEXPANDED: colors.BRIGHT_RED,
	EMIT_ORDERING_CONFLICT:  colors.BRIGHT_RED,
	NOT_FOUND:               colors.RED,
	HTTP_ERROR:              colors.RED,
	NETWORK_ERROR:           colors.RED,
	REDIRECT_LOOP:           colors.RED,
	HOST_ESCAPE:             colors.RED,
}

// Display prints a diagnostic to stderr with a uri:line:col prefix and,
// when the module source is available, a snippet with an underline.
func Display(d *Diagnostic, sources map[string]*source.File) {
	col, ok := kindColor[d.Kind]
	if !ok {
		col = colors.RED
	}

	col.Printf("error[%s]: ", d.Kind)
	fmt.Fprintln(os.Stderr, d.Error())

	if d.URI == "" || d.Location == nil || d.Location.Start == nil {
		return
	}
	file, ok := sources[d.URI]
	if !ok {
		return
	}
	printSnippet(file, d.Location, col)
}

func printSnippet(file *source.File, loc *source.Location, col colors.COLOR) {
	line := file.Line(loc.Start.Line)
	if line == "" {
		return
	}

	lineNumWidth := len(fmt.Sprint(loc.Start.Line))
	bar := fmt.Sprintf("%s |", strings.Repeat(" ", lineNumWidth))

	hLen := 0
	if loc.End != nil && loc.Start.Line == loc.End.Line {
		hLen = loc.End.Column - loc.Start.Column - 1
	} else {
		hLen = len(line) - loc.Start.Column
	}
	if hLen < 0 {
		hLen = 0
	}

	colors.GREY.Println(bar)
	colors.WHITE.Printf("%*d | ", lineNumWidth, loc.Start.Line)
	fmt.Fprintln(os.Stderr, line)
	colors.GREY.Print(bar)
	padding := strings.Repeat(" ", loc.Start.Column)
	col.Println(fmt.Sprintf("%s^%s", padding, strings.Repeat("~", hLen)))
}
