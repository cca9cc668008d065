package report

import (
	"errors"
	"fmt"

	"funee/internal/source"
)

// Error kinds across the pipeline. These are the stable identities the CLI
// and tests match on; messages are free-form.
type KIND string

const (
	// fetch
	NOT_FOUND     KIND = "NotFound"
	HTTP_ERROR    KIND = "HttpError"
	NETWORK_ERROR KIND = "NetworkError"
	REDIRECT_LOOP KIND = "RedirectLoop"
	HOST_ESCAPE   KIND = "HostEscape"

	// parse
	PARSE_ERROR KIND = "ParseError"

	// resolution
	MISSING_EXPORT        KIND = "MissingExport"
	RE_EXPORT_CYCLE       KIND = "ReExportCycle"
	AMBIGUOUS_STAR_EXPORT KIND = "AmbiguousStarExport"
	UNRESOLVED_REFERENCE  KIND = "UnresolvedReference"

	// macro
	MACRO_RECURSION    KIND = "MacroRecursion"
	MACRO_TIMEOUT      KIND = "MacroTimeout"
	MACRO_RETURN_SHAPE KIND = "MacroReturnShape"
	// runtime backstop: an unexpanded createMacro result was invoked,
	// which means resolution missed a macro before emission
	CREATE_MACRO_UNEXPANDED KIND = "CreateMacroUnexpanded"

	// emission
	EMIT_ORDERING_CONFLICT KIND = "EmitOrderingConflict"
)

// Diagnostic is the error type every pipeline stage surfaces. URI and
// Location are optional; when present the CLI prints a uri:line:col prefix
// and a source snippet.
type Diagnostic struct {
	Kind     KIND
	URI      string
	Location *source.Location
	Message  string
	Err      error
}

func (d *Diagnostic) Error() string {
	prefix := ""
	if d.URI != "" {
		if d.Location != nil && d.Location.Start != nil {
			prefix = fmt.Sprintf("%s:%d:%d: ", d.URI, d.Location.Start.Line, d.Location.Start.Column)
		} else {
			prefix = d.URI + ": "
		}
	}
	return prefix + d.Message
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Is matches diagnostics by kind so callers can use errors.Is with a bare
// kind sentinel produced by KindOnly.
func (d *Diagnostic) Is(target error) bool {
	if t, ok := target.(*Diagnostic); ok {
		return t.Kind == d.Kind
	}
	return false
}

// KindOnly returns a sentinel for errors.Is matching.
func KindOnly(kind KIND) error {
	return &Diagnostic{Kind: kind}
}

// KindOf extracts the diagnostic kind from an error chain, or "" when the
// error carries none.
func KindOf(err error) KIND {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Kind
	}
	return ""
}

func New(kind KIND, uri string, loc *source.Location, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Kind:     kind,
		URI:      uri,
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap attaches a cause to a diagnostic built with New-style arguments.
func Wrap(err error, kind KIND, uri string, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Kind:    kind,
		URI:     uri,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
