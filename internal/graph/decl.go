package graph

import (
	"fmt"

	"funee/internal/ast"
	"funee/internal/parser"
	"funee/internal/resolver"
)

type DECL_KIND int

const (
	FUNCTION_DECL DECL_KIND = iota
	VAR_DECL
	CLASS_DECL
	TYPE_ONLY_DECL
	DEFAULT_EXPORT_DECL
	MACRO_DECL
	HOST_DECL
	NAMESPACE_DECL
)

func (k DECL_KIND) String() string {
	switch k {
	case FUNCTION_DECL:
		return "function"
	case VAR_DECL:
		return "var"
	case CLASS_DECL:
		return "class"
	case TYPE_ONLY_DECL:
		return "type-only"
	case DEFAULT_EXPORT_DECL:
		return "default-export"
	case MACRO_DECL:
		return "macro"
	case HOST_DECL:
		return "host"
	case NAMESPACE_DECL:
		return "namespace"
	}
	return "unknown"
}

// Decl is the atomic unit of tree shaking. Text is the declaration's
// current emittable source; macro expansion rewrites it in place and
// re-analyzes. Node and RefIdents always describe Text.
type Decl struct {
	ID        int
	Canonical resolver.CanonicalName
	Kind      DECL_KIND
	Name      string

	Text      string
	Node      ast.Node
	RefIdents []FreeIdent

	// References maps each free identifier as written in Text to the
	// canonical name it resolves to.
	References map[string]resolver.CanonicalName

	// MacroBody is the verbatim source of the function passed to
	// createMacro; only set for MACRO_DECL.
	MacroBody string

	// Host declarations bind one export of a host:// namespace.
	HostNamespace string
	HostExport    string

	// NamespaceURI names the module a namespace object aggregates.
	NamespaceURI string
}

// VarKind reports whether the declaration emits as a var-style binding
// (var name = <expr>).
func (d *Decl) VarKind() bool {
	switch d.Kind {
	case VAR_DECL, DEFAULT_EXPORT_DECL, NAMESPACE_DECL, HOST_DECL:
		return true
	}
	return false
}

// Reanalyze parses Text and recomputes the free-identifier occurrences.
// Called at construction and after every macro splice.
func (d *Decl) Reanalyze() error {
	switch d.Kind {
	case HOST_DECL, NAMESPACE_DECL, TYPE_ONLY_DECL:
		d.Node = nil
		d.RefIdents = nil
		return nil

	case FUNCTION_DECL, CLASS_DECL:
		m, err := parser.ParseModule(d.Canonical.URI, d.Text)
		if err != nil {
			return err
		}
		if len(m.Items) == 0 {
			return fmt.Errorf("declaration %s parsed to nothing", d.Canonical)
		}
		d.Node = m.Items[0]

	default:
		expr, err := parser.ParseExpressionText(d.Canonical.URI, d.Text)
		if err != nil {
			return err
		}
		d.Node = expr
	}

	d.RefIdents = FreeIdentifiers(d.Node, nil)
	return nil
}

// RefNames returns the distinct free identifier names in deterministic
// (first occurrence) order.
func (d *Decl) RefNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, ref := range d.RefIdents {
		if !seen[ref.Name] {
			seen[ref.Name] = true
			names = append(names, ref.Name)
		}
	}
	return names
}
