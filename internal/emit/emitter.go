package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"funee/internal/ast"
	"funee/internal/graph"
	"funee/internal/hostmod"
	"funee/internal/report"
	"funee/internal/resolver"
	"funee/internal/source"
)

// Options control the bundle tail: EmitOnly leaves off the entry
// invocation so the output can be inspected or piped.
type Options struct {
	EmitOnly bool
}

// Emitter turns the shaken declaration set into a single source unit:
// host preamble, renamed declarations in topological order, then the
// entry invocation.
type Emitter struct {
	g     *graph.Graph
	alive []*graph.Decl
	index map[resolver.CanonicalName]*graph.Decl
	log   zerolog.Logger
}

func New(g *graph.Graph, log zerolog.Logger) *Emitter {
	alive := g.Shake()
	index := make(map[resolver.CanonicalName]*graph.Decl, len(alive))
	for _, d := range alive {
		index[d.Canonical] = d
	}
	return &Emitter{g: g, alive: alive, index: index, log: log}
}

// EmitName is the stable bundle-wide name of a declaration.
func EmitName(d *graph.Decl) string {
	return fmt.Sprintf("declaration_%d", d.ID)
}

// Bundle renders the final program.
func (e *Emitter) Bundle(opts Options) (string, error) {
	order := e.topoOrder()
	hoisted, err := e.planHoists(order)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	e.writePreamble(&b)

	for _, d := range order {
		code, err := e.renderDecl(d, hoisted[d.ID])
		if err != nil {
			return "", err
		}
		b.WriteString(code)
		b.WriteString("\n")
	}

	if !opts.EmitOnly {
		entry := e.g.EntryDecl()
		if entry != nil {
			fmt.Fprintf(&b, "%s();\n", EmitName(entry))
		}
	}
	return b.String(), nil
}

// writePreamble binds every referenced host namespace.
func (e *Emitter) writePreamble(b *strings.Builder) {
	used := make(map[string]bool)
	for _, d := range e.alive {
		if d.Kind == graph.HOST_DECL {
			used[d.HostNamespace] = true
		}
	}
	var namespaces []string
	for ns := range used {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		fmt.Fprintf(b, "var %s = %s;\n", hostmod.PreambleVar(ns), hostmod.PreambleCode(ns))
	}
}

// topoOrder runs a post-order DFS from the entry so dependencies come
// first; cycles break at the revisit edge.
func (e *Emitter) topoOrder() []*graph.Decl {
	visited := make(map[resolver.CanonicalName]bool)
	var order []*graph.Decl
	var visit func(d *graph.Decl)
	visit = func(d *graph.Decl) {
		if visited[d.Canonical] {
			return
		}
		visited[d.Canonical] = true
		for _, name := range sortedRefNames(d.References) {
			if dep, ok := e.index[d.References[name]]; ok {
				visit(dep)
			}
		}
		order = append(order, d)
	}
	if entry := e.g.EntryDecl(); entry != nil {
		if d, ok := e.index[entry.Canonical]; ok {
			visit(d)
		}
	}
	// anything alive but unreached from the entry would be a shaker bug;
	// emit it anyway in stable order rather than dropping code
	for _, d := range e.alive {
		visit(d)
	}
	return order
}

// planHoists finds backward edges created by cycle breaking. A var-kind
// declaration used before its definition must be hoisted to a function
// form; that only works for arrow initializers.
func (e *Emitter) planHoists(order []*graph.Decl) (map[int]bool, error) {
	position := make(map[int]int, len(order))
	for i, d := range order {
		position[d.ID] = i
	}
	hoisted := make(map[int]bool)
	for _, d := range order {
		for _, cn := range d.References {
			dep, ok := e.index[cn]
			if !ok {
				continue
			}
			if position[dep.ID] <= position[d.ID] {
				continue // forward edge, fine
			}
			if !dep.VarKind() {
				continue // function and class declarations hoist natively
			}
			if dep.Kind == graph.VAR_DECL || dep.Kind == graph.DEFAULT_EXPORT_DECL {
				if _, isArrow := unwrapArrow(dep.Node); isArrow {
					hoisted[dep.ID] = true
					continue
				}
			}
			if d.VarKind() {
				return nil, report.New(report.EMIT_ORDERING_CONFLICT, d.Canonical.URI, nil,
					"declaration %s is used before %s can be defined", d.Canonical, dep.Canonical)
			}
		}
	}
	return hoisted, nil
}

func unwrapArrow(n ast.Node) (*ast.ArrowFunc, bool) {
	for {
		if p, ok := n.(*ast.ParenExpr); ok {
			n = p.Inner
			continue
		}
		break
	}
	arrow, ok := n.(*ast.ArrowFunc)
	return arrow, ok
}

type edit struct {
	span source.Span
	text string
}

// renderDecl rewrites one declaration's text: references renamed to
// emit names, using-statements lowered, and the binding form applied.
func (e *Emitter) renderDecl(d *graph.Decl, hoist bool) (string, error) {
	name := EmitName(d)

	switch d.Kind {
	case graph.HOST_DECL:
		return fmt.Sprintf("var %s = %s.%s;", name, hostmod.PreambleVar(d.HostNamespace), d.HostExport), nil

	case graph.NAMESPACE_DECL:
		var fields []string
		for _, ref := range sortedRefNames(d.References) {
			dep, ok := e.index[d.References[ref]]
			if !ok {
				continue
			}
			fields = append(fields, fmt.Sprintf("%s: %s", ref, EmitName(dep)))
		}
		return fmt.Sprintf("var %s = { %s };", name, strings.Join(fields, ", ")), nil
	}

	renames := make(map[string]string)
	for ref, cn := range d.References {
		if dep, ok := e.index[cn]; ok {
			renames[ref] = EmitName(dep)
		}
	}

	var edits []edit
	for _, ident := range d.RefIdents {
		newName, ok := renames[ident.Name]
		if !ok {
			continue
		}
		if ident.Shorthand {
			edits = append(edits, edit{span: ident.Span, text: ident.Name + ": " + newName})
		} else {
			edits = append(edits, edit{span: ident.Span, text: newName})
		}
	}

	edits = append(edits, e.lowerUsings(d)...)

	switch d.Kind {
	case graph.FUNCTION_DECL:
		fn, ok := d.Node.(*ast.FuncDecl)
		if ok && fn.Name != nil {
			edits = append(edits, edit{span: fn.Name.Span(), text: name})
			return applyEdits(d.Text, edits), nil
		}
		// anonymous default-export function
		return fmt.Sprintf("var %s = %s;", name, applyEdits(d.Text, edits)), nil

	case graph.CLASS_DECL:
		cls, ok := d.Node.(*ast.ClassDecl)
		if ok && cls.Name != nil {
			edits = append(edits, edit{span: cls.Name.Span(), text: name})
			return applyEdits(d.Text, edits), nil
		}
		return fmt.Sprintf("var %s = %s;", name, applyEdits(d.Text, edits)), nil

	default:
		body := applyEdits(d.Text, edits)
		if hoist {
			return hoistArrow(d, name, body), nil
		}
		return fmt.Sprintf("var %s = %s;", name, body), nil
	}
}

// hoistArrow re-expresses an arrow-initialized const as a hoistable
// function declaration. Call sites are oblivious; the arrow itself is
// evaluated once, lazily, on first call.
func hoistArrow(d *graph.Decl, name, body string) string {
	cache := name + "_impl"
	return fmt.Sprintf("function %s(...args) { return (%s ??= (%s))(...args); }\nvar %s;",
		name, cache, body, cache)
}

func applyEdits(text string, edits []edit) string {
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].span.Start != edits[j].span.Start {
			return edits[i].span.Start > edits[j].span.Start
		}
		return edits[i].span.End > edits[j].span.End
	})
	for _, ed := range edits {
		if ed.span.Start < 0 || ed.span.End > len(text) || ed.span.Start > ed.span.End {
			continue
		}
		text = text[:ed.span.Start] + ed.text + text[ed.span.End:]
	}
	return text
}

func sortedRefNames(refs map[string]resolver.CanonicalName) []string {
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
