package graph

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"funee/internal/ast"
	"funee/internal/hostmod"
	"funee/internal/report"
	"funee/internal/resolver"
)

// Graph is the declaration graph for one bundle: an arena of declarations
// with canonical-name edges. Declaration IDs double as discovery indices,
// which keeps emission deterministic.
type Graph struct {
	Store *resolver.Store
	Decls []*Decl
	Entry resolver.CanonicalName

	index map[resolver.CanonicalName]int
	log   zerolog.Logger
}

// Build walks from the entry module's default export and records, for
// every reachable declaration, the canonical names its body references.
func Build(ctx context.Context, store *resolver.Store, entryURI string, log zerolog.Logger) (*Graph, error) {
	g := &Graph{
		Store: store,
		index: make(map[resolver.CanonicalName]int),
		log:   log,
	}

	entry, err := store.ResolveExport(ctx, entryURI, resolver.DefaultExportName)
	if err != nil {
		return nil, err
	}
	g.Entry = entry

	queue := []resolver.CanonicalName{entry}
	for len(queue) > 0 {
		cn := queue[0]
		queue = queue[1:]
		if _, ok := g.index[cn]; ok {
			continue
		}
		decl, err := g.createDecl(ctx, cn)
		if err != nil {
			return nil, err
		}
		newRefs, err := g.resolveReferences(ctx, decl)
		if err != nil {
			return nil, err
		}
		queue = append(queue, newRefs...)
	}
	return g, nil
}

// Lookup finds a declaration by canonical name.
func (g *Graph) Lookup(cn resolver.CanonicalName) (*Decl, bool) {
	id, ok := g.index[cn]
	if !ok {
		return nil, false
	}
	return g.Decls[id], true
}

// EntryDecl returns the entry default-export declaration.
func (g *Graph) EntryDecl() *Decl {
	d, _ := g.Lookup(g.Entry)
	return d
}

// Ensure adds a declaration for a canonical name discovered after the
// initial walk (macro expansion introduces these) and transitively
// resolves its references.
func (g *Graph) Ensure(ctx context.Context, cn resolver.CanonicalName) (*Decl, error) {
	if d, ok := g.Lookup(cn); ok {
		return d, nil
	}
	decl, err := g.createDecl(ctx, cn)
	if err != nil {
		return nil, err
	}
	queue, err := g.resolveReferences(ctx, decl)
	if err != nil {
		return nil, err
	}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := g.index[next]; ok {
			continue
		}
		d, err := g.createDecl(ctx, next)
		if err != nil {
			return nil, err
		}
		more, err := g.resolveReferences(ctx, d)
		if err != nil {
			return nil, err
		}
		queue = append(queue, more...)
	}
	return decl, nil
}

// ReresolveDecl re-resolves a declaration's references after its text was
// rewritten (macro splice) and pulls any newly referenced declarations
// into the graph.
func (g *Graph) ReresolveDecl(ctx context.Context, decl *Decl) error {
	// drop references whose identifier no longer occurs; a replaced macro
	// call-site must not keep its macro alive
	current := make(map[string]bool)
	for _, name := range decl.RefNames() {
		current[name] = true
	}
	for name := range decl.References {
		if !current[name] {
			delete(decl.References, name)
		}
	}

	queue, err := g.resolveReferences(ctx, decl)
	if err != nil {
		return err
	}
	for _, cn := range queue {
		if _, err := g.Ensure(ctx, cn); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) add(decl *Decl) *Decl {
	decl.ID = len(g.Decls)
	g.Decls = append(g.Decls, decl)
	g.index[decl.Canonical] = decl.ID
	return decl
}

func (g *Graph) createDecl(ctx context.Context, cn resolver.CanonicalName) (*Decl, error) {
	if cn.Name == resolver.NamespaceExportName {
		return g.createNamespaceDecl(ctx, cn)
	}

	if hostmod.IsHostURI(cn.URI) {
		return g.add(&Decl{
			Canonical:     cn,
			Kind:          HOST_DECL,
			Name:          cn.Name,
			HostNamespace: hostmod.Namespace(cn.URI),
			HostExport:    cn.Name,
			References:    map[string]resolver.CanonicalName{},
		}), nil
	}

	m, err := g.Store.Module(ctx, cn.URI)
	if err != nil {
		return nil, err
	}
	binding, ok := m.Locals[cn.Name]
	if !ok {
		return nil, report.New(report.MISSING_EXPORT, cn.URI, nil,
			"module %s has no export named %q", cn.URI, cn.Name)
	}

	decl := &Decl{
		Canonical:  cn,
		Name:       cn.Name,
		References: map[string]resolver.CanonicalName{},
	}

	switch item := binding.Item.(type) {
	case *ast.FuncDecl:
		decl.Kind = FUNCTION_DECL
		decl.Text = item.Span().Slice(m.Source)

	case *ast.ClassDecl:
		decl.Kind = CLASS_DECL
		decl.Text = item.Span().Slice(m.Source)

	case *ast.TypeDecl:
		decl.Kind = TYPE_ONLY_DECL

	case *ast.VarStmt:
		decl.Kind = VAR_DECL
		init := binding.Declarator.Init
		if init == nil {
			decl.Text = "undefined"
		} else {
			decl.Text = init.Span().Slice(m.Source)
			if body, ok := g.macroBody(ctx, m, init); ok {
				decl.Kind = MACRO_DECL
				decl.MacroBody = body
			}
		}

	case *ast.ExportDefaultDecl:
		decl.Kind = DEFAULT_EXPORT_DECL
		if item.Decl != nil {
			decl.Kind = FUNCTION_DECL
			decl.Text = item.Decl.Span().Slice(m.Source)
		} else {
			decl.Text = item.Value.Span().Slice(m.Source)
		}

	default:
		return nil, report.New(report.UNRESOLVED_REFERENCE, cn.URI, nil,
			"cannot bundle declaration %q in %s", cn.Name, cn.URI)
	}

	if err := decl.Reanalyze(); err != nil {
		return nil, err
	}
	g.log.Debug().Str("decl", cn.String()).Str("kind", decl.Kind.String()).Msg("declaration discovered")
	return g.add(decl), nil
}

// createNamespaceDecl synthesizes the object for `import * as ns`: its
// references are every export of the target module.
func (g *Graph) createNamespaceDecl(ctx context.Context, cn resolver.CanonicalName) (*Decl, error) {
	decl := g.add(&Decl{
		Canonical:    cn,
		Kind:         NAMESPACE_DECL,
		Name:         cn.Name,
		NamespaceURI: cn.URI,
		References:   map[string]resolver.CanonicalName{},
	})
	names, err := g.Store.AllExportNames(ctx, cn.URI)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if name == resolver.DefaultExportName {
			continue
		}
		target, err := g.Store.ResolveExport(ctx, cn.URI, name)
		if err != nil {
			return nil, err
		}
		decl.References[name] = target
	}
	return decl, nil
}

// macroBody reports whether an initializer is a createMacro(...) call and
// returns the macro function's verbatim source. Detection follows the
// callee through any import/alias chain and accepts any declaration whose
// canonical name is createMacro.
func (g *Graph) macroBody(ctx context.Context, m *resolver.Module, init ast.Expression) (string, bool) {
	expr := init
	for {
		if p, ok := expr.(*ast.ParenExpr); ok {
			expr = p.Inner
			continue
		}
		break
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok || len(call.Args) == 0 {
		return "", false
	}
	callee, ok := call.Callee.(*ast.Ident)
	if !ok {
		return "", false
	}
	cn, found, err := g.Store.ResolveReference(ctx, m, callee.Name)
	if err != nil || !found {
		return "", false
	}
	if cn.Name != "createMacro" {
		return "", false
	}
	return call.Args[0].Span().Slice(m.Source), true
}

// resolveReferences resolves every free identifier of a declaration to a
// canonical name and returns the not-yet-known ones for the worklist.
func (g *Graph) resolveReferences(ctx context.Context, decl *Decl) ([]resolver.CanonicalName, error) {
	if decl.Kind == HOST_DECL || decl.Kind == TYPE_ONLY_DECL {
		return nil, nil
	}
	if decl.Kind == NAMESPACE_DECL {
		var out []resolver.CanonicalName
		for _, cn := range sortedRefs(decl.References) {
			if _, ok := g.index[cn]; !ok {
				out = append(out, cn)
			}
		}
		return out, nil
	}

	m, err := g.Store.Module(ctx, decl.Canonical.URI)
	if err != nil {
		return nil, err
	}

	// self-recursion: the declared name maps to this declaration even
	// when the canonical name differs (named default exports)
	ownName := ""
	switch node := decl.Node.(type) {
	case *ast.FuncDecl:
		if node.Name != nil {
			ownName = node.Name.Name
		}
	case *ast.ClassDecl:
		if node.Name != nil {
			ownName = node.Name.Name
		}
	}

	var out []resolver.CanonicalName
	for _, name := range decl.RefNames() {
		if IsJSGlobal(name) {
			continue
		}
		if _, done := decl.References[name]; done {
			continue
		}
		if name == ownName {
			decl.References[name] = decl.Canonical
			continue
		}
		cn, found, err := g.Store.ResolveReference(ctx, m, name)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, report.New(report.UNRESOLVED_REFERENCE, decl.Canonical.URI, nil,
				"unresolved reference %q in %s", name, decl.Canonical)
		}
		decl.References[name] = cn
		if _, ok := g.index[cn]; !ok {
			out = append(out, cn)
		}
	}
	return out, nil
}

func sortedRefs(refs map[string]resolver.CanonicalName) []resolver.CanonicalName {
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]resolver.CanonicalName, 0, len(names))
	for _, name := range names {
		out = append(out, refs[name])
	}
	return out
}
