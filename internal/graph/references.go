package graph

import (
	"funee/internal/ast"
	"funee/internal/source"
)

// FreeIdent is one occurrence of an unbound identifier inside a
// declaration body, with its span relative to the analyzed text.
type FreeIdent struct {
	Name      string
	Span      source.Span
	Shorthand bool
}

// FreeIdentifiers walks a node and returns every identifier occurrence
// not bound by a lexical scope inside it. The caller supplies names
// already bound at the root (function parameters, for instance).
func FreeIdentifiers(node ast.Node, bound []string) []FreeIdent {
	root := newScope(nil)
	for _, name := range bound {
		root.declare(name)
	}
	w := &refWalker{}
	w.walkNode(node, root)
	return w.out
}

// isLanguageName filters identifiers that are semantics, not references.
func isLanguageName(name string) bool {
	switch name {
	case "this", "super", "arguments", "new.target", "undefined", "null", "true", "false":
		return true
	}
	return false
}

type scope struct {
	names  map[string]bool
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{names: make(map[string]bool), parent: parent}
}

func (s *scope) declare(name string) {
	s.names[name] = true
}

func (s *scope) declarePattern(p ast.Pattern) {
	for _, name := range ast.PatternNames(p) {
		s.declare(name)
	}
}

func (s *scope) resolves(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.names[name] {
			return true
		}
	}
	return false
}

type refWalker struct {
	out []FreeIdent
}

// hoist pre-declares the names a statement list binds so use-before-define
// within the same block resolves locally.
func (w *refWalker) hoist(stmts []ast.Statement, sc *scope) {
	for _, st := range stmts {
		switch v := st.(type) {
		case *ast.FuncDecl:
			if v.Name != nil {
				sc.declare(v.Name.Name)
			}
		case *ast.ClassDecl:
			if v.Name != nil {
				sc.declare(v.Name.Name)
			}
		case *ast.VarStmt:
			for _, d := range v.Decls {
				sc.declarePattern(d.Name)
			}
		}
	}
}

func (w *refWalker) walkStmts(stmts []ast.Statement, sc *scope) {
	w.hoist(stmts, sc)
	for _, st := range stmts {
		w.walkNode(st, sc)
	}
}

func (w *refWalker) walkNode(n ast.Node, sc *scope) {
	if n == nil {
		return
	}
	switch v := n.(type) {
	case *ast.Ident:
		if isLanguageName(v.Name) {
			return
		}
		if !sc.resolves(v.Name) {
			w.out = append(w.out, FreeIdent{Name: v.Name, Span: v.Span(), Shorthand: v.Shorthand})
		}

	case *ast.BlockStmt:
		inner := newScope(sc)
		w.walkStmts(v.Stmts, inner)

	case *ast.FuncDecl:
		// the name is declared by the enclosing block's hoist pass; a
		// top-level declaration analyzed alone keeps its own name free so
		// recursion gets renamed with the declaration
		fnScope := newScope(sc)
		for _, p := range v.Params {
			fnScope.declarePattern(p)
			w.walkPatternDefaults(p, fnScope)
		}
		if v.Body != nil {
			w.walkStmts(v.Body.Stmts, newScope(fnScope))
		}

	case *ast.FuncExpr:
		fnScope := newScope(sc)
		if v.Name != "" {
			fnScope.declare(v.Name)
		}
		for _, p := range v.Params {
			fnScope.declarePattern(p)
			w.walkPatternDefaults(p, fnScope)
		}
		if v.Body != nil {
			w.walkStmts(v.Body.Stmts, newScope(fnScope))
		}

	case *ast.ArrowFunc:
		fnScope := newScope(sc)
		for _, p := range v.Params {
			fnScope.declarePattern(p)
			w.walkPatternDefaults(p, fnScope)
		}
		if block, ok := v.Body.(*ast.BlockStmt); ok {
			w.walkStmts(block.Stmts, newScope(fnScope))
		} else {
			w.walkNode(v.Body, fnScope)
		}

	case *ast.ClassDecl:
		w.walkClass(v, sc)

	case *ast.ClassExpr:
		inner := newScope(sc)
		if v.Decl.Name != nil {
			inner.declare(v.Decl.Name.Name)
		}
		w.walkClass(v.Decl, inner)

	case *ast.VarStmt:
		for _, d := range v.Decls {
			sc.declarePattern(d.Name)
			w.walkPatternDefaults(d.Name, sc)
			if d.Init != nil {
				w.walkNode(d.Init, sc)
			}
		}

	case *ast.TryStmt:
		w.walkNode(v.Block, sc)
		if v.Catch != nil {
			catchScope := newScope(sc)
			if v.CatchParam != nil {
				catchScope.declarePattern(v.CatchParam)
			}
			w.walkStmts(v.Catch.Stmts, catchScope)
		}
		if v.Finally != nil {
			w.walkNode(v.Finally, sc)
		}

	case *ast.ForStmt:
		loopScope := newScope(sc)
		if v.Init != nil {
			w.walkNode(v.Init, loopScope)
		}
		if v.Test != nil {
			w.walkNode(v.Test, loopScope)
		}
		if v.Update != nil {
			w.walkNode(v.Update, loopScope)
		}
		w.walkNode(v.Body, loopScope)

	case *ast.ForInOfStmt:
		loopScope := newScope(sc)
		if v.Decl != nil {
			for _, d := range v.Decl.Decls {
				loopScope.declarePattern(d.Name)
			}
		}
		if v.Left != nil {
			w.walkNode(v.Left, loopScope)
		}
		w.walkNode(v.Obj, loopScope)
		w.walkNode(v.Body, loopScope)

	case *ast.ObjectLit:
		for _, p := range v.Props {
			if p.KeyExpr != nil {
				w.walkNode(p.KeyExpr, sc)
			}
			if p.Value != nil {
				w.walkNode(p.Value, sc)
			}
		}

	case *ast.MemberExpr:
		w.walkNode(v.Obj, sc)
		if v.PropExpr != nil {
			w.walkNode(v.PropExpr, sc)
		}

	case *ast.ObjectPat, *ast.ArrayPat, *ast.AssignPat, *ast.RestPat:
		// patterns reached outside declaration position (assignment
		// targets) contribute their identifier leaves via generic walk
		ast.Walk(n, func(child ast.Node) bool {
			if child == n {
				return true
			}
			w.walkNode(child, sc)
			return false
		})

	default:
		ast.Walk(n, func(child ast.Node) bool {
			if child == n {
				return true
			}
			w.walkNode(child, sc)
			return false
		})
	}
}

// walkPatternDefaults visits default-value expressions inside a pattern;
// the bindings themselves are already declared.
func (w *refWalker) walkPatternDefaults(p ast.Pattern, sc *scope) {
	switch v := p.(type) {
	case *ast.AssignPat:
		w.walkNode(v.Right, sc)
		w.walkPatternDefaults(v.Left, sc)
	case *ast.ArrayPat:
		for _, el := range v.Elems {
			if el != nil {
				w.walkPatternDefaults(el, sc)
			}
		}
		if v.Rest != nil {
			w.walkPatternDefaults(v.Rest, sc)
		}
	case *ast.ObjectPat:
		for _, prop := range v.Props {
			if prop.Default != nil {
				w.walkNode(prop.Default, sc)
			}
			if prop.KeyExpr != nil {
				w.walkNode(prop.KeyExpr, sc)
			}
			if prop.Value != nil {
				w.walkPatternDefaults(prop.Value, sc)
			}
		}
		if v.Rest != nil {
			w.walkPatternDefaults(v.Rest, sc)
		}
	case *ast.RestPat:
		w.walkPatternDefaults(v.Arg, sc)
	}
}

func (w *refWalker) walkClass(cls *ast.ClassDecl, sc *scope) {
	if cls.SuperClass != nil {
		w.walkNode(cls.SuperClass, sc)
	}
	for _, m := range cls.Members {
		if m.KeyExpr != nil {
			w.walkNode(m.KeyExpr, sc)
		}
		memberScope := newScope(sc)
		for _, p := range m.Params {
			memberScope.declarePattern(p)
			w.walkPatternDefaults(p, memberScope)
		}
		if m.Body != nil {
			w.walkStmts(m.Body.Stmts, newScope(memberScope))
		}
		if m.Value != nil {
			w.walkNode(m.Value, memberScope)
		}
	}
}
