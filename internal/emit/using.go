package emit

import (
	"fmt"

	"funee/internal/ast"
	"funee/internal/graph"
	"funee/internal/source"
)

// Explicit resource management is syntactic sugar: `using x = open()`
// becomes a const binding plus a try/finally that calls the symbol-keyed
// dispose method over the rest of the block. The embedded runtime has no
// native support, so every using-statement is lowered here.

// lowerUsings produces the text edits that lower each using-statement in
// a declaration's body.
func (e *Emitter) lowerUsings(d *graph.Decl) []edit {
	if d.Node == nil {
		return nil
	}
	var edits []edit
	counter := 0

	ast.Walk(d.Node, func(n ast.Node) bool {
		block, ok := n.(*ast.BlockStmt)
		if !ok {
			return true
		}
		// innermost-first is unnecessary: the edits are position-based and
		// never overlap, insertions compose regardless of nesting
		for _, st := range block.Stmts {
			vs, ok := st.(*ast.VarStmt)
			if !ok {
				continue
			}
			if vs.Kind != "using" && vs.Kind != "await using" {
				continue
			}
			edits = append(edits, e.lowerOneUsing(d, block, vs, &counter)...)
		}
		return true
	})
	return edits
}

func (e *Emitter) lowerOneUsing(d *graph.Decl, block *ast.BlockStmt, vs *ast.VarStmt, counter *int) []edit {
	if len(vs.Decls) == 0 {
		return nil
	}
	var edits []edit

	// `using ` / `await using ` -> `const `
	kindSpan := source.NewSpan(vs.Span().Start, vs.Decls[0].Span().Start)
	edits = append(edits, edit{span: kindSpan, text: "const "})

	// open the try right after the statement...
	after := vs.Span().End
	edits = append(edits, edit{span: source.NewSpan(after, after), text: " try {"})

	// ...and close it before the block's closing brace, disposing every
	// binding in reverse declaration order
	finallyBody := ""
	for i := len(vs.Decls) - 1; i >= 0; i-- {
		names := ast.PatternNames(vs.Decls[i].Name)
		for j := len(names) - 1; j >= 0; j-- {
			tmp := fmt.Sprintf("__funee_dispose_%d", *counter)
			*counter++
			if vs.Kind == "await using" {
				finallyBody += fmt.Sprintf(
					" const %s = %s && (%s[Symbol.asyncDispose] ?? %s[Symbol.dispose]); if (%s) await %s.call(%s);",
					tmp, names[j], names[j], names[j], tmp, tmp, names[j])
			} else {
				finallyBody += fmt.Sprintf(
					" const %s = %s && %s[Symbol.dispose]; if (%s) %s.call(%s);",
					tmp, names[j], names[j], tmp, tmp, names[j])
			}
		}
	}
	closeAt := block.Span().End - 1
	edits = append(edits, edit{
		span: source.NewSpan(closeAt, closeAt),
		text: fmt.Sprintf("} finally {%s } ", finallyBody),
	})
	return edits
}
