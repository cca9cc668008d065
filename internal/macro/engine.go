package macro

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"funee/internal/ast"
	"funee/internal/config"
	"funee/internal/graph"
	"funee/internal/report"
	"funee/internal/resolver"
	"funee/internal/source"
)

// Closure is the bundler-time record handed to macro bodies: one
// argument's verbatim source plus the canonical names of its free
// identifiers.
type Closure struct {
	Expression string
	References map[string]resolver.CanonicalName
}

// Result is a macro's normalized return value.
type Result struct {
	Expression string
	References map[string]resolver.CanonicalName
}

// Engine runs the fixed-point expansion loop over a built graph.
type Engine struct {
	graph    *graph.Graph
	settings *config.Settings
	log      zerolog.Logger
}

func NewEngine(g *graph.Graph, settings *config.Settings, log zerolog.Logger) *Engine {
	return &Engine{graph: g, settings: settings, log: log}
}

// callSite is one expandable macro call inside a declaration.
type callSite struct {
	decl  *graph.Decl
	call  *ast.CallExpr
	macro *graph.Decl
}

// Expand rewrites every macro call-site until a full pass finds none.
// Exceeding the iteration cap is MacroRecursion.
func (e *Engine) Expand(ctx context.Context) error {
	for iteration := 0; ; iteration++ {
		if iteration >= e.settings.MacroMaxIterations {
			return report.New(report.MACRO_RECURSION, "", nil,
				"Macro expansion exceeded max iterations (%d)", e.settings.MacroMaxIterations)
		}

		sites := e.scan()
		if len(sites) == 0 {
			return nil
		}
		e.log.Debug().Int("iteration", iteration).Int("sites", len(sites)).Msg("expanding macro calls")

		// group per declaration so text edits can be applied back to front
		perDecl := make(map[int][]callSite)
		var declOrder []int
		for _, site := range sites {
			if _, ok := perDecl[site.decl.ID]; !ok {
				declOrder = append(declOrder, site.decl.ID)
			}
			perDecl[site.decl.ID] = append(perDecl[site.decl.ID], site)
		}
		sort.Ints(declOrder)

		for _, declID := range declOrder {
			if err := e.expandInDecl(ctx, perDecl[declID]); err != nil {
				return err
			}
		}
	}
}

// scan finds the top-level macro call-sites of every non-macro
// declaration, in discovery order.
func (e *Engine) scan() []callSite {
	var sites []callSite
	for _, decl := range e.graph.Decls {
		if decl.Kind == graph.MACRO_DECL || decl.Node == nil {
			continue
		}
		d := decl
		ast.Walk(decl.Node, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			callee, ok := call.Callee.(*ast.Ident)
			if !ok {
				return true
			}
			target, ok := d.References[callee.Name]
			if !ok {
				return true
			}
			macroDecl, ok := e.graph.Lookup(target)
			if !ok || macroDecl.Kind != graph.MACRO_DECL {
				return true
			}
			sites = append(sites, callSite{decl: d, call: call, macro: macroDecl})
			return false // nested calls expand on a later iteration
		})
	}
	return sites
}

// expandInDecl evaluates every site of one declaration (in source order)
// and splices the results back in one text rewrite.
func (e *Engine) expandInDecl(ctx context.Context, sites []callSite) error {
	decl := sites[0].decl
	sort.Slice(sites, func(i, j int) bool {
		return sites[i].call.Span().Start < sites[j].call.Span().Start
	})

	type edit struct {
		span source.Span
		text string
	}
	var edits []edit

	for _, site := range sites {
		args := e.captureArgs(site)
		result, err := e.invoke(site.macro, args)
		if err != nil {
			return err
		}
		// make sure every returned canonical name is a declaration, and
		// record it under the identifier the macro used for it
		for name, cn := range result.References {
			if _, err := e.graph.Ensure(ctx, cn); err != nil {
				return err
			}
			decl.References[name] = cn
		}
		edits = append(edits, edit{span: site.call.Span(), text: "(" + result.Expression + ")"})
	}

	text := decl.Text
	for i := len(edits) - 1; i >= 0; i-- {
		ed := edits[i]
		text = text[:ed.span.Start] + ed.text + text[ed.span.End:]
	}
	decl.Text = text

	if err := decl.Reanalyze(); err != nil {
		return report.Wrap(err, report.MACRO_RETURN_SHAPE, decl.Canonical.URI,
			"macro expansion produced unparsable code in %s: %v", decl.Canonical, err)
	}
	return e.graph.ReresolveDecl(ctx, decl)
}

// captureArgs builds the Closure records for a call-site. A spread of an
// array literal yields one Closure per element.
func (e *Engine) captureArgs(site callSite) []Closure {
	var out []Closure
	for _, arg := range site.call.Args {
		if spread, ok := arg.(*ast.SpreadExpr); ok {
			if arr, ok := spread.Arg.(*ast.ArrayLit); ok {
				for _, el := range arr.Elems {
					if el != nil {
						out = append(out, e.capture(site.decl, el))
					}
				}
				continue
			}
			out = append(out, e.capture(site.decl, spread.Arg))
			continue
		}
		out = append(out, e.capture(site.decl, arg))
	}
	return out
}

// capture packages one argument expression: its verbatim source and the
// sub-map of the enclosing declaration's references restricted to
// identifiers free in the argument.
func (e *Engine) capture(decl *graph.Decl, arg ast.Expression) Closure {
	c := Closure{
		Expression: arg.Span().Slice(decl.Text),
		References: make(map[string]resolver.CanonicalName),
	}
	for _, free := range graph.FreeIdentifiers(arg, nil) {
		if cn, ok := decl.References[free.Name]; ok {
			c.References[free.Name] = cn
		}
	}
	c.Expression = strings.TrimSpace(c.Expression)
	return c
}
