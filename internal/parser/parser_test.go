package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funee/internal/ast"
)

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	m, err := ParseModule("/test/mod.ts", src)
	require.NoError(t, err)
	return m
}

func TestParseImports(t *testing.T) {
	m := parse(t, `
import { a, b as c } from "./x.ts";
import def from "./y.ts";
import * as ns from "./z.ts";
import "./side-effect.ts";
import type { T } from "./types.ts";
`)
	require.Len(t, m.Items, 5)

	first := m.Items[0].(*ast.ImportDecl)
	assert.Equal(t, "./x.ts", first.Specifier)
	require.Len(t, first.Clauses, 2)
	assert.Equal(t, "a", first.Clauses[0].Local)
	assert.Equal(t, "a", first.Clauses[0].Imported)
	assert.Equal(t, "c", first.Clauses[1].Local)
	assert.Equal(t, "b", first.Clauses[1].Imported)

	second := m.Items[1].(*ast.ImportDecl)
	require.Len(t, second.Clauses, 1)
	assert.Equal(t, ast.DEFAULT_IMPORT, second.Clauses[0].Kind)
	assert.Equal(t, "def", second.Clauses[0].Local)

	third := m.Items[2].(*ast.ImportDecl)
	require.Len(t, third.Clauses, 1)
	assert.Equal(t, ast.NAMESPACE_IMPORT, third.Clauses[0].Kind)
	assert.Equal(t, "ns", third.Clauses[0].Local)

	fourth := m.Items[3].(*ast.ImportDecl)
	assert.Empty(t, fourth.Clauses)
	assert.Equal(t, "./side-effect.ts", fourth.Specifier)

	fifth := m.Items[4].(*ast.ImportDecl)
	assert.True(t, fifth.TypeOnly)
	assert.Empty(t, fifth.Clauses)
}

func TestParseExports(t *testing.T) {
	m := parse(t, `
export const answer = 42;
export function helper() { return 1; }
export { helper as aliased };
export { original as renamed } from "./impl.ts";
export * from "./star.ts";
export default async function () { return answer; }
`)
	require.Len(t, m.Items, 6)

	vs := m.Items[0].(*ast.VarStmt)
	assert.True(t, vs.Exported)
	assert.Equal(t, "const", vs.Kind)

	fn := m.Items[1].(*ast.FuncDecl)
	assert.True(t, fn.Exported)
	assert.Equal(t, "helper", fn.Name.Name)

	named := m.Items[2].(*ast.ExportNamedDecl)
	assert.Empty(t, named.From)
	assert.Equal(t, "helper", named.Specifiers[0].Local)
	assert.Equal(t, "aliased", named.Specifiers[0].Exported)

	reexport := m.Items[3].(*ast.ExportNamedDecl)
	assert.Equal(t, "./impl.ts", reexport.From)
	assert.Equal(t, "original", reexport.Specifiers[0].Local)
	assert.Equal(t, "renamed", reexport.Specifiers[0].Exported)

	star := m.Items[4].(*ast.ExportStarDecl)
	assert.Equal(t, "./star.ts", star.From)

	def := m.Items[5].(*ast.ExportDefaultDecl)
	require.NotNil(t, def.Decl)
	assert.True(t, def.Decl.Async)
	assert.Nil(t, def.Decl.Name)
}

func TestParseDeclarationSpansAreExact(t *testing.T) {
	src := `const add = (a: number, b: number) => a + b;`
	m := parse(t, src)
	vs := m.Items[0].(*ast.VarStmt)
	d := vs.Decls[0]
	assert.Equal(t, "(a: number, b: number) => a + b", d.Init.Span().Slice(src))
}

func TestParseTypeSyntaxIsDiscarded(t *testing.T) {
	m := parse(t, `
interface Shape { area(): number; }
type Alias<T> = T | null;
export function area(s: Shape): number { return s.area(); }
const g = <T>(input: T): T => input;
`)
	require.Len(t, m.Items, 4)
	assert.Equal(t, "Shape", m.Items[0].(*ast.TypeDecl).Name)
	assert.Equal(t, "Alias", m.Items[1].(*ast.TypeDecl).Name)
	fn := m.Items[2].(*ast.FuncDecl)
	require.Len(t, fn.Params, 1)
	vs := m.Items[3].(*ast.VarStmt)
	_, isArrow := vs.Decls[0].Init.(*ast.ArrowFunc)
	assert.True(t, isArrow)
}

func TestParseExpressionForms(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"template literal", "const s = `a${1 + 2}b`;"},
		{"tagged template", "const s = tag`x${y}`;"},
		{"regex literal", `const r = /a+b/gi;`},
		{"member call chain", `const v = obj.a.b(1)(2)[c];`},
		{"optional chaining", `const v = a?.b?.(1);`},
		{"new expression", `const v = new Map([[1, 2]]);`},
		{"spread call", `f(...args, 1);`},
		{"async arrow", `const f = async (x) => await x;`},
		{"nested destructuring", `const { a: { b = 1 }, ...rest } = obj;`},
		{"array destructuring", `const [x, , y = 2, ...zs] = arr;`},
		{"class with members", `class A extends B { static n = 1; #hidden; constructor(x) { super(x); } get v() { return 1; } async m() {} }`},
		{"sequence and cond", `const v = (a, b ? c : d);`},
		{"as cast", `const v = x as unknown as string;`},
		{"satisfies", `const v = { a: 1 } satisfies Record<string, number>;`},
		{"generator", `function* gen() { yield* other(); yield 1; }`},
		{"logical assignment", `a ??= b; a ||= c; a &&= d;`},
		{"exponent", `const v = 2 ** 3 ** 2;`},
		{"labeled loop", `outer: for (const x of xs) { break outer; }`},
		{"for in", `for (const k in obj) { f(k); }`},
		{"for await", `async function g() { for await (const x of xs) { f(x); } }`},
		{"switch", `switch (x) { case 1: f(); break; default: g(); }`},
		{"try catch finally", `try { f(); } catch (e) { g(e); } finally { h(); }`},
		{"do while", `do { f(); } while (x);`},
		{"await using", `async function f() { await using res = open(); return res; }`},
		{"using", `function f() { using res = open(); return res; }`},
		{"object methods", `const o = { m() { return 1; }, async am() {}, get v() { return 2; }, [k]: 3, ...rest };`},
		{"non-null assertion", `const v = maybe!.field;`},
		{"generic arrow argument", `const c = wrap(<T>(input: T) => input);`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModule("/test/mod.ts", tt.src)
			assert.NoError(t, err)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing brace", `function f() {`},
		{"bad import", `import { from "./x";`},
		{"dangling export", `export ;`},
		{"bad expression", `const x = ;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModule("/test/mod.ts", tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "/test/mod.ts")
			assert.Regexp(t, "parse|expected", err.Error())
		})
	}
}

func TestParseExpressionText(t *testing.T) {
	expr, err := ParseExpressionText("macro-result", `(5) + 1`)
	require.NoError(t, err)
	_, ok := expr.(*ast.BinaryExpr)
	assert.True(t, ok)

	_, err = ParseExpressionText("macro-result", `1 2`)
	assert.Error(t, err)
}

func TestParseVarStmtMultipleDeclarators(t *testing.T) {
	m := parse(t, `let a = 1, b = 2;`)
	vs := m.Items[0].(*ast.VarStmt)
	require.Len(t, vs.Decls, 2)
}
