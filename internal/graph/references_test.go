package graph

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funee/internal/parser"
)

func freeNames(t *testing.T, src string) []string {
	t.Helper()
	m, err := parser.ParseModule("/test/free.ts", src)
	require.NoError(t, err)
	require.NotEmpty(t, m.Items)
	set := make(map[string]bool)
	for _, ident := range FreeIdentifiers(m.Items[0], nil) {
		set[ident.Name] = true
	}
	var names []string
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func TestFreeIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "params are bound",
			src:  `function f(a, b) { return a + b + c; }`,
			want: []string{"c"},
		},
		{
			name: "own function name is free for renaming",
			src:  `function fact(n) { return n <= 1 ? 1 : n * fact(n - 1); }`,
			want: []string{"fact"},
		},
		{
			name: "block locals shadow",
			src:  `function f() { const x = outer; { const outer = 1; use(outer); } return x; }`,
			want: []string{"outer", "use"},
		},
		{
			name: "hoisted sibling functions",
			src:  `function f() { return g(); function g() { return h; } }`,
			want: []string{"h"},
		},
		{
			name: "arrow params and defaults",
			src:  `function f() { const g = (a = fallback) => a + captured; return g; }`,
			want: []string{"captured", "fallback"},
		},
		{
			name: "destructuring binds",
			src:  `function f({ a, b: { c } }, [d]) { return a + c + d + e; }`,
			want: []string{"e"},
		},
		{
			name: "catch param bound",
			src:  `function f() { try { risky(); } catch (err) { report(err); } }`,
			want: []string{"report", "risky"},
		},
		{
			name: "member props are not references",
			src:  `function f() { return obj.prop.deep; }`,
			want: []string{"obj"},
		},
		{
			name: "object keys are not references",
			src:  `function f() { return { key: value, shorthand, [computed]: 1 }; }`,
			want: []string{"computed", "shorthand", "value"},
		},
		{
			name: "for-of binding bound",
			src:  `function f() { for (const item of items) { use(item); } }`,
			want: []string{"items", "use"},
		},
		{
			name: "class members",
			src:  `class A extends Base { m(x) { return x + this.n + helper(); } }`,
			want: []string{"Base", "helper"},
		},
		{
			name: "template substitutions",
			src:  "function f(a) { return `v=${a + b}`; }",
			want: []string{"b"},
		},
		{
			name: "function expression name is local",
			src:  `const f = function self() { return self; };`,
			want: nil,
		},
		{
			name: "var statement init",
			src:  `const x = other + 1;`,
			want: []string{"other"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, freeNames(t, tt.src))
		})
	}
}

func TestFreeIdentifierSpans(t *testing.T) {
	src := `function f() { return used + used; }`
	m, err := parser.ParseModule("/test/spans.ts", src)
	require.NoError(t, err)
	idents := FreeIdentifiers(m.Items[0], nil)
	require.Len(t, idents, 2)
	for _, ident := range idents {
		assert.Equal(t, "used", src[ident.Span.Start:ident.Span.End])
	}
}

func TestFreeIdentifiersWithBoundSeed(t *testing.T) {
	m, err := parser.ParseModule("/test/seed.ts", `const v = a + b;`)
	require.NoError(t, err)
	idents := FreeIdentifiers(m.Items[0], []string{"a"})
	require.Len(t, idents, 1)
	assert.Equal(t, "b", idents[0].Name)
}

func TestIsJSGlobal(t *testing.T) {
	assert.True(t, IsJSGlobal("Promise"))
	assert.True(t, IsJSGlobal("console"))
	assert.True(t, IsJSGlobal("setTimeout"))
	assert.False(t, IsJSGlobal("helper"))
}
