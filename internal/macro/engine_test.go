package macro

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funee/internal/config"
	"funee/internal/fetch"
	"funee/internal/graph"
	"funee/internal/report"
	"funee/internal/resolver"
	"funee/internal/testutil"
)

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		CacheDir:           t.TempDir(),
		HTTPTimeout:        time.Second,
		MacroMaxIterations: 100,
		MacroTimeout:       5 * time.Second,
	}
}

func expand(t *testing.T, settings *config.Settings, entryURI string) (*graph.Graph, error) {
	t.Helper()
	store := resolver.NewStore(fetch.New(settings, zerolog.Nop(), &bytes.Buffer{}, false))
	g, err := graph.Build(context.Background(), store, entryURI, zerolog.Nop())
	require.NoError(t, err)
	engine := NewEngine(g, settings, zerolog.Nop())
	return g, engine.Expand(context.Background())
}

const macroLib = `
export function createMacro<T, R>(fn: (closure: T) => R): (value: T) => R {
    throw new Error("Macro not expanded");
}
`

func TestExpandSimpleMacro(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "macro-lib.ts", macroLib)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { createMacro } from "./macro-lib.ts";
const addOne = createMacro((arg) => ({ expression: "(" + arg.expression + ") + 1", references: new Map() }));
export default function () { return addOne(5); }
`)

	g, err := expand(t, testSettings(t), entryURI)
	require.NoError(t, err)

	entry := g.EntryDecl()
	assert.Contains(t, entry.Text, "5) + 1")
	assert.NotContains(t, entry.Text, "addOne(")
	_, hasStale := entry.References["addOne"]
	assert.False(t, hasStale, "expanded call-sites must not keep the macro alive")
}

func TestExpandCapturesArgumentReferences(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "macro-lib.ts", macroLib)
	otherURI := testutil.CreateTestFileInDir(t, dir, "other.ts", `
export const add = (a: number, b: number) => a + b;
`)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { createMacro } from "./macro-lib.ts";
import { add } from "./other.ts";
const capture = createMacro((arg) => {
    const ref = arg.references.get("add");
    return {
        expression: "[" + JSON.stringify(ref.uri) + ", " + JSON.stringify(ref.name) + "]",
        references: new Map(),
    };
});
export default function () { return capture(add(1, 2)); }
`)

	g, err := expand(t, testSettings(t), entryURI)
	require.NoError(t, err)

	entry := g.EntryDecl()
	assert.Contains(t, entry.Text, `"add"`)
	assert.Contains(t, entry.Text, otherURI)
}

func TestExpandMergesReturnedReferences(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "macro-lib.ts", macroLib)
	helperURI := testutil.CreateTestFileInDir(t, dir, "helper.ts", `
export function twice(n: number) { return n * 2; }
`)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { createMacro } from "./macro-lib.ts";
import { twice } from "./helper.ts";
const viaMacro = createMacro((arg) => {
    const refs = arg.references;
    return { expression: "twice(" + arg.expression + ")", references: refs };
});
export default function () { return viaMacro(twice(3)); }
`)

	g, err := expand(t, testSettings(t), entryURI)
	require.NoError(t, err)

	entry := g.EntryDecl()
	assert.Equal(t, resolver.CanonicalName{URI: helperURI, Name: "twice"}, entry.References["twice"])
	_, ok := g.Lookup(resolver.CanonicalName{URI: helperURI, Name: "twice"})
	assert.True(t, ok)
}

func TestExpandEmptyReferences(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "macro-lib.ts", macroLib)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { createMacro } from "./macro-lib.ts";
const constant = createMacro(() => ({ expression: "42", references: new Map() }));
export default function () { return constant(); }
`)

	g, err := expand(t, testSettings(t), entryURI)
	require.NoError(t, err)
	assert.Contains(t, g.EntryDecl().Text, "(42)")
}

func TestExpandPlainObjectReferencesNormalized(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "macro-lib.ts", macroLib)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { createMacro } from "./macro-lib.ts";
const m = createMacro((arg) => ({ expression: "7", references: {} }));
export default function () { return m(1); }
`)

	g, err := expand(t, testSettings(t), entryURI)
	require.NoError(t, err)
	assert.Contains(t, g.EntryDecl().Text, "(7)")
}

func TestExpandSelfReplicatingMacroHitsCap(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "macro-lib.ts", macroLib)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { createMacro } from "./macro-lib.ts";
const forever = createMacro((arg) => ({
    expression: "forever(" + arg.expression + ")",
    references: arg.references,
}));
export default function () { return forever(1); }
`)

	settings := testSettings(t)
	_, err := expand(t, settings, entryURI)
	require.Error(t, err)
	assert.Equal(t, report.MACRO_RECURSION, report.KindOf(err))
	assert.Contains(t, err.Error(), "Macro expansion exceeded max iterations")
}

func TestExpandBadReturnShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no expression", `(arg) => ({ references: new Map() })`},
		{"not an object", `(arg) => 42`},
		{"null", `(arg) => null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.CreateTempProject(t)
			testutil.CreateTestFileInDir(t, dir, "macro-lib.ts", macroLib)
			entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { createMacro } from "./macro-lib.ts";
const bad = createMacro(`+tt.body+`);
export default function () { return bad(1); }
`)
			_, err := expand(t, testSettings(t), entryURI)
			require.Error(t, err)
			assert.Equal(t, report.MACRO_RETURN_SHAPE, report.KindOf(err))
		})
	}
}

func TestExpandTimeout(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "macro-lib.ts", macroLib)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { createMacro } from "./macro-lib.ts";
const spin = createMacro((arg) => { while (true) {} });
export default function () { return spin(1); }
`)

	settings := testSettings(t)
	settings.MacroTimeout = 100 * time.Millisecond
	_, err := expand(t, settings, entryURI)
	require.Error(t, err)
	assert.Equal(t, report.MACRO_TIMEOUT, report.KindOf(err))
}

func TestExpandSpreadYieldsClosurePerElement(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "macro-lib.ts", macroLib)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { createMacro } from "./macro-lib.ts";
const join = createMacro((...parts) => ({
    expression: "[" + parts.map((p) => p.expression).join(", ") + "]",
    references: new Map(),
}));
export default function () { return join(...[1, 2, 3]); }
`)

	g, err := expand(t, testSettings(t), entryURI)
	require.NoError(t, err)
	assert.Contains(t, g.EntryDecl().Text, "[1, 2, 3]")
}
