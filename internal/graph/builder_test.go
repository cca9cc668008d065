package graph

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
	"funee/internal/report"
	"funee/internal/resolver"
	"funee/internal/testutil"
)

func buildGraph(t *testing.T, entryURI string) (*Graph, error) {
	t.Helper()
	settings := &config.Settings{CacheDir: t.TempDir(), HTTPTimeout: time.Second}
	store := resolver.NewStore(fetch.New(settings, zerolog.Nop(), &bytes.Buffer{}, false))
	return Build(context.Background(), store, entryURI, zerolog.Nop())
}

func TestBuildTreeShakesUnusedDeclarations(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	utilsURI := testutil.CreateTestFileInDir(t, dir, "utils.ts", `
export function used() { return "used"; }
export function unused() { return "unused function - should NOT appear"; }
export function alsoUnused() { return "also unused - should NOT appear"; }
`)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { used } from "./utils.ts";
export default function () { return used(); }
`)

	g, err := buildGraph(t, entryURI)
	require.NoError(t, err)

	_, ok := g.Lookup(resolver.CanonicalName{URI: utilsURI, Name: "used"})
	assert.True(t, ok)
	_, ok = g.Lookup(resolver.CanonicalName{URI: utilsURI, Name: "unused"})
	assert.False(t, ok, "unreferenced declarations must never enter the graph")

	alive := g.Shake()
	require.Len(t, alive, 2)
	assert.Equal(t, g.Entry, alive[0].Canonical)
}

func TestBuildFollowsBarrelReExports(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	implURI := testutil.CreateTestFileInDir(t, dir, "impl.ts", `
export function helper() { return "helper called"; }
`)
	testutil.CreateTestFileInDir(t, dir, "barrel.ts", `
export { helper } from "./impl.ts";
`)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { helper } from "./barrel.ts";
export default function () { return helper(); }
`)

	g, err := buildGraph(t, entryURI)
	require.NoError(t, err)

	entry := g.EntryDecl()
	require.NotNil(t, entry)
	assert.Equal(t, resolver.CanonicalName{URI: implURI, Name: "helper"}, entry.References["helper"])
}

func TestBuildAliasedImportKeepsIdentity(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	implURI := testutil.CreateTestFileInDir(t, dir, "x.ts", `
export function helper() { return 7; }
export { helper as aliased };
`)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { aliased } from "./x.ts";
export default function () { return aliased(); }
`)

	g, err := buildGraph(t, entryURI)
	require.NoError(t, err)

	entry := g.EntryDecl()
	assert.Equal(t, resolver.CanonicalName{URI: implURI, Name: "helper"}, entry.References["aliased"])

	// exactly one declaration exists for the helper regardless of aliasing
	count := 0
	for _, d := range g.Decls {
		if d.Canonical.Name == "helper" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestBuildCircularDeclarations(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
function isEven(n: number): boolean { return n === 0 ? true : isOdd(n - 1); }
function isOdd(n: number): boolean { return n === 0 ? false : isEven(n - 1); }
export default function () { return isEven(10); }
`)

	g, err := buildGraph(t, entryURI)
	require.NoError(t, err)

	alive := g.Shake()
	names := make(map[string]int)
	for _, d := range alive {
		names[d.Canonical.Name]++
	}
	assert.Equal(t, 1, names["isEven"], "cycles must not duplicate declarations")
	assert.Equal(t, 1, names["isOdd"])
}

func TestBuildJSGlobalsAreNotEdges(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
export default function () { return Promise.resolve(JSON.stringify({ a: Math.max(1, 2) })); }
`)

	g, err := buildGraph(t, entryURI)
	require.NoError(t, err)
	assert.Empty(t, g.EntryDecl().References)
}

func TestBuildUnresolvedReference(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
export default function () { return mystery(); }
`)

	_, err := buildGraph(t, entryURI)
	require.Error(t, err)
	assert.Equal(t, report.UNRESOLVED_REFERENCE, report.KindOf(err))
	assert.Contains(t, err.Error(), "mystery")
}

func TestBuildMissingImportNamesSymbol(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "x.ts", `export const present = 1;`)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { doesNotExist } from "./x.ts";
export default function () { return doesNotExist; }
`)

	_, err := buildGraph(t, entryURI)
	require.Error(t, err)
	assert.Equal(t, report.MISSING_EXPORT, report.KindOf(err))
	assert.Contains(t, err.Error(), "doesNotExist")
}

func TestBuildHostModuleImports(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { readFile, writeFile } from "host://fs";
import { log } from "host://console";
export default async function () {
    log("starting");
    const content = await readFile("/tmp/in.txt");
    await writeFile("/tmp/out.txt", content);
}
`)

	g, err := buildGraph(t, entryURI)
	require.NoError(t, err)

	var hostDecls []string
	for _, d := range g.Decls {
		if d.Kind == HOST_DECL {
			hostDecls = append(hostDecls, d.HostNamespace+"."+d.HostExport)
		}
	}
	assert.ElementsMatch(t, []string{"fs.readFile", "fs.writeFile", "console.log"}, hostDecls)
}

func TestBuildMacroDetection(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "macro-lib.ts", `
export function createMacro<T, R>(fn: (closure: T) => R): (value: T) => R {
    throw new Error("Macro not expanded");
}
export const closure = createMacro(<T>(input: T) => {
    return input;
});
`)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { closure } from "./macro-lib.ts";
const add = (a: number, b: number) => a + b;
const addClosure = closure(add);
export default function () { return addClosure; }
`)

	g, err := buildGraph(t, entryURI)
	require.NoError(t, err)

	var macros, plain []string
	for _, d := range g.Decls {
		if d.Kind == MACRO_DECL {
			macros = append(macros, d.Canonical.Name)
		}
		if d.Canonical.Name == "createMacro" {
			plain = append(plain, d.Kind.String())
		}
	}
	assert.Equal(t, []string{"closure"}, macros)
	assert.Equal(t, []string{"function"}, plain, "createMacro itself is a regular function")
}

func TestBuildSideEffectImportPullsNothing(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "effects.ts", `
export function sideEffect() { return "side effect - should NOT appear"; }
`)
	entryURI := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import "./effects.ts";
export default function () { return 1; }
`)

	g, err := buildGraph(t, entryURI)
	require.NoError(t, err)
	assert.Len(t, g.Shake(), 1)
}
