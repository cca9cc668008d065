package resolver

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
	"funee/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	settings := &config.Settings{
		CacheDir:    t.TempDir(),
		HTTPTimeout: time.Second,
	}
	return NewStore(fetch.New(settings, zerolog.Nop(), &bytes.Buffer{}, false))
}

func TestResolveExportLocal(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	uri := testutil.CreateTestFileInDir(t, dir, "mod.ts", `
export function helper() { return 1; }
export const value = 2;
`)
	s := newTestStore(t)
	ctx := context.Background()

	cn, err := s.ResolveExport(ctx, uri, "helper")
	require.NoError(t, err)
	assert.Equal(t, CanonicalName{URI: uri, Name: "helper"}, cn)

	_, err = s.ResolveExport(ctx, uri, "missing")
	require.Error(t, err)
	assert.Equal(t, report.MISSING_EXPORT, report.KindOf(err))
	assert.Contains(t, err.Error(), "missing")
}

func TestResolveExportAliasKeepsCanonicalIdentity(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	implURI := testutil.CreateTestFileInDir(t, dir, "impl.ts", `
export function helper() { return "helper called"; }
`)
	barrelURI := testutil.CreateTestFileInDir(t, dir, "barrel.ts", `
export { helper as aliased } from "./impl.ts";
`)
	s := newTestStore(t)

	cn, err := s.ResolveExport(context.Background(), barrelURI, "aliased")
	require.NoError(t, err)
	assert.Equal(t, CanonicalName{URI: implURI, Name: "helper"}, cn)
}

func TestResolveExportChain(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	implURI := testutil.CreateTestFileInDir(t, dir, "impl.ts", `export const leaf = 1;`)
	testutil.CreateTestFileInDir(t, dir, "mid.ts", `export { leaf } from "./impl.ts";`)
	outerURI := testutil.CreateTestFileInDir(t, dir, "outer.ts", `export { leaf as tip } from "./mid.ts";`)
	s := newTestStore(t)

	cn, err := s.ResolveExport(context.Background(), outerURI, "tip")
	require.NoError(t, err)
	assert.Equal(t, CanonicalName{URI: implURI, Name: "leaf"}, cn)
}

func TestResolveExportLocalAliasOfImport(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	implURI := testutil.CreateTestFileInDir(t, dir, "impl.ts", `export const thing = 1;`)
	midURI := testutil.CreateTestFileInDir(t, dir, "mid.ts", `
import { thing } from "./impl.ts";
export { thing };
`)
	s := newTestStore(t)

	cn, err := s.ResolveExport(context.Background(), midURI, "thing")
	require.NoError(t, err)
	assert.Equal(t, CanonicalName{URI: implURI, Name: "thing"}, cn)
}

func TestResolveStarExports(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	aURI := testutil.CreateTestFileInDir(t, dir, "a.ts", `
export const fromA = 1;
export default function () {}
`)
	testutil.CreateTestFileInDir(t, dir, "b.ts", `export const fromB = 2;`)
	barrelURI := testutil.CreateTestFileInDir(t, dir, "barrel.ts", `
export * from "./a.ts";
export * from "./b.ts";
`)
	s := newTestStore(t)
	ctx := context.Background()

	cn, err := s.ResolveExport(ctx, barrelURI, "fromA")
	require.NoError(t, err)
	assert.Equal(t, CanonicalName{URI: aURI, Name: "fromA"}, cn)

	// star re-exports never forward the default export
	_, err = s.ResolveExport(ctx, barrelURI, "default")
	require.Error(t, err)
	assert.Equal(t, report.MISSING_EXPORT, report.KindOf(err))
}

func TestResolveStarOverEmptyModule(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "empty.ts", `// nothing here`)
	barrelURI := testutil.CreateTestFileInDir(t, dir, "barrel.ts", `
export * from "./empty.ts";
export const own = 1;
`)
	s := newTestStore(t)

	// an empty union is not an error; the module's own exports still work
	cn, err := s.ResolveExport(context.Background(), barrelURI, "own")
	require.NoError(t, err)
	assert.Equal(t, "own", cn.Name)

	_, err = s.ResolveExport(context.Background(), barrelURI, "ghost")
	require.Error(t, err)
	assert.Equal(t, report.MISSING_EXPORT, report.KindOf(err))
}

func TestResolveAmbiguousStarExport(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "a.ts", `export const clash = 1;`)
	testutil.CreateTestFileInDir(t, dir, "b.ts", `export const clash = 2;`)
	barrelURI := testutil.CreateTestFileInDir(t, dir, "barrel.ts", `
export * from "./a.ts";
export * from "./b.ts";
`)
	s := newTestStore(t)

	_, err := s.ResolveExport(context.Background(), barrelURI, "clash")
	require.Error(t, err)
	assert.Equal(t, report.AMBIGUOUS_STAR_EXPORT, report.KindOf(err))
}

func TestResolveSameDeclarationThroughTwoStarsIsNotAmbiguous(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	implURI := testutil.CreateTestFileInDir(t, dir, "impl.ts", `export const shared = 1;`)
	testutil.CreateTestFileInDir(t, dir, "x.ts", `export * from "./impl.ts";`)
	testutil.CreateTestFileInDir(t, dir, "y.ts", `export * from "./impl.ts";`)
	barrelURI := testutil.CreateTestFileInDir(t, dir, "barrel.ts", `
export * from "./x.ts";
export * from "./y.ts";
`)
	s := newTestStore(t)

	cn, err := s.ResolveExport(context.Background(), barrelURI, "shared")
	require.NoError(t, err)
	assert.Equal(t, CanonicalName{URI: implURI, Name: "shared"}, cn)
}

func TestResolveReExportCycle(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "a.ts", `export { ghost } from "./b.ts";`)
	bURI := testutil.CreateTestFileInDir(t, dir, "b.ts", `export { ghost } from "./a.ts";`)
	s := newTestStore(t)

	_, err := s.ResolveExport(context.Background(), bURI, "ghost")
	require.Error(t, err)
	assert.Equal(t, report.RE_EXPORT_CYCLE, report.KindOf(err))
}

func TestResolveHostExports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cn, err := s.ResolveExport(ctx, "host://fs", "readFile")
	require.NoError(t, err)
	assert.Equal(t, CanonicalName{URI: "host://fs", Name: "readFile"}, cn)

	_, err = s.ResolveExport(ctx, "host://fs", "nope")
	require.Error(t, err)
	assert.Equal(t, report.MISSING_EXPORT, report.KindOf(err))
}

func TestStdlibReExportsHostConsole(t *testing.T) {
	s := newTestStore(t)
	cn, err := s.ResolveExport(context.Background(), fetch.StdlibURI, "log")
	require.NoError(t, err)
	assert.Equal(t, CanonicalName{URI: "host://console", Name: "log"}, cn)
}

func TestAllExportNames(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "inner.ts", `
export const one = 1;
export default function () {}
`)
	outerURI := testutil.CreateTestFileInDir(t, dir, "outer.ts", `
export * from "./inner.ts";
export const two = 2;
`)
	s := newTestStore(t)

	names, err := s.AllExportNames(context.Background(), outerURI)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, names)
}
