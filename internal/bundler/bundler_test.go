package bundler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funee/internal/config"
	"funee/internal/report"
	"funee/internal/testutil"
)

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		CacheDir:           t.TempDir(),
		HTTPTimeout:        5 * time.Second,
		MaxRedirects:       10,
		RemoteFetchWorkers: 4,
		MacroMaxIterations: 100,
		MacroTimeout:       5 * time.Second,
		WatchDebounce:      100 * time.Millisecond,
	}
}

func TestBundleRemoteImportAnnouncesAndCaches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "export function helper() { return \"remote helper\"; }")
	}))
	defer server.Close()
	url := server.URL + "/utils.ts"

	dir := testutil.CreateTempProject(t)
	entry := testutil.CreateTestFileInDir(t, dir, "entry.ts", fmt.Sprintf(`
import { helper } from %q;
export default function () { return helper(); }
`, url))

	settings := testSettings(t)
	var stderr bytes.Buffer
	b := New(settings, zerolog.Nop(), &stderr)

	first, err := b.Bundle(context.Background(), entry, Options{EmitOnly: true})
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "Fetched: "+url)
	assert.Contains(t, first.Bundle, "remote helper")

	// second run over the warm cache: same bytes, no Fetched line
	var stderr2 bytes.Buffer
	second, err := New(settings, zerolog.Nop(), &stderr2).Bundle(context.Background(), entry, Options{EmitOnly: true})
	require.NoError(t, err)
	assert.NotContains(t, stderr2.String(), "Fetched:")
	assert.Equal(t, first.Bundle, second.Bundle)
}

func TestBundleReloadPicksUpServerChange(t *testing.T) {
	body := "export const version = 1;"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer server.Close()
	url := server.URL + "/mod.ts"

	dir := testutil.CreateTempProject(t)
	entry := testutil.CreateTestFileInDir(t, dir, "entry.ts", fmt.Sprintf(`
import { version } from %q;
export default function () { return version; }
`, url))

	settings := testSettings(t)
	b := New(settings, zerolog.Nop(), &bytes.Buffer{})
	first, err := b.Bundle(context.Background(), entry, Options{EmitOnly: true})
	require.NoError(t, err)
	assert.Contains(t, first.Bundle, "version = 1")

	body = "export const version = 2;"
	var stderr bytes.Buffer
	second, err := New(settings, zerolog.Nop(), &stderr).Bundle(context.Background(), entry, Options{EmitOnly: true, Reload: true})
	require.NoError(t, err)
	assert.Contains(t, second.Bundle, "version = 2")
	assert.Contains(t, stderr.String(), "Fetched: "+url)
}

func TestBundleLocalFilesForWatch(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	utils := testutil.CreateTestFileInDir(t, dir, "utils.ts", `export const v = 1;`)
	entry := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { v } from "./utils.ts";
import { log } from "host://console";
export default function () { log(v); }
`)

	b := New(testSettings(t), zerolog.Nop(), &bytes.Buffer{})
	result, err := b.Bundle(context.Background(), entry, Options{EmitOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{entry, utils}, result.LocalFiles)
}

func TestBundleErrorsCarrySources(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	testutil.CreateTestFileInDir(t, dir, "x.ts", `export const present = 1;`)
	entry := testutil.CreateTestFileInDir(t, dir, "entry.ts", `
import { doesNotExist } from "./x.ts";
export default function () { return doesNotExist; }
`)

	b := New(testSettings(t), zerolog.Nop(), &bytes.Buffer{})
	result, err := b.Bundle(context.Background(), entry, Options{})
	require.Error(t, err)
	assert.Equal(t, report.MISSING_EXPORT, report.KindOf(err))
	assert.Contains(t, err.Error(), "doesNotExist")
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Files)
}

func TestBundleSyntaxErrorMentionsParse(t *testing.T) {
	dir := testutil.CreateTempProject(t)
	entry := testutil.CreateTestFileInDir(t, dir, "entry.ts", `export default function ( { return 1; }`)

	b := New(testSettings(t), zerolog.Nop(), &bytes.Buffer{})
	_, err := b.Bundle(context.Background(), entry, Options{})
	require.Error(t, err)
	assert.Equal(t, report.PARSE_ERROR, report.KindOf(err))
	assert.Regexp(t, "parse|expected", err.Error())
	assert.Contains(t, err.Error(), "entry.ts")
}
