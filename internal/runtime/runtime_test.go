package runtime

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funee/internal/config"
	"funee/internal/report"
)

func newTestRuntime(t *testing.T) (*Runtime, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	settings := &config.Settings{HTTPTimeout: 5 * time.Second}
	var stdout, stderr bytes.Buffer
	return New(settings, zerolog.Nop(), &stdout, &stderr), &stdout, &stderr
}

func TestExecuteLogOp(t *testing.T) {
	rt, stdout, _ := newTestRuntime(t)
	err := rt.Execute(`__funee_ops.log("hello world");`)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", stdout.String())
}

func TestExecuteConsoleGoesToStdout(t *testing.T) {
	rt, stdout, _ := newTestRuntime(t)
	err := rt.Execute(`console.log("via console");`)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "via console")
}

func TestExecuteHostPreambleShape(t *testing.T) {
	rt, stdout, _ := newTestRuntime(t)
	err := rt.Execute(`
var __host_console = ({
    log: (...args) => __funee_ops.log(args.map((a) => typeof a === "string" ? a : JSON.stringify(a)).join(" ")),
    debug: (...args) => __funee_ops.debug(args.join(" "))
});
var declaration_1 = __host_console.log;
var declaration_0 = function () { declaration_1("helper called"); };
declaration_0();
`)
	require.NoError(t, err)
	assert.Equal(t, "helper called\n", stdout.String())
}

func TestExecuteTimersDriveEventLoop(t *testing.T) {
	rt, stdout, _ := newTestRuntime(t)
	err := rt.Execute(`
setTimeout(() => { __funee_ops.log("later"); }, 10);
__funee_ops.log("now");
`)
	require.NoError(t, err)
	assert.Equal(t, "now\nlater\n", stdout.String())
}

func TestExecuteAsyncEntryRunsToCompletion(t *testing.T) {
	rt, stdout, _ := newTestRuntime(t)
	err := rt.Execute(`
var declaration_0 = async function () {
    await new Promise((resolve) => setTimeout(resolve, 5));
    __funee_ops.log("after await");
};
declaration_0();
`)
	require.NoError(t, err)
	assert.Equal(t, "after await\n", stdout.String())
}

func TestExecuteFsOps(t *testing.T) {
	rt, stdout, _ := newTestRuntime(t)
	dir := t.TempDir()
	target := filepath.ToSlash(filepath.Join(dir, "note.txt"))
	err := rt.Execute(`
const w = __funee_ops.fsWriteFile("` + target + `", "written from js");
if (w.type !== "ok") throw new Error(w.error);
const r = __funee_ops.fsReadFile("` + target + `");
if (r.type !== "ok") throw new Error(r.error);
__funee_ops.log(r.value);
__funee_ops.log(String(__funee_ops.fsIsFile("` + target + `")));
__funee_ops.log(String(__funee_ops.fsExists("` + target + `/missing")));
`)
	require.NoError(t, err)
	assert.Equal(t, "written from js\ntrue\nfalse\n", stdout.String())

	data, err := os.ReadFile(filepath.FromSlash(target))
	require.NoError(t, err)
	assert.Equal(t, "written from js", string(data))
}

func TestExecuteRandomBytes(t *testing.T) {
	rt, stdout, _ := newTestRuntime(t)
	err := rt.Execute(`
const hex = __funee_ops.randomBytes(16);
__funee_ops.log(String(hex.length));
`)
	require.NoError(t, err)
	assert.Equal(t, "32\n", stdout.String())
}

func TestExecuteRuntimeErrorSurfaces(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	err := rt.Execute(`throw new Error("plain failure");`)
	require.Error(t, err)
	assert.Equal(t, report.PARSE_ERROR, report.KindOf(err))
	assert.Contains(t, err.Error(), "plain failure")
}

func TestExecuteCreateMacroBackstopHasOwnKind(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	err := rt.Execute(`throw new Error("CreateMacroUnexpanded: createMacro reached the runtime; macro was not expanded");`)
	require.Error(t, err)
	assert.Equal(t, report.CREATE_MACRO_UNEXPANDED, report.KindOf(err))
	assert.Contains(t, err.Error(), "CreateMacroUnexpanded")

	// the rejection path classifies the same way
	err = rt.Execute(`Promise.reject(new Error("CreateMacroUnexpanded: boom"));`)
	require.Error(t, err)
	assert.Equal(t, report.CREATE_MACRO_UNEXPANDED, report.KindOf(err))
}

func TestExecuteUnhandledRejectionFails(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	err := rt.Execute(`Promise.reject(new Error("nope"));`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}
