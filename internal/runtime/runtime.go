package runtime

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/rs/zerolog"

	"funee/internal/config"
	"funee/internal/report"
)

// Runtime executes an emitted bundle in an embedded goja engine with a
// cooperative event loop. Host capabilities reach the bundle through the
// __funee_ops bridge object the preamble binds against.
type Runtime struct {
	settings *config.Settings
	log      zerolog.Logger
	stdout   io.Writer
	stderr   io.Writer
}

func New(settings *config.Settings, log zerolog.Logger, stdout, stderr io.Writer) *Runtime {
	return &Runtime{settings: settings, log: log, stdout: stdout, stderr: stderr}
}

// Execute runs the bundle to completion: the main script, then every
// timer and pending job the script scheduled.
func (r *Runtime) Execute(bundle string) error {
	program, err := goja.Compile("bundle.js", bundle, false)
	if err != nil {
		return report.Wrap(err, report.PARSE_ERROR, "bundle.js", "emitted bundle does not compile: %v", err)
	}

	loop := eventloop.NewEventLoop(eventloop.EnableConsole(false))
	var execErr error
	var rejection goja.Value

	loop.Run(func(vm *goja.Runtime) {
		registry := new(require.Registry)
		registry.Enable(vm)
		registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(&stdPrinter{out: r.stdout, err: r.stderr}))
		console.Enable(vm)

		vm.SetPromiseRejectionTracker(func(p *goja.Promise, op goja.PromiseRejectionOperation) {
			if op == goja.PromiseRejectionReject {
				rejection = p.Result()
			} else {
				rejection = nil
			}
		})

		ops := vm.NewObject()
		r.installCoreOps(vm, ops)
		r.installHTTPOps(vm, loop, ops)
		r.installProcessOps(vm, ops)
		r.installWatchOps(vm, ops)
		_ = vm.Set("__funee_ops", ops)

		if _, err := vm.RunProgram(program); err != nil {
			execErr = err
		}
	})

	if execErr != nil {
		if isCreateMacroBackstop(execErr.Error()) {
			return report.Wrap(execErr, report.CREATE_MACRO_UNEXPANDED, "bundle.js",
				"createMacro reached the runtime: %v", execErr)
		}
		return report.Wrap(execErr, report.PARSE_ERROR, "bundle.js", "runtime error: %v", execErr)
	}
	if rejection != nil {
		if isCreateMacroBackstop(rejection.String()) {
			return report.New(report.CREATE_MACRO_UNEXPANDED, "bundle.js", nil,
				"createMacro reached the runtime: %s", rejection.String())
		}
		return report.New(report.PARSE_ERROR, "bundle.js", nil, "unhandled promise rejection: %s", rejection.String())
	}
	return nil
}

// isCreateMacroBackstop recognizes the error the synthesized createMacro
// throws when an unexpanded macro is invoked at runtime.
func isCreateMacroBackstop(message string) bool {
	return strings.Contains(message, "CreateMacroUnexpanded")
}

// stdPrinter routes console output to the process streams instead of the
// Go log package.
type stdPrinter struct {
	out io.Writer
	err io.Writer
}

func (p *stdPrinter) Log(s string)   { fmt.Fprintln(p.out, s) }
func (p *stdPrinter) Warn(s string)  { fmt.Fprintln(p.err, s) }
func (p *stdPrinter) Error(s string) { fmt.Fprintln(p.err, s) }

// fs results use the envelope shape the standard library unwraps:
// { type: "ok", value } or { type: "error", error }.
func fsOK(value any) map[string]any {
	return map[string]any{"type": "ok", "value": value}
}

func fsErr(format string, args ...any) map[string]any {
	return map[string]any{"type": "error", "error": fmt.Sprintf(format, args...)}
}

func (r *Runtime) installCoreOps(vm *goja.Runtime, ops *goja.Object) {
	set := func(name string, fn any) {
		if err := ops.Set(name, fn); err != nil {
			r.log.Error().Str("op", name).Err(err).Msg("cannot install host op")
		}
	}

	set("log", func(message string) {
		fmt.Fprintln(r.stdout, message)
	})
	set("debug", func(message string) {
		fmt.Fprintln(r.stdout, "[DEBUG] "+message)
	})
	set("randomBytes", func(length int) string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			return ""
		}
		return hex.EncodeToString(buf)
	})

	set("fsReadFile", func(path string) map[string]any {
		data, err := os.ReadFile(path)
		if err != nil {
			return fsErr("readFile failed: %v", err)
		}
		return fsOK(string(data))
	})
	set("fsReadFileBinary", func(path string) map[string]any {
		data, err := os.ReadFile(path)
		if err != nil {
			return fsErr("readFileBinary failed: %v", err)
		}
		return fsOK(base64.StdEncoding.EncodeToString(data))
	})
	set("fsWriteFile", func(path, content string) map[string]any {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fsErr("writeFile failed: %v", err)
		}
		return fsOK(nil)
	})
	set("fsWriteFileBinary", func(path, contentBase64 string) map[string]any {
		data, err := base64.StdEncoding.DecodeString(contentBase64)
		if err != nil {
			return fsErr("writeFileBinary base64 decode failed: %v", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fsErr("writeFileBinary failed: %v", err)
		}
		return fsOK(nil)
	})
	set("fsIsFile", func(path string) bool {
		st, err := os.Stat(path)
		return err == nil && st.Mode().IsRegular()
	})
	set("fsExists", func(path string) bool {
		_, err := os.Lstat(path)
		return err == nil
	})
	set("fsLstat", func(path string) map[string]any {
		st, err := os.Lstat(path)
		if err != nil {
			return fsErr("lstat failed: %v", err)
		}
		return fsOK(map[string]any{
			"size":         st.Size(),
			"is_file":      st.Mode().IsRegular(),
			"is_directory": st.IsDir(),
			"is_symlink":   st.Mode()&os.ModeSymlink != 0,
			"modified_ms":  st.ModTime().UnixMilli(),
		})
	})
	set("fsMkdir", func(path string, recursive bool) map[string]any {
		var err error
		if recursive {
			err = os.MkdirAll(path, 0o755)
		} else {
			err = os.Mkdir(path, 0o755)
		}
		if err != nil {
			return fsErr("mkdir failed: %v", err)
		}
		return fsOK(nil)
	})
	set("fsReaddir", func(path string) map[string]any {
		entries, err := os.ReadDir(path)
		if err != nil {
			return fsErr("readdir failed: %v", err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		return fsOK(names)
	})
	set("tmpdir", func() string {
		return filepath.ToSlash(os.TempDir())
	})

	_ = vm // reserved for ops that need the runtime handle
}
