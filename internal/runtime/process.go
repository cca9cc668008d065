package runtime

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/dop251/goja"
)

// installProcessOps provides host://process spawn. The returned handle
// exposes blocking accessors; the bundle runs them from its single
// cooperative thread, matching the runtime's scheduling model.
func (r *Runtime) installProcessOps(vm *goja.Runtime, ops *goja.Object) {
	_ = ops.Set("spawn", func(call goja.FunctionCall) goja.Value {
		opts := call.Argument(0).ToObject(vm)

		var argv []string
		if v := opts.Get("cmd"); v != nil && !goja.IsUndefined(v) {
			if err := vm.ExportTo(v, &argv); err != nil || len(argv) == 0 {
				panic(vm.ToValue("spawn: options.cmd must be a non-empty string array"))
			}
		} else {
			panic(vm.ToValue("spawn: options.cmd is required"))
		}

		cmd := exec.Command(argv[0], argv[1:]...)
		if v := opts.Get("cwd"); v != nil && !goja.IsUndefined(v) && v.String() != "" {
			cmd.Dir = v.String()
		}

		inheritEnv := true
		if v := opts.Get("inheritEnv"); v != nil && !goja.IsUndefined(v) {
			inheritEnv = v.ToBoolean()
		}
		if inheritEnv {
			cmd.Env = os.Environ()
		}
		if v := opts.Get("env"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			envObj := v.ToObject(vm)
			for _, key := range envObj.Keys() {
				cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, envObj.Get(key).String()))
			}
		}

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		stdin, err := cmd.StdinPipe()
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("spawn: %v", err)))
		}

		if err := cmd.Start(); err != nil {
			panic(vm.ToValue(fmt.Sprintf("spawn: %v", err)))
		}

		handle := vm.NewObject()
		_ = handle.Set("pid", cmd.Process.Pid)
		_ = handle.Set("write", func(data string) int {
			n, err := io.WriteString(stdin, data)
			if err != nil {
				return 0
			}
			return n
		})
		_ = handle.Set("closeStdin", func() {
			stdin.Close()
		})
		_ = handle.Set("wait", func() map[string]any {
			stdin.Close()
			err := cmd.Wait()
			code := 0
			if err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					code = exitErr.ExitCode()
				} else {
					code = -1
				}
			}
			return map[string]any{
				"code":    code,
				"success": code == 0,
				"stdout":  stdout.String(),
				"stderr":  stderr.String(),
			}
		})
		_ = handle.Set("kill", func(signal string) {
			sig := syscall.SIGTERM
			switch signal {
			case "SIGKILL":
				sig = syscall.SIGKILL
			case "SIGINT":
				sig = syscall.SIGINT
			case "SIGHUP":
				sig = syscall.SIGHUP
			}
			_ = cmd.Process.Signal(sig)
		})
		return handle
	})
}
