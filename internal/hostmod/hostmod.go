package hostmod

import (
	"fmt"
	"sort"
	"strings"
)

// Registry of host:// modules. These are synthesized by the fetcher
// without I/O; the export lists are fixed and the emitter binds each name
// to a runtime operation handle in the bundle preamble.

const Scheme = "host://"

var exports = map[string][]string{
	"fs":          {"readFile", "readFileBinary", "writeFile", "writeFileBinary", "isFile", "exists", "lstat", "mkdir", "readdir", "tmpdir"},
	"http":        {"fetch"},
	"http/server": {"serve", "createResponse", "createJsonResponse"},
	"process":     {"spawn"},
	"time":        {"setTimeout", "clearTimeout", "setInterval", "clearInterval"},
	"watch":       {"watchStart", "watchPoll", "watchStop", "watchFile", "watchDirectory"},
	"crypto":      {"randomBytes"},
	"console":     {"log", "debug"},
}

// IsHostURI reports whether a URI names a host module.
func IsHostURI(uri string) bool {
	return strings.HasPrefix(uri, Scheme)
}

// Namespace strips the scheme: host://http/server -> http/server.
func Namespace(uri string) string {
	return strings.TrimPrefix(uri, Scheme)
}

// Exists reports whether the namespace is registered.
func Exists(uri string) bool {
	_, ok := exports[Namespace(uri)]
	return ok
}

// Exports returns the fixed export names of a host module.
func Exports(uri string) []string {
	return exports[Namespace(uri)]
}

// HasExport reports whether the host module exports the given name.
func HasExport(uri, name string) bool {
	for _, e := range exports[Namespace(uri)] {
		if e == name {
			return true
		}
	}
	return false
}

// Namespaces lists every registered namespace in sorted order.
func Namespaces() []string {
	out := make([]string, 0, len(exports))
	for ns := range exports {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// PreambleVar is the bundle-level object name for a namespace:
// http/server -> __host_http_server.
func PreambleVar(namespace string) string {
	return "__host_" + strings.ReplaceAll(namespace, "/", "_")
}

// PreambleCode returns the JavaScript object literal that backs a host
// namespace in the emitted bundle. Every operation goes through the
// __funee_ops bridge installed by the embedded runtime.
func PreambleCode(namespace string) string {
	switch namespace {
	case "fs":
		return `({
    readFile: (path) => __funee_ops.fsReadFile(path),
    readFileBinary: (path) => __funee_ops.fsReadFileBinary(path),
    writeFile: (path, content) => __funee_ops.fsWriteFile(path, content),
    writeFileBinary: (path, contentBase64) => __funee_ops.fsWriteFileBinary(path, contentBase64),
    isFile: (path) => __funee_ops.fsIsFile(path),
    exists: (path) => __funee_ops.fsExists(path),
    lstat: (path) => __funee_ops.fsLstat(path),
    mkdir: (path, recursive) => __funee_ops.fsMkdir(path, recursive ?? false),
    readdir: (path) => __funee_ops.fsReaddir(path),
    tmpdir: () => __funee_ops.tmpdir()
})`
	case "http":
		return `({
    fetch: (url, init) => __funee_ops.fetch(url, init ?? {})
})`
	case "http/server":
		return `({
    serve: (options) => __funee_ops.serve(options),
    createResponse: (body, init) => ({ body: body, status: (init && init.status) ?? 200, headers: (init && init.headers) ?? {} }),
    createJsonResponse: (data, init) => ({ body: JSON.stringify(data), status: (init && init.status) ?? 200, headers: Object.assign({ "content-type": "application/json" }, init && init.headers) })
})`
	case "process":
		return `({
    spawn: (options) => __funee_ops.spawn(options)
})`
	case "time":
		return `({
    setTimeout: (fn, ms) => setTimeout(fn, ms),
    clearTimeout: (id) => clearTimeout(id),
    setInterval: (fn, ms) => setInterval(fn, ms),
    clearInterval: (id) => clearInterval(id)
})`
	case "watch":
		return `({
    watchStart: (path, recursive) => __funee_ops.watchStart(path, recursive ?? false),
    watchPoll: (watcherId) => __funee_ops.watchPoll(watcherId),
    watchStop: (watcherId) => __funee_ops.watchStop(watcherId),
    watchFile: (path) => __funee_ops.watchStart(path, false),
    watchDirectory: (path) => __funee_ops.watchStart(path, true)
})`
	case "crypto":
		return `({
    randomBytes: (length) => {
        const hex = __funee_ops.randomBytes(length);
        const bytes = new Uint8Array(length);
        for (let i = 0; i < length; i++) {
            bytes[i] = parseInt(hex.substr(i * 2, 2), 16);
        }
        return bytes;
    }
})`
	case "console":
		return `({
    log: (...args) => __funee_ops.log(args.map((a) => typeof a === "string" ? a : JSON.stringify(a)).join(" ")),
    debug: (...args) => __funee_ops.debug(args.map((a) => typeof a === "string" ? a : JSON.stringify(a)).join(" "))
})`
	}
	return "({})"
}

// SyntheticSource renders a host module as TypeScript so the rest of the
// pipeline can treat it like any other module. Each export is a marker
// binding; the emitter recognizes host declarations by URI and never
// emits these bodies.
func SyntheticSource(uri string) string {
	ns := Namespace(uri)
	var b strings.Builder
	fmt.Fprintf(&b, "// synthesized host module %s\n", uri)
	for _, name := range exports[ns] {
		fmt.Fprintf(&b, "export const %s = __funee_host_binding;\n", name)
	}
	return b.String()
}
