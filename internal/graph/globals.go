package graph

// JavaScript globals provided by the runtime - references to these never
// become graph edges.
var jsGlobals = map[string]bool{}

func init() {
	for _, name := range []string{
		// core values
		"globalThis", "undefined", "NaN", "Infinity",
		// constructors / built-in objects
		"Object", "Function", "Boolean", "Symbol",
		"Number", "BigInt", "Math", "Date",
		"String", "RegExp",
		"Array", "Int8Array", "Uint8Array", "Uint8ClampedArray",
		"Int16Array", "Uint16Array", "Int32Array", "Uint32Array",
		"Float32Array", "Float64Array", "BigInt64Array", "BigUint64Array",
		"Map", "Set", "WeakMap", "WeakSet", "WeakRef", "FinalizationRegistry",
		"ArrayBuffer", "SharedArrayBuffer", "DataView",
		"Promise", "Proxy", "Reflect",
		"Error", "AggregateError", "EvalError", "RangeError",
		"ReferenceError", "SyntaxError", "TypeError", "URIError",
		"JSON", "Intl", "Atomics",
		// functions
		"eval", "isFinite", "isNaN", "parseFloat", "parseInt",
		"decodeURI", "decodeURIComponent", "encodeURI", "encodeURIComponent",
		// timers: both the globals and host://time resolve to the same
		// runtime capability
		"setTimeout", "setInterval", "clearTimeout", "clearInterval",
		"setImmediate", "clearImmediate",
		"queueMicrotask",
		// console
		"console",
		// web APIs the embedded runtime provides
		"fetch", "Request", "Response", "Headers", "URL", "URLSearchParams",
		"FormData", "Blob", "File", "FileReader",
		"TextEncoder", "TextDecoder",
		"AbortController", "AbortSignal",
		"Event", "EventTarget", "CustomEvent",
		"crypto", "Crypto", "CryptoKey", "SubtleCrypto",
		"atob", "btoa",
		"structuredClone",
		// language-level names the reference walker can meet
		"this", "super", "arguments", "new.target", "null", "true", "false",
	} {
		jsGlobals[name] = true
	}
}

// IsJSGlobal reports whether a name is satisfied by the runtime and
// therefore never bundled.
func IsJSGlobal(name string) bool {
	return jsGlobals[name]
}
