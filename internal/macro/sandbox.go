package macro

import (
	"encoding/json"
	"time"

	"github.com/dop251/goja"

	"funee/internal/graph"
	"funee/internal/report"
	"funee/internal/resolver"
)

// Macros evaluate in a throwaway goja runtime per invocation: no
// filesystem, no network, no state leaking between invocations. Only the
// Closure/Definition factories and the engine's pure globals exist.

// sandboxPrelude normalizes the raw argument records into Closures with
// real Map references before the macro body sees them.
const sandboxPrelude = `
function Closure(value) {
    let refs = value.references;
    if (refs == null) refs = new Map();
    if (!(refs instanceof Map)) refs = new Map(Object.entries(refs));
    return { expression: String(value.expression), references: refs };
}
function Definition(value) {
    let refs = value.references;
    if (refs == null) refs = new Map();
    if (!(refs instanceof Map)) refs = new Map(Object.entries(refs));
    return { declaration: String(value.declaration), references: refs };
}
const __args = __rawArgs.map((a) => Closure(a));
`

// sandboxEpilogue invokes the macro and serializes a normalized result;
// ok=false marks a value that is not {expression, references}-shaped.
const sandboxEpilogue = `
(() => {
    const __res = __macro(...__args);
    if (__res === null || typeof __res !== "object") {
        return JSON.stringify({ ok: false });
    }
    if (typeof __res.expression !== "string") {
        return JSON.stringify({ ok: false });
    }
    let refs = __res.references;
    if (refs == null) refs = new Map();
    if (!(refs instanceof Map)) {
        try {
            refs = new Map(Object.entries(refs));
        } catch (_) {
            return JSON.stringify({ ok: false });
        }
    }
    return JSON.stringify({
        ok: true,
        expression: __res.expression,
        references: Array.from(refs.entries()),
    });
})()
`

type sandboxResult struct {
	OK         bool              `json:"ok"`
	Expression string            `json:"expression"`
	References [][2]jsonRawValue `json:"references"`
}

type jsonRawValue = json.RawMessage

type canonicalJSON struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// invoke runs one macro body against captured closures. A wall-clock
// guard interrupts runaway bodies.
func (e *Engine) invoke(macroDecl *graph.Decl, args []Closure) (*Result, error) {
	vm := goja.New()

	rawArgs := make([]map[string]any, 0, len(args))
	for _, arg := range args {
		refs := make(map[string]any, len(arg.References))
		for name, cn := range arg.References {
			refs[name] = map[string]any{"uri": cn.URI, "name": cn.Name}
		}
		rawArgs = append(rawArgs, map[string]any{
			"expression": arg.Expression,
			"references": refs,
		})
	}
	if err := vm.Set("__rawArgs", rawArgs); err != nil {
		return nil, report.Wrap(err, report.MACRO_RETURN_SHAPE, macroDecl.Canonical.URI,
			"cannot seed macro sandbox for %s", macroDecl.Canonical)
	}

	timer := time.AfterFunc(e.settings.MacroTimeout, func() {
		vm.Interrupt("macro timeout")
	})
	defer timer.Stop()

	script := sandboxPrelude +
		"const __macro = (" + macroDecl.MacroBody + ");\n" +
		sandboxEpilogue

	value, err := vm.RunString(script)
	if err != nil {
		if _, interrupted := err.(*goja.InterruptedError); interrupted {
			return nil, report.New(report.MACRO_TIMEOUT, macroDecl.Canonical.URI, nil,
				"macro %s exceeded the %s evaluation guard", macroDecl.Canonical, e.settings.MacroTimeout)
		}
		return nil, report.Wrap(err, report.MACRO_RETURN_SHAPE, macroDecl.Canonical.URI,
			"macro %s failed: %v", macroDecl.Canonical, err)
	}

	var res sandboxResult
	if err := json.Unmarshal([]byte(value.String()), &res); err != nil {
		return nil, report.Wrap(err, report.MACRO_RETURN_SHAPE, macroDecl.Canonical.URI,
			"macro %s returned an unreadable value", macroDecl.Canonical)
	}
	if !res.OK {
		return nil, report.New(report.MACRO_RETURN_SHAPE, macroDecl.Canonical.URI, nil,
			"macro %s must return { expression, references }", macroDecl.Canonical)
	}

	result := &Result{
		Expression: res.Expression,
		References: make(map[string]resolver.CanonicalName),
	}
	for _, entry := range res.References {
		var name string
		if err := json.Unmarshal(entry[0], &name); err != nil {
			return nil, report.New(report.MACRO_RETURN_SHAPE, macroDecl.Canonical.URI, nil,
				"macro %s returned a non-string reference key", macroDecl.Canonical)
		}
		var cn canonicalJSON
		if err := json.Unmarshal(entry[1], &cn); err != nil || cn.Name == "" {
			return nil, report.New(report.MACRO_RETURN_SHAPE, macroDecl.Canonical.URI, nil,
				"macro %s returned reference %q without {uri, name}", macroDecl.Canonical, name)
		}
		result.References[name] = resolver.CanonicalName{URI: cn.URI, Name: cn.Name}
	}
	return result, nil
}
