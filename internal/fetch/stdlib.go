package fetch

// stdlibSource is the synthetic standard library used when no funee-lib
// is installed next to the executable. It carries exactly the symbols the
// bundler gives special meaning plus the console passthroughs.
//
// createMacro throws if it is ever reached at runtime: expansion removes
// every well-formed macro before emission, so an invocation means a
// resolution bug upstream.
const stdlibSource = `// funee standard library (synthesized)

export function createMacro<T, R>(fn: (closure: T) => R): (value: T) => R {
    throw new Error("CreateMacroUnexpanded: createMacro reached the runtime; macro was not expanded");
}

export function Closure(value: { expression: string, references: Map<string, { uri: string, name: string }> }) {
    return { expression: value.expression, references: value.references ?? new Map() };
}

export function Definition(value: { declaration: string, references: Map<string, { uri: string, name: string }> }) {
    return { declaration: value.declaration, references: value.references ?? new Map() };
}

export { log, debug } from "host://console";
`
