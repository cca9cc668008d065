package resolver

import (
	"context"
	"sort"
	"sync"

	"funee/internal/ast"
	"funee/internal/fetch"
	"funee/internal/hostmod"
	"funee/internal/parser"
	"funee/internal/report"
	"funee/internal/source"
)

// Store is the shared module store: every pipeline stage reads modules
// through it, so each module is fetched and parsed exactly once per run.
type Store struct {
	fetcher *fetch.Fetcher

	mu      sync.Mutex
	modules map[string]*Module
	files   map[string]*source.File
}

func NewStore(fetcher *fetch.Fetcher) *Store {
	return &Store{
		fetcher: fetcher,
		modules: make(map[string]*Module),
		files:   make(map[string]*source.File),
	}
}

// Files exposes the parsed sources for diagnostic snippets.
func (s *Store) Files() map[string]*source.File {
	return s.files
}

// Resolve turns a specifier in the context of a referrer module into an
// absolute URI.
func (s *Store) Resolve(specifier, referrer string) (string, error) {
	return fetch.ResolveSpecifier(specifier, referrer, s.fetcher.LibPath())
}

// Module fetches, parses and indexes a module on first use.
func (s *Store) Module(ctx context.Context, uri string) (*Module, error) {
	s.mu.Lock()
	if m, ok := s.modules[uri]; ok {
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()

	text, err := s.fetcher.Load(ctx, uri)
	if err != nil {
		return nil, err
	}
	astModule, err := parser.ParseModule(uri, text)
	if err != nil {
		return nil, err
	}
	m := &Module{
		URI:    uri,
		Source: text,
		AST:    astModule,
		File:   astModule.File,
	}
	m.buildTables()
	s.prefetchImports(ctx, m)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.modules[uri]; ok {
		return existing, nil
	}
	s.modules[uri] = m
	s.files[uri] = m.File
	return m, nil
}

// prefetchImports warms the fetcher's in-memory store for every remote
// module this one imports, so chains of HTTP imports overlap instead of
// serializing. Failures are ignored here; the demand-driven load path
// reports them with full context.
func (s *Store) prefetchImports(ctx context.Context, m *Module) {
	var remote []string
	seen := make(map[string]bool)
	for _, item := range m.AST.Items {
		var specifier string
		switch it := item.(type) {
		case *ast.ImportDecl:
			specifier = it.Specifier
		case *ast.ExportNamedDecl:
			specifier = it.From
		case *ast.ExportStarDecl:
			specifier = it.From
		}
		if specifier == "" {
			continue
		}
		target, err := s.Resolve(specifier, m.URI)
		if err != nil || seen[target] {
			continue
		}
		seen[target] = true
		remote = append(remote, target)
	}
	if len(remote) > 0 {
		_ = s.fetcher.Prefetch(ctx, remote)
	}
}

// ResolveExport chases an exported name through aliases, re-exports and
// star re-exports until it reaches the defining module, returning the
// canonical name there.
func (s *Store) ResolveExport(ctx context.Context, uri, name string) (CanonicalName, error) {
	return s.resolveExport(ctx, uri, name, make(map[CanonicalName]bool))
}

func (s *Store) resolveExport(ctx context.Context, uri, name string, seen map[CanonicalName]bool) (CanonicalName, error) {
	key := CanonicalName{URI: uri, Name: name}
	if seen[key] {
		return CanonicalName{}, report.New(report.RE_EXPORT_CYCLE, uri, nil,
			"re-export cycle while resolving %q in %s", name, uri)
	}
	seen[key] = true

	if hostmod.IsHostURI(uri) {
		if !hostmod.HasExport(uri, name) {
			return CanonicalName{}, report.New(report.MISSING_EXPORT, uri, nil,
				"module %s has no export named %q", uri, name)
		}
		return key, nil
	}

	m, err := s.Module(ctx, uri)
	if err != nil {
		return CanonicalName{}, err
	}

	if entry, ok := m.exports[name]; ok {
		if entry.isReExport() {
			target, err := s.Resolve(entry.from, uri)
			if err != nil {
				return CanonicalName{}, err
			}
			return s.resolveExport(ctx, target, entry.original, seen)
		}
		return s.resolveLocal(ctx, m, entry.localName, seen)
	}

	// star re-exports never forward the default export
	if name != DefaultExportName {
		var found []CanonicalName
		for _, from := range m.starFroms {
			target, err := s.Resolve(from, uri)
			if err != nil {
				return CanonicalName{}, err
			}
			cn, err := s.resolveExport(ctx, target, name, copySeen(seen))
			if err != nil {
				if report.KindOf(err) == report.MISSING_EXPORT {
					continue
				}
				return CanonicalName{}, err
			}
			found = append(found, cn)
		}
		found = dedupe(found)
		switch len(found) {
		case 1:
			return found[0], nil
		case 0:
			// fall through to MissingExport
		default:
			return CanonicalName{}, report.New(report.AMBIGUOUS_STAR_EXPORT, uri, nil,
				"name %q is provided by %d star re-exports of %s", name, len(found), uri)
		}
	}

	return CanonicalName{}, report.New(report.MISSING_EXPORT, uri, nil,
		"module %s has no export named %q", uri, name)
}

// resolveLocal resolves a module-local name: a top-level declaration wins;
// an imported binding forwards to the source module.
func (s *Store) resolveLocal(ctx context.Context, m *Module, name string, seen map[CanonicalName]bool) (CanonicalName, error) {
	if _, ok := m.Locals[name]; ok {
		return CanonicalName{URI: m.URI, Name: name}, nil
	}
	if imp, ok := m.Imports[name]; ok {
		target, err := s.Resolve(imp.Specifier, m.URI)
		if err != nil {
			return CanonicalName{}, err
		}
		if imp.Kind == ast.NAMESPACE_IMPORT {
			return CanonicalName{URI: target, Name: NamespaceExportName}, nil
		}
		return s.resolveExport(ctx, target, imp.Imported, seen)
	}
	return CanonicalName{}, report.New(report.MISSING_EXPORT, m.URI, nil,
		"module %s has no export named %q", m.URI, name)
}

// ResolveReference resolves a free identifier inside a declaration of
// module m: top-level declarations shadow imports.
func (s *Store) ResolveReference(ctx context.Context, m *Module, name string) (CanonicalName, bool, error) {
	if _, ok := m.Locals[name]; ok {
		return CanonicalName{URI: m.URI, Name: name}, true, nil
	}
	if imp, ok := m.Imports[name]; ok {
		target, err := s.Resolve(imp.Specifier, m.URI)
		if err != nil {
			return CanonicalName{}, false, err
		}
		if imp.Kind == ast.NAMESPACE_IMPORT {
			return CanonicalName{URI: target, Name: NamespaceExportName}, true, nil
		}
		cn, err := s.ResolveExport(ctx, target, imp.Imported)
		if err != nil {
			return CanonicalName{}, false, err
		}
		return cn, true, nil
	}
	return CanonicalName{}, false, nil
}

// NamespaceExportName is the pseudo-name of a whole-module namespace
// object (`import * as ns`).
const NamespaceExportName = "*"

// AllExportNames computes the full export surface of a module including
// star re-exports, for namespace object synthesis.
func (s *Store) AllExportNames(ctx context.Context, uri string) ([]string, error) {
	if hostmod.IsHostURI(uri) {
		return hostmod.Exports(uri), nil
	}
	m, err := s.Module(ctx, uri)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for name := range m.exports {
		set[name] = true
	}
	for _, from := range m.starFroms {
		target, err := s.Resolve(from, uri)
		if err != nil {
			return nil, err
		}
		names, err := s.AllExportNames(ctx, target)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if n != DefaultExportName {
				set[n] = true
			}
		}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func copySeen(seen map[CanonicalName]bool) map[CanonicalName]bool {
	out := make(map[CanonicalName]bool, len(seen))
	for k, v := range seen {
		out[k] = v
	}
	return out
}

func dedupe(names []CanonicalName) []CanonicalName {
	set := make(map[CanonicalName]bool)
	var out []CanonicalName
	for _, n := range names {
		if !set[n] {
			set[n] = true
			out = append(out, n)
		}
	}
	return out
}
