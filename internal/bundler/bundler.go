package bundler

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"funee/internal/config"
	"funee/internal/emit"
	"funee/internal/fetch"
	"funee/internal/graph"
	"funee/internal/macro"
	"funee/internal/report"
	"funee/internal/resolver"
	"funee/internal/source"
)

// Options for one bundling run.
type Options struct {
	Reload   bool
	EmitOnly bool
}

// Result is a finished bundle plus the information watch mode needs.
type Result struct {
	Bundle string
	// LocalFiles is the set of file-backed module URIs the bundle was
	// built from, sorted; the watch driver observes exactly these.
	LocalFiles []string
	// Files carries parsed sources for diagnostic snippets.
	Files map[string]*source.File
}

// Bundler drives the pipeline: fetch, parse, resolve, build the graph,
// expand macros, shake, emit.
type Bundler struct {
	settings *config.Settings
	log      zerolog.Logger
	stderr   io.Writer
}

func New(settings *config.Settings, log zerolog.Logger, stderr io.Writer) *Bundler {
	return &Bundler{settings: settings, log: log, stderr: stderr}
}

// Bundle produces a single self-contained source unit from an entry path.
func (b *Bundler) Bundle(ctx context.Context, entryPath string, opts Options) (*Result, error) {
	entryURI, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, report.Wrap(err, report.NOT_FOUND, entryPath, "cannot resolve entry path %s", entryPath)
	}
	entryURI = filepath.ToSlash(entryURI)

	fetcher := fetch.New(b.settings, b.log, b.stderr, opts.Reload)
	store := resolver.NewStore(fetcher)

	g, err := graph.Build(ctx, store, entryURI, b.log)
	if err != nil {
		return &Result{Files: store.Files()}, err
	}

	engine := macro.NewEngine(g, b.settings, b.log)
	if err := engine.Expand(ctx); err != nil {
		return &Result{Files: store.Files()}, err
	}

	emitter := emit.New(g, b.log)
	code, err := emitter.Bundle(emit.Options{EmitOnly: opts.EmitOnly})
	if err != nil {
		return &Result{Files: store.Files()}, err
	}

	return &Result{
		Bundle:     code,
		LocalFiles: localFiles(g),
		Files:      store.Files(),
	}, nil
}

// localFiles collects the file-backed module URIs of the surviving
// declarations.
func localFiles(g *graph.Graph) []string {
	set := make(map[string]bool)
	for _, d := range g.Shake() {
		uri := d.Canonical.URI
		if strings.Contains(uri, "://") {
			continue
		}
		set[uri] = true
	}
	files := make([]string, 0, len(set))
	for f := range set {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
