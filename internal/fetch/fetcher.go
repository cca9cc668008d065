package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"funee/internal/config"
	"funee/internal/hostmod"
	"funee/internal/report"
)

// Fetcher loads module sources for the three schemes and keeps an
// in-memory store for the duration of one bundler invocation.
type Fetcher struct {
	settings *config.Settings
	client   *http.Client
	cache    *diskCache
	log      zerolog.Logger
	stderr   io.Writer
	reload   bool

	mu      sync.Mutex
	sources map[string]string
	fetched map[string]bool // URLs that already printed their Fetched: line
}

func New(settings *config.Settings, log zerolog.Logger, stderr io.Writer, reload bool) *Fetcher {
	return &Fetcher{
		settings: settings,
		client: &http.Client{
			Timeout: settings.HTTPTimeout,
			// redirects are followed manually so the hop count is enforced
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cache:   newDiskCache(settings.CacheDir),
		log:     log,
		stderr:  stderr,
		reload:  reload,
		sources: make(map[string]string),
		fetched: make(map[string]bool),
	}
}

// LibPath exposes the configured standard-library location for specifier
// resolution.
func (f *Fetcher) LibPath() string {
	return f.settings.LibPath
}

// Load returns the source text for an absolute URI. Results are cached
// in memory for the run.
func (f *Fetcher) Load(ctx context.Context, uri string) (string, error) {
	f.mu.Lock()
	if src, ok := f.sources[uri]; ok {
		f.mu.Unlock()
		return src, nil
	}
	f.mu.Unlock()

	src, err := f.load(ctx, uri)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.sources[uri] = src
	f.mu.Unlock()
	return src, nil
}

func (f *Fetcher) load(ctx context.Context, uri string) (string, error) {
	switch {
	case hostmod.IsHostURI(uri):
		if !hostmod.Exists(uri) {
			return "", report.New(report.NOT_FOUND, uri, nil, "unknown host module %q", uri)
		}
		return hostmod.SyntheticSource(uri), nil
	case uri == StdlibURI:
		return stdlibSource, nil
	case isHTTPURI(uri):
		return f.loadHTTP(ctx, uri)
	}
	return f.loadFile(uri)
}

func (f *Fetcher) loadFile(uri string) (string, error) {
	data, err := os.ReadFile(uri)
	if err == nil {
		return string(data), nil
	}
	if os.IsNotExist(err) {
		// extensionless specifiers are allowed: ./utils -> ./utils.ts
		for _, ext := range []string{".ts", ".tsx", ".js"} {
			if data, retryErr := os.ReadFile(uri + ext); retryErr == nil {
				return string(data), nil
			}
		}
		return "", report.New(report.NOT_FOUND, uri, nil, "module not found: %s", uri)
	}
	return "", report.Wrap(err, report.NOT_FOUND, uri, "cannot read module %s", uri)
}

func (f *Fetcher) loadHTTP(ctx context.Context, url string) (string, error) {
	if !f.reload {
		if body, ok := f.cache.read(url); ok {
			f.log.Debug().Str("url", url).Msg("http cache hit")
			return string(body), nil
		}
	}

	body, err := f.fetchHTTP(ctx, url)
	if err != nil {
		// stale-on-failure: a cached body papers over a dead origin
		if cached, ok := f.cache.read(url); ok {
			f.log.Warn().Str("url", url).Err(err).Msg("fetch failed, using cached copy")
			return string(cached), nil
		}
		return "", err
	}
	return string(body), nil
}

// fetchHTTP issues the GET, following at most MaxRedirects redirects, and
// writes the cache entry on success.
func (f *Fetcher) fetchHTTP(ctx context.Context, originalURL string) ([]byte, error) {
	current := originalURL
	meta, hasMeta := f.cache.readMeta(originalURL)

	for hop := 0; hop <= f.settings.MaxRedirects; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, report.Wrap(err, report.NETWORK_ERROR, originalURL, "invalid URL %s", current)
		}
		if hasMeta && f.reload {
			if meta.ETag != "" {
				req.Header.Set("If-None-Match", meta.ETag)
			}
			if meta.LastModified != "" {
				req.Header.Set("If-Modified-Since", meta.LastModified)
			}
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, report.Wrap(err, report.NETWORK_ERROR, originalURL, "network error fetching %s", originalURL)
		}

		switch {
		case resp.StatusCode >= 300 && resp.StatusCode < 400:
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				return nil, report.New(report.HTTP_ERROR, originalURL, nil,
					"HTTP %d without Location for %s", resp.StatusCode, originalURL)
			}
			next, err := resp.Request.URL.Parse(location)
			if err != nil {
				return nil, report.Wrap(err, report.NETWORK_ERROR, originalURL, "bad redirect from %s", current)
			}
			current = next.String()
			continue

		case resp.StatusCode == http.StatusNotModified:
			resp.Body.Close()
			if body, ok := f.cache.read(originalURL); ok {
				return body, nil
			}
			return nil, report.New(report.HTTP_ERROR, originalURL, nil,
				"HTTP 304 for %s but no cached body", originalURL)

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, report.Wrap(err, report.NETWORK_ERROR, originalURL, "reading body of %s", originalURL)
			}
			if err := f.cache.write(originalURL, body, cacheMeta{
				URL:          originalURL,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}); err != nil {
				f.log.Warn().Str("url", originalURL).Err(err).Msg("cannot write http cache entry")
			}
			f.mu.Lock()
			first := !f.fetched[originalURL]
			f.fetched[originalURL] = true
			f.mu.Unlock()
			if first {
				fmt.Fprintf(f.stderr, "Fetched: %s\n", originalURL)
			}
			return body, nil

		default:
			resp.Body.Close()
			return nil, report.New(report.HTTP_ERROR, originalURL, nil,
				"HTTP %d fetching %s", resp.StatusCode, originalURL)
		}
	}

	return nil, report.New(report.REDIRECT_LOOP, originalURL, nil,
		"too many redirects (> %d) fetching %s", f.settings.MaxRedirects, originalURL)
}

// Prefetch loads remote URIs concurrently with a bounded worker pool.
// Local I/O is not worth pooling; only http(s) URIs are dispatched.
func (f *Fetcher) Prefetch(ctx context.Context, uris []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.settings.RemoteFetchWorkers)
	for _, uri := range uris {
		if !isHTTPURI(uri) {
			continue
		}
		g.Go(func() error {
			_, err := f.Load(ctx, uri)
			return err
		})
	}
	return g.Wait()
}
