package fetch

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"funee/internal/hostmod"
	"funee/internal/report"
)

// StdlibSpecifier is the bare specifier for the funee standard library.
const StdlibSpecifier = "funee"

// StdlibURI is the synthetic module used when no funee-lib exists on disk.
const StdlibURI = "funee://lib"

func isHTTPURI(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// ResolveSpecifier turns an import specifier into an absolute URI given
// the importing module's URI.
//
//   - the bare stdlib tag resolves to the configured library path (or the
//     synthetic stdlib when none is configured)
//   - host:// and absolute http(s):// URIs pass through
//   - /abs paths join against the server root for HTTP referrers and stay
//     filesystem paths for file referrers
//   - ./x and ../x join against the referrer
//
// A module fetched over HTTP may not escape to a non-HTTP URI.
func ResolveSpecifier(specifier, referrer, libPath string) (string, error) {
	if specifier == StdlibSpecifier {
		if libPath == "" {
			return StdlibURI, nil
		}
		return filepath.ToSlash(libPath), nil
	}

	if hostmod.IsHostURI(specifier) {
		if isHTTPURI(referrer) {
			return "", report.New(report.HOST_ESCAPE, referrer, nil,
				"module %q fetched over HTTP may not import %q", referrer, specifier)
		}
		return specifier, nil
	}

	if isHTTPURI(specifier) {
		return specifier, nil
	}

	if isHTTPURI(referrer) {
		base, err := url.Parse(referrer)
		if err != nil {
			return "", report.Wrap(err, report.NETWORK_ERROR, referrer, "invalid base URL %q", referrer)
		}
		resolved, err := base.Parse(specifier)
		if err != nil {
			return "", report.Wrap(err, report.NETWORK_ERROR, referrer,
				"cannot resolve %q from %q", specifier, referrer)
		}
		if !isHTTPURI(resolved.String()) {
			return "", report.New(report.HOST_ESCAPE, referrer, nil,
				"module %q fetched over HTTP may not resolve %q outside HTTP", referrer, specifier)
		}
		return resolved.String(), nil
	}

	// filesystem referrer
	if strings.HasPrefix(specifier, "/") {
		return specifier, nil
	}
	dir := path.Dir(filepath.ToSlash(referrer))
	return path.Clean(path.Join(dir, specifier)), nil
}
