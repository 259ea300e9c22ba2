package prerender

import (
	"path"
	"strings"
)

// NormalizePath standardizes a route path so the visited set never admits the
// same route twice under different spellings. It forces a leading slash,
// collapses dot segments, and strips a trailing slash except at the root.
func NormalizePath(routePath string) string {
	p := strings.TrimSpace(routePath)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	return p
}

// ResolveOutputPath maps a route path to its output file path.
//
// Precedence: the per-route override wins over the global override, which
// wins over the default rule. The default rule appends ".html" directly when
// the route's last segment is literally "index", otherwise it writes an
// index.html inside a subfolder named after the route; with
// autoSubfolderIndex disabled it appends ".html" to the route path instead.
//
// The resolver is pure: it never touches the filesystem.
func ResolveOutputPath(routePath string, route, global PathOverride, autoSubfolderIndex bool) string {
	if route.IsSet() {
		return route.Resolve(routePath)
	}
	if global.IsSet() {
		return global.Resolve(routePath)
	}

	p := NormalizePath(routePath)
	if p == "/" {
		return "/index.html"
	}
	if path.Base(p) == "index" {
		return p + ".html"
	}
	if autoSubfolderIndex {
		return p + "/index.html"
	}
	return p + ".html"
}
