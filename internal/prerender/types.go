// Package prerender drives static generation of a dynamically rendered site.
// It crawls a set of seed routes through an in-process renderer, discovers
// links in rendered HTML, and persists each rendered route under the public
// output directory.
package prerender

import "time"

// PathOverride selects the output file path for a route. It is a tagged
// variant: either a literal path or a function computing one from the route
// path. The zero value means "not set".
type PathOverride struct {
	literal string
	compute func(routePath string) string
}

// Literal returns an override that always resolves to p.
func Literal(p string) PathOverride {
	return PathOverride{literal: p}
}

// Computed returns an override that derives the output path from the route
// path.
func Computed(fn func(routePath string) string) PathOverride {
	return PathOverride{compute: fn}
}

// IsSet reports whether the override carries a value.
func (o PathOverride) IsSet() bool {
	return o.literal != "" || o.compute != nil
}

// Resolve applies the override to routePath. A literal wins outright; a
// computed override is invoked with the route path.
func (o PathOverride) Resolve(routePath string) string {
	if o.literal != "" {
		return o.literal
	}
	if o.compute != nil {
		return o.compute(routePath)
	}
	return ""
}

// Route describes one path to render, with optional per-route overrides.
// Routes are created from configuration at crawl start and augmented with
// discovered routes during the crawl.
type Route struct {
	Path string

	// Disabled skips the route without recording a result.
	Disabled bool

	// OutputPath overrides the global output-path rule for this route.
	OutputPath PathOverride

	// CrawlLinks overrides the global link-discovery setting when non-nil.
	CrawlLinks *bool

	// Sitemap carries per-route metadata copied verbatim into the rendered
	// page record.
	Sitemap SitemapMeta
}

// Lastmod holds a last-modification value that is either a pre-formatted
// string or a time. Time values are normalized to RFC 3339 when serialized.
type Lastmod struct {
	raw string
	t   time.Time
}

// LastmodString wraps a pre-formatted date string.
func LastmodString(s string) Lastmod {
	return Lastmod{raw: s}
}

// LastmodTime wraps a time value.
func LastmodTime(t time.Time) Lastmod {
	return Lastmod{t: t}
}

// IsSet reports whether a value was provided.
func (l Lastmod) IsSet() bool {
	return l.raw != "" || !l.t.IsZero()
}

// String returns the textual form: pre-formatted strings pass through, time
// values render as RFC 3339.
func (l Lastmod) String() string {
	if l.raw != "" {
		return l.raw
	}
	if !l.t.IsZero() {
		return l.t.UTC().Format(time.RFC3339)
	}
	return ""
}

// AlternateRef is an alternate-language reference for a route.
type AlternateRef struct {
	Hreflang string `mapstructure:"hreflang" json:"hreflang"`
	Href     string `mapstructure:"href" json:"href"`
}

// ImageEntry is a sitemap image extension entry.
type ImageEntry struct {
	Loc     string `mapstructure:"loc" json:"loc"`
	Title   string `mapstructure:"title" json:"title,omitempty"`
	Caption string `mapstructure:"caption" json:"caption,omitempty"`
}

// NewsEntry is a sitemap news extension entry.
type NewsEntry struct {
	PublicationName     string `mapstructure:"publication_name" json:"publicationName"`
	PublicationLanguage string `mapstructure:"publication_language" json:"publicationLanguage"`
	PublicationDate     string `mapstructure:"publication_date" json:"publicationDate"`
	Title               string `mapstructure:"title" json:"title"`
}

// SitemapMeta is the per-route sitemap metadata.
type SitemapMeta struct {
	Exclude    bool
	Lastmod    Lastmod
	Changefreq string
	Priority   float64
	Alternates []AlternateRef
	Images     []ImageEntry
	News       *NewsEntry
}

// PageResult records the terminal outcome of one route: either a successful
// render persisted at OutputPath, or a failure after the retry budget was
// exhausted. The ordered collection of PageResults is the crawl's result.
type PageResult struct {
	Path        string
	OutputPath  string
	ContentType string
	Bytes       int
	Retries     int
	Discovered  bool
	Sitemap     SitemapMeta
	Err         error
}

// OK reports whether the route rendered and persisted successfully.
func (r PageResult) OK() bool {
	return r.Err == nil
}
