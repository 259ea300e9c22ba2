package sitemap

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snapsite/snapsite/internal/prerender"
)

type memWriter struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newMemWriter() *memWriter {
	return &memWriter{files: make(map[string][]byte)}
}

func (w *memWriter) WriteFile(_ context.Context, path string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.files[path] = append([]byte(nil), data...)
	return nil
}

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

func validConfig() Config {
	return Config{Enabled: true, Host: "https://example.org", OutputPath: "sitemap.xml"}
}

func page(path string) prerender.PageResult {
	return prerender.PageResult{Path: path, OutputPath: path + "/index.html"}
}

func TestPublish_EmptyPageListIsNoOp(t *testing.T) {
	t.Parallel()

	writer := newMemWriter()
	// Even an invalid config must not surface when there is nothing to do.
	agg := NewAggregator(Config{}, writer, nil, nil)

	require.NoError(t, agg.Publish(context.Background(), "", nil))
	require.Empty(t, writer.files)
}

func TestPublish_ConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"not enabled", Config{Host: "https://example.org", OutputPath: "sitemap.xml"}, "not enabled"},
		{"missing host", Config{Enabled: true, OutputPath: "sitemap.xml"}, "sitemap.host"},
		{"missing output path", Config{Enabled: true, Host: "https://example.org"}, "sitemap.output_path"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			writer := newMemWriter()
			agg := NewAggregator(tc.cfg, writer, nil, nil)
			err := agg.Publish(context.Background(), "", []prerender.PageResult{page("/")})
			require.ErrorContains(t, err, tc.want)
			require.Empty(t, writer.files, "validation errors must precede any write")
		})
	}
}

func TestPublish_ExcludedRoutesOmitted(t *testing.T) {
	t.Parallel()

	writer := newMemWriter()
	agg := NewAggregator(validConfig(), writer, nil, nil)

	hidden := page("/hidden")
	hidden.Sitemap.Exclude = true
	require.NoError(t, agg.Publish(context.Background(), "", []prerender.PageResult{page("/about"), hidden}))

	xml := string(writer.files["sitemap.xml"])
	require.Contains(t, xml, "https://example.org/about")
	require.NotContains(t, xml, "/hidden")
}

func TestPublish_FailedPagesOmitted(t *testing.T) {
	t.Parallel()

	writer := newMemWriter()
	agg := NewAggregator(validConfig(), writer, nil, nil)

	failed := page("/broken")
	failed.Err = errors.New("render failed")
	require.NoError(t, agg.Publish(context.Background(), "", []prerender.PageResult{page("/about"), failed}))

	require.NotContains(t, string(writer.files["sitemap.xml"]), "/broken")
}

func TestPublish_HostNormalizedToSingleTrailingSlash(t *testing.T) {
	t.Parallel()

	for _, host := range []string{"https://example.org", "https://example.org/", "https://example.org//"} {
		writer := newMemWriter()
		cfg := validConfig()
		cfg.Host = host
		agg := NewAggregator(cfg, writer, nil, nil)

		require.NoError(t, agg.Publish(context.Background(), "", []prerender.PageResult{page("/about")}))
		require.Contains(t, string(writer.files["sitemap.xml"]), "<loc>https://example.org/about</loc>")
	}
}

func TestPublish_EntryFields(t *testing.T) {
	t.Parallel()

	writer := newMemWriter()
	agg := NewAggregator(validConfig(), writer, nil, nil)

	p := page("/news/launch")
	p.Sitemap = prerender.SitemapMeta{
		Lastmod:    prerender.LastmodTime(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)),
		Changefreq: "daily",
		Priority:   0.75,
		Alternates: []prerender.AlternateRef{{Hreflang: "de", Href: "https://example.org/de/news/launch"}},
		Images: []prerender.ImageEntry{{
			Loc:   "https://example.org/img/launch.png",
			Title: "Launch",
		}},
		News: &prerender.NewsEntry{
			PublicationName:     "Example Times",
			PublicationLanguage: "en",
			PublicationDate:     "2026-08-01",
			Title:               "The Launch",
		},
	}
	require.NoError(t, agg.Publish(context.Background(), "", []prerender.PageResult{p}))

	xml := string(writer.files["sitemap.xml"])
	require.Contains(t, xml, "<loc>https://example.org/news/launch</loc>")
	require.Contains(t, xml, "<lastmod>2026-08-01T12:00:00Z</lastmod>")
	require.Contains(t, xml, "<changefreq>daily</changefreq>")
	// The configured value round-trips without rounding.
	require.Contains(t, xml, "<priority>0.75</priority>")
	require.Contains(t, xml, `hreflang="de"`)
	require.Contains(t, xml, "<image:loc>https://example.org/img/launch.png</image:loc>")
	require.Contains(t, xml, "<news:name>Example Times</news:name>")
	require.Contains(t, xml, `xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"`)
}

func TestPublish_ManifestWrittenBesideSitemap(t *testing.T) {
	t.Parallel()

	writer := newMemWriter()
	clock := fakeClock{now: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)}
	agg := NewAggregator(validConfig(), writer, clock, nil)

	p := page("/about")
	p.Bytes = 120
	require.NoError(t, agg.Publish(context.Background(), "run-8f2d", []prerender.PageResult{p}))

	raw, ok := writer.files["sitemap.json"]
	require.True(t, ok, "manifest should land beside the sitemap")

	var manifest Manifest
	require.NoError(t, json.Unmarshal(raw, &manifest))
	require.Equal(t, "run-8f2d", manifest.RunID)
	require.Equal(t, "https://example.org/", manifest.Host)
	require.Equal(t, "2026-08-29T10:00:00Z", manifest.LastBuilt)
	require.Len(t, manifest.Pages, 1)
	require.Equal(t, "/about", manifest.Pages[0].Path)
	require.Equal(t, 120, manifest.Pages[0].Bytes)
}

func TestPublish_WriteFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	writer := newMemWriter()
	writer.err = errors.New("disk full")
	agg := NewAggregator(validConfig(), writer, nil, nil)

	// A sitemap failure must never fail the overall build.
	require.NoError(t, agg.Publish(context.Background(), "", []prerender.PageResult{page("/about")}))
}
