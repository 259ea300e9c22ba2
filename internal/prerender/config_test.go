package prerender

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("prerender.concurrency", 8)
	v.Set("prerender.retry_count", 3)
	v.Set("prerender.retry_delay", "250ms")
	v.Set("prerender.crawl_links", true)
	v.Set("prerender.auto_subfolder_index", true)
	v.Set("prerender.output_path", "pages")
	v.Set("prerender.routes", []map[string]any{
		{
			"path":        "/about",
			"output_path": "custom/about.html",
			"sitemap": map[string]any{
				"changefreq": "weekly",
				"priority":   0.6,
				"lastmod":    "2026-01-01",
			},
		},
		{
			"path":     "/draft",
			"disabled": true,
		},
	})

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Concurrency)
	require.Equal(t, 3, cfg.RetryCount)
	require.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	require.True(t, cfg.CrawlLinks)
	require.True(t, cfg.AutoSubfolderIndex)
	require.Equal(t, "pages", cfg.OutputPath.Resolve("/about"))

	require.Len(t, cfg.Routes, 2)
	about := cfg.Routes[0]
	require.Equal(t, "/about", about.Path)
	require.Equal(t, "custom/about.html", about.OutputPath.Resolve("/about"))
	require.Equal(t, "weekly", about.Sitemap.Changefreq)
	require.InDelta(t, 0.6, about.Sitemap.Priority, 0.001)
	require.Equal(t, "2026-01-01", about.Sitemap.Lastmod.String())
	require.True(t, cfg.Routes[1].Disabled)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	base := Config{Concurrency: 4}
	require.NoError(t, base.Validate())

	bad := base
	bad.Concurrency = 0
	require.ErrorContains(t, bad.Validate(), "concurrency")

	bad = base
	bad.RetryCount = -1
	require.ErrorContains(t, bad.Validate(), "retry_count")

	bad = base
	bad.Routes = []Route{{Path: ""}}
	require.ErrorContains(t, bad.Validate(), "path")

	bad = base
	bad.Routes = []Route{{Path: "/x", Sitemap: SitemapMeta{Changefreq: "sometimes"}}}
	require.ErrorContains(t, bad.Validate(), "changefreq")
}

func TestLastmodNormalization(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2026-01-01", LastmodString("2026-01-01").String())

	ts := time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC)
	require.Equal(t, "2026-03-15T08:30:00Z", LastmodTime(ts).String())

	var zero Lastmod
	require.False(t, zero.IsSet())
	require.Empty(t, zero.String())
}
