package prerender

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob that influences a prerender crawl. It is
// decoupled from Viper so the engine can be constructed and tested without a
// configuration backend.
type Config struct {
	// Routes are the seed routes. When empty the crawl seeds a single "/".
	Routes []Route

	// Concurrency bounds the number of simultaneously rendering routes.
	Concurrency int

	// RetryCount and RetryDelay form the per-route retry budget for render
	// failures.
	RetryCount int
	RetryDelay time.Duration

	// CrawlLinks admits anchors discovered in rendered HTML as new routes.
	// Per-route Route.CrawlLinks takes precedence.
	CrawlLinks bool

	// AutoSubfolderIndex toggles subfolder-vs-flat .html naming in the
	// default output-path rule.
	AutoSubfolderIndex bool

	// OutputPath is the global output-path override; per-route overrides win.
	OutputPath PathOverride

	// Filter gates admission before the dedup check. A nil filter admits
	// everything.
	Filter func(Route) bool

	// OnSuccess is invoked once per successfully rendered route.
	OnSuccess func(PageResult)

	// FailOnError makes Run return an error when any route terminally fails.
	// By default failures are recorded in the results and the crawl finishes.
	FailOnError bool
}

var changefreqValues = map[string]struct{}{
	"always":  {},
	"hourly":  {},
	"daily":   {},
	"weekly":  {},
	"monthly": {},
	"yearly":  {},
	"never":   {},
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("prerender.concurrency must be > 0")
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("prerender.retry_count must be >= 0")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("prerender.retry_delay must be >= 0")
	}
	for _, r := range c.Routes {
		if r.Path == "" {
			return fmt.Errorf("prerender.routes entries must set a path")
		}
		if cf := r.Sitemap.Changefreq; cf != "" {
			if _, ok := changefreqValues[cf]; !ok {
				return fmt.Errorf("route %s: invalid changefreq %q", r.Path, cf)
			}
		}
	}
	return nil
}

// routeSpec is the configuration-file shape of a Route. Function-valued
// overrides exist only on the API surface.
type routeSpec struct {
	Path       string          `mapstructure:"path"`
	Disabled   bool            `mapstructure:"disabled"`
	OutputPath string          `mapstructure:"output_path"`
	CrawlLinks *bool           `mapstructure:"crawl_links"`
	Sitemap    routeSitemapSpec `mapstructure:"sitemap"`
}

type routeSitemapSpec struct {
	Exclude    bool           `mapstructure:"exclude"`
	Lastmod    string         `mapstructure:"lastmod"`
	Changefreq string         `mapstructure:"changefreq"`
	Priority   float64        `mapstructure:"priority"`
	Alternates []AlternateRef `mapstructure:"alternates"`
	Images     []ImageEntry   `mapstructure:"images"`
	News       *NewsEntry     `mapstructure:"news"`
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Concurrency:        v.GetInt("prerender.concurrency"),
		RetryCount:         v.GetInt("prerender.retry_count"),
		RetryDelay:         v.GetDuration("prerender.retry_delay"),
		CrawlLinks:         v.GetBool("prerender.crawl_links"),
		AutoSubfolderIndex: v.GetBool("prerender.auto_subfolder_index"),
		FailOnError:        v.GetBool("prerender.fail_on_error"),
	}
	if p := v.GetString("prerender.output_path"); p != "" {
		cfg.OutputPath = Literal(p)
	}

	var specs []routeSpec
	if err := v.UnmarshalKey("prerender.routes", &specs); err != nil {
		return Config{}, fmt.Errorf("decode prerender.routes: %w", err)
	}
	for _, s := range specs {
		route := Route{
			Path:       s.Path,
			Disabled:   s.Disabled,
			CrawlLinks: s.CrawlLinks,
			Sitemap: SitemapMeta{
				Exclude:    s.Sitemap.Exclude,
				Changefreq: s.Sitemap.Changefreq,
				Priority:   s.Sitemap.Priority,
				Alternates: s.Sitemap.Alternates,
				Images:     s.Sitemap.Images,
				News:       s.Sitemap.News,
			},
		}
		if s.Sitemap.Lastmod != "" {
			route.Sitemap.Lastmod = LastmodString(s.Sitemap.Lastmod)
		}
		if s.OutputPath != "" {
			route.OutputPath = Literal(s.OutputPath)
		}
		cfg.Routes = append(cfg.Routes, route)
	}

	return cfg, cfg.Validate()
}
