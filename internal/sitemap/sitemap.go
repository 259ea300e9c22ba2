// Package sitemap turns the crawl's rendered page records into a publishable
// XML sitemap and a JSON build manifest.
package sitemap

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/snapsite/snapsite/internal/prerender"
)

// Config controls sitemap aggregation. It is validated once per Publish call
// and never persisted beyond it.
type Config struct {
	Enabled    bool
	Host       string
	OutputPath string
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) Config {
	return Config{
		Enabled:    v.GetBool("sitemap.enabled"),
		Host:       v.GetString("sitemap.host"),
		OutputPath: v.GetString("sitemap.output_path"),
	}
}

// Validate reports the first configuration error, if any.
func (c Config) Validate() error {
	if !c.Enabled {
		return fmt.Errorf("sitemap is not enabled; set sitemap.enabled to publish one")
	}
	if c.Host == "" {
		return fmt.Errorf("sitemap.host must be set")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("sitemap.output_path must be set")
	}
	return nil
}

// Aggregator publishes the sitemap and manifest through the same writer the
// crawl used, so both land under the public output directory.
type Aggregator struct {
	cfg    Config
	writer prerender.Writer
	clock  prerender.Clock
	logger *zap.Logger
}

// NewAggregator wires the aggregation dependencies.
func NewAggregator(cfg Config, writer prerender.Writer, clock prerender.Clock, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{cfg: cfg, writer: writer, clock: clock, logger: logger}
}

// Publish validates the configuration, then writes the XML sitemap and the
// JSON manifest for the successfully rendered pages. runID identifies the
// crawl that produced the pages and is recorded in the manifest. An empty
// page list is a no-op, not an error. File-write failures are logged, never
// propagated: the sitemap is a best-effort secondary artifact and must not
// fail the build.
func (a *Aggregator) Publish(ctx context.Context, runID string, pages []prerender.PageResult) error {
	included := make([]prerender.PageResult, 0, len(pages))
	for _, p := range pages {
		if p.OK() {
			included = append(included, p)
		}
	}
	if len(included) == 0 {
		return nil
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("sitemap config: %w", err)
	}

	host := normalizeHost(a.cfg.Host)

	kept := included[:0]
	for _, p := range included {
		if !p.Sitemap.Exclude {
			kept = append(kept, p)
		}
	}
	included = kept

	payload, err := marshalSitemap(host, included)
	if err != nil {
		a.logger.Error("failed to serialize sitemap", zap.Error(err))
		return nil
	}
	if err := a.writer.WriteFile(ctx, a.cfg.OutputPath, payload); err != nil {
		a.logger.Error("failed to write sitemap", zap.String("path", a.cfg.OutputPath), zap.Error(err))
		return nil
	}
	a.logger.Info("sitemap written",
		zap.String("path", a.cfg.OutputPath),
		zap.Int("urls", len(included)),
	)

	if err := a.writeManifest(ctx, runID, host, included); err != nil {
		a.logger.Error("failed to write sitemap manifest", zap.Error(err))
	}
	return nil
}

func normalizeHost(host string) string {
	return strings.TrimRight(host, "/") + "/"
}

type urlset struct {
	XMLName    xml.Name   `xml:"urlset"`
	Xmlns      string     `xml:"xmlns,attr"`
	XmlnsXhtml string     `xml:"xmlns:xhtml,attr,omitempty"`
	XmlnsImage string     `xml:"xmlns:image,attr,omitempty"`
	XmlnsNews  string     `xml:"xmlns:news,attr,omitempty"`
	URLs       []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string       `xml:"loc"`
	Lastmod    string       `xml:"lastmod,omitempty"`
	Changefreq string       `xml:"changefreq,omitempty"`
	Priority   string       `xml:"priority,omitempty"`
	Alternates []xhtmlLink  `xml:"xhtml:link,omitempty"`
	Images     []imageEntry `xml:"image:image,omitempty"`
	News       *newsEntry   `xml:"news:news,omitempty"`
}

type xhtmlLink struct {
	Rel      string `xml:"rel,attr"`
	Hreflang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

type imageEntry struct {
	Loc     string `xml:"image:loc"`
	Title   string `xml:"image:title,omitempty"`
	Caption string `xml:"image:caption,omitempty"`
}

type newsPublication struct {
	Name     string `xml:"news:name"`
	Language string `xml:"news:language"`
}

type newsEntry struct {
	Publication     newsPublication `xml:"news:publication"`
	PublicationDate string          `xml:"news:publication_date"`
	Title           string          `xml:"news:title"`
}

func marshalSitemap(host string, pages []prerender.PageResult) ([]byte, error) {
	set := urlset{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]urlEntry, 0, len(pages)),
	}
	for _, p := range pages {
		meta := p.Sitemap
		entry := urlEntry{
			Loc:        host + strings.TrimPrefix(p.Path, "/"),
			Changefreq: meta.Changefreq,
		}
		if meta.Lastmod.IsSet() {
			entry.Lastmod = meta.Lastmod.String()
		}
		if meta.Priority > 0 {
			entry.Priority = strconv.FormatFloat(meta.Priority, 'f', -1, 64)
		}
		for _, alt := range meta.Alternates {
			set.XmlnsXhtml = "http://www.w3.org/1999/xhtml"
			entry.Alternates = append(entry.Alternates, xhtmlLink{
				Rel:      "alternate",
				Hreflang: alt.Hreflang,
				Href:     alt.Href,
			})
		}
		for _, img := range meta.Images {
			set.XmlnsImage = "http://www.google.com/schemas/sitemap-image/1.1"
			entry.Images = append(entry.Images, imageEntry{
				Loc:     img.Loc,
				Title:   img.Title,
				Caption: img.Caption,
			})
		}
		if meta.News != nil {
			set.XmlnsNews = "http://www.google.com/schemas/sitemap-news/0.9"
			entry.News = &newsEntry{
				Publication: newsPublication{
					Name:     meta.News.PublicationName,
					Language: meta.News.PublicationLanguage,
				},
				PublicationDate: meta.News.PublicationDate,
				Title:           meta.News.Title,
			}
		}
		set.URLs = append(set.URLs, entry)
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal urlset: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Manifest is the JSON build summary written beside the sitemap.
type Manifest struct {
	RunID     string         `json:"runId,omitempty"`
	Pages     []ManifestPage `json:"pages"`
	Host      string         `json:"host"`
	LastBuilt string         `json:"lastBuilt"`
}

// ManifestPage is one included page in the manifest.
type ManifestPage struct {
	Path        string `json:"path"`
	OutputPath  string `json:"outputPath"`
	ContentType string `json:"contentType,omitempty"`
	Bytes       int    `json:"bytes"`
	Discovered  bool   `json:"discovered"`
	Retries     int    `json:"retries,omitempty"`
}

func (a *Aggregator) writeManifest(ctx context.Context, runID, host string, pages []prerender.PageResult) error {
	manifest := Manifest{
		RunID:     runID,
		Pages:     make([]ManifestPage, 0, len(pages)),
		Host:      host,
		LastBuilt: a.now().Format(time.RFC3339),
	}
	for _, p := range pages {
		manifest.Pages = append(manifest.Pages, ManifestPage{
			Path:        p.Path,
			OutputPath:  p.OutputPath,
			ContentType: p.ContentType,
			Bytes:       p.Bytes,
			Discovered:  p.Discovered,
			Retries:     p.Retries,
		})
	}

	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return a.writer.WriteFile(ctx, manifestPath(a.cfg.OutputPath), payload)
}

// manifestPath swaps the sitemap extension for .json.
func manifestPath(sitemapPath string) string {
	if i := strings.LastIndex(sitemapPath, "."); i > 0 {
		return sitemapPath[:i] + ".json"
	}
	return sitemapPath + ".json"
}

func (a *Aggregator) now() time.Time {
	if a.clock == nil {
		return time.Now().UTC()
	}
	return a.clock.Now()
}
