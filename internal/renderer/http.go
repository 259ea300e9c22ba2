package renderer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/snapsite/snapsite/internal/prerender"
)

// HTTP renders routes by fetching them from a running server, such as the
// dev server started alongside the build.
type HTTP struct {
	base   string
	client *http.Client
}

// NewHTTP validates baseURL and constructs an HTTP renderer with the given
// per-request timeout.
func NewHTTP(baseURL string, timeout time.Duration) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	return &HTTP{
		base:   strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Render fetches base+routePath and returns the response.
func (r *HTTP) Render(ctx context.Context, routePath string) (prerender.RenderResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+routePath, nil)
	if err != nil {
		return prerender.RenderResult{}, fmt.Errorf("build request for %s: %w", routePath, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return prerender.RenderResult{}, fmt.Errorf("fetch %s: %w", routePath, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return prerender.RenderResult{}, fmt.Errorf("read %s: %w", routePath, err)
	}
	return prerender.RenderResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Close releases idle connections held by the client.
func (r *HTTP) Close(context.Context) error {
	r.client.CloseIdleConnections()
	return nil
}
