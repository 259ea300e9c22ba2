// Package renderer provides Renderer implementations backed by an in-process
// http.Handler or a running dev server.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/snapsite/snapsite/internal/prerender"
)

// Handler renders routes by dispatching requests through an in-process
// http.Handler, typically the built server bundle. No network is involved.
type Handler struct {
	handler http.Handler
}

// NewHandler wraps h. A nil handler is rejected at engine construction.
func NewHandler(h http.Handler) *Handler {
	return &Handler{handler: h}
}

// Render serves a GET for routePath through the handler and captures the
// response.
func (r *Handler) Render(ctx context.Context, routePath string) (prerender.RenderResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, routePath, nil)
	if err != nil {
		return prerender.RenderResult{}, fmt.Errorf("build request for %s: %w", routePath, err)
	}
	rec := newRecorder()
	r.handler.ServeHTTP(rec, req)
	return prerender.RenderResult{
		StatusCode:  rec.status,
		ContentType: rec.header.Get("Content-Type"),
		Body:        rec.body.Bytes(),
	}, nil
}

// Close implements prerender.Renderer; the handler owns no resources.
func (r *Handler) Close(context.Context) error {
	return nil
}

// recorder is a minimal http.ResponseWriter capturing status, headers and
// body.
type recorder struct {
	status int
	header http.Header
	body   bytes.Buffer
	wrote  bool
}

func newRecorder() *recorder {
	return &recorder{status: http.StatusOK, header: make(http.Header)}
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(status int) {
	if r.wrote {
		return
	}
	r.wrote = true
	r.status = status
}

func (r *recorder) Write(p []byte) (int, error) {
	r.wrote = true
	return r.body.Write(p)
}
