package prerender

import (
	"context"
	"time"
)

// RenderResult is the outcome of rendering one route, semantically equivalent
// to an HTTP response served in-process.
type RenderResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Renderer renders a route path into bytes. Implementations wrap the built
// server bundle (an http.Handler) or a running dev server.
type Renderer interface {
	Render(ctx context.Context, routePath string) (RenderResult, error)
	Close(ctx context.Context) error
}

// Writer persists rendered bytes, creating parent directories as needed.
// Paths are relative to the public output directory.
type Writer interface {
	WriteFile(ctx context.Context, path string, data []byte) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
