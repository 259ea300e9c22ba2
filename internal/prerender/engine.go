package prerender

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snapsite/snapsite/internal/metrics"
	"github.com/snapsite/snapsite/internal/queue"
)

// ErrNoRenderer aborts a crawl before any work when the renderer capability
// is missing, e.g. the built server bundle could not be loaded.
var ErrNoRenderer = errors.New("renderer unavailable")

const defaultConcurrency = 4

// Engine orchestrates one static-generation pass. It owns the visited set and
// the task queue; task bodies feed new work back only through admit. One
// Engine instance serves one crawl.
type Engine struct {
	cfg      Config
	renderer Renderer
	writer   Writer
	logger   *zap.Logger

	queue *queue.Queue[PageResult]
	runID string

	mu      sync.Mutex
	visited map[string]struct{}
	results []PageResult
}

// NewEngine validates the configuration and wires the crawl dependencies.
// It fails fast if the renderer capability cannot be obtained.
func NewEngine(cfg Config, renderer Renderer, writer Writer, logger *zap.Logger) (*Engine, error) {
	if renderer == nil {
		return nil, fmt.Errorf("%w: no server bundle to render with", ErrNoRenderer)
	}
	if writer == nil {
		return nil, errors.New("output writer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("prerender config: %w", err)
	}
	return &Engine{
		cfg:      cfg,
		renderer: renderer,
		writer:   writer,
		logger:   logger,
		queue:    queue.New[PageResult](cfg.Concurrency),
		runID:    uuid.NewString(),
		visited:  make(map[string]struct{}),
	}, nil
}

// RunID identifies this crawl. It is stamped into every log line of the run
// and into the published manifest.
func (e *Engine) RunID() string {
	return e.runID
}

// Run seeds the configured routes (or "/" when none are configured), drains
// the queue, and returns the ordered collection of page results, successes
// and terminal failures alike. The renderer is released once the crawl
// settles.
func (e *Engine) Run(ctx context.Context) ([]PageResult, error) {
	routes := e.cfg.Routes
	if len(routes) == 0 {
		routes = []Route{{Path: "/"}}
	}

	log := e.logger.With(zap.String("run_id", e.runID))
	log.Info("starting prerender crawl",
		zap.Int("seed_routes", len(routes)),
		zap.Int("concurrency", e.cfg.Concurrency),
		zap.Bool("crawl_links", e.cfg.CrawlLinks),
	)

	for _, r := range routes {
		e.admit(ctx, log, r, false)
	}

	settled := e.queue.Start()
	canceled := false
	select {
	case <-settled:
	case <-ctx.Done():
		canceled = true
		e.queue.Stop()
		e.queue.Clear()
		// In-flight renders run to completion; wait for them.
		<-settled
	}

	if err := e.renderer.Close(context.Background()); err != nil {
		log.Warn("failed to release renderer", zap.Error(err))
	}

	results := e.snapshotResults()
	succeeded, failed := 0, 0
	for _, r := range results {
		if r.OK() {
			succeeded++
		} else {
			failed++
		}
	}
	log.Info("prerender crawl finished",
		zap.Int("rendered", succeeded),
		zap.Int("failed", failed),
	)

	if canceled {
		return results, fmt.Errorf("prerender crawl canceled: %w", ctx.Err())
	}
	if e.cfg.FailOnError && failed > 0 {
		return results, fmt.Errorf("%d of %d routes failed to render", failed, len(results))
	}
	return results, nil
}

// admit gates a route through the filter and the visited set, then hands it
// to the queue. The check-then-insert on the visited set runs under the
// engine mutex so concurrently discovered links admit each path at most once.
// Admission stops once ctx is canceled: an in-flight render finishing after
// the cancel branch cleared the queue must not park new tasks in it, or the
// queue would never settle.
func (e *Engine) admit(ctx context.Context, log *zap.Logger, route Route, discovered bool) {
	if ctx.Err() != nil {
		return
	}
	if route.Disabled {
		return
	}
	route.Path = NormalizePath(route.Path)
	if e.cfg.Filter != nil && !e.cfg.Filter(route) {
		log.Debug("route rejected by filter", zap.String("path", route.Path))
		return
	}

	e.mu.Lock()
	if _, seen := e.visited[route.Path]; seen {
		e.mu.Unlock()
		return
	}
	e.visited[route.Path] = struct{}{}
	e.mu.Unlock()

	e.queue.Add(func() (PageResult, error) {
		return e.renderRoute(ctx, log, route, discovered)
	}, false)
}

func (e *Engine) renderRoute(ctx context.Context, log *zap.Logger, route Route, discovered bool) (PageResult, error) {
	metrics.RenderStarted()
	defer metrics.RenderFinished()

	result := PageResult{
		Path:       route.Path,
		Discovered: discovered,
		Sitemap:    route.Sitemap,
	}

	res, retries, err := e.renderWithRetry(ctx, log, route.Path)
	result.Retries = retries
	if err != nil {
		return e.fail(log, result, err), err
	}

	if e.shouldCrawl(route) && isHTML(res.ContentType) {
		links := ExtractLinks(route.Path, res.Body)
		for _, link := range links {
			e.admit(ctx, log, Route{Path: link}, true)
		}
		if len(links) > 0 {
			log.Debug("links discovered", zap.String("path", route.Path), zap.Int("count", len(links)))
		}
	}

	out := ResolveOutputPath(route.Path, route.OutputPath, e.cfg.OutputPath, e.cfg.AutoSubfolderIndex)
	if err := e.writer.WriteFile(ctx, out, res.Body); err != nil {
		err = fmt.Errorf("write %s: %w", out, err)
		return e.fail(log, result, err), err
	}

	result.OutputPath = out
	result.ContentType = res.ContentType
	result.Bytes = len(res.Body)
	e.record(result)
	metrics.RouteRendered("success")
	metrics.AddBytesWritten(len(res.Body))

	log.Debug("route rendered",
		zap.String("path", route.Path),
		zap.String("output", out),
		zap.Int("bytes", result.Bytes),
	)
	if e.cfg.OnSuccess != nil {
		e.cfg.OnSuccess(result)
	}
	return result, nil
}

// renderWithRetry invokes the renderer, retrying up to RetryCount times with
// RetryDelay between attempts. It returns the number of retries consumed.
func (e *Engine) renderWithRetry(ctx context.Context, log *zap.Logger, routePath string) (RenderResult, int, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			metrics.RetryAttempted()
			select {
			case <-time.After(e.cfg.RetryDelay):
			case <-ctx.Done():
				return RenderResult{}, attempt - 1, fmt.Errorf("render %s: %w", routePath, ctx.Err())
			}
			log.Debug("retrying route", zap.String("path", routePath), zap.Int("attempt", attempt))
		}

		res, err := e.renderer.Render(ctx, routePath)
		if err != nil {
			lastErr = fmt.Errorf("render %s: %w", routePath, err)
			continue
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			lastErr = fmt.Errorf("render %s: unexpected status %d", routePath, res.StatusCode)
			continue
		}
		return res, attempt, nil
	}
	return RenderResult{}, e.cfg.RetryCount, lastErr
}

func (e *Engine) fail(log *zap.Logger, result PageResult, err error) PageResult {
	result.Err = err
	e.record(result)
	metrics.RouteRendered("failure")
	log.Error("route terminally failed",
		zap.String("path", result.Path),
		zap.Int("retries", result.Retries),
		zap.Error(err),
	)
	return result
}

func (e *Engine) record(result PageResult) {
	e.mu.Lock()
	e.results = append(e.results, result)
	e.mu.Unlock()
}

func (e *Engine) snapshotResults() []PageResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]PageResult(nil), e.results...)
}

func (e *Engine) shouldCrawl(route Route) bool {
	if route.CrawlLinks != nil {
		return *route.CrawlLinks
	}
	return e.cfg.CrawlLinks
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
