// Package server implements the request pipeline: path normalization,
// authorization, page-cache read-through, header assembly, and method
// dispatch for every incoming HTTP request.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shovehq/shove/internal/authpolicy"
	"github.com/shovehq/shove/internal/cachecontrol"
	"github.com/shovehq/shove/internal/metrics"
	"github.com/shovehq/shove/internal/objectstore"
	"github.com/shovehq/shove/internal/pagecache"
	"github.com/shovehq/shove/internal/ratelimit"
	"github.com/shovehq/shove/internal/reload"
	"github.com/shovehq/shove/internal/reporter"
)

// notFoundPath is the manifest entry served, with a 404 status, whenever
// the requested path has no entry of its own.
const notFoundPath = "/404.html"

// PageFetcher is the slice of objectstore.Store needed to read page
// bytes.
type PageFetcher interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// ManifestResolver turns a request path into the full object-store path it
// maps to (root-prefixed, matching the original server's
// `format!("{root}{path}")`) and the object-store key backing it. found is
// false when the path has no manifest entry.
type ManifestResolver func(path string) (fullPath, key string, found bool)

// LiveReloadAttacher upgrades a request to a live-reload websocket
// connection.
type LiveReloadAttacher interface {
	Attach(w http.ResponseWriter, r *http.Request) error
}

// Pipeline is the fully assembled request handler: everything needed to
// turn an inbound HTTP request into a response is reachable from here.
type Pipeline struct {
	router *mux.Router

	fetcher      PageFetcher
	manifestKey  ManifestResolver
	authStore    *authpolicy.Store
	cacheControl *cachecontrol.Store
	pageCache    *pagecache.Cache
	rateLimiter  *ratelimit.Limiter
	liveReload   LiveReloadAttacher
	coordinator  *reload.Coordinator
	metrics      *metrics.Metrics
	reporter     reporter.ErrorReporter
	logger       *slog.Logger

	webhookToken string
}

// Deps bundles every collaborator Pipeline needs. It exists mainly so
// New's signature doesn't grow a parameter every time the pipeline gains
// a dependency.
type Deps struct {
	Fetcher      PageFetcher
	ManifestKey  ManifestResolver
	AuthStore    *authpolicy.Store
	CacheControl *cachecontrol.Store
	PageCache    *pagecache.Cache
	RateLimiter  *ratelimit.Limiter
	LiveReload   LiveReloadAttacher
	Coordinator  *reload.Coordinator
	Metrics      *metrics.Metrics
	Reporter     reporter.ErrorReporter
	Logger       *slog.Logger
	WebhookToken string
}

// New assembles a Pipeline and its routing table.
func New(d Deps) *Pipeline {
	p := &Pipeline{
		fetcher:      d.Fetcher,
		authStore:    d.AuthStore,
		cacheControl: d.CacheControl,
		pageCache:    d.PageCache,
		rateLimiter:  d.RateLimiter,
		liveReload:   d.LiveReload,
		coordinator:  d.Coordinator,
		metrics:      d.Metrics,
		reporter:     d.Reporter,
		logger:       d.Logger,
		webhookToken: d.WebhookToken,
	}
	p.manifestKey = d.ManifestKey

	router := mux.NewRouter()
	router.HandleFunc("/healthcheck", p.handleHealthcheck).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/reload", p.handleWebhook).Methods(http.MethodPost)
	router.HandleFunc("/__shove/livereload", p.handleLiveReload)
	router.PathPrefix("/").HandlerFunc(p.handlePage)
	p.router = router

	return p
}

// Router exposes the underlying mux.Router so the CLI front door can mount
// additional routes (metrics) before serving.
func (p *Pipeline) Router() *mux.Router {
	return p.router
}

// ServeHTTP implements http.Handler.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	p.router.ServeHTTP(rw, r)

	if p.metrics != nil {
		p.metrics.RequestsTotal.WithLabelValues(r.Method, statusClass(rw.status)).Inc()
		p.metrics.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	}
}

func (p *Pipeline) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (p *Pipeline) handleLiveReload(w http.ResponseWriter, r *http.Request) {
	if p.liveReload == nil {
		http.NotFound(w, r)
		return
	}
	if err := p.liveReload.Attach(w, r); err != nil {
		p.logger.Warn("live-reload upgrade failed", "error", err)
	}
}

func (p *Pipeline) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if p.webhookToken == "" {
		http.Error(w, "reload webhook is not configured", http.StatusMethodNotAllowed)
		return
	}

	token := r.Header.Get("Authorization")
	if token == "" {
		http.Error(w, "missing authorization header", http.StatusBadRequest)
		return
	}
	if token != "Bearer "+p.webhookToken {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if p.coordinator == nil {
		http.Error(w, "reload coordinator is not wired", http.StatusInternalServerError)
		return
	}

	if err := p.coordinator.ReloadAll(r.Context()); err != nil {
		p.logger.Warn("webhook-triggered reload failed", "error", err)
		if p.reporter != nil {
			p.reporter.Report(err, map[string]any{"trigger": "webhook"})
		}
		http.Error(w, "reload failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (p *Pipeline) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := normalizePath(r.URL.Path)

	switch p.authorize(r, path) {
	case authRateLimited:
		w.Header().Set("Retry-After", "60")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	case authMissing, authDenied:
		w.Header().Set("WWW-Authenticate", challengeFor(path))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	case authMalformed:
		http.Error(w, "malformed authorization header", http.StatusBadRequest)
		return
	case authGranted, authPublic:
		// fall through to serve the page
	}

	isHead := r.Method == http.MethodHead

	body, contentType, status := p.getPage(r.Context(), path)
	p.writeResponse(w, path, body, contentType, status, isHead)
}

// getPage resolves path to its full object-store path (root-prefixed),
// reads through the page cache keyed by that full path, then the manifest
// + object store on a miss, and falls back to the cached 404 page if path
// has no manifest entry or its object fetch fails. The page cache is keyed
// by the full object-store path rather than the request path, matching the
// data model's "cached page is identified by the full object-store path".
func (p *Pipeline) getPage(ctx context.Context, path string) ([]byte, string, int) {
	fullPath, key, found := p.manifestKey(path)

	if entry, ok := p.pageCache.Get(fullPath); ok {
		if p.metrics != nil {
			p.metrics.CacheHits.Inc()
		}
		return entry.Bytes, entry.ContentType, http.StatusOK
	}
	if p.metrics != nil {
		p.metrics.CacheMisses.Inc()
	}

	if !found {
		return p.get404(ctx)
	}

	body, contentType, err := p.fetcher.Get(ctx, key)
	if err != nil {
		var nf *objectstore.NotFoundError
		if !errors.As(err, &nf) {
			p.logger.Warn("failed to fetch page from object store", "path", fullPath, "error", err)
			if p.reporter != nil {
				p.reporter.Report(err, map[string]any{"path": fullPath})
			}
		}
		return p.get404(ctx)
	}

	p.pageCache.Put(fullPath, pagecache.Entry{Bytes: body, ContentType: contentType})
	return body, contentType, http.StatusOK
}

func (p *Pipeline) get404(ctx context.Context) ([]byte, string, int) {
	fullPath, key, found := p.manifestKey(notFoundPath)

	if entry, ok := p.pageCache.Get(fullPath); ok {
		return entry.Bytes, entry.ContentType, http.StatusNotFound
	}
	if !found {
		return nil, "", http.StatusNotFound
	}

	body, contentType, err := p.fetcher.Get(ctx, key)
	if err != nil {
		return nil, "", http.StatusNotFound
	}

	p.pageCache.Put(fullPath, pagecache.Entry{Bytes: body, ContentType: contentType})
	return body, contentType, http.StatusNotFound
}

func (p *Pipeline) writeResponse(w http.ResponseWriter, path string, body []byte, contentType string, status int, isHead bool) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	if directives := p.cacheControl.GetDirectives(path); len(directives) > 0 {
		w.Header().Set("Cache-Control", cachecontrol.Join(directives))
	}

	w.Header().Set("Content-Length", contentLength(body))
	w.WriteHeader(status)

	if !isHead {
		_, _ = w.Write(body)
	}
}
