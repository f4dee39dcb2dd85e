// Package reload coordinates refreshing the three independently-versioned
// catalogs (page manifest, access policy, cache-control policy) either on
// a fixed interval or on demand via an authenticated webhook.
package reload

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shovehq/shove/internal/authpolicy"
	"github.com/shovehq/shove/internal/cachecontrol"
	"github.com/shovehq/shove/internal/manifest"
	"github.com/shovehq/shove/internal/metrics"
)

// Catalog is anything that can check the object store for a newer version
// of itself and swap it in. Each catalog guards its own reload with a
// non-blocking try-lock, so Coordinator never needs to know which ones are
// busy -- it just calls all three and logs whatever comes back.
type Catalog interface {
	Reload(ctx context.Context) error
}

// ManifestCatalog is the manifest's reload contract: unlike the other two
// catalogs, its reload reports whether it actually swapped in a new
// manifest, so Coordinator only tells the live-reload hub to broadcast on
// a real change rather than on every unchanged tick.
type ManifestCatalog interface {
	Reload(ctx context.Context) (bool, error)
}

// Notifier is told after a manifest reload that swapped in a new manifest,
// so it can push a live-reload message to connected browsers. It is optional: Coordinator
// works without one.
type Notifier interface {
	BroadcastReload() error
}

// Coordinator sequences reload calls across the manifest, access-policy,
// and cache-control catalogs. Each catalog's own try-lock means a slow
// reload on one never blocks the others, and calling ReloadAll again while
// one catalog is still busy just logs "already reloading" for that catalog
// rather than erroring out the whole pass.
type Coordinator struct {
	manifest     ManifestCatalog
	authPolicy   Catalog
	cacheControl Catalog
	liveReload   Notifier
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// SetMetrics attaches the Prometheus counters this coordinator increments
// per catalog reload attempt. Optional; nil behaves as before.
func (c *Coordinator) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// New builds a Coordinator over the three catalogs. liveReload may be nil
// if live-reload notifications aren't wired up (e.g. in tests).
func New(manifestCatalog ManifestCatalog, authPolicyCatalog, cacheControlCatalog Catalog, liveReload Notifier, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		manifest:     manifestCatalog,
		authPolicy:   authPolicyCatalog,
		cacheControl: cacheControlCatalog,
		liveReload:   liveReload,
		logger:       logger,
	}
}

// ReloadAll attempts to reload every catalog once. A catalog reporting
// "already reloading" is not treated as a failure; any other error is
// logged and included in the returned joined error, but does not prevent
// the remaining catalogs from being attempted.
func (c *Coordinator) ReloadAll(ctx context.Context) error {
	var errs []error

	manifestChanged := c.reloadManifest(ctx, &errs)
	c.reloadOne(ctx, "auth_policy", c.authPolicy, &errs)
	c.reloadOne(ctx, "cache_control", c.cacheControl, &errs)

	if manifestChanged && c.liveReload != nil {
		if err := c.liveReload.BroadcastReload(); err != nil {
			c.logger.Debug("live-reload broadcast skipped", "error", err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// reloadManifest runs the manifest catalog's Reload and reports whether it
// actually swapped in a new manifest -- the only signal that should ever
// trigger a live-reload broadcast. A nil error on an unchanged digest must
// not be mistaken for a change, or every tick would reload every connected
// browser.
func (c *Coordinator) reloadManifest(ctx context.Context, errs *[]error) bool {
	if c.manifest == nil {
		return false
	}

	changed, err := c.manifest.Reload(ctx)
	switch {
	case err == nil:
		c.recordReload("manifest", "ok")
		return changed
	case isAlreadyReloading(err):
		c.logger.Debug("catalog reload already in progress, skipping", "catalog", "manifest")
		c.recordReload("manifest", "already_reloading")
		return false
	default:
		c.logger.Warn("catalog reload failed", "catalog", "manifest", "error", err)
		*errs = append(*errs, err)
		c.recordReload("manifest", "error")
		return false
	}
}

// reloadOne runs a single catalog's Reload.
func (c *Coordinator) reloadOne(ctx context.Context, name string, catalog Catalog, errs *[]error) bool {
	if catalog == nil {
		return false
	}

	err := catalog.Reload(ctx)
	switch {
	case err == nil:
		c.recordReload(name, "ok")
		return true
	case isAlreadyReloading(err):
		c.logger.Debug("catalog reload already in progress, skipping", "catalog", name)
		c.recordReload(name, "already_reloading")
		return false
	default:
		c.logger.Warn("catalog reload failed", "catalog", name, "error", err)
		*errs = append(*errs, err)
		c.recordReload(name, "error")
		return false
	}
}

func (c *Coordinator) recordReload(catalog, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.ReloadsTotal.WithLabelValues(catalog, outcome).Inc()
}

// isAlreadyReloading recognizes any catalog's try-lock-contention sentinel.
func isAlreadyReloading(err error) bool {
	return errors.Is(err, manifest.ErrAlreadyReloading) ||
		errors.Is(err, authpolicy.ErrAlreadyReloading) ||
		errors.Is(err, cachecontrol.ErrAlreadyReloading)
}

// RunInterval reloads all catalogs every interval until ctx is cancelled,
// the way the original timer-driven reload loop worked when no webhook
// token is configured.
func (c *Coordinator) RunInterval(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stopping interval reload loop")
			return
		case <-ticker.C:
			if err := c.ReloadAll(ctx); err != nil {
				c.logger.Warn("reload pass completed with errors", "error", err)
			}
		}
	}
}
