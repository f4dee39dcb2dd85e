package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shovehq/shove/internal/authpolicy"
	"github.com/shovehq/shove/internal/cachecontrol"
	"github.com/shovehq/shove/internal/config"
	"github.com/shovehq/shove/internal/livereload"
	"github.com/shovehq/shove/internal/logging"
	"github.com/shovehq/shove/internal/manifest"
	"github.com/shovehq/shove/internal/metrics"
	"github.com/shovehq/shove/internal/objectstore"
	"github.com/shovehq/shove/internal/pagecache"
	"github.com/shovehq/shove/internal/ratelimit"
	"github.com/shovehq/shove/internal/reload"
	"github.com/shovehq/shove/internal/reporter"
	"github.com/shovehq/shove/internal/server"
	"github.com/spf13/cobra"
)

// liveReloadSweepInterval is how often the hub pings connected clients to
// detect and drop dead connections.
const liveReloadSweepInterval = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the site published to the configured bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	errorReporter := reporter.New(config.SentryDSN(), logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	objStore, err := objectstore.New(ctx, objectstore.Config{
		BucketName:      cfg.Store.BucketName,
		AccessKeyID:     cfg.Store.AccessKeyID,
		SecretAccessKey: cfg.Store.SecretAccessKey,
		EndpointURL:     cfg.Store.EndpointURL,
	})
	if err != nil {
		return fmt.Errorf("connect to object store: %w", err)
	}

	pageCache, err := pagecache.New(pagecache.DefaultCapacity)
	if err != nil {
		return fmt.Errorf("build page cache: %w", err)
	}

	manifestStore := manifest.New(objStore, pageCache, logger)
	authStore, err := authpolicy.New(objStore, []byte(cfg.Auth.EncryptionKey), cfg.Store.BucketName, logger)
	if err != nil {
		return fmt.Errorf("build access policy store: %w", err)
	}
	cacheControlStore := cachecontrol.New(objStore, logger)

	if _, err := manifestStore.Reload(ctx); err != nil {
		return fmt.Errorf("initial manifest load: %w", err)
	}
	for _, step := range []struct {
		name string
		run  func(context.Context) error
	}{
		{"access policy", authStore.Reload},
		{"cache control", cacheControlStore.Reload},
	} {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("initial %s load: %w", step.name, err)
		}
	}

	liveReloadHub := livereload.New(logger)
	sweepStop := make(chan struct{})
	go liveReloadHub.Sweep(liveReloadSweepInterval, sweepStop)

	coordinator := reload.New(manifestStore, authStore, cacheControlStore, liveReloadHub, logger)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	coordinator.SetMetrics(m)
	liveReloadHub.SetMetrics(m)

	pipeline := server.New(server.Deps{
		Fetcher:      objStore,
		ManifestKey:  func(path string) (string, string, bool) { return manifestStore.Current().Resolve(path) },
		AuthStore:    authStore,
		CacheControl: cacheControlStore,
		PageCache:    pageCache,
		RateLimiter:  ratelimit.New(ratelimit.DefaultRequestsPerMinute),
		LiveReload:   liveReloadHub,
		Coordinator:  coordinator,
		Metrics:      m,
		Reporter:     errorReporter,
		Logger:       logger,
		WebhookToken: cfg.Store.TigrisToken,
	})
	pipeline.Router().Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if !cfg.IsWebhookDriven() {
		go coordinator.RunInterval(ctx, cfg.Server.ReloadInterval)
	} else {
		logger.Info("TIGRIS_TOKEN set, reload is webhook-driven via POST /reload")
	}

	httpServer := server.NewServer(cfg.Server.Port, pipeline, liveReloadStopper{liveReloadHub, sweepStop}, cfg.Server.ReadHeaderTimeout, logger)
	return httpServer.Run(ctx, cfg.Server.GracefulShutdownTimeout)
}

// liveReloadStopper adapts the Hub plus its sweep-stop channel to the
// single Stop() method server.Server calls during shutdown.
type liveReloadStopper struct {
	hub       *livereload.Hub
	sweepStop chan struct{}
}

func (s liveReloadStopper) Stop() {
	close(s.sweepStop)
	s.hub.Stop()
}
