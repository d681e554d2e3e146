// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/leaderboard-webhooks/internal/api"
	"github.com/JakeFAU/leaderboard-webhooks/internal/certificate"
	"github.com/JakeFAU/leaderboard-webhooks/internal/clock/system"
	"github.com/JakeFAU/leaderboard-webhooks/internal/config"
	collyfetcher "github.com/JakeFAU/leaderboard-webhooks/internal/fetcher/colly"
	"github.com/JakeFAU/leaderboard-webhooks/internal/id/uuid"
	"github.com/JakeFAU/leaderboard-webhooks/internal/leaderboard"
	"github.com/JakeFAU/leaderboard-webhooks/internal/linkpreview"
	"github.com/JakeFAU/leaderboard-webhooks/internal/pipeline"
	"github.com/JakeFAU/leaderboard-webhooks/internal/storage/cloudinary"
	"github.com/JakeFAU/leaderboard-webhooks/internal/storage/gcs"
	"github.com/JakeFAU/leaderboard-webhooks/internal/storage/local"
	"github.com/JakeFAU/leaderboard-webhooks/internal/storage/memory"
	"github.com/JakeFAU/leaderboard-webhooks/internal/storage/postgres"
	"github.com/JakeFAU/leaderboard-webhooks/internal/webhook"
)

// App holds the shared, long-lived services built from one Config.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Pipeline     *pipeline.Service
	Certificates *certificate.Generator
	// Requester is what the certificate trigger calls: the remote render
	// service when configured, otherwise Certificates.
	Requester certificate.Requester
	Blobs     certificate.BlobStore
	Sink      webhook.Sink
	Server    *api.Server

	closers []func()
}

// Option customizes New.
type Option func(*options)

type options struct {
	sink       webhook.Sink
	httpClient *http.Client
	clock      pipeline.Clock
}

// WithSink replaces the webhook client, e.g. with a recorder for dry runs.
func WithSink(sink webhook.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithHTTPClient sets the client used for every outbound call.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithClock overrides the wall clock.
func WithClock(clock pipeline.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// New builds every service cfg describes. It fails fast when a backing store
// cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := cfg.Leaderboard.Location()
	if err != nil {
		return nil, err
	}
	if o.clock == nil {
		o.clock = system.New(loc)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.OutboundTimeout()}
	}
	if o.sink == nil {
		o.sink = webhook.NewClient(cfg.Webhook.URI, o.httpClient, logger.Named("webhook"))
	}

	a := &App{Config: cfg, Logger: logger, Sink: o.sink}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	blobs, staticDir, err := a.newBlobStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Blobs = blobs

	renderer, err := certificate.NewRenderer(cfg.Certificate.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize certificate renderer: %w", err)
	}
	generator, err := certificate.NewGenerator(
		certificate.GeneratorConfig{
			Topic:       certificateTopic(cfg.Certificate.Topic, cfg.Leaderboard.EventYear(o.clock.Now())),
			Prefix:      cfg.Storage.Prefix,
			Concurrency: cfg.Certificate.Concurrency,
		},
		renderer,
		blobs,
		certificate.NewHTTPMedals(o.httpClient),
		uuid.New(),
		logger.Named("certificate"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize certificate generator: %w", err)
	}
	a.Certificates = generator
	a.Requester = generator
	if cfg.Certificate.ServiceURL != "" {
		a.Requester = certificate.NewClient(cfg.Certificate.ServiceURL, cfg.Auth.APISecret, o.httpClient)
	}

	latch, err := a.newFireLatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fire latch: %w", err)
	}
	trigger, err := pipeline.NewCertificateTrigger(
		pipeline.TriggerConfig{EndMonth: time.Month(cfg.Certificate.EndMonth), EndDay: cfg.Certificate.EndDay},
		o.clock,
		a.Requester,
		o.sink,
		latch,
		logger.Named("trigger"),
	)
	if err != nil {
		return nil, err
	}

	filter, err := linkpreview.NewFilter(cfg.LinkPreview.ExcludedTitles, cfg.LinkPreview.ExcludedDomains)
	if err != nil {
		return nil, fmt.Errorf("failed to compile link preview blocklists: %w", err)
	}
	scraper := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.LinkPreview.UserAgent,
		Timeout:   cfg.OutboundTimeout(),
	})
	previews := linkpreview.NewService(scraper, filter, cfg.LinkPreview.Concurrency, logger.Named("linkpreview"))

	svc, err := pipeline.NewService(cfg, pipeline.Deps{
		Board:    leaderboard.NewClient(cfg.Leaderboard.BaseURL, o.httpClient),
		Sink:     o.sink,
		Trigger:  trigger,
		Previews: previews,
		Clock:    o.clock,
		Logger:   logger.Named("pipeline"),
	})
	if err != nil {
		return nil, err
	}
	a.Pipeline = svc
	a.Server = api.NewServer(svc, generator, api.Options{
		APISecret: cfg.Auth.APISecret,
		StaticDir: staticDir,
	}, logger.Named("api"))

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("remote_certificates", cfg.Certificate.ServiceURL != ""),
		zap.Bool("fire_once", cfg.Certificate.FireOnce),
	)
	ok = true
	return a, nil
}

// newBlobStore returns the configured store and, for the local backend, the
// directory to serve under /dist.
func (a *App) newBlobStore(ctx context.Context) (certificate.BlobStore, string, error) {
	cfg := a.Config
	switch cfg.Storage.Backend {
	case config.StorageLocal:
		store, err := local.New(local.Config{
			BaseDir:   cfg.Storage.LocalDir,
			URLPrefix: strings.TrimRight(cfg.Server.PublicURL, "/") + "/dist",
		})
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	case config.StorageGCS:
		store, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, "", err
		}
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				a.Logger.Warn("error closing gcs client", zap.Error(err))
			}
		})
		return store, "", nil
	case config.StorageCloudinary:
		store, err := cloudinary.New(cloudinary.Config{
			CloudName: cfg.Storage.Cloudinary.CloudName,
			APIKey:    cfg.Storage.Cloudinary.APIKey,
			APISecret: cfg.Storage.Cloudinary.APISecret,
			Folder:    cfg.Storage.Cloudinary.Folder,
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	case config.StorageMemory:
		return memory.NewBlobStore(), "", nil
	default:
		return nil, "", fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// newFireLatch returns nil when every matching-day run should fire.
func (a *App) newFireLatch(ctx context.Context) (pipeline.FireLatch, error) {
	cfg := a.Config
	if !cfg.Certificate.FireOnce {
		return nil, nil
	}
	if cfg.DB.DSN == "" {
		a.Logger.Warn("certificate.fire_once without db.dsn keeps the latch in memory only")
		return memory.NewFireLatch(), nil
	}
	latch, err := postgres.NewFireLatch(ctx, postgres.FireLatchConfig{DSN: cfg.DB.DSN})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, latch.Close)
	return latch, nil
}

func certificateTopic(format string, year int) string {
	if strings.Contains(format, "%d") {
		return fmt.Sprintf(format, year)
	}
	return format
}

// Close releases every backing client in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
