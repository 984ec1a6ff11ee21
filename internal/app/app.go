// Package app initializes and holds long-lived application services, acting as
// a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-summaries/internal/api"
	"github.com/JakeFAU/article-summaries/internal/clock/system"
	"github.com/JakeFAU/article-summaries/internal/config"
	"github.com/JakeFAU/article-summaries/internal/dispatcher"
	"github.com/JakeFAU/article-summaries/internal/extract"
	collyfetcher "github.com/JakeFAU/article-summaries/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/article-summaries/internal/fetcher/headless"
	"github.com/JakeFAU/article-summaries/internal/hash/sha256"
	"github.com/JakeFAU/article-summaries/internal/headless/detector"
	"github.com/JakeFAU/article-summaries/internal/logging"
	"github.com/JakeFAU/article-summaries/internal/metrics"
	"github.com/JakeFAU/article-summaries/internal/policy/ratelimit"
	pubmemory "github.com/JakeFAU/article-summaries/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/article-summaries/internal/publisher/pubsub"
	queuememory "github.com/JakeFAU/article-summaries/internal/queue/memory"
	redisqueue "github.com/JakeFAU/article-summaries/internal/queue/redis"
	"github.com/JakeFAU/article-summaries/internal/storage/gcs"
	"github.com/JakeFAU/article-summaries/internal/storage/local"
	"github.com/JakeFAU/article-summaries/internal/storage/memory"
	"github.com/JakeFAU/article-summaries/internal/storage/postgres"
	"github.com/JakeFAU/article-summaries/internal/summarize"
	"github.com/JakeFAU/article-summaries/internal/summary"
	"github.com/JakeFAU/article-summaries/internal/telemetry"
	"github.com/JakeFAU/article-summaries/internal/worker"
)

// App holds all the shared, long-lived services for the application. It is
// built once at startup by New and torn down with Close.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	store      summary.Store
	queue      summary.Queue
	dispatcher *dispatcher.Dispatcher
	server     *api.Server

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// New instantiates every backend selected by cfg. It fails fast if any
// critical service cannot be initialized and releases whatever was already
// opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Initializing application services...", zap.String("environment", cfg.Environment))
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: logging.ServiceName,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.onClose("tracing", func() error {
		return shutdownTracing(context.Background())
	})

	if a.store, err = a.openStore(ctx); err != nil {
		return nil, err
	}
	if a.queue, err = a.openQueue(ctx); err != nil {
		return nil, err
	}
	blobs, err := a.openBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.openPublisher(ctx)
	if err != nil {
		return nil, err
	}

	clock := system.New()
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Fetch.UserAgent,
		RespectRobots: cfg.Fetch.RespectRobots,
		Timeout:       cfg.FetchTimeout(),
	})
	headless, render := a.openHeadless()
	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.Fetch.PerHostRPS, Burst: cfg.Fetch.PerHostBurst})
	hasher := sha256.New()
	initialDelay, maxDelay := cfg.RetryBackoff()
	retry := summary.NewExponentialRetryPolicy(cfg.Worker.MaxRetries, initialDelay, maxDelay)
	extractor := extract.New(cfg.Summarizer.MaxInputBytes)
	summarizer := summarize.New(cfg.Summarizer.Sentences)
	workerCfg := worker.Config{
		ContentType:     cfg.Storage.ContentType,
		BlobPrefix:      cfg.Storage.Prefix,
		HeadlessMinText: cfg.Fetch.HeadlessMinText,
	}

	runners := make([]dispatcher.Runner, 0, cfg.Worker.Concurrency)
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		runners = append(runners, worker.New(
			a.queue,
			a.store,
			blobs,
			publisher,
			hasher,
			clock,
			fetcher,
			headless,
			render,
			limiter,
			extractor,
			summarizer,
			retry,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	a.dispatcher = dispatcher.New(a.queue, runners)
	a.server = api.NewServer(a.store, a.dispatcher, clock, cfg, logger)

	logger.Info("Application services initialized successfully.",
		zap.Int("workers", len(runners)),
		zap.Bool("headless", headless != nil),
	)
	return a, nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store exposes the summary store.
func (a *App) Store() summary.Store {
	return a.store
}

// Queue exposes the task queue feeding the worker pool.
func (a *App) Queue() summary.Queue {
	return a.queue
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// RunWorkers blocks running the worker pool until ctx is canceled.
func (a *App) RunWorkers(ctx context.Context) {
	a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Worker.Concurrency))
	a.dispatcher.Run(ctx)
	a.logger.Info("dispatcher stopped")
}

// Close releases every service in reverse order of creation.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("Error closing service", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

func (a *App) openStore(ctx context.Context) (summary.Store, error) {
	if a.cfg.DatabaseURL == "" {
		a.logger.Info("Using in-memory summary store. Records are lost on restart.")
		return memory.NewSummaryStore(), nil
	}
	a.logger.Info("Connecting to PostgreSQL...")
	store, err := postgres.NewSummaryStore(ctx, postgres.Config{DSN: a.cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.onClose("postgres", func() error {
		store.Close()
		return nil
	})
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (a *App) openQueue(ctx context.Context) (summary.Queue, error) {
	switch a.cfg.Queue.Backend {
	case "redis":
		a.logger.Info("Connecting to Redis task queue", zap.String("addr", a.cfg.Queue.RedisAddr))
		q, err := redisqueue.New(ctx, redisqueue.Config{Addr: a.cfg.Queue.RedisAddr, Key: a.cfg.Queue.RedisKey})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize queue: %w", err)
		}
		a.onClose("redis", q.Close)
		return q, nil
	case "memory", "":
		q := queuememory.NewQueue(a.cfg.Queue.Depth)
		a.onClose("queue", q.Close)
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue backend: %s", a.cfg.Queue.Backend)
	}
}

// openBlobStore returns nil when raw HTML should not be archived.
func (a *App) openBlobStore(ctx context.Context) (summary.BlobStore, error) {
	switch {
	case a.cfg.Storage.GCSBucket != "":
		a.logger.Info("Using GCS blob store", zap.String("bucket", a.cfg.Storage.GCSBucket))
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.onClose("gcs", client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		return store, nil
	case a.cfg.Storage.LocalDir != "":
		a.logger.Info("Using local blob store", zap.String("dir", a.cfg.Storage.LocalDir))
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.onClose("local archive", store.Close)
		return store, nil
	case a.cfg.Environment == config.DefaultEnvironment:
		a.logger.Info("Using in-memory blob store. Raw HTML is kept until restart.")
		return memory.NewBlobStore(), nil
	default:
		a.logger.Info("No blob store configured. Raw HTML will be discarded.")
		return nil, nil
	}
}

// openPublisher returns nil when completion events are not published.
func (a *App) openPublisher(ctx context.Context) (summary.Publisher, error) {
	switch {
	case a.cfg.PubSub.Topic != "":
		a.logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", a.cfg.PubSub.Topic))
		pub, client, err := pubsubpublisher.Connect(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.Topic)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize publisher: %w", err)
		}
		a.onClose("pubsub", client.Close)
		a.onClose("pubsub topic", func() error {
			pub.Stop()
			return nil
		})
		return pub, nil
	case a.cfg.Environment == config.DefaultEnvironment:
		a.logger.Info("Using in-memory publisher. Events are not delivered.")
		return pubmemory.New(), nil
	default:
		return nil, nil
	}
}

// openHeadless returns nils when headless rendering is disabled or Chrome
// cannot be started; the worker then relies on plain fetches.
func (a *App) openHeadless() (summary.Fetcher, summary.RenderDetector) {
	if !a.cfg.Fetch.HeadlessEnabled {
		return nil, nil
	}
	f, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:       a.cfg.Fetch.HeadlessMaxPar,
		UserAgent:         a.cfg.Fetch.UserAgent,
		NavigationTimeout: a.cfg.HeadlessNavTimeout(),
	})
	if err != nil {
		a.logger.Warn("headless fetcher init failed", zap.Error(err))
		return nil, nil
	}
	a.onClose("headless", func() error {
		f.Close()
		return nil
	})
	return f, detector.NewHeuristic(a.cfg.Fetch.HeadlessPromotionBytes)
}
