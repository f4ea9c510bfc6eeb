package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/upb/llm-arena/config"
	"github.com/upb/llm-arena/internal/observability"
	"github.com/upb/llm-arena/middleware"
	"github.com/upb/llm-arena/repositories"
	"github.com/upb/llm-arena/repositories/memory"
	"github.com/upb/llm-arena/repositories/postgres"
	"github.com/upb/llm-arena/repositories/redisstore"
	"github.com/upb/llm-arena/services/aggregation"
	"github.com/upb/llm-arena/services/diagnostics"
	"github.com/upb/llm-arena/services/history"
	"github.com/upb/llm-arena/services/providers"
	"github.com/upb/llm-arena/services/providers/catalog"
	"github.com/upb/llm-arena/services/votes"
	"go.uber.org/zap"
)

// ServiceName identifies the process in traces.
const ServiceName = "llm-arena"

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Store; only one of RepoFactory and Redis is set, neither for memory
	RepoFactory  *postgres.RepositoryFactory
	Redis        *redis.Client
	Repositories *repositories.Repositories

	// Providers
	Registry    *providers.Registry
	Credentials providers.Credentials

	// Observability
	Metrics        observability.Metrics
	MetricsHandler http.Handler
	Tracing        observability.Tracing

	// Services
	Aggregator  *aggregation.Service
	Diagnostics *diagnostics.Service
	Votes       *votes.Service
	History     *history.Service

	Sessions *middleware.SessionManager
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initObservability(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := deps.initProviders(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("store", cfg.Store.Backend),
		zap.Int("providers", deps.Registry.Len()),
		zap.String("dispatch", cfg.Generation.DispatchMode))
	return deps, nil
}

func (d *Dependencies) initObservability(ctx context.Context, cfg *config.Config) error {
	d.Metrics = observability.NopMetrics{}
	if cfg.Observability.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := observability.NewPrometheusMetrics(registry)
		if err != nil {
			return err
		}
		d.Metrics = metrics
		d.MetricsHandler = metrics.Handler()
	}

	tracing, err := observability.SetupTracing(ctx, ServiceName, observability.TracingConfig{
		Enabled:    cfg.Observability.TracingEnabled,
		Endpoint:   cfg.Observability.TracingEndpoint,
		SampleRate: cfg.Observability.TracingSampleRate,
	})
	if err != nil {
		return err
	}
	d.Tracing = tracing
	return nil
}

// initStore connects the configured vote/history backend
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Backend {
	case config.StoreMemory, "":
		d.Repositories = memory.NewRepositories(cfg.Store.HistoryTTL)

	case config.StoreRedis:
		client, err := redisstore.NewClient(ctx, cfg.Store.RedisURL)
		if err != nil {
			return err
		}
		d.Redis = client
		d.Repositories = redisstore.NewRepositories(client, cfg.Store.RedisPrefix, cfg.Store.HistoryTTL, d.Logger)

	case config.StorePostgres:
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		if err := factory.GetDB().InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		d.Repositories = factory.NewRepositories(cfg.Store.HistoryTTL)

	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	d.Logger.Info("store initialized", zap.String("backend", cfg.Store.Backend))
	return nil
}

func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry, creds, err := catalog.Build(cfg)
	if err != nil {
		return err
	}
	d.Registry = registry
	d.Credentials = creds

	for _, cred := range providers.AllCredentials {
		if !creds.Has(cred) {
			d.Logger.Warn("provider credential not configured", zap.String("credential", string(cred)))
		}
	}
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) {
	d.Aggregator = aggregation.NewService(d.Registry, d.Credentials, aggregation.Options{
		DispatchMode:   cfg.Generation.DispatchMode,
		RequestTimeout: cfg.Generation.RequestTimeout,
		Metrics:        d.Metrics,
		Tracer:         d.Tracing.Tracer,
	}, d.Logger.Named("aggregation"))
	d.Diagnostics = diagnostics.NewService(d.Registry, d.Credentials, d.Aggregator, d.Logger.Named("diagnostics"))
	d.Votes = votes.NewService(d.Repositories.Votes, d.Registry, d.Metrics, d.Logger.Named("votes"))
	d.History = history.NewService(d.Repositories.History, d.Logger.Named("history"))
	d.Sessions = middleware.NewSessionManager(cfg.Session, d.Logger.Named("session"))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var result *multierror.Error

	if d.Tracing.Shutdown != nil {
		if err := d.Tracing.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to shut down tracing: %w", err))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close redis: %w", err))
		} else {
			d.Logger.Info("redis connection closed")
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return result.ErrorOrNil()
}
