package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lvonguyen/cyberguard/internal/api/gateway"
	"github.com/lvonguyen/cyberguard/internal/config"
	"github.com/lvonguyen/cyberguard/internal/observability"
	"github.com/lvonguyen/cyberguard/internal/osint"
	"github.com/lvonguyen/cyberguard/internal/service"
	"github.com/lvonguyen/cyberguard/internal/store"
	"github.com/lvonguyen/cyberguard/internal/store/mongostore"
)

// app owns every long-lived component of the process.
type app struct {
	cfg       *config.Config
	telemetry *observability.Telemetry
	logger    *zap.Logger
	store     store.Store
	redis     *redis.Client
	limiter   *gateway.RateLimiter
	domains   *service.Domains
	alerts    *service.Alerts
	scheduler *osint.Scheduler
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, cfgErr := config.Load(configPath)
	if cfgErr != nil && !errors.Is(cfgErr, config.ErrNoConfigFile) {
		return nil, cfgErr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	telemetry, err := observability.New(cfg.Telemetry(Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	logger := telemetry.Logger()
	if cfgErr != nil {
		logger.Warn("Config file not found, using defaults", zap.String("path", configPath))
	}
	logger.Info("Starting CyberGuard",
		zap.String("version", Version),
		zap.String("commit", GitCommit),
		zap.String("storage", cfg.Storage.Driver),
	)

	a := &app{cfg: cfg, telemetry: telemetry, logger: logger}

	switch cfg.Storage.Driver {
	case config.DriverMongo:
		ms, err := mongostore.Connect(ctx, mongostore.Options{
			URI:         cfg.Storage.Mongo.URI,
			Database:    cfg.Storage.Mongo.Database,
			MaxPoolSize: cfg.Storage.Mongo.MaxPoolSize,
			Timeout:     cfg.Storage.Mongo.Timeout,
		}, logger)
		if err != nil {
			logger.Error("Database connection failed", zap.Error(err))
			_ = telemetry.Shutdown(context.Background())
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		a.store = ms
	default:
		a.store = store.NewMemory()
	}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.RedisPassword(),
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		var limited prometheus.Counter
		if m := telemetry.Metrics(); m != nil {
			limited = m.RateLimited
		}
		a.limiter = gateway.NewRateLimiter(a.redis, gateway.RateLimitConfig{
			Requests:       cfg.RateLimit.Requests,
			Window:         cfg.RateLimit.Window,
			IncludeHeaders: cfg.RateLimit.IncludeHeaders,
		}, limited, logger)
	} else {
		logger.Warn("Redis address not configured, rate limiting disabled")
	}

	clock := clockwork.NewRealClock()
	a.alerts = service.NewAlerts(a.store.Alerts(), clock, logger.Named("alerts"))
	a.domains, err = service.NewDomains(a.store.Domains(), a.alerts, clock, logger.Named("domains"), cfg.CheckCacheSize)
	if err != nil {
		a.close()
		return nil, err
	}

	opts := []osint.PipelineOption{osint.WithClock(clock), osint.WithTracer(telemetry.Tracer())}
	if m := telemetry.Metrics(); m != nil {
		opts = append(opts, osint.WithMetrics(m))
	}
	pipeline := osint.NewPipeline(cfg.OSINT, osint.NewSources(cfg.OSINT), a.domains, a.alerts, logger.Named("osint"), opts...)
	a.scheduler = osint.NewScheduler(pipeline, cfg.ActiveSchedule(), logger.Named("osint"))

	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.scheduler != nil {
		a.scheduler.Stop()
		if err := a.scheduler.Wait(ctx); err != nil {
			a.logger.Warn("OSINT cycle still running at close", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			a.logger.Warn("Failed to close store", zap.Error(err))
		}
	}
	_ = a.telemetry.Shutdown(ctx)
}
