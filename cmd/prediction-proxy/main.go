// cmd/prediction-proxy/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"retention-proxy/internal/common/config"
	"retention-proxy/internal/common/database"
	"retention-proxy/internal/common/logger"
	"retention-proxy/internal/common/observability"
	"retention-proxy/internal/featurestore"
	"retention-proxy/internal/inference"
	"retention-proxy/internal/prediction"
	"retention-proxy/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff.
// Only used to reach dataset backends at startup; inference calls are never
// retried.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}).With(zap.String("service", cfg.App.Name), zap.String("version", cfg.App.Version))
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting prediction proxy...",
		zap.String("environment", cfg.App.Environment),
		zap.String("datasetSource", cfg.Dataset.Source),
		zap.String("inferenceURL", cfg.Inference.BaseURL),
		zap.Int("inferenceTimeoutMs", cfg.Inference.Timeout),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("observability setup failed, continuing without otel metrics", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Feature store ---
	src, closeSource, err := datasetSource(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("dataset source setup failed", zap.Error(err))
	}
	defer closeSource()

	loadCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Dataset.LoadTimeout))
	store, err := featurestore.Load(loadCtx, src)
	cancel()
	if err != nil {
		zapLog.Warn("dataset load failed, serving with an empty store",
			zap.String("source", src.Name()),
			zap.Error(err),
		)
	} else {
		zapLog.Info("dataset loaded",
			zap.String("source", src.Name()),
			zap.Int("usersLoaded", store.Len()),
			zap.Int("fields", len(store.Fields())),
		)
	}
	holder := featurestore.NewHolder(store, log)

	// --- Inference + prediction ---
	inferenceClient, err := inference.NewClient(&inference.Config{
		BaseURL: cfg.Inference.BaseURL,
		Timeout: config.GetDuration(cfg.Inference.Timeout),
	}, log)
	if err != nil {
		zapLog.Fatal("inference client setup failed", zap.Error(err))
	}

	svc := prediction.NewService(prediction.LoadConfig(cfg.Inference.Timeout), holder, inferenceClient, obs, log)
	srv := server.New(server.LoadConfig(cfg), holder, svc, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.Dataset.Watch {
		g.Go(func() error {
			if err := holder.Watch(gctx, cfg.Dataset.Path, src, featurestore.DefaultReloadDebounce); err != nil {
				zapLog.Warn("dataset watch stopped", zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zapLog.Fatal("server failed", zap.Error(err))
	}
	zapLog.Info("Prediction proxy stopped")
}

// datasetSource builds the configured Source and a func releasing its
// connections. Backend connectivity problems are logged, not fatal: the
// subsequent load fails softly and the service starts with an empty store.
func datasetSource(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (featurestore.Source, func(), error) {
	switch cfg.Dataset.Source {
	case config.DatasetSourceFile:
		return featurestore.NewFileSource(cfg.Dataset.Path), func() {}, nil

	case config.DatasetSourceRedis:
		rdb := database.NewRedis(cfg.Database.Redis)
		err := retryWithBackoff(ctx, func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return rdb.Ping(pingCtx)
		}, 3, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unreachable", zap.Error(err))
		}
		return featurestore.NewRedisSource(rdb.Client, cfg.Dataset.RedisKey), func() { _ = rdb.Close() }, nil

	case config.DatasetSourcePostgres:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		err = retryWithBackoff(ctx, func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return pg.Ping(pingCtx)
		}, 3, time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Warn("postgres unreachable", zap.Error(err))
		}
		return featurestore.NewPostgresSource(pg.DB, cfg.Dataset.PostgresTable), func() { _ = pg.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown dataset source %q", cfg.Dataset.Source)
	}
}
