package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/config"
	"github.com/adpilot/backend/internal/db"
	"github.com/adpilot/backend/internal/events"
	"github.com/adpilot/backend/internal/generation"
	"github.com/adpilot/backend/internal/queue"
	"github.com/adpilot/backend/internal/repositories"
	"github.com/adpilot/backend/internal/services"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	pipeline, err := generation.NewPipelineFromConfig(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build generation pipeline", zap.Error(err))
	}

	worker := services.NewGenerationWorker(
		repositories.NewCampaignRepo(pool),
		repositories.NewCreativeRepo(pool),
		pipeline,
		repositories.NewAuditRepo(pool),
		events.NewRedisPublisher(rdb, log),
		log.Named("worker"),
	)

	host, _ := os.Hostname()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		consumer := queue.NewConsumer(rdb, queue.ConsumerOptions{
			Stream:    cfg.GenerationQueue,
			Group:     cfg.GenerationGroup,
			Consumer:  fmt.Sprintf("%s-%d", host, i),
			ClaimIdle: cfg.QueueClaimIdle,
		}, log.Named("queue"))
		g.Go(func() error {
			return consume(gctx, consumer, worker.Handle, log)
		})
	}

	log.Info("worker started",
		zap.String("stream", cfg.GenerationQueue),
		zap.Int("concurrency", cfg.WorkerConcurrency),
	)
	if err := g.Wait(); err != nil {
		log.Error("worker stopped", zap.Error(err))
		return
	}
	log.Info("worker stopped")
}

type streamConsumer interface {
	EnsureGroup(ctx context.Context) error
	Run(ctx context.Context, handle queue.Handler) error
}

// A consumer that ran this long before failing counts as recovered, so the
// next outage starts again from the shortest backoff.
const healthyRun = 30 * time.Second

// consume keeps one consumer attached to the stream. Broker outages are
// retried with exponential backoff capped at a minute; anything else ends
// the worker.
func consume(ctx context.Context, consumer streamConsumer, handle queue.Handler, log *zap.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		log.Warn("queue unavailable, reconnecting", zap.Duration("wait", wait), zap.Error(err))
	}
	return supervise(ctx, consumer, handle, policy, healthyRun, notify)
}

func supervise(ctx context.Context, consumer streamConsumer, handle queue.Handler, policy backoff.BackOff, healthyAfter time.Duration, notify backoff.Notify) error {
	op := func() error {
		if err := consumer.EnsureGroup(ctx); err != nil {
			return err
		}
		started := time.Now()
		err := consumer.Run(ctx, handle)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		if time.Since(started) >= healthyAfter {
			policy.Reset()
		}
		if apperr.IsQueueConnectivity(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.RetryNotify(op, backoff.WithContext(policy, ctx), notify)
}
