package cleanup

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/stampworks/loyalty/internal/config"
	programdomain "github.com/stampworks/loyalty/internal/program/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("cleanup",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
	fx.Provide(NewQueue),
	fx.Provide(asEnqueuer),
	fx.Provide(NewWorker),
	fx.Invoke(start),
)

// NewRedisClient returns nil when no address is configured; the lock then
// degrades to database-level claiming only.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

func asEnqueuer(q *Queue) programdomain.CleanupEnqueuer { return q }

func start(lc fx.Lifecycle, cfg config.Config, w *Worker) {
	if !cfg.CleanupWorkerEnabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				w.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
