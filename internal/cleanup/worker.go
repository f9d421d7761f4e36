package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stampworks/loyalty/internal/clock"
	"github.com/stampworks/loyalty/internal/config"
	customerdomain "github.com/stampworks/loyalty/internal/customer/domain"
	"github.com/stampworks/loyalty/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type WorkerParams struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Engine       *config.EngineConfigHolder
	Queue        *Queue
	CustomerRepo customerdomain.Repository
	Locker       *Locker          `optional:"true"`
	Metrics      *metrics.Metrics `optional:"true"`
}

// Worker drains cascade jobs in bounded batches. Every batch carries its
// own timeout and commits the cursor before the next one starts, so the
// loop can be interrupted and resumed at any point.
type Worker struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	engine       *config.EngineConfigHolder
	queue        *Queue
	customerRepo customerdomain.Repository
	locker       *Locker
	metrics      *metrics.Metrics
}

func NewWorker(p WorkerParams) *Worker {
	return &Worker{
		db:           p.DB,
		log:          p.Log.Named("cleanup.worker"),
		clock:        p.Clock,
		engine:       p.Engine,
		queue:        p.Queue,
		customerRepo: p.CustomerRepo,
		locker:       p.Locker,
		metrics:      p.Metrics,
	}
}

// RunForever polls for runnable jobs until ctx is cancelled. Engine config
// is re-read each cycle so batch sizes and pool width follow hot reloads.
func (w *Worker) RunForever(ctx context.Context) {
	w.log.Info("cleanup worker started")
	for {
		cfg := w.engine.Get()
		w.RunOnce(ctx)

		select {
		case <-ctx.Done():
			w.log.Info("cleanup worker stopped")
			return
		case <-time.After(cfg.CleanupPollInterval):
		}
	}
}

// RunOnce claims up to CleanupWorkers runnable jobs and drains them
// concurrently. It returns once every claimed job has either finished,
// failed, or been released back to pending.
func (w *Worker) RunOnce(ctx context.Context) {
	cfg := w.engine.Get()

	jobs, err := w.queue.ListRunnable(ctx, w.db, cfg.CleanupWorkers)
	if err != nil {
		w.log.Error("list runnable jobs", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for i := range jobs {
		job := jobs[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.drain(ctx, cfg, job)
		}()
	}
	wg.Wait()
}

func (w *Worker) drain(ctx context.Context, cfg config.EngineConfig, job Job) {
	log := w.log.With(
		zap.Int64("job_id", int64(job.ID)),
		zap.Int64("merchant_id", int64(job.MerchantID)),
		zap.String("kind", string(job.Kind)),
	)

	lockKey := fmt.Sprintf("loyalty:cleanup:%d:%s", job.MerchantID, job.Kind)
	token, ok, err := w.locker.TryLock(ctx, lockKey, cfg.CleanupLockTTL)
	if err != nil {
		log.Warn("cleanup lock unavailable", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	defer func() {
		if err := w.locker.Release(ctx, lockKey, token); err != nil {
			log.Warn("cleanup lock release failed", zap.Error(err))
		}
	}()

	claimed, err := w.queue.Claim(ctx, w.db, &job)
	if err != nil {
		log.Error("claim job", zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	start := w.clock.Now()
	if err := w.drainBatches(ctx, cfg, &job, log); err != nil {
		w.metrics.ObserveCleanupBatch(err)
		if job.Attempts >= cfg.CleanupMaxAttempts {
			log.Error("job failed permanently", zap.Int("attempts", job.Attempts), zap.Error(err))
			if ferr := w.queue.Finish(ctx, w.db, &job, JobFailed, err); ferr != nil {
				log.Error("mark job failed", zap.Error(ferr))
			}
			w.metrics.ObserveCleanupJob("failed", w.clock.Now().Sub(start).Seconds())
			return
		}
		log.Warn("job released for retry", zap.Int("attempts", job.Attempts), zap.Error(err))
		if rerr := w.queue.Release(ctx, w.db, &job, err); rerr != nil {
			log.Error("release job", zap.Error(rerr))
		}
		return
	}

	if err := w.queue.Finish(ctx, w.db, &job, JobDone, nil); err != nil {
		log.Error("mark job done", zap.Error(err))
		return
	}
	w.metrics.ObserveCleanupJob("done", w.clock.Now().Sub(start).Seconds())
	log.Info("cascade complete", zap.Int64("cursor", int64(job.Cursor)))
}

// drainBatches walks the merchant's customers in ascending ID order from
// the job's cursor. Each batch clears the kind's derived counters, deletes
// the kind's event history, then advances the cursor. All three writes are
// idempotent, so a batch that commits partially is simply redone.
func (w *Worker) drainBatches(ctx context.Context, cfg config.EngineConfig, job *Job, log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batchCtx, cancel := context.WithTimeout(ctx, cfg.CleanupBatchTimeout)
		err := w.runBatch(batchCtx, cfg, job)
		cancel()

		if err != nil {
			return err
		}
		if job.State == JobDone {
			return nil
		}
		w.metrics.ObserveCleanupBatch(nil)
	}
}

func (w *Worker) runBatch(ctx context.Context, cfg config.EngineConfig, job *Job) error {
	ids, err := w.customerRepo.ListIDsAfter(ctx, w.db, job.MerchantID, job.Cursor, cfg.CleanupBatchSize)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		job.State = JobDone
		return nil
	}

	if err := w.customerRepo.ClearProgramState(ctx, w.db, job.MerchantID, job.Kind, ids); err != nil {
		return err
	}
	if err := w.customerRepo.DeleteProgramEvents(ctx, w.db, job.MerchantID, job.Kind, ids); err != nil {
		return err
	}
	return w.queue.Advance(ctx, w.db, job, ids[len(ids)-1])
}
