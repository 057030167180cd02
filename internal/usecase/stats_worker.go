package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	statsQueueSize    = 1024
	statsMaxAttempts  = 5
	statsRetryBackoff = 2 * time.Second
)

type bumpTask struct {
	ReferrerID uuid.UUID
	Attempts   int
}

// StatsWorker drains ancestor-bump tasks off the registration path.
// Statistics and role failures must never block a registration; they are
// retried here with backoff, and anything that still fails is left for the
// reconciler.
type StatsWorker struct {
	stats StatsService
	log   *zap.Logger

	tasks chan bumpTask
	wg    sync.WaitGroup
	once  sync.Once
}

func NewStatsWorker(stats StatsService, log *zap.Logger) *StatsWorker {
	return &StatsWorker{
		stats: stats,
		log:   log,
		tasks: make(chan bumpTask, statsQueueSize),
	}
}

// Start launches the drain loop. It stops when ctx is cancelled.
func (sw *StatsWorker) Start(ctx context.Context) {
	sw.once.Do(func() {
		sw.wg.Add(1)
		go sw.run(ctx)
	})
}

// Wait blocks until the drain loop has exited.
func (sw *StatsWorker) Wait() {
	sw.wg.Wait()
}

// Enqueue never blocks. A full queue drops the task with a warning; the
// reconciler recomputes dropped counts on its next pass.
func (sw *StatsWorker) Enqueue(referrerID uuid.UUID) {
	select {
	case sw.tasks <- bumpTask{ReferrerID: referrerID}:
	default:
		sw.log.Warn("Stats queue full, dropping bump task",
			zap.String("referrer_id", referrerID.String()),
		)
	}
}

func (sw *StatsWorker) run(ctx context.Context) {
	defer sw.wg.Done()

	sw.log.Info("Stats worker started", zap.Int("queue_size", statsQueueSize))

	for {
		select {
		case <-ctx.Done():
			sw.log.Info("Stats worker shutdown", zap.Int("pending", len(sw.tasks)))
			return
		case task := <-sw.tasks:
			sw.process(ctx, task)
		}
	}
}

func (sw *StatsWorker) process(ctx context.Context, task bumpTask) {
	err := sw.stats.BumpAncestors(ctx, task.ReferrerID)
	if err == nil {
		return
	}

	task.Attempts++
	if task.Attempts >= statsMaxAttempts {
		sw.log.Error("Stats bump abandoned after retries, reconciler will heal",
			zap.Error(err),
			zap.String("referrer_id", task.ReferrerID.String()),
			zap.Int("attempts", task.Attempts),
		)
		return
	}

	sw.log.Warn("Stats bump failed, requeueing",
		zap.Error(err),
		zap.String("referrer_id", task.ReferrerID.String()),
		zap.Int("attempts", task.Attempts),
	)

	select {
	case <-ctx.Done():
	case <-time.After(statsRetryBackoff * time.Duration(task.Attempts)):
		select {
		case sw.tasks <- task:
		default:
			sw.log.Warn("Stats queue full on requeue, dropping task",
				zap.String("referrer_id", task.ReferrerID.String()),
			)
		}
	}
}
