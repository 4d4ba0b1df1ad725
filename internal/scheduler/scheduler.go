// Package scheduler runs recurring engine tasks on cron specs. A Redis
// lease guards each task so overlapping deployments do not double-run.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// defaultLeaseTTL bounds how long a crashed holder can block reruns.
const defaultLeaseTTL = 30 * time.Minute

// Task is a unit of scheduled work.
type Task func(ctx context.Context) error

// Locker serializes task runs across processes. Acquire reports whether
// the caller now holds the lease.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// Scheduler wraps cron with per-task leasing and logging.
type Scheduler struct {
	cron     *cron.Cron
	locker   Locker
	logger   *zap.Logger
	leaseTTL time.Duration
}

func New(locker Locker, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		locker:   locker,
		logger:   logger,
		leaseTTL: defaultLeaseTTL,
	}
}

// Add registers a task under a standard 5-field cron spec.
func (s *Scheduler) Add(spec, name string, task Task) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runLocked(context.Background(), name, task)
	})
	if err != nil {
		return err
	}
	s.logger.Info("task scheduled", zap.String("task", name), zap.String("spec", spec))
	return nil
}

// Start begins dispatching in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts dispatching and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runLocked(ctx context.Context, name string, task Task) {
	log := s.logger.With(zap.String("task", name))

	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, name, s.leaseTTL)
		if err != nil {
			log.Error("lease acquire failed", zap.Error(err))
			return
		}
		if !acquired {
			log.Info("skipping run", zap.String("reason", "lease held elsewhere"))
			return
		}
		defer func() {
			if err := s.locker.Release(ctx, name); err != nil {
				log.Warn("lease release failed", zap.Error(err))
			}
		}()
	}

	started := time.Now()
	if err := task(ctx); err != nil {
		log.Error("task failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		return
	}
	log.Info("task complete", zap.Duration("elapsed", time.Since(started)))
}
