package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is a named task run on a cron schedule.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler drives background maintenance. Jobs share the context given at
// registration, so cancelling it reaches in-flight runs too.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Schedule registers the job under a standard five-field cron spec. A tick is
// dropped while the previous run of the same job is still in flight.
func (s *Scheduler) Schedule(ctx context.Context, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, runGuarded(ctx, job)); err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	logutil.GetLogger(ctx).Info("background job registered",
		zap.String("job", job.Name()),
		zap.String("cron", spec),
	)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func runGuarded(ctx context.Context, job Job) func() {
	var busy atomic.Bool
	return func() {
		if !busy.CompareAndSwap(false, true) {
			logutil.GetLogger(ctx).Warn("previous run still in flight, skipping tick",
				zap.String("job", job.Name()),
			)
			return
		}
		defer busy.Store(false)

		logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			logger.Error("background job failed", zap.Error(err), zap.Duration("took", time.Since(start)))
			return
		}
		logger.Info("background job done", zap.Duration("took", time.Since(start)))
	}
}
