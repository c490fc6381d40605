package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 30 * time.Second

// Sweeper is the part of the service the scheduler drives.
type Sweeper interface {
	SweepLowStock(ctx context.Context) (int, error)
	RemindUnpaidReady(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	log     *zap.Logger
}

// New registers the low-stock and payment-reminder sweeps on standard
// five-field cron specs. An empty spec disables that job.
func New(sweeper Sweeper, lowStockSpec string, reminderSpec string, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger{log}))),
		sweeper: sweeper,
		log:     log.Named("jobs"),
	}
	if lowStockSpec != "" {
		if _, err := s.cron.AddFunc(lowStockSpec, func() { s.run("low_stock_sweep", sweeper.SweepLowStock) }); err != nil {
			return nil, fmt.Errorf("low stock schedule %q: %w", lowStockSpec, err)
		}
	}
	if reminderSpec != "" {
		if _, err := s.cron.AddFunc(reminderSpec, func() { s.run("payment_reminders", sweeper.RemindUnpaidReady) }); err != nil {
			return nil, fmt.Errorf("payment reminder schedule %q: %w", reminderSpec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) run(name string, job func(ctx context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	startedAt := time.Now()
	count, err := job(ctx)
	if err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.log.Info("job finished", zap.String("job", name), zap.Int("count", count), zap.Duration("elapsed", time.Since(startedAt)))
}

// cronLogger adapts zap to cron.Logger for the recover wrapper.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
