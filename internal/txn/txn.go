package txn

import (
	"context"
	"time"

	"go.uber.org/zap"

	"laundrydesk/backend/internal/store"
)

const DefaultTimeout = 5 * time.Second

// Coordinator runs units of work against the Ledger Store. Every unit has a
// deadline, and any failure inside it comes back as a *store.AbortError.
type Coordinator struct {
	repo    store.Repository
	timeout time.Duration
	log     *zap.Logger
}

func New(repo store.Repository, timeout time.Duration, log *zap.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{repo: repo, timeout: timeout, log: log.Named("txn")}
}

// Run executes fn as one all-or-nothing unit named op. fn must perform every
// write through the supplied Tx and must not read through the Repository.
func (c *Coordinator) Run(ctx context.Context, op string, fn func(ctx context.Context, tx store.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startedAt := time.Now()
	err := c.repo.WithinTx(ctx, func(tx store.Tx) error {
		return fn(ctx, tx)
	})
	if err != nil {
		if !store.IsClientError(err) {
			c.log.Warn("unit aborted", zap.String("op", op), zap.Duration("elapsed", time.Since(startedAt)), zap.Error(err))
		}
		return &store.AbortError{Op: op, Err: err}
	}
	c.log.Debug("unit committed", zap.String("op", op), zap.Duration("elapsed", time.Since(startedAt)))
	return nil
}
