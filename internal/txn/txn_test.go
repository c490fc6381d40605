package txn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/store/memory"
)

func TestRunWrapsFailuresAsAbort(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())
	core, logs := observer.New(zapcore.WarnLevel)
	c := New(repo, time.Second, zap.New(core))

	err := c.Run(context.Background(), "create_order", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.AddBranchTotals(ctx, memory.SeedBranchID, 1, decimal.Zero); err != nil {
			return err
		}
		_, err := tx.GetEmployee(ctx, "emp-missing")
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTransactionAborted)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var abort *store.AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, "create_order", abort.Op)
	assert.Zero(t, logs.Len(), "client errors are not logged")

	branch, err := repo.GetBranch(context.Background(), memory.SeedBranchID)
	require.NoError(t, err)
	assert.Equal(t, 0, branch.TotalOrders)
}

func TestRunLogsInfrastructureFailures(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())
	core, logs := observer.New(zapcore.WarnLevel)
	c := New(repo, time.Second, zap.New(core))

	err := c.Run(context.Background(), "adjust_stock", func(context.Context, store.Tx) error {
		return errors.New("connection reset")
	})
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("unit aborted").Len())
}

func TestRunBoundsExecutionTime(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())
	c := New(repo, 20*time.Millisecond, zap.NewNop())

	err := c.Run(context.Background(), "slow", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.AddBranchTotals(ctx, memory.SeedBranchID, 1, decimal.Zero); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, store.IsRetryable(err))

	branch, err := repo.GetBranch(context.Background(), memory.SeedBranchID)
	require.NoError(t, err)
	assert.Equal(t, 0, branch.TotalOrders, "timed out unit left no trace")
}
