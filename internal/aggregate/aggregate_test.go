package aggregate

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/store/memory"
)

func TestUpdaterMovesCountersByDelta(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())
	ctx := context.Background()

	err := repo.WithinTx(ctx, func(tx store.Tx) error {
		u := New(tx)
		require.NoError(t, u.OrderPlaced(ctx, memory.SeedBranchID))
		require.NoError(t, u.OrderPlaced(ctx, memory.SeedBranchID))
		require.NoError(t, u.OrderRemoved(ctx, memory.SeedBranchID))
		require.NoError(t, u.AdjustRevenue(ctx, memory.SeedBranchID, decimal.NewFromInt(100)))
		require.NoError(t, u.AdjustRevenue(ctx, memory.SeedBranchID, decimal.NewFromInt(-20)))
		require.NoError(t, u.AssignTask(ctx, memory.SeedEmployeeID))
		require.NoError(t, u.AssignTask(ctx, memory.SeedEmployeeID))
		require.NoError(t, u.CompleteTask(ctx, memory.SeedEmployeeID))
		require.NoError(t, u.Reassign(ctx, memory.SeedEmployeeID, "emp-main-02"))
		return nil
	})
	require.NoError(t, err)

	branch, err := repo.GetBranch(ctx, memory.SeedBranchID)
	require.NoError(t, err)
	assert.Equal(t, 1, branch.TotalOrders)
	assert.True(t, branch.TotalRevenue.Equal(decimal.NewFromInt(80)), "revenue %s", branch.TotalRevenue)

	first, err := repo.GetEmployee(ctx, memory.SeedEmployeeID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.AssignedTasks)
	assert.Equal(t, 1, first.CompletedTasks)

	second, err := repo.GetEmployee(ctx, "emp-main-02")
	require.NoError(t, err)
	assert.Equal(t, 1, second.AssignedTasks)
}

func TestUpdaterIgnoresEmptyAssignee(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())
	ctx := context.Background()

	err := repo.WithinTx(ctx, func(tx store.Tx) error {
		u := New(tx)
		if err := u.AssignTask(ctx, ""); err != nil {
			return err
		}
		return u.Reassign(ctx, "", "")
	})
	assert.NoError(t, err)
}

func TestUpdaterFailsOnUnknownEmployee(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())
	ctx := context.Background()

	err := repo.WithinTx(ctx, func(tx store.Tx) error {
		return New(tx).Reassign(ctx, memory.SeedEmployeeID, "emp-ghost")
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
