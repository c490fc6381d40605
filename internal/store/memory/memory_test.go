package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
)

func TestWithinTxRollsBackEveryWriteOnError(t *testing.T) {
	s := NewSeeded(zap.NewNop())
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.AddBranchTotals(ctx, SeedBranchID, 1, decimal.NewFromInt(25)); err != nil {
			return err
		}
		if _, err := tx.ApplyStockDelta(ctx, "inv-main-detergent", -5, false); err != nil {
			return err
		}
		if err := tx.InsertStockLog(ctx, domain.StockLog{ID: "log-x", InventoryItemID: "inv-main-detergent"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	branch, err := s.GetBranch(ctx, SeedBranchID)
	require.NoError(t, err)
	assert.Equal(t, 0, branch.TotalOrders)
	assert.True(t, branch.TotalRevenue.IsZero())

	item, err := s.GetInventoryItem(ctx, "inv-main-detergent")
	require.NoError(t, err)
	assert.Equal(t, 60, item.CurrentStock)

	logs, err := s.ListStockLogs(ctx, "inv-main-detergent", 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1, "only the opening stock entry")
}

func TestWithinTxDropsWorkWhenContextExpires(t *testing.T) {
	s := NewSeeded(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.AddEmployeeTasks(ctx, SeedEmployeeID, 3, 0)
		cancel()
		return err
	})
	require.ErrorIs(t, err, context.Canceled)

	employee, err := s.GetEmployee(context.Background(), SeedEmployeeID)
	require.NoError(t, err)
	assert.Equal(t, 0, employee.AssignedTasks)
}

func TestApplyStockDeltaNeverGoesNegative(t *testing.T) {
	s := NewSeeded(zap.NewNop())
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.ApplyStockDelta(ctx, "inv-main-hangers", -13, false)
		return err
	})
	var stockErr *store.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "HANGERS", stockErr.Category)
	assert.Equal(t, 12, stockErr.Available)

	var item *domain.InventoryItem
	err = s.WithinTx(ctx, func(tx store.Tx) error {
		item, err = tx.ApplyStockDelta(ctx, "inv-main-hangers", -10, false)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, item.CurrentStock)
	assert.True(t, item.ReorderPending)
}

func TestInsertOrderRejectsDuplicateNumber(t *testing.T) {
	s := New()
	ctx := context.Background()
	order := domain.Order{ID: "ord-1", OrderNumber: "ORD-AAAAAA"}

	require.NoError(t, s.WithinTx(ctx, func(tx store.Tx) error { return tx.InsertOrder(ctx, order) }))

	order.ID = "ord-2"
	err := s.WithinTx(ctx, func(tx store.Tx) error { return tx.InsertOrder(ctx, order) })
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestFindInventoryByCategoryIsCaseInsensitive(t *testing.T) {
	s := NewSeeded(zap.NewNop())
	ctx := context.Background()

	var found, missing *domain.InventoryItem
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		if found, err = tx.FindInventoryByCategory(ctx, SeedBranchID, "softener"); err != nil {
			return err
		}
		missing, err = tx.FindInventoryByCategory(ctx, SeedBranchID, domain.CategoryChemicals)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "inv-main-softener", found.ID)
	assert.Nil(t, missing)
}

func TestListInventoryLowStockFilter(t *testing.T) {
	s := NewSeeded(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.ApplyStockDelta(ctx, "inv-main-softener", -35, false)
		return err
	}))

	items, err := s.ListInventory(ctx, domain.InventoryFilter{BranchID: SeedBranchID, LowStock: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "inv-main-softener", items[0].ID)
}

func TestCountersNeverGoNegative(t *testing.T) {
	s := NewSeeded(zap.NewNop())
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.AddEmployeeTasks(ctx, SeedEmployeeID, 1, 0); err != nil {
			return err
		}
		_, err := tx.AddEmployeeTasks(ctx, SeedEmployeeID, -2, 1)
		return err
	})
	require.ErrorIs(t, err, store.ErrCheckViolation)

	employee, err := s.GetEmployee(ctx, SeedEmployeeID)
	require.NoError(t, err)
	assert.Equal(t, 0, employee.AssignedTasks, "the whole unit was dropped")
	assert.Equal(t, 0, employee.CompletedTasks)

	err = s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.AddBranchTotals(ctx, SeedBranchID, -1, decimal.Zero)
		return err
	})
	require.ErrorIs(t, err, store.ErrCheckViolation)

	branch, err := s.GetBranch(ctx, SeedBranchID)
	require.NoError(t, err)
	assert.Equal(t, 0, branch.TotalOrders)
}
