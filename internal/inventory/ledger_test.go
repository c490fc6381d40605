package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/store/memory"
)

func adjust(t *testing.T, repo *memory.Store, adj Adjustment) (*domain.InventoryItem, error) {
	t.Helper()
	var item *domain.InventoryItem
	ledger := NewLedger()
	err := repo.WithinTx(context.Background(), func(tx store.Tx) error {
		var err error
		item, _, err = ledger.Adjust(context.Background(), tx, adj)
		return err
	})
	return item, err
}

func replay(t *testing.T, repo *memory.Store, itemID string) int {
	t.Helper()
	logs, err := repo.ListStockLogs(context.Background(), itemID, 0)
	require.NoError(t, err)
	total := 0
	for _, entry := range logs {
		total += entry.QuantityChanged
	}
	return total
}

func TestAdjustWritesOneLogPerChange(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())

	item, err := adjust(t, repo, Adjustment{ItemID: "inv-main-softener", Delta: -31, Reason: "weekly usage", Actor: "staff"})
	require.NoError(t, err)
	assert.Equal(t, 9, item.CurrentStock)
	assert.True(t, item.ReorderPending)

	logs, err := repo.ListStockLogs(context.Background(), "inv-main-softener", 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ChangeUsage, logs[0].ChangeType)
	assert.Equal(t, -31, logs[0].QuantityChanged)
	assert.Equal(t, 9, logs[0].NewStockLevel)
	assert.Equal(t, "staff", logs[0].PerformedBy)

	item, err = adjust(t, repo, Adjustment{ItemID: "inv-main-softener", Delta: 20})
	require.NoError(t, err)
	assert.False(t, item.ReorderPending)
	assert.NotNil(t, item.LastRestockedAt)
	assert.Equal(t, item.CurrentStock, replay(t, repo, "inv-main-softener"))
}

func TestAdjustRejectsNegativeResultWithoutLogging(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())

	_, err := adjust(t, repo, Adjustment{ItemID: "inv-main-hangers", Delta: -13, ChangeType: domain.ChangeDamage})
	var stockErr *store.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 12, stockErr.Available)
	assert.Equal(t, 13, stockErr.Requested)

	logs, err := repo.ListStockLogs(context.Background(), "inv-main-hangers", 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1, "only the opening stock entry")

	item, err := repo.GetInventoryItem(context.Background(), "inv-main-hangers")
	require.NoError(t, err)
	assert.Equal(t, 12, item.CurrentStock)
}

func TestAdjustChecksBranchOwnership(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())

	_, err := adjust(t, repo, Adjustment{ItemID: "inv-main-hangers", BranchID: "branch-other", Delta: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = adjust(t, repo, Adjustment{ItemID: "inv-ghost", Delta: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNormalizeChangeTypes(t *testing.T) {
	cases := []struct {
		delta   int
		in      domain.ChangeType
		want    domain.ChangeType
		wantErr bool
	}{
		{5, "", domain.ChangeRestock, false},
		{-5, "", domain.ChangeUsage, false},
		{-5, "adjustment", domain.ChangeAdjustment, false},
		{5, domain.ChangeAdjustment, domain.ChangeAdjustment, false},
		{3, domain.ChangeReturn, domain.ChangeReturn, false},
		{-3, domain.ChangeLost, domain.ChangeLost, false},
		{0, domain.ChangeRestock, "", true},
		{-1, domain.ChangeRestock, "", true},
		{1, domain.ChangeDamage, "", true},
		{1, "GIFT", "", true},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.delta, tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, store.ErrValidation, "%d %s", tc.delta, tc.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestConsumeNamesMissingCategory(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())
	ledger := NewLedger()
	ctx := context.Background()

	err := repo.WithinTx(ctx, func(tx store.Tx) error {
		_, _, err := ledger.Consume(ctx, tx, memory.SeedBranchID, domain.CategoryChemicals, 1, "staff", "ord-1", "order ord-1")
		return err
	})
	var stockErr *store.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "CHEMICALS", stockErr.Category)
	assert.Contains(t, err.Error(), "CHEMICALS")
}

func TestConsumeLinksOrder(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())
	ledger := NewLedger()
	ctx := context.Background()

	var entry *domain.StockLog
	err := repo.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		_, entry, err = ledger.Consume(ctx, tx, memory.SeedBranchID, domain.CategoryDetergent, 2, "staff", "ord-9", "order ORD-9")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-9", entry.OrderID)
	assert.Equal(t, 58, entry.NewStockLevel)
	assert.Equal(t, domain.ChangeUsage, entry.ChangeType)
}

func TestConcurrentAdjustmentsNeverOversell(t *testing.T) {
	repo := memory.NewSeeded(zap.NewNop())

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := adjust(t, repo, Adjustment{ItemID: "inv-main-hangers", Delta: -1, Actor: "staff"}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	item, err := repo.GetInventoryItem(context.Background(), "inv-main-hangers")
	require.NoError(t, err)
	assert.Equal(t, 12, succeeded)
	assert.Equal(t, 0, item.CurrentStock)
	assert.Equal(t, 0, replay(t, repo, "inv-main-hangers"))
}
