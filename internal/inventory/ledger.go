package inventory

import (
	"context"
	"strings"
	"time"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/xid"
)

// Adjustment is one signed change to an item's stock. BranchID is optional;
// when set the item must belong to that branch.
type Adjustment struct {
	ItemID     string
	BranchID   string
	Delta      int
	ChangeType domain.ChangeType
	Reason     string
	Actor      string
	OrderID    string
}

// Ledger applies stock changes and writes their audit trail. Every method
// takes the unit's store.Tx, so the stock update and its log entry commit or
// roll back together.
type Ledger struct {
	now func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: func() time.Time { return time.Now().UTC() }}
}

// Normalize fills in the change type from the sign of the delta and checks
// that the two agree.
func Normalize(delta int, changeType domain.ChangeType) (domain.ChangeType, error) {
	if delta == 0 {
		return "", store.Invalid("delta", "must be a non-zero integer")
	}
	changeType = domain.ChangeType(strings.ToUpper(strings.TrimSpace(string(changeType))))
	if changeType == "" {
		if delta > 0 {
			return domain.ChangeRestock, nil
		}
		return domain.ChangeUsage, nil
	}
	if !changeType.Valid() {
		return "", store.Invalid("change_type", "unknown change type %q", changeType)
	}
	switch changeType {
	case domain.ChangeRestock, domain.ChangeReturn:
		if delta < 0 {
			return "", store.Invalid("delta", "%s requires a positive delta", changeType)
		}
	case domain.ChangeUsage, domain.ChangeDamage, domain.ChangeLost:
		if delta > 0 {
			return "", store.Invalid("delta", "%s requires a negative delta", changeType)
		}
	}
	return changeType, nil
}

func (l *Ledger) Adjust(ctx context.Context, tx store.Tx, adj Adjustment) (*domain.InventoryItem, *domain.StockLog, error) {
	changeType, err := Normalize(adj.Delta, adj.ChangeType)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(adj.ItemID) == "" {
		return nil, nil, store.Invalid("inventory_item_id", "is required")
	}

	item, err := tx.GetInventoryItemForUpdate(ctx, adj.ItemID)
	if err != nil {
		return nil, nil, err
	}
	if adj.BranchID != "" && item.BranchID != adj.BranchID {
		return nil, nil, store.NotFound("inventory item", adj.ItemID)
	}

	updated, err := tx.ApplyStockDelta(ctx, item.ID, adj.Delta, changeType == domain.ChangeRestock)
	if err != nil {
		return nil, nil, err
	}

	actor := adj.Actor
	if actor == "" {
		actor = "system"
	}
	entry := domain.StockLog{
		ID:              xid.New("log"),
		InventoryItemID: updated.ID,
		BranchID:        updated.BranchID,
		PerformedBy:     actor,
		ChangeType:      changeType,
		QuantityChanged: adj.Delta,
		NewStockLevel:   updated.CurrentStock,
		Reason:          strings.TrimSpace(adj.Reason),
		OrderID:         adj.OrderID,
		CreatedAt:       l.now(),
	}
	if err := tx.InsertStockLog(ctx, entry); err != nil {
		return nil, nil, err
	}
	return updated, &entry, nil
}

// FindConsumable returns the branch's active item of the category that still
// has stock, or nil.
func (l *Ledger) FindConsumable(ctx context.Context, tx store.Tx, branchID string, category domain.InventoryCategory) (*domain.InventoryItem, error) {
	item, err := tx.FindInventoryByCategory(ctx, branchID, category)
	if err != nil || item == nil {
		return nil, err
	}
	if item.CurrentStock <= 0 {
		return nil, nil
	}
	return item, nil
}

// Consume deducts quantity units of the category for an order. A missing or
// depleted category fails with *store.InsufficientStockError naming it.
func (l *Ledger) Consume(ctx context.Context, tx store.Tx, branchID string, category domain.InventoryCategory, quantity int, actor string, orderID string, reason string) (*domain.InventoryItem, *domain.StockLog, error) {
	item, err := l.FindConsumable(ctx, tx, branchID, category)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, &store.InsufficientStockError{Category: string(category), Requested: quantity}
	}
	return l.Adjust(ctx, tx, Adjustment{
		ItemID:     item.ID,
		BranchID:   branchID,
		Delta:      -quantity,
		ChangeType: domain.ChangeUsage,
		Reason:     reason,
		Actor:      actor,
		OrderID:    orderID,
	})
}
