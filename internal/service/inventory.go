package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/inventory"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/xid"
)

const defaultReorderLevel = 10

func (s *Service) AdjustInventory(ctx context.Context, itemID string, req domain.AdjustStockRequest) (domain.InventoryItem, error) {
	var updated domain.InventoryItem
	var wasPending bool
	orderID := strings.TrimSpace(req.OrderID)
	err := s.coord.Run(ctx, "adjust_inventory", func(ctx context.Context, tx store.Tx) error {
		// Order row before inventory row, the same lock order as a transition.
		var order *domain.Order
		if orderID != "" {
			var err error
			if order, err = tx.GetOrderForUpdate(ctx, orderID); err != nil {
				return err
			}
		}
		item, err := tx.GetInventoryItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if err := authorizeBranch(ctx, item.BranchID); err != nil {
			return err
		}
		if order != nil && order.BranchID != item.BranchID {
			return store.Invalid("order_id", "order %s belongs to another branch", orderID)
		}
		wasPending = item.ReorderPending

		result, _, err := s.ledger.Adjust(ctx, tx, inventory.Adjustment{
			ItemID:     item.ID,
			BranchID:   item.BranchID,
			Delta:      req.Delta,
			ChangeType: req.ChangeType,
			Reason:     req.Reason,
			Actor:      actorName(ctx),
			OrderID:    orderID,
		})
		if err != nil {
			return err
		}
		updated = *result
		return nil
	})
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.log.Info("inventory adjusted",
		zap.String("item_id", updated.ID),
		zap.Int("delta", req.Delta),
		zap.Int("current_stock", updated.CurrentStock),
	)
	if updated.ReorderPending && req.Delta < 0 || !updated.ReorderPending && wasPending {
		s.emitStockEvents(ctx, []domain.InventoryItem{updated}, map[string]bool{updated.ID: wasPending})
	}
	return updated, nil
}

// CreateInventoryItem registers a supply item. Opening stock goes through the
// ledger so the item's log always replays to its current level.
func (s *Service) CreateInventoryItem(ctx context.Context, req domain.InventoryCreateRequest) (domain.InventoryItem, error) {
	req.BranchID = strings.TrimSpace(req.BranchID)
	name := strings.TrimSpace(req.ItemName)
	if req.BranchID == "" {
		return domain.InventoryItem{}, store.Invalid("branch_id", "is required")
	}
	if name == "" {
		return domain.InventoryItem{}, store.Invalid("item_name", "is required")
	}
	category := domain.InventoryCategory(strings.ToUpper(strings.TrimSpace(string(req.Category))))
	if !category.Valid() {
		return domain.InventoryItem{}, store.Invalid("category", "unknown category %q", req.Category)
	}
	unit := domain.InventoryUnit(strings.ToLower(strings.TrimSpace(string(req.Unit))))
	if unit == "" {
		unit = domain.UnitPieces
	}
	if !unit.Valid() {
		return domain.InventoryItem{}, store.Invalid("unit", "unknown unit %q", req.Unit)
	}
	if req.InitialStock < 0 {
		return domain.InventoryItem{}, store.Invalid("initial_stock", "must not be negative")
	}
	reorderLevel := defaultReorderLevel
	if req.ReorderLevel != nil {
		reorderLevel = *req.ReorderLevel
	}
	if reorderLevel < 0 {
		return domain.InventoryItem{}, store.Invalid("reorder_level", "must not be negative")
	}
	if req.CostPerUnit.IsNegative() {
		return domain.InventoryItem{}, store.Invalid("cost_per_unit", "must not be negative")
	}
	if err := authorizeBranch(ctx, req.BranchID); err != nil {
		return domain.InventoryItem{}, err
	}

	now := s.now()
	item := domain.InventoryItem{
		ID:              xid.New("inv"),
		BranchID:        req.BranchID,
		ItemName:        name,
		SKU:             strings.TrimSpace(req.SKU),
		Category:        category,
		Unit:            unit,
		ReorderLevel:    reorderLevel,
		ReorderPending:  domain.NeedsReorder(0, reorderLevel),
		CostPerUnit:     req.CostPerUnit.Round(2),
		SupplierContact: strings.TrimSpace(req.SupplierContact),
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.coord.Run(ctx, "create_inventory_item", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetBranch(ctx, item.BranchID); err != nil {
			return err
		}
		if err := tx.InsertInventoryItem(ctx, item); err != nil {
			return err
		}
		if req.InitialStock == 0 {
			return nil
		}
		stocked, _, err := s.ledger.Adjust(ctx, tx, inventory.Adjustment{
			ItemID:     item.ID,
			BranchID:   item.BranchID,
			Delta:      req.InitialStock,
			ChangeType: domain.ChangeRestock,
			Reason:     "opening stock",
			Actor:      actorName(ctx),
		})
		if err != nil {
			return err
		}
		item = *stocked
		return nil
	})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	s.log.Info("inventory item created", zap.String("item_id", item.ID), zap.String("branch_id", item.BranchID))
	return item, nil
}

// UpdateInventoryItem edits descriptive fields and the reorder level. Stock
// only moves through AdjustInventory.
func (s *Service) UpdateInventoryItem(ctx context.Context, id string, req domain.InventoryUpdateRequest) (domain.InventoryItem, error) {
	var updated domain.InventoryItem
	var wasPending bool
	err := s.coord.Run(ctx, "update_inventory_item", func(ctx context.Context, tx store.Tx) error {
		item, err := tx.GetInventoryItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeBranch(ctx, item.BranchID); err != nil {
			return err
		}
		wasPending = item.ReorderPending

		if req.ItemName != nil {
			name := strings.TrimSpace(*req.ItemName)
			if name == "" {
				return store.Invalid("item_name", "must not be empty")
			}
			item.ItemName = name
		}
		if req.SKU != nil {
			item.SKU = strings.TrimSpace(*req.SKU)
		}
		if req.ReorderLevel != nil {
			if *req.ReorderLevel < 0 {
				return store.Invalid("reorder_level", "must not be negative")
			}
			item.ReorderLevel = *req.ReorderLevel
		}
		if req.CostPerUnit != nil {
			if req.CostPerUnit.IsNegative() {
				return store.Invalid("cost_per_unit", "must not be negative")
			}
			item.CostPerUnit = req.CostPerUnit.Round(2)
		}
		if req.SupplierContact != nil {
			item.SupplierContact = strings.TrimSpace(*req.SupplierContact)
		}
		if req.Active != nil {
			item.Active = *req.Active
		}

		result, err := tx.UpdateInventoryDetails(ctx, *item)
		if err != nil {
			return err
		}
		updated = *result
		return nil
	})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if updated.ReorderPending != wasPending {
		s.emitStockEvents(ctx, []domain.InventoryItem{updated}, map[string]bool{updated.ID: wasPending})
	}
	return updated, nil
}

func (s *Service) GetInventoryItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	item, err := s.repo.GetInventoryItem(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if err := authorizeBranch(ctx, item.BranchID); err != nil {
		return domain.InventoryItem{}, err
	}
	return *item, nil
}

func (s *Service) ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItem, error) {
	if actor, ok := ActorFromContext(ctx); ok && actor.Role != domain.RoleSuperAdmin {
		if filter.BranchID != "" && filter.BranchID != actor.BranchID {
			return nil, store.ErrForbidden
		}
		filter.BranchID = actor.BranchID
	}
	if filter.Category != "" {
		filter.Category = domain.InventoryCategory(strings.ToUpper(string(filter.Category)))
		if !filter.Category.Valid() {
			return nil, store.Invalid("category", "unknown category %q", filter.Category)
		}
	}
	return s.repo.ListInventory(ctx, filter)
}

func (s *Service) ListStockLogs(ctx context.Context, itemID string, limit int) ([]domain.StockLog, error) {
	if _, err := s.GetInventoryItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListStockLogs(ctx, itemID, clampLimit(limit))
}

// InventoryValue is the cost of the stock on hand for a branch.
func (s *Service) InventoryValue(ctx context.Context, branchID string) (decimal.Decimal, error) {
	items, err := s.ListInventory(ctx, domain.InventoryFilter{BranchID: branchID})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.CostPerUnit.Mul(decimal.NewFromInt(int64(item.CurrentStock))))
	}
	return total.Round(2), nil
}

// SweepLowStock re-announces every item that is still at or below its reorder
// level and returns how many alerts went out.
func (s *Service) SweepLowStock(ctx context.Context) (int, error) {
	items, err := s.repo.ListInventory(ctx, domain.InventoryFilter{LowStock: true})
	if err != nil {
		return 0, err
	}
	s.emitStockEvents(ctx, items, nil)
	return len(items), nil
}
