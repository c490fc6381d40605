package memory

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
)

type memTx struct {
	st  *state
	now time.Time
}

func (t *memTx) GetOrderForUpdate(_ context.Context, id string) (*domain.Order, error) {
	order, ok := t.st.orders[id]
	if !ok {
		return nil, store.NotFound("order", id)
	}
	dup := cloneOrder(order)
	return &dup, nil
}

func (t *memTx) InsertOrder(_ context.Context, order domain.Order) error {
	if _, exists := t.st.orders[order.ID]; exists {
		return fmt.Errorf("order %s: %w", order.ID, store.ErrDuplicateKey)
	}
	if _, exists := t.st.orderNumbers[order.OrderNumber]; exists {
		return fmt.Errorf("order number %s: %w", order.OrderNumber, store.ErrDuplicateKey)
	}
	t.st.orders[order.ID] = cloneOrder(order)
	t.st.orderNumbers[order.OrderNumber] = order.ID
	return nil
}

func (t *memTx) SaveOrder(_ context.Context, order domain.Order) error {
	existing, ok := t.st.orders[order.ID]
	if !ok {
		return store.NotFound("order", order.ID)
	}
	// Order numbers are immutable once issued.
	order.OrderNumber = existing.OrderNumber
	order.CreatedAt = existing.CreatedAt
	t.st.orders[order.ID] = cloneOrder(order)
	return nil
}

func (t *memTx) DeleteOrder(_ context.Context, id string) error {
	order, ok := t.st.orders[id]
	if !ok {
		return store.NotFound("order", id)
	}
	delete(t.st.orderNumbers, order.OrderNumber)
	delete(t.st.orders, id)
	return nil
}

func (t *memTx) GetBranch(_ context.Context, id string) (*domain.Branch, error) {
	branch, ok := t.st.branches[id]
	if !ok {
		return nil, store.NotFound("branch", id)
	}
	return &branch, nil
}

func (t *memTx) InsertBranch(_ context.Context, branch domain.Branch) error {
	for _, existing := range t.st.branches {
		if existing.ID == branch.ID || strings.EqualFold(existing.Name, branch.Name) || existing.Code == branch.Code {
			return fmt.Errorf("branch %s (%s): %w", branch.Name, branch.Code, store.ErrDuplicateKey)
		}
	}
	t.st.branches[branch.ID] = branch
	return nil
}

func (t *memTx) AddBranchTotals(_ context.Context, branchID string, orders int, revenue decimal.Decimal) (*domain.Branch, error) {
	branch, ok := t.st.branches[branchID]
	if !ok {
		return nil, store.NotFound("branch", branchID)
	}
	if branch.TotalOrders+orders < 0 {
		return nil, negativeCounter("branch", branchID, "total_orders")
	}
	branch.TotalOrders += orders
	branch.TotalRevenue = branch.TotalRevenue.Add(revenue)
	branch.UpdatedAt = t.now
	t.st.branches[branchID] = branch
	return &branch, nil
}

func (t *memTx) GetEmployee(_ context.Context, id string) (*domain.Employee, error) {
	employee, ok := t.st.employees[id]
	if !ok {
		return nil, store.NotFound("employee", id)
	}
	return &employee, nil
}

func (t *memTx) InsertEmployee(_ context.Context, employee domain.Employee) error {
	if _, exists := t.st.employees[employee.ID]; exists {
		return fmt.Errorf("employee %s: %w", employee.ID, store.ErrDuplicateKey)
	}
	t.st.employees[employee.ID] = employee
	return nil
}

func (t *memTx) AddEmployeeTasks(_ context.Context, employeeID string, assigned int, completed int) (*domain.Employee, error) {
	employee, ok := t.st.employees[employeeID]
	if !ok {
		return nil, store.NotFound("employee", employeeID)
	}
	if employee.AssignedTasks+assigned < 0 {
		return nil, negativeCounter("employee", employeeID, "assigned_tasks")
	}
	if employee.CompletedTasks+completed < 0 {
		return nil, negativeCounter("employee", employeeID, "completed_tasks")
	}
	employee.AssignedTasks += assigned
	employee.CompletedTasks += completed
	employee.UpdatedAt = t.now
	t.st.employees[employeeID] = employee
	return &employee, nil
}

func (t *memTx) GetInventoryItemForUpdate(_ context.Context, id string) (*domain.InventoryItem, error) {
	item, ok := t.st.inventory[id]
	if !ok {
		return nil, store.NotFound("inventory item", id)
	}
	return &item, nil
}

func (t *memTx) FindInventoryByCategory(_ context.Context, branchID string, category domain.InventoryCategory) (*domain.InventoryItem, error) {
	var best *domain.InventoryItem
	for _, item := range t.st.inventory {
		if item.BranchID != branchID || !item.Active {
			continue
		}
		if !strings.EqualFold(string(item.Category), string(category)) {
			continue
		}
		if best == nil || item.CurrentStock > best.CurrentStock ||
			(item.CurrentStock == best.CurrentStock && cmp.Less(item.ID, best.ID)) {
			candidate := item
			best = &candidate
		}
	}
	return best, nil
}

func (t *memTx) InsertInventoryItem(_ context.Context, item domain.InventoryItem) error {
	for _, existing := range t.st.inventory {
		if existing.ID == item.ID {
			return fmt.Errorf("inventory item %s: %w", item.ID, store.ErrDuplicateKey)
		}
		if existing.BranchID == item.BranchID && strings.EqualFold(existing.ItemName, item.ItemName) {
			return fmt.Errorf("inventory item %q in branch %s: %w", item.ItemName, item.BranchID, store.ErrDuplicateKey)
		}
	}
	item.ReorderPending = domain.NeedsReorder(item.CurrentStock, item.ReorderLevel)
	t.st.inventory[item.ID] = item
	return nil
}

func (t *memTx) UpdateInventoryDetails(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	existing, ok := t.st.inventory[item.ID]
	if !ok {
		return nil, store.NotFound("inventory item", item.ID)
	}
	for _, other := range t.st.inventory {
		if other.ID != item.ID && other.BranchID == existing.BranchID && strings.EqualFold(other.ItemName, item.ItemName) {
			return nil, fmt.Errorf("inventory item %q in branch %s: %w", item.ItemName, existing.BranchID, store.ErrDuplicateKey)
		}
	}
	existing.ItemName = item.ItemName
	existing.SKU = item.SKU
	existing.ReorderLevel = item.ReorderLevel
	existing.CostPerUnit = item.CostPerUnit
	existing.SupplierContact = item.SupplierContact
	existing.Active = item.Active
	existing.ReorderPending = domain.NeedsReorder(existing.CurrentStock, existing.ReorderLevel)
	existing.UpdatedAt = t.now
	t.st.inventory[item.ID] = existing
	return &existing, nil
}

func (t *memTx) ApplyStockDelta(_ context.Context, itemID string, delta int, restocked bool) (*domain.InventoryItem, error) {
	item, ok := t.st.inventory[itemID]
	if !ok {
		return nil, store.NotFound("inventory item", itemID)
	}
	if item.CurrentStock+delta < 0 {
		return nil, &store.InsufficientStockError{
			ItemID:    item.ID,
			Category:  string(item.Category),
			Available: item.CurrentStock,
			Requested: -delta,
		}
	}
	item.CurrentStock += delta
	item.ReorderPending = domain.NeedsReorder(item.CurrentStock, item.ReorderLevel)
	item.UpdatedAt = t.now
	if restocked {
		at := t.now
		item.LastRestockedAt = &at
	}
	t.st.inventory[itemID] = item
	return &item, nil
}

func (t *memTx) InsertStockLog(_ context.Context, entry domain.StockLog) error {
	if _, ok := t.st.inventory[entry.InventoryItemID]; !ok {
		return store.NotFound("inventory item", entry.InventoryItemID)
	}
	t.st.stockLogs = append(t.st.stockLogs, entry)
	return nil
}

// negativeCounter mirrors the CHECK (... >= 0) constraints of the SQL schema.
func negativeCounter(entity string, id string, column string) error {
	return fmt.Errorf("%s %s: %s would drop below zero: %w", entity, id, column, store.ErrCheckViolation)
}
