package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
)

type pgTx struct {
	tx  *sqlx.Tx
	now time.Time
}

func (t *pgTx) GetOrderForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	var row orderRow
	err := t.tx.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("order", id)
		}
		return nil, translate("lock order", err)
	}
	return row.toDomain()
}

func (t *pgTx) InsertOrder(ctx context.Context, order domain.Order) error {
	items, history, err := encodeOrder(order)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10,$11::jsonb,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
	`,
		order.ID, order.OrderNumber, order.CustomerID, order.CustomerName, order.CustomerPhone, order.BranchID,
		order.AssignedEmployeeID, order.CreatedBy, items, order.Status, history, order.Priority,
		order.PaymentStatus, order.PaymentMethod, order.Subtotal, order.Tax, order.Discount, order.TotalAmount, order.Notes,
		nullTime(order.PickupDate), nullTime(order.DeliveryDate), order.CreatedAt, order.UpdatedAt,
	)
	return translate("insert order", err)
}

// SaveOrder rewrites every mutable column. order_number and created_at are
// never touched.
func (t *pgTx) SaveOrder(ctx context.Context, order domain.Order) error {
	items, history, err := encodeOrder(order)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET
			customer_id = $2, customer_name = $3, customer_phone = $4, assigned_employee_id = $5,
			items = $6::jsonb, status = $7, status_history = $8::jsonb, priority = $9,
			payment_status = $10, payment_method = $11, subtotal = $12, tax = $13, discount = $14,
			total_amount = $15, notes = $16, pickup_date = $17, delivery_date = $18, updated_at = $19
		WHERE id = $1
	`,
		order.ID, order.CustomerID, order.CustomerName, order.CustomerPhone, order.AssignedEmployeeID,
		items, order.Status, history, order.Priority,
		order.PaymentStatus, order.PaymentMethod, order.Subtotal, order.Tax, order.Discount,
		order.TotalAmount, order.Notes, nullTime(order.PickupDate), nullTime(order.DeliveryDate), order.UpdatedAt,
	)
	if err != nil {
		return translate("save order", err)
	}
	return expectOne(res, "order", order.ID)
}

func (t *pgTx) DeleteOrder(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return translate("delete order", err)
	}
	return expectOne(res, "order", id)
}

func (t *pgTx) GetBranch(ctx context.Context, id string) (*domain.Branch, error) {
	var branch domain.Branch
	if err := t.tx.GetContext(ctx, &branch, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("branch", id)
		}
		return nil, err
	}
	return &branch, nil
}

func (t *pgTx) InsertBranch(ctx context.Context, branch domain.Branch) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO branches (`+branchColumns+`)
		VALUES (:id, :name, :code, :address, :phone, :active, :total_orders, :total_revenue, :created_at, :updated_at)
	`, branch)
	return translate("insert branch", err)
}

// AddBranchTotals moves the counters with a single relative UPDATE, so
// concurrent units never overwrite each other's increments.
func (t *pgTx) AddBranchTotals(ctx context.Context, branchID string, orders int, revenue decimal.Decimal) (*domain.Branch, error) {
	var branch domain.Branch
	err := t.tx.GetContext(ctx, &branch, `
		UPDATE branches
		SET total_orders = total_orders + $2, total_revenue = total_revenue + $3, updated_at = $4
		WHERE id = $1
		RETURNING `+branchColumns,
		branchID, orders, revenue, t.now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("branch", branchID)
		}
		return nil, translate("branch totals", err)
	}
	return &branch, nil
}

func (t *pgTx) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	var employee domain.Employee
	if err := t.tx.GetContext(ctx, &employee, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("employee", id)
		}
		return nil, err
	}
	return &employee, nil
}

func (t *pgTx) InsertEmployee(ctx context.Context, employee domain.Employee) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (:id, :user_id, :branch_id, :name, :position, :active, :assigned_tasks, :completed_tasks, :created_at, :updated_at)
	`, employee)
	return translate("insert employee", err)
}

func (t *pgTx) AddEmployeeTasks(ctx context.Context, employeeID string, assigned int, completed int) (*domain.Employee, error) {
	var employee domain.Employee
	err := t.tx.GetContext(ctx, &employee, `
		UPDATE employees
		SET assigned_tasks = assigned_tasks + $2, completed_tasks = completed_tasks + $3, updated_at = $4
		WHERE id = $1
		RETURNING `+employeeColumns,
		employeeID, assigned, completed, t.now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("employee", employeeID)
		}
		return nil, translate("employee tasks", err)
	}
	return &employee, nil
}

func (t *pgTx) GetInventoryItemForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := t.tx.GetContext(ctx, &item, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("inventory item", id)
		}
		return nil, translate("lock inventory item", err)
	}
	return &item, nil
}

func (t *pgTx) FindInventoryByCategory(ctx context.Context, branchID string, category domain.InventoryCategory) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := t.tx.GetContext(ctx, &item, `
		SELECT `+inventoryColumns+`
		FROM inventory_items
		WHERE branch_id = $1 AND upper(category) = upper($2) AND active
		ORDER BY current_stock DESC, id ASC
		LIMIT 1
		FOR UPDATE
	`, branchID, category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("find inventory", err)
	}
	return &item, nil
}

func (t *pgTx) InsertInventoryItem(ctx context.Context, item domain.InventoryItem) error {
	item.ReorderPending = domain.NeedsReorder(item.CurrentStock, item.ReorderLevel)
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO inventory_items (`+inventoryColumns+`)
		VALUES (:id, :branch_id, :item_name, :sku, :category, :unit, :current_stock, :reorder_level, :reorder_pending,
			:cost_per_unit, :supplier_contact, :active, :last_restocked_at, :created_at, :updated_at)
	`, item)
	return translate("insert inventory item", err)
}

func (t *pgTx) UpdateInventoryDetails(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	var updated domain.InventoryItem
	err := t.tx.GetContext(ctx, &updated, `
		UPDATE inventory_items
		SET item_name = $2, sku = $3, reorder_level = $4, cost_per_unit = $5, supplier_contact = $6, active = $7,
			reorder_pending = current_stock <= $4, updated_at = $8
		WHERE id = $1
		RETURNING `+inventoryColumns,
		item.ID, item.ItemName, item.SKU, item.ReorderLevel, item.CostPerUnit, item.SupplierContact, item.Active, t.now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("inventory item", item.ID)
		}
		return nil, translate("update inventory item", err)
	}
	return &updated, nil
}

// ApplyStockDelta is a conditional UPDATE: the row only changes when the
// result stays non-negative, whatever else is running.
func (t *pgTx) ApplyStockDelta(ctx context.Context, itemID string, delta int, restocked bool) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := t.tx.GetContext(ctx, &item, `
		UPDATE inventory_items
		SET current_stock = current_stock + $2,
			reorder_pending = current_stock + $2 <= reorder_level,
			last_restocked_at = CASE WHEN $3 THEN $4 ELSE last_restocked_at END,
			updated_at = $4
		WHERE id = $1 AND current_stock + $2 >= 0
		RETURNING `+inventoryColumns,
		itemID, delta, restocked, t.now)
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, translate("apply stock delta", err)
	}

	var current struct {
		Stock    int    `db:"current_stock"`
		Category string `db:"category"`
	}
	if err := t.tx.GetContext(ctx, &current, `SELECT current_stock, category FROM inventory_items WHERE id = $1`, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("inventory item", itemID)
		}
		return nil, err
	}
	return nil, &store.InsufficientStockError{
		ItemID:    itemID,
		Category:  current.Category,
		Available: current.Stock,
		Requested: -delta,
	}
}

func (t *pgTx) InsertStockLog(ctx context.Context, entry domain.StockLog) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO stock_logs (`+stockLogColumns+`)
		VALUES (:id, :inventory_item_id, :branch_id, :performed_by, :change_type, :quantity_changed,
			:new_stock_level, :reason, :order_id, :created_at)
	`, entry)
	return translate("insert stock log", err)
}

func encodeOrder(order domain.Order) (string, string, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return "", "", err
	}
	history, err := json.Marshal(order.StatusHistory)
	if err != nil {
		return "", "", err
	}
	return string(items), string(history), nil
}

func expectOne(res sql.Result, entity string, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.NotFound(entity, id)
	}
	return nil
}
