package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"laundrydesk/backend/internal/config"
	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
)

//go:embed schema.sql
var schema string

const (
	orderColumns = `id, order_number, customer_id, customer_name, customer_phone, branch_id,
		assigned_employee_id, created_by, items, status, status_history, priority,
		payment_status, payment_method, subtotal, tax, discount, total_amount, notes,
		pickup_date, delivery_date, created_at, updated_at`
	branchColumns    = `id, name, code, address, phone, active, total_orders, total_revenue, created_at, updated_at`
	employeeColumns  = `id, user_id, branch_id, name, position, active, assigned_tasks, completed_tasks, created_at, updated_at`
	inventoryColumns = `id, branch_id, item_name, sku, category, unit, current_stock, reorder_level, reorder_pending,
		cost_per_unit, supplier_contact, active, last_restocked_at, created_at, updated_at`
	stockLogColumns = `id, inventory_item_id, branch_id, performed_by, change_type, quantity_changed,
		new_stock_level, reason, order_id, created_at`
)

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	db, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the bundled schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// WithinTx runs fn in a READ COMMITTED transaction. Contended rows are taken
// with SELECT ... FOR UPDATE, and a lock wait longer than lock_timeout comes
// back as a *store.ConflictError.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return translate("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SET LOCAL lock_timeout = '3s'`); err != nil {
		return translate("lock_timeout", err)
	}
	if err := fn(&pgTx{tx: tx, now: time.Now().UTC()}); err != nil {
		return translate("unit", err)
	}
	if err := tx.Commit(); err != nil {
		return translate("commit", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("order", id)
		}
		return nil, err
	}
	return row.toDomain()
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	conditions := make([]string, 0, 5)
	args := make([]any, 0, 7)
	if filter.BranchID != "" {
		args = append(args, filter.BranchID)
		conditions = append(conditions, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(order_number ILIKE $%d OR customer_name ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		order, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

func (s *Store) GetBranch(ctx context.Context, id string) (*domain.Branch, error) {
	var branch domain.Branch
	if err := s.db.GetContext(ctx, &branch, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("branch", id)
		}
		return nil, err
	}
	return &branch, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	branches := make([]domain.Branch, 0)
	err := s.db.SelectContext(ctx, &branches, `SELECT `+branchColumns+` FROM branches ORDER BY name ASC`)
	return branches, err
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	var employee domain.Employee
	if err := s.db.GetContext(ctx, &employee, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("employee", id)
		}
		return nil, err
	}
	return &employee, nil
}

func (s *Store) GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	if err := s.db.GetContext(ctx, &item, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("inventory item", id)
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItem, error) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 2)
	if filter.BranchID != "" {
		args = append(args, filter.BranchID)
		conditions = append(conditions, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("upper(category) = upper($%d)", len(args)))
	}
	if filter.LowStock {
		conditions = append(conditions, "active AND reorder_pending")
	}

	query := `SELECT ` + inventoryColumns + ` FROM inventory_items`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY branch_id ASC, item_name ASC`

	items := make([]domain.InventoryItem, 0)
	err := s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

func (s *Store) ListStockLogs(ctx context.Context, itemID string, limit int) ([]domain.StockLog, error) {
	query := `SELECT ` + stockLogColumns + ` FROM stock_logs WHERE inventory_item_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{itemID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	logs := make([]domain.StockLog, 0)
	err := s.db.SelectContext(ctx, &logs, query, args...)
	return logs, err
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.Invalid("username", "username and password are required")
	}
	if user.Role == "" {
		user.Role = domain.RoleCustomer
	}
	if user.ID == "" {
		user.ID = "user-" + user.Username
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (id, username, password, role, branch_id, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,true,$6,now())
	`, user.ID, user.Username, user.Password, user.Role, user.BranchID, user.CreatedAt)
	return translate("create user", err)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, branch_id, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.BranchID, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.Invalid("password", "username and password are required")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.NotFound("user", username)
	}
	return nil
}

// orderRow is the table shape of an order; items and history live in JSONB.
type orderRow struct {
	ID                 string          `db:"id"`
	OrderNumber        string          `db:"order_number"`
	CustomerID         string          `db:"customer_id"`
	CustomerName       string          `db:"customer_name"`
	CustomerPhone      string          `db:"customer_phone"`
	BranchID           string          `db:"branch_id"`
	AssignedEmployeeID string          `db:"assigned_employee_id"`
	CreatedBy          string          `db:"created_by"`
	Items              []byte          `db:"items"`
	Status             string          `db:"status"`
	StatusHistory      []byte          `db:"status_history"`
	Priority           string          `db:"priority"`
	PaymentStatus      string          `db:"payment_status"`
	PaymentMethod      string          `db:"payment_method"`
	Subtotal           decimal.Decimal `db:"subtotal"`
	Tax                decimal.Decimal `db:"tax"`
	Discount           decimal.Decimal `db:"discount"`
	TotalAmount        decimal.Decimal `db:"total_amount"`
	Notes              string          `db:"notes"`
	PickupDate         sql.NullTime    `db:"pickup_date"`
	DeliveryDate       sql.NullTime    `db:"delivery_date"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func (r orderRow) toDomain() (*domain.Order, error) {
	order := domain.Order{
		ID:                 r.ID,
		OrderNumber:        r.OrderNumber,
		CustomerID:         r.CustomerID,
		CustomerName:       r.CustomerName,
		CustomerPhone:      r.CustomerPhone,
		BranchID:           r.BranchID,
		AssignedEmployeeID: r.AssignedEmployeeID,
		CreatedBy:          r.CreatedBy,
		Status:             domain.OrderStatus(r.Status),
		Priority:           domain.Priority(r.Priority),
		PaymentStatus:      domain.PaymentStatus(r.PaymentStatus),
		PaymentMethod:      domain.PaymentMethod(r.PaymentMethod),
		Subtotal:           r.Subtotal,
		Tax:                r.Tax,
		Discount:           r.Discount,
		TotalAmount:        r.TotalAmount,
		Notes:              r.Notes,
		PickupDate:         nullableTime(r.PickupDate),
		DeliveryDate:       nullableTime(r.DeliveryDate),
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal(r.Items, &order.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.StatusHistory, &order.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history of order %s: %w", r.ID, err)
	}
	return &order, nil
}

func nullableTime(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	at := val.Time.UTC()
	return &at
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

// translate maps driver failures onto the store error taxonomy. Errors that
// are already domain errors pass through untouched.
// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func translate(op string, err error) error {
	if err == nil || errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrDuplicateKey) || errors.Is(err, store.ErrCheckViolation) {
		return err
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, store.ErrDuplicateKey)
	case "23514":
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, store.ErrCheckViolation)
	case "40001", "40P01", "55P03":
		return &store.ConflictError{Op: op, Err: err}
	}
	return err
}
