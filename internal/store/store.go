package store

import (
	"context"

	"github.com/shopspring/decimal"

	"laundrydesk/backend/internal/domain"
)

// Repository is the Ledger Store. Reads run outside any unit of work; every
// write goes through WithinTx.
type Repository interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	GetBranch(ctx context.Context, id string) (*domain.Branch, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)
	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItem, error)
	ListStockLogs(ctx context.Context, itemID string, limit int) ([]domain.StockLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// Tx is one all-or-nothing unit of work. Aggregate counters and stock levels
// are only ever moved by deltas.
type Tx interface {
	GetOrderForUpdate(ctx context.Context, id string) (*domain.Order, error)
	InsertOrder(ctx context.Context, order domain.Order) error
	SaveOrder(ctx context.Context, order domain.Order) error
	DeleteOrder(ctx context.Context, id string) error

	GetBranch(ctx context.Context, id string) (*domain.Branch, error)
	InsertBranch(ctx context.Context, branch domain.Branch) error
	AddBranchTotals(ctx context.Context, branchID string, orders int, revenue decimal.Decimal) (*domain.Branch, error)

	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	InsertEmployee(ctx context.Context, employee domain.Employee) error
	AddEmployeeTasks(ctx context.Context, employeeID string, assigned int, completed int) (*domain.Employee, error)

	GetInventoryItemForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error)
	// FindInventoryByCategory locks and returns the active item of the category
	// holding the most stock, or nil when the branch has none.
	FindInventoryByCategory(ctx context.Context, branchID string, category domain.InventoryCategory) (*domain.InventoryItem, error)
	InsertInventoryItem(ctx context.Context, item domain.InventoryItem) error
	UpdateInventoryDetails(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	// ApplyStockDelta refuses with an *InsufficientStockError when the result
	// would be negative and recomputes the reorder flag in the same write.
	// restocked stamps LastRestockedAt.
	ApplyStockDelta(ctx context.Context, itemID string, delta int, restocked bool) (*domain.InventoryItem, error)
	InsertStockLog(ctx context.Context, entry domain.StockLog) error
}
