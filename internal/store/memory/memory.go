package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
)

// state is the committed data set. A unit of work runs against a clone and
// the clone replaces state only when the unit succeeds.
type state struct {
	orders       map[string]domain.Order
	orderNumbers map[string]string
	branches     map[string]domain.Branch
	employees    map[string]domain.Employee
	inventory    map[string]domain.InventoryItem
	stockLogs    []domain.StockLog
}

func newState() *state {
	return &state{
		orders:       make(map[string]domain.Order),
		orderNumbers: make(map[string]string),
		branches:     make(map[string]domain.Branch),
		employees:    make(map[string]domain.Employee),
		inventory:    make(map[string]domain.InventoryItem),
	}
}

// clone copies the maps. Order values are stored already deep-copied and are
// never mutated in place, so sharing their slices is safe.
func (s *state) clone() *state {
	return &state{
		orders:       maps.Clone(s.orders),
		orderNumbers: maps.Clone(s.orderNumbers),
		branches:     maps.Clone(s.branches),
		employees:    maps.Clone(s.employees),
		inventory:    maps.Clone(s.inventory),
		stockLogs:    s.stockLogs[:len(s.stockLogs):len(s.stockLogs)],
	}
}

type Store struct {
	mu              sync.RWMutex
	state           *state
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		state:           newState(),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// WithinTx serializes writers. The unit sees its own writes; nothing becomes
// visible to readers unless fn returns nil and the context is still live.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&memTx{st: work, now: time.Now().UTC()}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.state.orders[id]
	if !ok {
		return nil, store.NotFound("order", id)
	}
	dup := cloneOrder(order)
	return &dup, nil
}

func (s *Store) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0)
	for _, order := range s.state.orders {
		if filter.BranchID != "" && order.BranchID != filter.BranchID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && order.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if !matchesSearch(order, filter.Search) {
			continue
		}
		orders = append(orders, cloneOrder(order))
	}
	slices.SortFunc(orders, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if filter.Offset > 0 {
		orders = orders[min(filter.Offset, len(orders)):]
	}
	if filter.Limit > 0 && len(orders) > filter.Limit {
		orders = orders[:filter.Limit]
	}
	return orders, nil
}

func matchesSearch(order domain.Order, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(order.OrderNumber), needle) ||
		strings.Contains(strings.ToLower(order.CustomerName), needle)
}

func (s *Store) GetBranch(_ context.Context, id string) (*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branch, ok := s.state.branches[id]
	if !ok {
		return nil, store.NotFound("branch", id)
	}
	return &branch, nil
}

func (s *Store) ListBranches(_ context.Context) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branches := make([]domain.Branch, 0, len(s.state.branches))
	for _, branch := range s.state.branches {
		branches = append(branches, branch)
	}
	slices.SortFunc(branches, func(a, b domain.Branch) int {
		return cmp.Compare(a.Code, b.Code)
	})
	return branches, nil
}

func (s *Store) GetEmployee(_ context.Context, id string) (*domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employee, ok := s.state.employees[id]
	if !ok {
		return nil, store.NotFound("employee", id)
	}
	return &employee, nil
}

func (s *Store) GetInventoryItem(_ context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.state.inventory[id]
	if !ok {
		return nil, store.NotFound("inventory item", id)
	}
	return &item, nil
}

func (s *Store) ListInventory(_ context.Context, filter domain.InventoryFilter) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0)
	for _, item := range s.state.inventory {
		if filter.BranchID != "" && item.BranchID != filter.BranchID {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(string(item.Category), string(filter.Category)) {
			continue
		}
		if filter.LowStock && !(item.Active && item.ReorderPending) {
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.InventoryItem) int {
		if c := cmp.Compare(a.BranchID, b.BranchID); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemName, b.ItemName)
	})
	return items, nil
}

func (s *Store) ListStockLogs(_ context.Context, itemID string, limit int) ([]domain.StockLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.StockLog, 0)
	for i := len(s.state.stockLogs) - 1; i >= 0; i-- {
		entry := s.state.stockLogs[i]
		if entry.InventoryItemID != itemID {
			continue
		}
		logs = append(logs, entry)
		if limit > 0 && len(logs) >= limit {
			break
		}
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.Invalid("username", "username and password are required")
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrDuplicateKey
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCustomer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmp.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.Invalid("password", "username and password are required")
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.NotFound("user", username)
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneOrder(src domain.Order) domain.Order {
	dup := src
	dup.Items = slices.Clone(src.Items)
	dup.StatusHistory = slices.Clone(src.StatusHistory)
	if src.PickupDate != nil {
		at := *src.PickupDate
		dup.PickupDate = &at
	}
	if src.DeliveryDate != nil {
		at := *src.DeliveryDate
		dup.DeliveryDate = &at
	}
	return dup
}
