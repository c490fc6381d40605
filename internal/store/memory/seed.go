package memory

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"laundrydesk/backend/internal/domain"
)

const (
	SeedBranchID   = "branch-main"
	SeedEmployeeID = "emp-main-01"
)

// NewSeeded returns a store with one branch, staff, stocked supplies and the
// dev/demo user accounts. Passwords come from SEED_*_PASSWORD when set.
func NewSeeded(log *zap.Logger) *Store {
	s := New()
	now := time.Now().UTC()

	s.state.branches[SeedBranchID] = domain.Branch{
		ID: SeedBranchID, Name: "Main Branch", Code: "MAI-001", Active: true,
		TotalRevenue: decimal.Zero, CreatedAt: now, UpdatedAt: now,
	}
	for _, e := range []domain.Employee{
		{ID: SeedEmployeeID, UserID: "staff", Name: "Ada Washer", Position: "washer"},
		{ID: "emp-main-02", Name: "Bayo Presser", Position: "ironer"},
	} {
		e.BranchID, e.Active, e.CreatedAt, e.UpdatedAt = SeedBranchID, true, now, now
		s.state.employees[e.ID] = e
	}

	supplies := []struct {
		id       string
		name     string
		category domain.InventoryCategory
		unit     domain.InventoryUnit
		stock    int
		reorder  int
		cost     string
	}{
		{"inv-main-detergent", "Laundry Detergent", domain.CategoryDetergent, domain.UnitLiters, 60, 10, "4.50"},
		{"inv-main-softener", "Fabric Softener", domain.CategorySoftener, domain.UnitLiters, 40, 10, "3.20"},
		{"inv-main-packaging", "Garment Bags", domain.CategoryPackaging, domain.UnitPieces, 200, 25, "0.15"},
		{"inv-main-hangers", "Wire Hangers", domain.CategoryHangers, domain.UnitBoxes, 12, 3, "9.00"},
	}
	for _, sup := range supplies {
		s.state.inventory[sup.id] = domain.InventoryItem{
			ID: sup.id, BranchID: SeedBranchID, ItemName: sup.name, Category: sup.category, Unit: sup.unit,
			CurrentStock: sup.stock, ReorderLevel: sup.reorder,
			ReorderPending: domain.NeedsReorder(sup.stock, sup.reorder),
			CostPerUnit:    decimal.RequireFromString(sup.cost),
			Active:         true, LastRestockedAt: &now, CreatedAt: now, UpdatedAt: now,
		}
		s.state.stockLogs = append(s.state.stockLogs, domain.StockLog{
			ID: "log-seed-" + sup.id, InventoryItemID: sup.id, BranchID: SeedBranchID,
			PerformedBy: "seed", ChangeType: domain.ChangeRestock, QuantityChanged: sup.stock,
			NewStockLevel: sup.stock, Reason: "opening stock", CreatedAt: now,
		})
	}

	s.usersByUsername = seedUsers(log, now)
	return s
}

func seedUsers(log *zap.Logger, now time.Time) map[string]domain.UserAccount {
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Warn("using default dev credentials, set SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD, SEED_STAFF_PASSWORD and SEED_CUSTOMER_PASSWORD to override")
	}

	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
		branchID string
	}{
		{"admin", envOr("SEED_ADMIN_PASSWORD", "admin123"), domain.RoleSuperAdmin, ""},
		{"manager", envOr("SEED_MANAGER_PASSWORD", "manager123"), domain.RoleBranchManager, SeedBranchID},
		{"staff", envOr("SEED_STAFF_PASSWORD", "staff123"), domain.RoleStaff, SeedBranchID},
		{"customer", envOr("SEED_CUSTOMER_PASSWORD", "customer123"), domain.RoleCustomer, SeedBranchID},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("failed to hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users[u.username] = domain.UserAccount{
			ID:        "user-" + u.username,
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			BranchID:  u.branchID,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
