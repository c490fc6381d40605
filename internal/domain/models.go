package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusWashing    OrderStatus = "WASHING"
	StatusDrying     OrderStatus = "DRYING"
	StatusIroning    OrderStatus = "IRONING"
	StatusReady      OrderStatus = "READY"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

var OrderStatuses = []OrderStatus{
	StatusPending, StatusProcessing, StatusWashing, StatusDrying,
	StatusIroning, StatusReady, StatusDelivered, StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Completed reports whether the assigned employee's task for the order is done.
func (s OrderStatus) Completed() bool {
	return s == StatusReady || s == StatusDelivered
}

// Open reports whether an order in this status still carries a task for
// whoever is assigned to it.
func (s OrderStatus) Open() bool {
	return !s.Completed() && s != StatusCancelled
}

type Priority string

const (
	PriorityNormal  Priority = "NORMAL"
	PriorityExpress Priority = "EXPRESS"
	PriorityUrgent  Priority = "URGENT"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

func (p PaymentStatus) Valid() bool {
	return p == PaymentUnpaid || p == PaymentPartial || p == PaymentPaid
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentPOS      PaymentMethod = "POS"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentWallet   PaymentMethod = "WALLET"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentPOS, PaymentTransfer, PaymentWallet:
		return true
	}
	return false
}

type ServiceType string

const (
	ServiceWashFold     ServiceType = "WASH_FOLD"
	ServiceIroning      ServiceType = "IRONING"
	ServiceDryCleaning  ServiceType = "DRY_CLEANING"
	ServiceStainRemoval ServiceType = "STAIN_REMOVAL"
	ServiceAlterations  ServiceType = "ALTERATIONS"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceWashFold, ServiceIroning, ServiceDryCleaning, ServiceStainRemoval, ServiceAlterations:
		return true
	}
	return false
}

type InventoryCategory string

const (
	CategoryDetergent    InventoryCategory = "DETERGENT"
	CategorySoftener     InventoryCategory = "SOFTENER"
	CategoryStainRemoval InventoryCategory = "STAIN_REMOVAL"
	CategoryPackaging    InventoryCategory = "PACKAGING"
	CategoryHangers      InventoryCategory = "HANGERS"
	CategoryEquipments   InventoryCategory = "EQUIPMENTS"
	CategoryChemicals    InventoryCategory = "CHEMICALS"
	CategoryOther        InventoryCategory = "OTHER"
)

var InventoryCategories = []InventoryCategory{
	CategoryDetergent, CategorySoftener, CategoryStainRemoval, CategoryPackaging,
	CategoryHangers, CategoryEquipments, CategoryChemicals, CategoryOther,
}

func (c InventoryCategory) Valid() bool {
	for _, known := range InventoryCategories {
		if c == known {
			return true
		}
	}
	return false
}

type InventoryUnit string

const (
	UnitKg     InventoryUnit = "kg"
	UnitLiters InventoryUnit = "liters"
	UnitPieces InventoryUnit = "pieces"
	UnitBoxes  InventoryUnit = "boxes"
	UnitRolls  InventoryUnit = "rolls"
)

func (u InventoryUnit) Valid() bool {
	switch u {
	case UnitKg, UnitLiters, UnitPieces, UnitBoxes, UnitRolls:
		return true
	}
	return false
}

type ChangeType string

const (
	ChangeRestock    ChangeType = "RESTOCK"
	ChangeUsage      ChangeType = "USAGE"
	ChangeAdjustment ChangeType = "ADJUSTMENT"
	ChangeDamage     ChangeType = "DAMAGE"
	ChangeLost       ChangeType = "LOST"
	ChangeReturn     ChangeType = "RETURN"
)

func (c ChangeType) Valid() bool {
	switch c {
	case ChangeRestock, ChangeUsage, ChangeAdjustment, ChangeDamage, ChangeLost, ChangeReturn:
		return true
	}
	return false
}

const (
	RoleSuperAdmin    = "SUPER_ADMIN"
	RoleBranchManager = "BRANCH_MANAGER"
	RoleStaff         = "STAFF"
	RoleCustomer      = "CUSTOMER"
)

type OrderItem struct {
	ItemType            string          `json:"item_type"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	ServiceType         ServiceType     `json:"service_type"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	Subtotal            decimal.Decimal `json:"subtotal"`
}

type StatusChange struct {
	Status    OrderStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
	UpdatedBy string      `json:"updated_by"`
}

type Order struct {
	ID                 string          `json:"id"`
	OrderNumber        string          `json:"order_number"`
	CustomerID         string          `json:"customer_id"`
	CustomerName       string          `json:"customer_name,omitempty"`
	CustomerPhone      string          `json:"customer_phone,omitempty"`
	BranchID           string          `json:"branch_id"`
	AssignedEmployeeID string          `json:"assigned_employee_id,omitempty"`
	CreatedBy          string          `json:"created_by"`
	Items              []OrderItem     `json:"items"`
	Status             OrderStatus     `json:"status"`
	StatusHistory      []StatusChange  `json:"status_history"`
	Priority           Priority        `json:"priority"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	PaymentMethod      PaymentMethod   `json:"payment_method"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	Tax                decimal.Decimal `json:"tax"`
	Discount           decimal.Decimal `json:"discount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	Notes              string          `json:"notes,omitempty"`
	PickupDate         *time.Time      `json:"pickup_date,omitempty"`
	DeliveryDate       *time.Time      `json:"delivery_date,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TaskOpen reports whether the order still counts against its assignee's
// assigned tasks.
func (o Order) TaskOpen() bool {
	return o.AssignedEmployeeID != "" && o.Status.Open()
}

type Branch struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Code         string          `json:"code" db:"code"`
	Address      string          `json:"address,omitempty" db:"address"`
	Phone        string          `json:"phone,omitempty" db:"phone"`
	Active       bool            `json:"active" db:"active"`
	TotalOrders  int             `json:"total_orders" db:"total_orders"`
	TotalRevenue decimal.Decimal `json:"total_revenue" db:"total_revenue"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

type Employee struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id,omitempty" db:"user_id"`
	BranchID       string    `json:"branch_id" db:"branch_id"`
	Name           string    `json:"name" db:"name"`
	Position       string    `json:"position,omitempty" db:"position"`
	Active         bool      `json:"active" db:"active"`
	AssignedTasks  int       `json:"assigned_tasks" db:"assigned_tasks"`
	CompletedTasks int       `json:"completed_tasks" db:"completed_tasks"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

type InventoryItem struct {
	ID              string            `json:"id" db:"id"`
	BranchID        string            `json:"branch_id" db:"branch_id"`
	ItemName        string            `json:"item_name" db:"item_name"`
	SKU             string            `json:"sku,omitempty" db:"sku"`
	Category        InventoryCategory `json:"category" db:"category"`
	Unit            InventoryUnit     `json:"unit" db:"unit"`
	CurrentStock    int               `json:"current_stock" db:"current_stock"`
	ReorderLevel    int               `json:"reorder_level" db:"reorder_level"`
	ReorderPending  bool              `json:"reorder_pending" db:"reorder_pending"`
	CostPerUnit     decimal.Decimal   `json:"cost_per_unit" db:"cost_per_unit"`
	SupplierContact string            `json:"supplier_contact,omitempty" db:"supplier_contact"`
	Active          bool              `json:"active" db:"active"`
	LastRestockedAt *time.Time        `json:"last_restocked_at,omitempty" db:"last_restocked_at"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// NeedsReorder is the single definition of the reorder-pending flag.
func NeedsReorder(currentStock int, reorderLevel int) bool {
	return currentStock <= reorderLevel
}

type StockLog struct {
	ID              string     `json:"id" db:"id"`
	InventoryItemID string     `json:"inventory_item_id" db:"inventory_item_id"`
	BranchID        string     `json:"branch_id" db:"branch_id"`
	PerformedBy     string     `json:"performed_by" db:"performed_by"`
	ChangeType      ChangeType `json:"change_type" db:"change_type"`
	QuantityChanged int        `json:"quantity_changed" db:"quantity_changed"`
	NewStockLevel   int        `json:"new_stock_level" db:"new_stock_level"`
	Reason          string     `json:"reason,omitempty" db:"reason"`
	OrderID         string     `json:"order_id,omitempty" db:"order_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

type Actor struct {
	UserID   string
	Username string
	Role     string
	BranchID string
}

type UserAccount struct {
	ID        string
	Username  string
	Password  string
	Role      string
	BranchID  string
	Active    bool
	CreatedAt time.Time
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	BranchID    string `json:"branch_id,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

type OrderItemInput struct {
	ItemType            string          `json:"item_type"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	ServiceType         ServiceType     `json:"service_type,omitempty"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
}

type CreateOrderRequest struct {
	CustomerID         string           `json:"customer_id"`
	CustomerName       string           `json:"customer_name,omitempty"`
	CustomerPhone      string           `json:"customer_phone,omitempty"`
	BranchID           string           `json:"branch_id"`
	AssignedEmployeeID string           `json:"assigned_employee_id,omitempty"`
	Items              []OrderItemInput `json:"items"`
	Priority           Priority         `json:"priority,omitempty"`
	Discount           decimal.Decimal  `json:"discount"`
	PaymentMethod      PaymentMethod    `json:"payment_method,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	PickupDate         *time.Time       `json:"pickup_date,omitempty"`
	DeliveryDate       *time.Time       `json:"delivery_date,omitempty"`
}

// UpdateOrderRequest carries a partial update; nil fields are left untouched.
// An empty AssignedEmployeeID unassigns the order.
type UpdateOrderRequest struct {
	Items              []OrderItemInput `json:"items,omitempty"`
	Priority           *Priority        `json:"priority,omitempty"`
	Discount           *decimal.Decimal `json:"discount,omitempty"`
	PaymentStatus      *PaymentStatus   `json:"payment_status,omitempty"`
	PaymentMethod      *PaymentMethod   `json:"payment_method,omitempty"`
	AssignedEmployeeID *string          `json:"assigned_employee_id,omitempty"`
	Status             *OrderStatus     `json:"status,omitempty"`
	CustomerName       *string          `json:"customer_name,omitempty"`
	CustomerPhone      *string          `json:"customer_phone,omitempty"`
	Notes              *string          `json:"notes,omitempty"`
	PickupDate         *time.Time       `json:"pickup_date,omitempty"`
	DeliveryDate       *time.Time       `json:"delivery_date,omitempty"`
}

type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}

// OrderFilter narrows an order listing. Search matches the order number or
// the customer name, case-insensitively.
type OrderFilter struct {
	BranchID      string
	CustomerID    string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Search        string
	Limit         int
	Offset        int
}

type AdjustStockRequest struct {
	Delta      int        `json:"delta"`
	ChangeType ChangeType `json:"change_type,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	OrderID    string     `json:"order_id,omitempty"`
}

type InventoryCreateRequest struct {
	BranchID        string            `json:"branch_id"`
	ItemName        string            `json:"item_name"`
	SKU             string            `json:"sku,omitempty"`
	Category        InventoryCategory `json:"category"`
	Unit            InventoryUnit     `json:"unit,omitempty"`
	InitialStock    int               `json:"initial_stock"`
	ReorderLevel    *int              `json:"reorder_level,omitempty"`
	CostPerUnit     decimal.Decimal   `json:"cost_per_unit"`
	SupplierContact string            `json:"supplier_contact,omitempty"`
}

type InventoryUpdateRequest struct {
	ItemName        *string          `json:"item_name,omitempty"`
	SKU             *string          `json:"sku,omitempty"`
	ReorderLevel    *int             `json:"reorder_level,omitempty"`
	CostPerUnit     *decimal.Decimal `json:"cost_per_unit,omitempty"`
	SupplierContact *string          `json:"supplier_contact,omitempty"`
	Active          *bool            `json:"active,omitempty"`
}

type InventoryFilter struct {
	BranchID string
	Category InventoryCategory
	LowStock bool
}

type BranchCreateRequest struct {
	Name    string `json:"name"`
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type EmployeeCreateRequest struct {
	UserID   string `json:"user_id,omitempty"`
	BranchID string `json:"branch_id"`
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	BranchID string `json:"branch_id,omitempty"`
}

// UserView is a UserAccount without its password hash.
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	BranchID  string    `json:"branch_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
