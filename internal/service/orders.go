package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundrydesk/backend/internal/aggregate"
	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/notify"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/xid"
)

const (
	orderNumberAttempts = 3
	defaultListLimit    = 100
	maxListLimit        = 500
)

func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	// Customers always order for themselves at their own branch.
	if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleCustomer {
		req.CustomerID = actor.UserID
		req.BranchID = actor.BranchID
	}
	req.BranchID = strings.TrimSpace(req.BranchID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.AssignedEmployeeID = strings.TrimSpace(req.AssignedEmployeeID)
	if req.BranchID == "" {
		return domain.Order{}, store.Invalid("branch_id", "is required")
	}
	if req.CustomerID == "" {
		return domain.Order{}, store.Invalid("customer_id", "is required")
	}
	if err := authorizeBranch(ctx, req.BranchID); err != nil {
		return domain.Order{}, err
	}

	items, err := buildItems(req.Items)
	if err != nil {
		return domain.Order{}, err
	}
	priority := domain.Priority(strings.ToUpper(strings.TrimSpace(string(req.Priority))))
	if priority == "" {
		priority = domain.PriorityNormal
	}
	method := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(string(req.PaymentMethod))))
	if method == "" {
		method = domain.PaymentCash
	}
	if !method.Valid() {
		return domain.Order{}, store.Invalid("payment_method", "unknown payment method %q", req.PaymentMethod)
	}

	now := s.now()
	by := actorName(ctx)
	order := domain.Order{
		ID:                 xid.New("ord"),
		CustomerID:         req.CustomerID,
		CustomerName:       strings.TrimSpace(req.CustomerName),
		CustomerPhone:      strings.TrimSpace(req.CustomerPhone),
		BranchID:           req.BranchID,
		AssignedEmployeeID: req.AssignedEmployeeID,
		CreatedBy:          by,
		Items:              items,
		Status:             domain.StatusPending,
		StatusHistory:      []domain.StatusChange{{Status: domain.StatusPending, UpdatedAt: now, UpdatedBy: by}},
		Priority:           priority,
		PaymentStatus:      domain.PaymentUnpaid,
		PaymentMethod:      method,
		Discount:           req.Discount,
		Notes:              strings.TrimSpace(req.Notes),
		PickupDate:         req.PickupDate,
		DeliveryDate:       req.DeliveryDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.pricing.Apply(&order); err != nil {
		return domain.Order{}, err
	}

	for attempt := 1; ; attempt++ {
		order.OrderNumber = xid.OrderNumber()
		err = s.coord.Run(ctx, "create_order", func(ctx context.Context, tx store.Tx) error {
			branch, err := tx.GetBranch(ctx, order.BranchID)
			if err != nil {
				return err
			}
			if !branch.Active {
				return store.Invalid("branch_id", "branch %s is inactive", branch.ID)
			}
			if err := checkAssignee(ctx, tx, order.BranchID, order.AssignedEmployeeID); err != nil {
				return err
			}
			if err := tx.InsertOrder(ctx, order); err != nil {
				return err
			}
			agg := aggregate.New(tx)
			if err := agg.OrderPlaced(ctx, order.BranchID); err != nil {
				return err
			}
			if err := agg.AssignTask(ctx, order.AssignedEmployeeID); err != nil {
				return err
			}
			return agg.AdjustRevenue(ctx, order.BranchID, s.revenue.Delta(nil, &order))
		})
		if err == nil || !errors.Is(err, store.ErrDuplicateKey) || attempt == orderNumberAttempts {
			break
		}
		s.log.Debug("order number collision, retrying", zap.String("order_number", order.OrderNumber), zap.Int("attempt", attempt))
	}
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("branch_id", order.BranchID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	return order, nil
}

func (s *Service) UpdateOrder(ctx context.Context, id string, req domain.UpdateOrderRequest) (domain.Order, error) {
	var before, after domain.Order
	var consumed []domain.InventoryItem
	err := s.coord.Run(ctx, "update_order", func(ctx context.Context, tx store.Tx) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeBranch(ctx, current.BranchID); err != nil {
			return err
		}
		before = *current
		after = *current
		consumed = nil

		reprice := false
		if req.Items != nil {
			items, err := buildItems(req.Items)
			if err != nil {
				return err
			}
			after.Items = items
			reprice = true
		}
		if req.Priority != nil {
			after.Priority = domain.Priority(strings.ToUpper(strings.TrimSpace(string(*req.Priority))))
			reprice = true
		}
		if req.Discount != nil {
			after.Discount = *req.Discount
			reprice = true
		}
		if reprice {
			if err := s.pricing.Apply(&after); err != nil {
				return err
			}
		}

		if req.PaymentStatus != nil {
			ps := domain.PaymentStatus(strings.ToUpper(strings.TrimSpace(string(*req.PaymentStatus))))
			if !ps.Valid() {
				return store.Invalid("payment_status", "unknown payment status %q", *req.PaymentStatus)
			}
			after.PaymentStatus = ps
		}
		if req.PaymentMethod != nil {
			pm := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(string(*req.PaymentMethod))))
			if !pm.Valid() {
				return store.Invalid("payment_method", "unknown payment method %q", *req.PaymentMethod)
			}
			after.PaymentMethod = pm
		}
		if req.CustomerName != nil {
			after.CustomerName = strings.TrimSpace(*req.CustomerName)
		}
		if req.CustomerPhone != nil {
			after.CustomerPhone = strings.TrimSpace(*req.CustomerPhone)
		}
		if req.Notes != nil {
			after.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.PickupDate != nil {
			after.PickupDate = req.PickupDate
		}
		if req.DeliveryDate != nil {
			after.DeliveryDate = req.DeliveryDate
		}

		agg := aggregate.New(tx)
		if req.AssignedEmployeeID != nil {
			next := strings.TrimSpace(*req.AssignedEmployeeID)
			if next != before.AssignedEmployeeID {
				if err := checkAssignee(ctx, tx, before.BranchID, next); err != nil {
					return err
				}
				if before.Status.Open() {
					if err := agg.Reassign(ctx, before.AssignedEmployeeID, next); err != nil {
						return err
					}
				}
				after.AssignedEmployeeID = next
			}
		}

		if req.Status != nil {
			consumed, err = s.applyTransition(ctx, tx, &after, *req.Status)
			if err != nil {
				return err
			}
		}

		after.UpdatedAt = s.now()
		if err := agg.AdjustRevenue(ctx, before.BranchID, s.revenue.Delta(&before, &after)); err != nil {
			return err
		}
		return tx.SaveOrder(ctx, after)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.afterTransition(ctx, before, after, consumed)
	return after, nil
}

// TransitionOrderStatus moves the order one step along the workflow. Asking
// for the status the order already has is a no-op.
func (s *Service) TransitionOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	var before, after domain.Order
	var consumed []domain.InventoryItem
	err := s.coord.Run(ctx, "transition_order", func(ctx context.Context, tx store.Tx) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeBranch(ctx, current.BranchID); err != nil {
			return err
		}
		before = *current
		after = *current

		consumed, err = s.applyTransition(ctx, tx, &after, status)
		if err != nil {
			return err
		}
		if after.Status == before.Status {
			return nil
		}
		after.UpdatedAt = s.now()
		if err := aggregate.New(tx).AdjustRevenue(ctx, before.BranchID, s.revenue.Delta(&before, &after)); err != nil {
			return err
		}
		return tx.SaveOrder(ctx, after)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.afterTransition(ctx, before, after, consumed)
	return after, nil
}

// applyTransition applies every side effect of moving order to status except
// revenue, which the caller settles once for the whole rewrite. The order is
// modified in place.
func (s *Service) applyTransition(ctx context.Context, tx store.Tx, order *domain.Order, status domain.OrderStatus) ([]domain.InventoryItem, error) {
	plan, err := s.machine.Plan(*order, status)
	if err != nil || plan.NoOp {
		return nil, err
	}

	by := actorName(ctx)
	consumed := make([]domain.InventoryItem, 0, len(plan.Consume))
	for _, rule := range plan.Consume {
		reason := fmt.Sprintf("order %s %s", order.OrderNumber, plan.Edge)
		item, _, err := s.ledger.Consume(ctx, tx, order.BranchID, rule.Category, rule.Quantity, by, order.ID, reason)
		if err != nil {
			return nil, err
		}
		consumed = append(consumed, *item)
	}

	agg := aggregate.New(tx)
	if plan.CompleteTask {
		if err := agg.CompleteTask(ctx, order.AssignedEmployeeID); err != nil {
			return nil, err
		}
	}
	if plan.ReleaseTask {
		if err := agg.ReleaseTask(ctx, order.AssignedEmployeeID); err != nil {
			return nil, err
		}
	}

	order.Status = plan.To
	order.StatusHistory = append(order.StatusHistory[:len(order.StatusHistory):len(order.StatusHistory)], domain.StatusChange{
		Status:    plan.To,
		UpdatedAt: s.now(),
		UpdatedBy: by,
	})
	return consumed, nil
}

func (s *Service) afterTransition(ctx context.Context, before domain.Order, after domain.Order, consumed []domain.InventoryItem) {
	if before.Status != after.Status {
		s.log.Info("order status changed",
			zap.String("order_id", after.ID),
			zap.String("from", string(before.Status)),
			zap.String("to", string(after.Status)),
		)
		s.emit(ctx, notify.Event{
			Type:     notify.EventOrderStatus,
			BranchID: after.BranchID,
			EntityID: after.ID,
			Payload: map[string]any{
				"order_number": after.OrderNumber,
				"customer_id":  after.CustomerID,
				"from":         before.Status,
				"to":           after.Status,
			},
		})
	}
	s.emitStockEvents(ctx, consumed, nil)
}

// DeleteOrder removes the order. A non-terminal order is backed out of its
// branch totals and releases its open task first; delivered and cancelled
// orders leave the totals as they are.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	var deleted domain.Order
	err := s.coord.Run(ctx, "delete_order", func(ctx context.Context, tx store.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeBranch(ctx, order.BranchID); err != nil {
			return err
		}
		if !order.Status.Terminal() {
			agg := aggregate.New(tx)
			if err := agg.OrderRemoved(ctx, order.BranchID); err != nil {
				return err
			}
			if err := agg.AdjustRevenue(ctx, order.BranchID, s.revenue.Delta(order, nil)); err != nil {
				return err
			}
			if order.TaskOpen() {
				if err := agg.ReleaseTask(ctx, order.AssignedEmployeeID); err != nil {
					return err
				}
			}
		}
		deleted = *order
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("order deleted", zap.String("order_id", deleted.ID), zap.String("status", string(deleted.Status)))
	return nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleCustomer {
		if order.CustomerID != actor.UserID {
			return domain.Order{}, store.NotFound("order", id)
		}
		return *order, nil
	}
	if err := authorizeBranch(ctx, order.BranchID); err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

// ListOrders returns the newest orders first. Customers only ever see their
// own orders; branch roles are pinned to their branch.
func (s *Service) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	filter.BranchID = strings.TrimSpace(filter.BranchID)
	filter.CustomerID = strings.TrimSpace(filter.CustomerID)
	filter.Search = strings.TrimSpace(filter.Search)
	if actor, ok := ActorFromContext(ctx); ok {
		switch actor.Role {
		case domain.RoleSuperAdmin:
		case domain.RoleCustomer:
			filter.CustomerID = actor.UserID
		default:
			if filter.BranchID != "" && filter.BranchID != actor.BranchID {
				return nil, store.ErrForbidden
			}
			filter.BranchID = actor.BranchID
		}
	}
	if filter.Status != "" {
		filter.Status = domain.OrderStatus(strings.ToUpper(string(filter.Status)))
		if !filter.Status.Valid() {
			return nil, store.Invalid("status", "unknown status %q", filter.Status)
		}
	}
	if filter.PaymentStatus != "" {
		filter.PaymentStatus = domain.PaymentStatus(strings.ToUpper(string(filter.PaymentStatus)))
		if !filter.PaymentStatus.Valid() {
			return nil, store.Invalid("payment_status", "unknown payment status %q", filter.PaymentStatus)
		}
	}
	filter.Limit = clampLimit(filter.Limit)
	filter.Offset = max(filter.Offset, 0)
	return s.repo.ListOrders(ctx, filter)
}

// RemindUnpaidReady emits a payment reminder for every READY order that is
// not fully paid and returns how many were sent.
func (s *Service) RemindUnpaidReady(ctx context.Context) (int, error) {
	orders, err := s.repo.ListOrders(ctx, domain.OrderFilter{Status: domain.StatusReady})
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, order := range orders {
		if order.PaymentStatus == domain.PaymentPaid {
			continue
		}
		s.emit(ctx, notify.Event{
			Type:     notify.EventPaymentReminder,
			BranchID: order.BranchID,
			EntityID: order.ID,
			Payload: map[string]any{
				"order_number":   order.OrderNumber,
				"customer_id":    order.CustomerID,
				"customer_phone": order.CustomerPhone,
				"payment_status": order.PaymentStatus,
				"total_amount":   order.TotalAmount.StringFixed(2),
			},
		})
		sent++
	}
	return sent, nil
}

func buildItems(inputs []domain.OrderItemInput) ([]domain.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, store.Invalid("items", "at least one item is required")
	}
	items := make([]domain.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		itemType := strings.TrimSpace(in.ItemType)
		if itemType == "" {
			return nil, store.Invalid("items", "item %d: item_type is required", i)
		}
		serviceType := domain.ServiceType(strings.ToUpper(strings.TrimSpace(string(in.ServiceType))))
		if serviceType == "" {
			serviceType = domain.ServiceWashFold
		}
		if !serviceType.Valid() {
			return nil, store.Invalid("items", "item %d: unknown service type %q", i, in.ServiceType)
		}
		items = append(items, domain.OrderItem{
			ItemType:            itemType,
			Quantity:            in.Quantity,
			UnitPrice:           in.UnitPrice,
			ServiceType:         serviceType,
			SpecialInstructions: strings.TrimSpace(in.SpecialInstructions),
			Subtotal:            decimal.Zero,
		})
	}
	return items, nil
}

// checkAssignee verifies that employeeID names an active employee of the
// branch. An empty id means unassigned.
func checkAssignee(ctx context.Context, tx store.Tx, branchID string, employeeID string) error {
	if employeeID == "" {
		return nil
	}
	employee, err := tx.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if employee.BranchID != branchID {
		return store.Invalid("assigned_employee_id", "employee %s does not work at branch %s", employeeID, branchID)
	}
	if !employee.Active {
		return store.Invalid("assigned_employee_id", "employee %s is inactive", employeeID)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
