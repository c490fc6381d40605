package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/service"
	"laundrydesk/backend/internal/workflow"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

type ruleView struct {
	From     domain.OrderStatus       `json:"from"`
	To       domain.OrderStatus       `json:"to"`
	Category domain.InventoryCategory `json:"category"`
	Quantity int                      `json:"quantity"`
}

// handleWorkflow lets clients render the status buttons and explain what a
// transition will consume before it is attempted.
func (a *API) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	transitions := make(map[domain.OrderStatus][]domain.OrderStatus, len(domain.OrderStatuses))
	for _, status := range domain.OrderStatuses {
		transitions[status] = workflow.Next(status)
	}
	rules := a.svc.ConsumptionRules()
	views := make([]ruleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, ruleView{From: rule.From, To: rule.To, Category: rule.Category, Quantity: rule.Quantity})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tax_rate_percent":  a.svc.TaxRatePercent().String(),
		"revenue_policy":    a.svc.RevenuePolicy(),
		"transitions":       transitions,
		"consumption_rules": views,
	})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if branchID := strings.TrimSpace(req.BranchID); branchID != "" {
		if _, err := a.svc.GetBranch(r.Context(), branchID); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	user, err := a.auth.CreateUser(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	branchID := strings.TrimSpace(r.URL.Query().Get("branch_id"))
	if actor, ok := service.ActorFromContext(r.Context()); ok && actor.Role != domain.RoleSuperAdmin {
		branchID = actor.BranchID
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": a.auth.ListUsers(r.Context(), branchID),
	})
}

func (a *API) handleListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := a.svc.ListBranches(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": branches})
}

func (a *API) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	var req domain.BranchCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	branch, err := a.svc.CreateBranch(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, branch)
}

func (a *API) handleGetBranch(w http.ResponseWriter, r *http.Request) {
	branch, err := a.svc.GetBranch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, branch)
}

func (a *API) handleInventoryValue(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "id")
	if _, err := a.svc.GetBranch(r.Context(), branchID); err != nil {
		a.fail(w, r, err)
		return
	}
	value, err := a.svc.InventoryValue(r.Context(), branchID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"branch_id": branchID,
		"value":     value,
	})
}

func (a *API) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeeCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	employee, err := a.svc.CreateEmployee(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, employee)
}

func (a *API) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	employee, err := a.svc.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parsePositiveLimit(query.Get("limit"), defaultPageLimit, maxPageLimit)
	offset, err := parseOffset(query.Get("offset"), query.Get("page"), limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	orders, err := a.svc.ListOrders(r.Context(), domain.OrderFilter{
		BranchID:      strings.TrimSpace(query.Get("branch_id")),
		CustomerID:    strings.TrimSpace(query.Get("customer_id")),
		Status:        domain.OrderStatus(strings.TrimSpace(query.Get("status"))),
		PaymentStatus: domain.PaymentStatus(strings.TrimSpace(query.Get("payment_status"))),
		Search:        strings.TrimSpace(query.Get("search")),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": orders})
}

func (a *API) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	order, err := a.svc.CreateOrder(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (a *API) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := a.svc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (a *API) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	order, err := a.svc.UpdateOrder(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (a *API) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.StatusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(string(req.Status)) == "" {
		writeError(w, http.StatusBadRequest, errors.New("status is required"))
		return
	}
	order, err := a.svc.TransitionOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (a *API) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.svc.DeleteOrder(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.InventoryFilter{
		BranchID: strings.TrimSpace(query.Get("branch_id")),
		Category: domain.InventoryCategory(strings.TrimSpace(query.Get("category"))),
	}
	if raw := strings.TrimSpace(query.Get("low_stock")); raw != "" {
		lowStock, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("low_stock must be a boolean"))
			return
		}
		filter.LowStock = lowStock
	}
	items, err := a.svc.ListInventory(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleCreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.svc.CreateInventoryItem(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) handleGetInventoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.svc.GetInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleUpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.svc.UpdateInventoryItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleAdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.AdjustStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.svc.AdjustInventory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleStockLogs(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), defaultPageLimit, maxPageLimit)
	logs, err := a.svc.ListStockLogs(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": logs})
}

// parseOffset accepts either an explicit offset or a 1-based page number.
func parseOffset(rawOffset string, rawPage string, limit int) (int, error) {
	if rawOffset = strings.TrimSpace(rawOffset); rawOffset != "" {
		offset, err := strconv.Atoi(rawOffset)
		if err != nil || offset < 0 {
			return 0, errors.New("offset must be a non-negative integer")
		}
		return offset, nil
	}
	if rawPage = strings.TrimSpace(rawPage); rawPage != "" {
		page, err := strconv.Atoi(rawPage)
		if err != nil || page < 1 {
			return 0, errors.New("page must be a positive integer")
		}
		return (page - 1) * limit, nil
	}
	return 0, nil
}
