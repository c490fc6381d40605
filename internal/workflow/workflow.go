package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
)

// graph lists forward moves only. CANCELLED is added for every non-terminal
// state by Allowed.
var graph = map[domain.OrderStatus][]domain.OrderStatus{
	domain.StatusPending:    {domain.StatusProcessing, domain.StatusWashing},
	domain.StatusProcessing: {domain.StatusWashing},
	domain.StatusWashing:    {domain.StatusDrying},
	domain.StatusDrying:     {domain.StatusIroning, domain.StatusReady},
	domain.StatusIroning:    {domain.StatusReady},
	domain.StatusReady:      {domain.StatusDelivered},
}

type Edge struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e Edge) String() string {
	return fmt.Sprintf("%s>%s", e.From, e.To)
}

// Rule consumes Quantity units of Category from the order's branch when the
// order moves along the edge.
type Rule struct {
	Edge
	Category domain.InventoryCategory
	Quantity int
}

func (r Rule) String() string {
	return fmt.Sprintf("%s:%s:%d", r.Edge, r.Category, r.Quantity)
}

func DefaultRules() []Rule {
	return []Rule{
		{Edge{domain.StatusPending, domain.StatusWashing}, domain.CategoryDetergent, 1},
		{Edge{domain.StatusProcessing, domain.StatusWashing}, domain.CategoryDetergent, 1},
		{Edge{domain.StatusWashing, domain.StatusDrying}, domain.CategorySoftener, 1},
		{Edge{domain.StatusDrying, domain.StatusReady}, domain.CategoryPackaging, 1},
		{Edge{domain.StatusIroning, domain.StatusReady}, domain.CategoryPackaging, 1},
	}
}

// ParseRules reads FROM>TO:CATEGORY:QTY entries separated by commas.
func ParseRules(raw string) ([]Rule, error) {
	rules := make([]Rule, 0)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("consumption rule %q: expected FROM>TO:CATEGORY:QTY", entry)
		}
		from, to, ok := strings.Cut(parts[0], ">")
		if !ok {
			return nil, fmt.Errorf("consumption rule %q: expected FROM>TO", entry)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || qty < 1 {
			return nil, fmt.Errorf("consumption rule %q: quantity must be a positive integer", entry)
		}
		rules = append(rules, Rule{
			Edge: Edge{
				From: domain.OrderStatus(strings.ToUpper(strings.TrimSpace(from))),
				To:   domain.OrderStatus(strings.ToUpper(strings.TrimSpace(to))),
			},
			Category: domain.InventoryCategory(strings.ToUpper(strings.TrimSpace(parts[1]))),
			Quantity: qty,
		})
	}
	return rules, nil
}

type Machine struct {
	rules map[Edge][]Rule
}

func NewMachine(rules []Rule) (*Machine, error) {
	m := &Machine{rules: make(map[Edge][]Rule, len(rules))}
	for _, rule := range rules {
		if !rule.Category.Valid() {
			return nil, fmt.Errorf("consumption rule %s: unknown category", rule)
		}
		if !Allowed(rule.From, rule.To) {
			return nil, fmt.Errorf("consumption rule %s: edge is not a legal transition", rule)
		}
		m.rules[rule.Edge] = append(m.rules[rule.Edge], rule)
	}
	return m, nil
}

// Allowed reports whether to is reachable from from in one step.
func Allowed(from domain.OrderStatus, to domain.OrderStatus) bool {
	if from.Terminal() || !from.Valid() {
		return false
	}
	if to == domain.StatusCancelled {
		return true
	}
	for _, next := range graph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next lists the statuses reachable from the given one.
func Next(from domain.OrderStatus) []domain.OrderStatus {
	if from.Terminal() {
		return nil
	}
	next := append([]domain.OrderStatus{}, graph[from]...)
	return append(next, domain.StatusCancelled)
}

func (m *Machine) Rules() []Rule {
	out := make([]Rule, 0, len(m.rules))
	for _, status := range domain.OrderStatuses {
		for _, to := range Next(status) {
			out = append(out, m.rules[Edge{status, to}]...)
		}
	}
	return out
}

// Plan is the full set of side effects a transition carries. A NoOp plan must
// not be applied.
type Plan struct {
	Edge
	NoOp         bool
	Consume      []Rule
	CompleteTask bool
	ReleaseTask  bool
}

func (m *Machine) Plan(order domain.Order, to domain.OrderStatus) (Plan, error) {
	to = domain.OrderStatus(strings.ToUpper(strings.TrimSpace(string(to))))
	if !to.Valid() {
		return Plan{}, store.Invalid("status", "unknown status %q", to)
	}
	plan := Plan{Edge: Edge{From: order.Status, To: to}}
	if order.Status == to {
		plan.NoOp = true
		return plan, nil
	}
	if !Allowed(order.Status, to) {
		return Plan{}, &store.TransitionError{From: string(order.Status), To: string(to)}
	}

	plan.Consume = append(plan.Consume, m.rules[plan.Edge]...)
	if order.AssignedEmployeeID != "" {
		plan.CompleteTask = to.Completed() && !order.Status.Completed()
		plan.ReleaseTask = to == domain.StatusCancelled && order.TaskOpen()
	}
	return plan, nil
}
