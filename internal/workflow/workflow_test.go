package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundrydesk/backend/internal/config"
	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
)

func newMachine(t *testing.T) *Machine {
	t.Helper()
	m, err := NewMachine(DefaultRules())
	require.NoError(t, err)
	return m
}

func TestAllowedGraph(t *testing.T) {
	assert.True(t, Allowed(domain.StatusPending, domain.StatusWashing))
	assert.True(t, Allowed(domain.StatusDrying, domain.StatusReady))
	assert.True(t, Allowed(domain.StatusReady, domain.StatusDelivered))
	assert.True(t, Allowed(domain.StatusIroning, domain.StatusCancelled))

	assert.False(t, Allowed(domain.StatusWashing, domain.StatusPending), "backward move")
	assert.False(t, Allowed(domain.StatusPending, domain.StatusReady), "skipping the wash")
	assert.False(t, Allowed(domain.StatusDelivered, domain.StatusCancelled), "out of terminal")
	assert.False(t, Allowed(domain.StatusCancelled, domain.StatusPending), "out of terminal")
}

func TestEveryPathToReadyConsumesEachSupplyOnce(t *testing.T) {
	m := newMachine(t)

	var walk func(status domain.OrderStatus, used map[domain.InventoryCategory]int)
	walk = func(status domain.OrderStatus, used map[domain.InventoryCategory]int) {
		if status == domain.StatusReady {
			assert.Equal(t, 1, used[domain.CategoryDetergent])
			assert.Equal(t, 1, used[domain.CategorySoftener])
			assert.Equal(t, 1, used[domain.CategoryPackaging])
			return
		}
		for _, next := range Next(status) {
			if next == domain.StatusCancelled {
				continue
			}
			plan, err := m.Plan(domain.Order{Status: status}, next)
			require.NoError(t, err)
			branch := make(map[domain.InventoryCategory]int, len(used))
			for k, v := range used {
				branch[k] = v
			}
			for _, rule := range plan.Consume {
				branch[rule.Category] += rule.Quantity
			}
			walk(next, branch)
		}
	}
	walk(domain.StatusPending, map[domain.InventoryCategory]int{})
}

func TestPlanSameStatusIsNoOp(t *testing.T) {
	m := newMachine(t)

	plan, err := m.Plan(domain.Order{Status: domain.StatusWashing, AssignedEmployeeID: "emp-1"}, domain.StatusWashing)
	require.NoError(t, err)
	assert.True(t, plan.NoOp)
	assert.Empty(t, plan.Consume)
	assert.False(t, plan.CompleteTask)
}

func TestPlanRejectsIllegalMoves(t *testing.T) {
	m := newMachine(t)

	_, err := m.Plan(domain.Order{Status: domain.StatusDelivered}, domain.StatusReady)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	_, err = m.Plan(domain.Order{Status: domain.StatusPending}, domain.OrderStatus("FOLDED"))
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestPlanTaskBookkeeping(t *testing.T) {
	m := newMachine(t)
	order := domain.Order{Status: domain.StatusIroning, AssignedEmployeeID: "emp-1"}

	plan, err := m.Plan(order, domain.StatusReady)
	require.NoError(t, err)
	assert.True(t, plan.CompleteTask)
	require.Len(t, plan.Consume, 1)
	assert.Equal(t, domain.CategoryPackaging, plan.Consume[0].Category)

	order.Status = domain.StatusReady
	plan, err = m.Plan(order, domain.StatusDelivered)
	require.NoError(t, err)
	assert.False(t, plan.CompleteTask, "already completed at READY")

	plan, err = m.Plan(domain.Order{Status: domain.StatusWashing, AssignedEmployeeID: "emp-1"}, domain.StatusCancelled)
	require.NoError(t, err)
	assert.True(t, plan.ReleaseTask)

	plan, err = m.Plan(domain.Order{Status: domain.StatusReady, AssignedEmployeeID: "emp-1"}, domain.StatusCancelled)
	require.NoError(t, err)
	assert.False(t, plan.ReleaseTask, "task already completed")

	plan, err = m.Plan(domain.Order{Status: domain.StatusIroning}, domain.StatusReady)
	require.NoError(t, err)
	assert.False(t, plan.CompleteTask, "no assignee")
}

func TestParseRulesMatchesDefaults(t *testing.T) {
	rules, err := ParseRules(config.DefaultConsumptionRules)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)

	rules, err = ParseRules(" pending>washing:detergent:2 ")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, domain.CategoryDetergent, rules[0].Category)
	assert.Equal(t, 2, rules[0].Quantity)
}

func TestParseRulesAndMachineRejectBadConfig(t *testing.T) {
	for _, raw := range []string{"PENDING:DETERGENT:1", "PENDING>WASHING:DETERGENT", "PENDING>WASHING:DETERGENT:0"} {
		_, err := ParseRules(raw)
		assert.Error(t, err, raw)
	}

	_, err := NewMachine([]Rule{{Edge{domain.StatusWashing, domain.StatusPending}, domain.CategoryDetergent, 1}})
	assert.Error(t, err)
	_, err = NewMachine([]Rule{{Edge{domain.StatusPending, domain.StatusWashing}, domain.InventoryCategory("SOAP"), 1}})
	assert.Error(t, err)
}

func TestRevenuePolicies(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	paid := &domain.Order{Status: domain.StatusWashing, PaymentStatus: domain.PaymentPaid, TotalAmount: hundred}
	unpaid := &domain.Order{Status: domain.StatusWashing, PaymentStatus: domain.PaymentUnpaid, TotalAmount: hundred}
	delivered := &domain.Order{Status: domain.StatusDelivered, PaymentStatus: domain.PaymentUnpaid, TotalAmount: hundred}

	assert.True(t, RevenueOnPayment.Delta(unpaid, paid).Equal(hundred))
	assert.True(t, RevenueOnPayment.Delta(paid, paid).IsZero())
	assert.True(t, RevenueOnPayment.Delta(paid, nil).Equal(hundred.Neg()))
	assert.True(t, RevenueOnPayment.Delta(unpaid, delivered).IsZero())

	assert.True(t, RevenueOnDelivery.Delta(unpaid, delivered).Equal(hundred))
	assert.True(t, RevenueOnDelivery.Delta(unpaid, paid).IsZero())

	policy, err := ParseRevenuePolicy("")
	require.NoError(t, err)
	assert.Equal(t, RevenueOnPayment, policy)
	_, err = ParseRevenuePolicy("invoice")
	assert.Error(t, err)
}
