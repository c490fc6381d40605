package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(dec("7.5"))
	require.NoError(t, err)
	return calc
}

func TestComputeBasicOrder(t *testing.T) {
	calc := newCalculator(t)

	b, err := calc.Compute([]domain.OrderItem{{ItemType: "shirt", Quantity: 2, UnitPrice: dec("10")}}, domain.PriorityNormal, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, b.Subtotal.Equal(dec("20")), "subtotal %s", b.Subtotal)
	assert.True(t, b.Tax.Equal(dec("1.5")), "tax %s", b.Tax)
	assert.True(t, b.Total.Equal(dec("21.5")), "total %s", b.Total)
	assert.True(t, b.Items[0].Subtotal.Equal(dec("20")))
}

func TestComputeAppliesPriorityMultiplier(t *testing.T) {
	calc := newCalculator(t)
	items := []domain.OrderItem{
		{ItemType: "duvet", Quantity: 1, UnitPrice: dec("40")},
		{ItemType: "shirt", Quantity: 3, UnitPrice: dec("5.50")},
	}

	cases := []struct {
		priority domain.Priority
		subtotal string
		tax      string
		total    string
	}{
		{domain.PriorityNormal, "56.5", "4.24", "60.74"},
		{domain.PriorityExpress, "70.63", "5.3", "75.93"},
		{domain.PriorityUrgent, "84.75", "6.36", "91.11"},
	}
	for _, tc := range cases {
		b, err := calc.Compute(items, tc.priority, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, b.Subtotal.Equal(dec(tc.subtotal)), "%s subtotal %s", tc.priority, b.Subtotal)
		assert.True(t, b.Tax.Equal(dec(tc.tax)), "%s tax %s", tc.priority, b.Tax)
		assert.True(t, b.Total.Equal(dec(tc.total)), "%s total %s", tc.priority, b.Total)
	}
}

func TestComputeFloorsTotalAtZero(t *testing.T) {
	calc := newCalculator(t)

	b, err := calc.Compute([]domain.OrderItem{{ItemType: "sock", Quantity: 1, UnitPrice: dec("2")}}, domain.PriorityNormal, dec("50"))
	require.NoError(t, err)
	assert.True(t, b.Total.IsZero(), "total %s", b.Total)
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	calc := newCalculator(t)
	valid := []domain.OrderItem{{ItemType: "shirt", Quantity: 1, UnitPrice: dec("1")}}

	_, err := calc.Compute(nil, domain.PriorityNormal, decimal.Zero)
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = calc.Compute([]domain.OrderItem{{ItemType: "shirt", Quantity: 0, UnitPrice: dec("1")}}, domain.PriorityNormal, decimal.Zero)
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = calc.Compute([]domain.OrderItem{{ItemType: "shirt", Quantity: 1, UnitPrice: dec("-1")}}, domain.PriorityNormal, decimal.Zero)
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = calc.Compute(valid, domain.Priority("WHENEVER"), decimal.Zero)
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = calc.Compute(valid, domain.PriorityNormal, dec("-0.01"))
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestApplyIgnoresCallerSuppliedTotals(t *testing.T) {
	calc := newCalculator(t)
	order := domain.Order{
		Items:       []domain.OrderItem{{ItemType: "shirt", Quantity: 2, UnitPrice: dec("10"), Subtotal: dec("999")}},
		Priority:    domain.PriorityNormal,
		Discount:    dec("1.5"),
		TotalAmount: dec("1"),
		Tax:         dec("1000"),
	}

	require.NoError(t, calc.Apply(&order))
	assert.True(t, order.TotalAmount.Equal(dec("20")), "total %s", order.TotalAmount)
	assert.True(t, order.Items[0].Subtotal.Equal(dec("20")))
}

func TestNewCalculatorRejectsOutOfRangeRate(t *testing.T) {
	_, err := NewCalculator(dec("-1"))
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = NewCalculator(dec("101"))
	assert.ErrorIs(t, err, store.ErrValidation)
}
