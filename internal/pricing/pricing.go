package pricing

import (
	"github.com/shopspring/decimal"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
)

var (
	hundred     = decimal.NewFromInt(100)
	multipliers = map[domain.Priority]decimal.Decimal{
		domain.PriorityNormal:  decimal.NewFromInt(1),
		domain.PriorityExpress: decimal.RequireFromString("1.25"),
		domain.PriorityUrgent:  decimal.RequireFromString("1.5"),
	}
)

// Multiplier returns the price factor for a priority.
func Multiplier(priority domain.Priority) (decimal.Decimal, bool) {
	m, ok := multipliers[priority]
	return m, ok
}

type Breakdown struct {
	Items         []domain.OrderItem
	ItemsSubtotal decimal.Decimal
	Multiplier    decimal.Decimal
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
}

// Calculator is a pure function of its inputs; it never reads previous totals.
type Calculator struct {
	taxRate decimal.Decimal
}

func NewCalculator(taxRatePercent decimal.Decimal) (*Calculator, error) {
	if taxRatePercent.IsNegative() || taxRatePercent.GreaterThan(hundred) {
		return nil, store.Invalid("tax_rate_percent", "must be between 0 and 100, got %s", taxRatePercent)
	}
	return &Calculator{taxRate: taxRatePercent.Div(hundred)}, nil
}

func (c *Calculator) TaxRatePercent() decimal.Decimal {
	return c.taxRate.Mul(hundred)
}

func (c *Calculator) Compute(items []domain.OrderItem, priority domain.Priority, discount decimal.Decimal) (Breakdown, error) {
	if len(items) == 0 {
		return Breakdown{}, store.Invalid("items", "at least one item is required")
	}
	multiplier, ok := Multiplier(priority)
	if !ok {
		return Breakdown{}, store.Invalid("priority", "unknown priority %q", priority)
	}
	if discount.IsNegative() {
		return Breakdown{}, store.Invalid("discount", "must not be negative")
	}

	priced := make([]domain.OrderItem, len(items))
	itemsSubtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity < 1 {
			return Breakdown{}, store.Invalid("items", "item %d: quantity must be a positive integer", i)
		}
		if item.UnitPrice.IsNegative() {
			return Breakdown{}, store.Invalid("items", "item %d: unit price must not be negative", i)
		}
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		itemsSubtotal = itemsSubtotal.Add(item.Subtotal)
		priced[i] = item
	}

	subtotal := itemsSubtotal.Mul(multiplier)
	tax := subtotal.Mul(c.taxRate).Round(2)
	total := subtotal.Add(tax).Sub(discount).Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Breakdown{
		Items:         priced,
		ItemsSubtotal: itemsSubtotal,
		Multiplier:    multiplier,
		Subtotal:      subtotal.Round(2),
		Tax:           tax,
		Discount:      discount,
		Total:         total,
	}, nil
}

// Apply recomputes every derived money field of the order from its current
// items, priority and discount.
func (c *Calculator) Apply(order *domain.Order) error {
	b, err := c.Compute(order.Items, order.Priority, order.Discount)
	if err != nil {
		return err
	}
	order.Items = b.Items
	order.Subtotal = b.Subtotal
	order.Tax = b.Tax
	order.TotalAmount = b.Total
	return nil
}
