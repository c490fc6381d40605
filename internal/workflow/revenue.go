package workflow

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"laundrydesk/backend/internal/domain"
)

// RevenuePolicy decides when an order's total counts toward branch revenue.
// Exactly one policy is active per process.
type RevenuePolicy string

const (
	RevenueOnPayment  RevenuePolicy = "payment"
	RevenueOnDelivery RevenuePolicy = "delivery"
)

func ParseRevenuePolicy(raw string) (RevenuePolicy, error) {
	switch p := RevenuePolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return RevenueOnPayment, nil
	case RevenueOnPayment, RevenueOnDelivery:
		return p, nil
	default:
		return "", fmt.Errorf("unknown revenue policy %q", raw)
	}
}

func (p RevenuePolicy) Recognized(order domain.Order) bool {
	if p == RevenueOnDelivery {
		return order.Status == domain.StatusDelivered
	}
	return order.PaymentStatus == domain.PaymentPaid
}

// Contribution is what the order currently adds to its branch revenue.
func (p RevenuePolicy) Contribution(order *domain.Order) decimal.Decimal {
	if order == nil || !p.Recognized(*order) {
		return decimal.Zero
	}
	return order.TotalAmount
}

// Delta is the revenue change produced by rewriting before into after. A nil
// side means the order does not exist on that side.
func (p RevenuePolicy) Delta(before *domain.Order, after *domain.Order) decimal.Decimal {
	return p.Contribution(after).Sub(p.Contribution(before))
}
