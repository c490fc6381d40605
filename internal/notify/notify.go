package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	EventLowStock         = "inventory.low_stock"
	EventLowStockResolved = "inventory.low_stock_resolved"
	EventOrderStatus      = "order.status_changed"
	EventPaymentReminder  = "order.payment_reminder"
)

type Event struct {
	Type     string         `json:"type"`
	BranchID string         `json:"branch_id"`
	EntityID string         `json:"entity_id"`
	Payload  map[string]any `json:"payload,omitempty"`
	At       time.Time      `json:"at"`
}

// Notifier is a fire-and-forget trigger. Delivery is somebody else's job;
// callers log a returned error and carry on.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type Noop struct{}

func (Noop) Notify(context.Context, Event) error {
	return nil
}

// Log writes events to the structured log. It is the fallback when no broker
// is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log.Named("notify")}
}

func (n *Log) Notify(_ context.Context, event Event) error {
	n.log.Info("event",
		zap.String("type", event.Type),
		zap.String("branch_id", event.BranchID),
		zap.String("entity_id", event.EntityID),
		zap.Any("payload", event.Payload),
		zap.Time("at", event.At),
	)
	return nil
}
