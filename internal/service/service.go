package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/inventory"
	"laundrydesk/backend/internal/notify"
	"laundrydesk/backend/internal/pricing"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/txn"
	"laundrydesk/backend/internal/workflow"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	TaxRatePercent decimal.Decimal
	TxTimeout      time.Duration
	RevenuePolicy  workflow.RevenuePolicy
	Rules          []workflow.Rule
	Notifier       notify.Notifier
	Logger         *zap.Logger
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		TaxRatePercent: decimal.RequireFromString("7.5"),
		TxTimeout:      txn.DefaultTimeout,
		RevenuePolicy:  workflow.RevenueOnPayment,
		Rules:          workflow.DefaultRules(),
	}
}

type Service struct {
	repo     store.Repository
	coord    *txn.Coordinator
	pricing  *pricing.Calculator
	machine  *workflow.Machine
	revenue  workflow.RevenuePolicy
	ledger   *inventory.Ledger
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func New(repo store.Repository, opts Options) (*Service, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	calc, err := pricing.NewCalculator(opts.TaxRatePercent)
	if err != nil {
		return nil, err
	}
	machine, err := workflow.NewMachine(opts.Rules)
	if err != nil {
		return nil, err
	}
	policy := opts.RevenuePolicy
	if policy == "" {
		policy = workflow.RevenueOnPayment
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}

	return &Service{
		repo:     repo,
		coord:    txn.New(repo, opts.TxTimeout, log),
		pricing:  calc,
		machine:  machine,
		revenue:  policy,
		ledger:   inventory.NewLedger(),
		notifier: notifier,
		log:      log.Named("service"),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) TaxRatePercent() decimal.Decimal {
	return s.pricing.TaxRatePercent()
}

func (s *Service) ConsumptionRules() []workflow.Rule {
	return s.machine.Rules()
}

func (s *Service) RevenuePolicy() workflow.RevenuePolicy {
	return s.revenue
}

// actorName is what lands in status history and stock log entries.
func actorName(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return "system"
	}
	if actor.Username != "" {
		return actor.Username
	}
	if actor.UserID != "" {
		return actor.UserID
	}
	return "system"
}

// authorizeBranch keeps branch-bound users inside their own branch. Calls
// without an actor come from the scheduler and are not scoped.
func authorizeBranch(ctx context.Context, branchID string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role == domain.RoleSuperAdmin {
		return nil
	}
	if actor.BranchID == "" || actor.BranchID != branchID {
		return store.ErrForbidden
	}
	return nil
}

func requireRole(ctx context.Context, roles ...string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return store.ErrForbidden
}

// emit sends an event after commit. Failures are logged and never reach the
// caller.
func (s *Service) emit(ctx context.Context, event notify.Event) {
	if event.At.IsZero() {
		event.At = s.now()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log.Warn("notification failed", zap.String("type", event.Type), zap.String("entity_id", event.EntityID), zap.Error(err))
	}
}

func (s *Service) emitStockEvents(ctx context.Context, items []domain.InventoryItem, wasPending map[string]bool) {
	for _, item := range items {
		switch {
		case item.ReorderPending:
			s.emit(ctx, notify.Event{
				Type:     notify.EventLowStock,
				BranchID: item.BranchID,
				EntityID: item.ID,
				Payload: map[string]any{
					"item_name":     item.ItemName,
					"category":      item.Category,
					"current_stock": item.CurrentStock,
					"reorder_level": item.ReorderLevel,
				},
			})
		case wasPending[item.ID]:
			s.emit(ctx, notify.Event{
				Type:     notify.EventLowStockResolved,
				BranchID: item.BranchID,
				EntityID: item.ID,
				Payload:  map[string]any{"current_stock": item.CurrentStock},
			})
		}
	}
}
