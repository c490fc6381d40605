package aggregate

import (
	"context"

	"github.com/shopspring/decimal"

	"laundrydesk/backend/internal/store"
)

// Updater moves branch and employee running totals. It can only be built
// from a store.Tx, so every change rides inside a Coordinator unit.
type Updater struct {
	tx store.Tx
}

func New(tx store.Tx) *Updater {
	return &Updater{tx: tx}
}

func (u *Updater) OrderPlaced(ctx context.Context, branchID string) error {
	_, err := u.tx.AddBranchTotals(ctx, branchID, 1, decimal.Zero)
	return err
}

func (u *Updater) OrderRemoved(ctx context.Context, branchID string) error {
	_, err := u.tx.AddBranchTotals(ctx, branchID, -1, decimal.Zero)
	return err
}

func (u *Updater) AdjustRevenue(ctx context.Context, branchID string, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	_, err := u.tx.AddBranchTotals(ctx, branchID, 0, delta)
	return err
}

func (u *Updater) AssignTask(ctx context.Context, employeeID string) error {
	if employeeID == "" {
		return nil
	}
	_, err := u.tx.AddEmployeeTasks(ctx, employeeID, 1, 0)
	return err
}

func (u *Updater) ReleaseTask(ctx context.Context, employeeID string) error {
	if employeeID == "" {
		return nil
	}
	_, err := u.tx.AddEmployeeTasks(ctx, employeeID, -1, 0)
	return err
}

func (u *Updater) CompleteTask(ctx context.Context, employeeID string) error {
	if employeeID == "" {
		return nil
	}
	_, err := u.tx.AddEmployeeTasks(ctx, employeeID, -1, 1)
	return err
}

// Reassign moves one open task between employees. Either side may be empty.
func (u *Updater) Reassign(ctx context.Context, from string, to string) error {
	if from == to {
		return nil
	}
	if err := u.ReleaseTask(ctx, from); err != nil {
		return err
	}
	return u.AssignTask(ctx, to)
}
