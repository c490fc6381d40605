package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/xid"
)

const branchCodeAttempts = 3

func (s *Service) CreateBranch(ctx context.Context, req domain.BranchCreateRequest) (domain.Branch, error) {
	if err := requireRole(ctx, domain.RoleSuperAdmin); err != nil {
		return domain.Branch{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Branch{}, store.Invalid("name", "is required")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	now := s.now()
	branch := domain.Branch{
		ID:           xid.New("branch"),
		Name:         name,
		Address:      strings.TrimSpace(req.Address),
		Phone:        strings.TrimSpace(req.Phone),
		Active:       true,
		TotalRevenue: decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var err error
	for attempt := 1; ; attempt++ {
		branch.Code = code
		if branch.Code == "" {
			branch.Code = branchCode(name)
		}
		err = s.coord.Run(ctx, "create_branch", func(ctx context.Context, tx store.Tx) error {
			return tx.InsertBranch(ctx, branch)
		})
		// A caller-supplied code that collides is the caller's problem.
		if err == nil || code != "" || !errors.Is(err, store.ErrDuplicateKey) || attempt == branchCodeAttempts {
			break
		}
	}
	if err != nil {
		return domain.Branch{}, err
	}
	s.log.Info("branch created", zap.String("branch_id", branch.ID), zap.String("code", branch.Code))
	return branch, nil
}

// branchCode builds codes like "DOW-042" from the first three letters of the
// branch name.
func branchCode(name string) string {
	prefix := make([]rune, 0, 3)
	for _, r := range strings.ToUpper(name) {
		if unicode.IsLetter(r) && r < unicode.MaxASCII {
			prefix = append(prefix, r)
		}
		if len(prefix) == 3 {
			break
		}
	}
	for len(prefix) < 3 {
		prefix = append(prefix, 'X')
	}
	return fmt.Sprintf("%s-%03d", string(prefix), rand.IntN(1000))
}

func (s *Service) GetBranch(ctx context.Context, id string) (domain.Branch, error) {
	if err := authorizeBranch(ctx, id); err != nil {
		return domain.Branch{}, err
	}
	branch, err := s.repo.GetBranch(ctx, id)
	if err != nil {
		return domain.Branch{}, err
	}
	return *branch, nil
}

func (s *Service) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	branches, err := s.repo.ListBranches(ctx)
	if err != nil {
		return nil, err
	}
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role == domain.RoleSuperAdmin {
		return branches, nil
	}
	visible := make([]domain.Branch, 0, 1)
	for _, branch := range branches {
		if branch.ID == actor.BranchID {
			visible = append(visible, branch)
		}
	}
	return visible, nil
}

func (s *Service) CreateEmployee(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	if err := requireRole(ctx, domain.RoleSuperAdmin, domain.RoleBranchManager); err != nil {
		return domain.Employee{}, err
	}
	req.BranchID = strings.TrimSpace(req.BranchID)
	name := strings.TrimSpace(req.Name)
	if req.BranchID == "" {
		return domain.Employee{}, store.Invalid("branch_id", "is required")
	}
	if name == "" {
		return domain.Employee{}, store.Invalid("name", "is required")
	}
	if err := authorizeBranch(ctx, req.BranchID); err != nil {
		return domain.Employee{}, err
	}

	now := s.now()
	employee := domain.Employee{
		ID:        xid.New("emp"),
		UserID:    strings.TrimSpace(req.UserID),
		BranchID:  req.BranchID,
		Name:      name,
		Position:  strings.TrimSpace(req.Position),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.coord.Run(ctx, "create_employee", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetBranch(ctx, employee.BranchID); err != nil {
			return err
		}
		return tx.InsertEmployee(ctx, employee)
	})
	if err != nil {
		return domain.Employee{}, err
	}
	s.log.Info("employee created", zap.String("employee_id", employee.ID), zap.String("branch_id", employee.BranchID))
	return employee, nil
}

func (s *Service) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	employee, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return domain.Employee{}, err
	}
	if err := authorizeBranch(ctx, employee.BranchID); err != nil {
		return domain.Employee{}, err
	}
	return *employee, nil
}
