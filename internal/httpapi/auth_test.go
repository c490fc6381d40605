package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	users := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      domain.RoleSuperAdmin,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, users)
	_, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	stored, err := users.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 user, got %d", len(stored))
	}
	if stored[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(stored[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", stored[0].Password)
	}
}

func TestCreateUserStoresPasswordHash(t *testing.T) {
	users := &userStoreStub{users: map[string]domain.UserAccount{}}
	manager := NewAuthManager("test-secret", time.Hour, users)

	created, err := manager.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "Washer01",
		Password: "pass1234",
		Role:     "staff",
		BranchID: "branch-east",
	})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if created.Username != "washer01" || created.Role != domain.RoleStaff {
		t.Fatalf("unexpected user %+v", created)
	}

	found, ok := users.users["washer01"]
	if !ok {
		t.Fatalf("expected user to be saved")
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "washer01", Password: "pass1234"})
	if err != nil {
		t.Fatalf("login with new user failed: %v", err)
	}
	if resp.BranchID != "branch-east" {
		t.Fatalf("expected branch in login response, got %q", resp.BranchID)
	}
}

func TestCreateUserValidation(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, &userStoreStub{})

	cases := []domain.UserCreateRequest{
		{Username: "abc", Password: "pass1234", Role: domain.RoleStaff, BranchID: "b"},
		{Username: "with space", Password: "pass1234", Role: domain.RoleStaff, BranchID: "b"},
		{Username: "shortpw", Password: "123", Role: domain.RoleStaff, BranchID: "b"},
		{Username: "nobranch", Password: "pass1234", Role: domain.RoleBranchManager},
		{Username: "badrole", Password: "pass1234", Role: "cashier", BranchID: "b"},
	}
	for _, req := range cases {
		if _, err := manager.CreateUser(context.Background(), req); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}

	if _, err := manager.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "owner", Password: "pass1234", Role: domain.RoleSuperAdmin, BranchID: "ignored",
	}); err != nil {
		t.Fatalf("create super admin failed: %v", err)
	}
	if _, err := manager.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "owner", Password: "pass1234", Role: domain.RoleSuperAdmin,
	}); !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
}

func TestTokenCarriesBranchScope(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, &userStoreStub{})
	if _, err := manager.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "manager1", Password: "pass1234", Role: domain.RoleBranchManager, BranchID: "branch-west",
	}); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "manager1", Password: "pass1234"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "manager1" || actor.Role != domain.RoleBranchManager || actor.BranchID != "branch-west" {
		t.Fatalf("unexpected actor %+v", actor)
	}
	if actor.UserID != "user-manager1" {
		t.Fatalf("unexpected user id %q", actor.UserID)
	}
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, &userStoreStub{})

	sign := func(secret string, claims laundryClaims) string {
		token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	valid := laundryClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "someone",
			Issuer:    tokenIssuer,
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: domain.RoleStaff,
	}

	if _, err := manager.ParseToken(sign("test-secret", valid)); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}
	if _, err := manager.ParseToken(sign("other-secret", valid)); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	if _, err := manager.ParseToken(sign("test-secret", wrongIssuer)); err == nil {
		t.Fatalf("expected foreign issuer to fail")
	}

	expired := valid
	expired.ExpiresAt = jwtlib.NewNumericDate(time.Now().Add(-time.Minute))
	if _, err := manager.ParseToken(sign("test-secret", expired)); err == nil {
		t.Fatalf("expected expired token to fail")
	}

	unknownRole := valid
	unknownRole.Role = "cashier"
	if _, err := manager.ParseToken(sign("test-secret", unknownRole)); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
}

func TestInactiveAccountCannotLogin(t *testing.T) {
	hash, err := hashPassword("pass1234")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users := &userStoreStub{
		users: map[string]domain.UserAccount{
			"former": {Username: "former", Password: hash, Role: domain.RoleStaff, BranchID: "b", Active: false},
		},
	}
	manager := NewAuthManager("test-secret", time.Hour, users)

	_, err = manager.Login(context.Background(), domain.LoginRequest{Username: "former", Password: "pass1234"})
	if !errors.Is(err, errInactiveAccount) {
		t.Fatalf("expected inactive account error, got %v", err)
	}
	_, err = manager.Login(context.Background(), domain.LoginRequest{Username: "former", Password: "wrong"})
	if !errors.Is(err, errInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}
