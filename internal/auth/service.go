package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/bher20/energyplatform/internal/storage"
)

// Roles.
const (
	RoleAdmin  = "admin"
	RoleClerk  = "clerk"
	RoleViewer = "viewer"
)

// Protected objects and actions.
const (
	ObjInvoices = "invoices"
	ObjSettings = "settings"
	ActRead     = "read"
	ActWrite    = "write"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUnknownRole        = errors.New("unknown role")
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (r.obj == p.obj || p.obj == "*") && (r.act == p.act || p.act == "*")
`

var defaultPolicies = [][]string{
	{RoleAdmin, "*", "*"},
	{RoleClerk, ObjInvoices, ActRead},
	{RoleClerk, ObjInvoices, ActWrite},
	{RoleViewer, ObjInvoices, ActRead},
}

type Service struct {
	storage  storage.Storage
	enforcer *casbin.Enforcer
	clock    clockwork.Clock
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for account timestamps and token expiry.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewService builds the enforcer with persisted grouping rules loaded from
// storage and the built-in role policies.
func NewService(s storage.Storage, opts ...Option) (*Service, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m, NewAdapter(s))
	if err != nil {
		return nil, err
	}
	// role policies are code, only user-role assignments are persisted
	e.EnableAutoSave(false)
	for _, p := range defaultPolicies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("add policy: %w", err)
		}
	}
	e.EnableAutoSave(true)

	svc := &Service{storage: s, enforcer: e, clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(svc)
	}
	return svc, nil
}

func validRole(role string) bool {
	return role == RoleAdmin || role == RoleClerk || role == RoleViewer
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (*storage.User, error) {
	u, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Register(ctx context.Context, username, password, role string) (*storage.User, error) {
	if !validRole(role) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	existing, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	u := storage.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	if _, err := s.enforcer.AddGroupingPolicy(u.ID, role); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}
	return &u, nil
}

// HasUsers reports whether any account exists. The first registered
// account may pick its own role.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	users, err := s.storage.ListUsers(ctx)
	return len(users) > 0, err
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// CreateToken issues a bearer token. The raw value is returned once and
// only its hash is stored.
func (s *Service) CreateToken(ctx context.Context, userID, name, role string, expiresAt *time.Time) (*storage.Token, string, error) {
	raw := uuid.New().String() + uuid.New().String()
	t := storage.Token{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		TokenHash: hashToken(raw),
		Role:      role,
		CreatedAt: s.clock.Now(),
		ExpiresAt: expiresAt,
	}
	if err := s.storage.CreateToken(ctx, t); err != nil {
		return nil, "", err
	}
	return &t, raw, nil
}

func (s *Service) ValidateToken(ctx context.Context, raw string) (*storage.Token, error) {
	t, err := s.storage.GetTokenByHash(ctx, hashToken(raw))
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrInvalidToken
	}
	if t.ExpiresAt != nil && t.ExpiresAt.Before(s.clock.Now()) {
		return nil, ErrTokenExpired
	}

	go func(id string) {
		if err := s.storage.UpdateTokenLastUsed(context.Background(), id); err != nil {
			slog.Warn("auth: update token last used failed", "error", err)
		}
	}(t.ID)

	return t, nil
}

func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	return s.enforcer.Enforce(sub, obj, act)
}
