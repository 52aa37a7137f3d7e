package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/google/uuid"
)

const minPasswordLen = 6

type Accounts struct {
	store  Store
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
}

func NewAccounts(store Store, hasher PasswordHasher, tokens TokenIssuer) *Accounts {
	return &Accounts{store: store, hasher: hasher, tokens: tokens, now: time.Now}
}

type RegisterInput struct {
	Name, Email, Password string
	Role                  domain.Role
}

// Register creates a CUSTOMER or SELLER account. Admins come from EnsureAdmin.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = normalizeEmail(in.Email)
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	if in.Role != domain.RoleCustomer && in.Role != domain.RoleSeller {
		return nil, fmt.Errorf("%w: role must be CUSTOMER or SELLER", ErrInvalidInput)
	}

	if _, err := a.store.Users().GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials and issues an access token. Unknown email
// and wrong password are indistinguishable to the caller.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (Token, *domain.User, error) {
	u, err := a.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return Token{}, nil, ErrInvalidCredentials
	}
	if err != nil {
		return Token{}, nil, err
	}
	if err := a.hasher.Compare(u.PasswordHash, password); err != nil {
		return Token{}, nil, ErrInvalidCredentials
	}
	tok, err := a.tokens.Issue(u)
	if err != nil {
		return Token{}, nil, fmt.Errorf("issue token: %w", err)
	}
	return tok, u, nil
}

func (a *Accounts) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return a.store.Users().GetByID(ctx, userID)
}

// UpdateProfile renames the user and, when password is long enough, rotates it.
func (a *Accounts) UpdateProfile(ctx context.Context, userID, name, password string) (*domain.User, error) {
	u, err := a.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if n := strings.TrimSpace(name); n != "" {
		u.Name = n
	}
	if len(password) >= minPasswordLen {
		hash, err := a.hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if err := a.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (a *Accounts) ListUsers(ctx context.Context) ([]domain.User, error) {
	return a.store.Users().List(ctx)
}

func (a *Accounts) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return fmt.Errorf("%w: you cannot delete your own account", ErrInvalidState)
	}
	return a.store.InTx(ctx, func(r Repos) error {
		return r.Users().Delete(ctx, userID)
	})
}

// EnsureAdmin creates the admin account or promotes and re-keys an existing one.
func (a *Accounts) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, bool, error) {
	email = normalizeEmail(email)
	if len(password) < minPasswordLen {
		return nil, false, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	u, err := a.store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		u.Role = domain.RoleAdmin
		u.PasswordHash = hash
		if name != "" {
			u.Name = name
		}
		return u, false, a.store.Users().Update(ctx, u)
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	if name == "" {
		name = "Admin"
	}
	u = &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    a.now().UTC(),
	}
	return u, true, a.store.Users().Create(ctx, u)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
