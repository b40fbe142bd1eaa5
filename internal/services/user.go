package services

import (
	"context"

	"github.com/pandoras-vault/apiserver/internal/authz"
	"github.com/pandoras-vault/apiserver/internal/errs"
	"github.com/pandoras-vault/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id string) error
}

// UserService encapsulates user use-cases. Profile reads and mutations are
// authorized against the row owner; the lookups used by the authentication
// flow (login, uniqueness checks) run upstream of any verified identity and
// therefore carry no principal.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Create inserts a new account. Inserting a user row is the one operation with
// no ownership precondition: signup necessarily precedes identity.
func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	if authz.Check("", user.ID, authz.ResourceUser, authz.OpInsert, authz.Untrusted) != authz.Allow {
		return types.User{}, errs.ErrForbidden
	}
	return s.repo.Create(ctx, user)
}

// GetByEmail is the authentication-path lookup used to verify credentials.
func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// GetByUsername is used for onboarding uniqueness checks.
func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Get loads a profile row on behalf of the caller.
func (s *UserService) Get(ctx context.Context, caller authz.Principal, id string) (types.User, error) {
	if !caller.Allowed(id, authz.ResourceUser, authz.OpRead) {
		return types.User{}, errs.ErrForbidden
	}
	return s.repo.GetByID(ctx, id)
}

// Update persists a mutated profile row on behalf of the caller.
func (s *UserService) Update(ctx context.Context, caller authz.Principal, user types.User) (types.User, error) {
	if !caller.Allowed(user.ID, authz.ResourceUser, authz.OpUpdate) {
		return types.User{}, errs.ErrForbidden
	}
	return s.repo.Update(ctx, user)
}

// Delete removes the account; the progress row cascades away with it.
func (s *UserService) Delete(ctx context.Context, caller authz.Principal, id string) error {
	if !caller.Allowed(id, authz.ResourceUser, authz.OpDelete) {
		return errs.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}
