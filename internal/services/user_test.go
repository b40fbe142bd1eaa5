package services

import (
	"context"
	"sync"
	"testing"

	"github.com/pandoras-vault/apiserver/internal/authz"
	"github.com/pandoras-vault/apiserver/internal/errs"
	"github.com/pandoras-vault/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User)}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return types.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, errs.ErrNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username != nil && *u.Username == username {
			return u, nil
		}
	}
	return types.User{}, errs.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return types.User{}, errs.ErrAlreadyExists
		}
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, errs.ErrNotFound
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func TestUserCreateNeedsNoPriorIdentity(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	u, err := svc.Create(context.Background(), types.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestUserProfileOwnership(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, types.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, types.User{ID: "u2", Email: "b@example.com"})
	require.NoError(t, err)

	// a subject reads and mutates only its own row
	u, err := svc.Get(ctx, authz.Subject("u1"), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)

	_, err = svc.Get(ctx, authz.Subject("u1"), "u2")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	u.IsOnboarded = true
	_, err = svc.Update(ctx, authz.Subject("u2"), u)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = svc.Update(ctx, authz.Subject("u1"), u)
	require.NoError(t, err)

	err = svc.Delete(ctx, authz.Subject("u1"), "u2")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	// operator bypasses the ownership comparison
	_, err = svc.Get(ctx, authz.Operator(), "u2")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, authz.Operator(), "u2"))
}
