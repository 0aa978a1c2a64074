package users

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/accesshub/accesshub/internal/shared"
)

type memoryRepo struct {
	nextID int64
	byID   map[int64]User
	hashes map[int64]string
	emails map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextID: 1,
		byID:   make(map[int64]User),
		hashes: make(map[int64]string),
		emails: make(map[string]bool),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTxRepo{repo: r})
}

func (r *memoryRepo) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	for _, u := range r.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) CreateUser(ctx context.Context, name, email, passwordHash string, role shared.RoleTag) (User, error) {
	if r.emails[email] {
		return User{}, fmt.Errorf("%w: email taken", shared.ErrConflict)
	}
	user := User{ID: r.nextID, Name: name, Email: email, Role: role, CreatedAt: time.Now()}
	r.nextID++
	r.byID[user.ID] = user
	r.hashes[user.ID] = passwordHash
	r.emails[email] = true
	return user, nil
}

type memoryTxRepo struct {
	repo *memoryRepo
}

func (t *memoryTxRepo) RoleTagForUpdate(ctx context.Context, id int64) (shared.RoleTag, error) {
	user, ok := t.repo.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return user.Role, nil
}

func (t *memoryTxRepo) DeleteUser(ctx context.Context, id int64) error {
	user := t.repo.byID[id]
	delete(t.repo.emails, user.Email)
	delete(t.repo.hashes, id)
	delete(t.repo.byID, id)
	return nil
}

var (
	admin  = shared.Principal{ID: 1, Role: shared.RoleAdmin}
	member = shared.Principal{ID: 2, Role: shared.RoleUser}
)

func TestCreateAdminOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), member, "Eve", "eve@example.com", "secret12", shared.RoleUser)
	require.ErrorIs(t, err, shared.ErrForbidden)

	user, err := svc.Create(context.Background(), admin, " Eve ", " EVE@Example.com ", "secret12", shared.RoleUser)
	require.NoError(t, err)
	require.Equal(t, "Eve", user.Name)
	require.Equal(t, "eve@example.com", user.Email, "email is normalized before insert")
	require.Equal(t, shared.RoleUser, user.Role)

	// Stored credential is a bcrypt hash, never the raw password.
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[user.ID]), []byte("secret12")))

	_, err = svc.Create(context.Background(), admin, "Eve", "eve@example.com", "secret12", shared.RoleUser)
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Create(context.Background(), admin, "Mallory", "mallory@example.com", "secret12", shared.RoleTag("root"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestListAdminOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), admin, "Eve", "eve@example.com", "secret12", shared.RoleUser)
	require.NoError(t, err)

	_, err = svc.List(context.Background(), member)
	require.ErrorIs(t, err, shared.ErrForbidden)

	all, err := svc.List(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestDeleteProtectsAdminAccounts(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	root, err := svc.Create(context.Background(), admin, "Root", "root@example.com", "secret12", shared.RoleAdmin)
	require.NoError(t, err)
	eve, err := svc.Create(context.Background(), admin, "Eve", "eve@example.com", "secret12", shared.RoleUser)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), member, eve.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	err = svc.Delete(context.Background(), admin, root.ID)
	require.ErrorIs(t, err, shared.ErrForbidden, "admin-tagged accounts are never deletable")
	require.Contains(t, repo.byID, root.ID)

	require.NoError(t, svc.Delete(context.Background(), admin, eve.ID))
	require.NotContains(t, repo.byID, eve.ID)

	err = svc.Delete(context.Background(), admin, eve.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
