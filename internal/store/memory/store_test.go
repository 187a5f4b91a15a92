package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/holeportal/internal/models"
	"github.com/wolfeidau/holeportal/internal/store"
)

var (
	_ store.UserStore  = (*UserStore)(nil)
	_ store.HoleStore  = (*CatalogStore)(nil)
	_ store.OrderStore = (*CatalogStore)(nil)
)

func newUser(t *testing.T, email string) *models.User {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	now := time.Now()
	return &models.User{ID: id, Email: email, Name: "Test User", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	user := newUser(t, "A@B.com")
	require.NoError(t, s.Create(ctx, user))

	t.Run("get by id", func(t *testing.T) {
		got, err := s.Get(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, got.Email)
	})

	t.Run("get by email is case insensitive", func(t *testing.T) {
		got, err := s.GetByEmail(ctx, "a@b.COM")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("returned users are copies", func(t *testing.T) {
		got, err := s.Get(ctx, user.ID)
		require.NoError(t, err)
		got.Name = "changed"

		again, err := s.Get(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Test User", again.Name)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := s.Create(ctx, newUser(t, "a@b.com"))
		require.ErrorIs(t, err, store.ErrUserAlreadyExists)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Get(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrUserNotFound)

		_, err = s.GetByEmail(ctx, "nobody@b.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("list ordered by email with roles", func(t *testing.T) {
		admin := newUser(t, "0admin@b.com")
		admin.Roles = []string{models.RoleAdmin}
		require.NoError(t, s.Create(ctx, admin))
		admin.Roles[0] = "changed"

		users, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "0admin@b.com", users[0].Email)
		assert.True(t, users[0].HasRole(models.RoleAdmin))
		assert.False(t, users[1].HasRole(models.RoleAdmin))
	})
}

func TestCatalogStore_Holes(t *testing.T) {
	ctx := context.Background()
	s := NewCatalogStore()

	d := 35.0
	require.NoError(t, s.CreateHole(ctx, &models.Hole{ID: uuid.New(), Code: "H35", Name: "Hinge cup", DiameterMM: &d}))
	require.NoError(t, s.CreateHole(ctx, &models.Hole{ID: uuid.New(), Code: "D05", Name: "Dowel"}))

	err := s.CreateHole(ctx, &models.Hole{ID: uuid.New(), Code: "D05", Name: "Other"})
	require.ErrorIs(t, err, store.ErrHoleAlreadyExists)

	holes, err := s.ListHoles(ctx)
	require.NoError(t, err)
	require.Len(t, holes, 2)
	assert.Equal(t, "D05", holes[0].Code)
	assert.Equal(t, "H35", holes[1].Code)
	assert.Equal(t, 35.0, *holes[1].DiameterMM)
}

func TestCatalogStore_Orders(t *testing.T) {
	ctx := context.Background()
	s := NewCatalogStore()

	owner := uuid.New()
	other := uuid.New()
	now := time.Now()

	require.NoError(t, s.CreateOrder(ctx, &models.Order{ID: uuid.New(), Code: "ORD-1", UserID: owner, CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, s.CreateOrder(ctx, &models.Order{ID: uuid.New(), Code: "ORD-2", UserID: owner, CreatedAt: now}))
	require.NoError(t, s.CreateOrder(ctx, &models.Order{ID: uuid.New(), Code: "ORD-3", UserID: other, CreatedAt: now}))

	err := s.CreateOrder(ctx, &models.Order{ID: uuid.New(), Code: "ORD-1", UserID: other})
	require.ErrorIs(t, err, store.ErrOrderExists)

	orders, err := s.ListOrdersByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD-2", orders[0].Code)
	assert.Equal(t, "ORD-1", orders[1].Code)

	orders, err = s.ListOrdersByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, orders)
}
