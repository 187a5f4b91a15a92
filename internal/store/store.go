package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/holeportal/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrHoleAlreadyExists = errors.New("hole already exists")
	ErrOrderExists       = errors.New("order already exists")
)

// UserStore manages portal user accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// List returns every user ordered by email.
	List(ctx context.Context) ([]*models.User, error)
}

// HoleStore manages the hole library.
type HoleStore interface {
	CreateHole(ctx context.Context, hole *models.Hole) error
	ListHoles(ctx context.Context) ([]*models.Hole, error)
}

// OrderStore manages production orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
}

// Stores groups the stores used by the portal server.
type Stores struct {
	Users  UserStore
	Holes  HoleStore
	Orders OrderStore
}

// Validate checks that every store is set.
func (s Stores) Validate() error {
	if s.Users == nil || s.Holes == nil || s.Orders == nil {
		return errors.New("all stores (users, holes, orders) are required")
	}
	return nil
}
