package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/holeportal/internal/models"
	"github.com/wolfeidau/holeportal/internal/store"
)

// CatalogStore implements store.HoleStore and store.OrderStore in memory.
type CatalogStore struct {
	mu sync.RWMutex

	holes        map[string]*models.Hole  // code -> Hole
	orders       map[string]*models.Order // code -> Order
	ordersByUser map[uuid.UUID][]string   // user_id -> []code
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		holes:        make(map[string]*models.Hole),
		orders:       make(map[string]*models.Order),
		ordersByUser: make(map[uuid.UUID][]string),
	}
}

// CreateHole adds a hole definition; codes are unique.
func (s *CatalogStore) CreateHole(ctx context.Context, hole *models.Hole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.holes[hole.Code]; exists {
		return store.ErrHoleAlreadyExists
	}

	clone := *hole
	s.holes[hole.Code] = &clone
	return nil
}

// ListHoles returns the hole library ordered by code.
func (s *CatalogStore) ListHoles(ctx context.Context) ([]*models.Hole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holes := make([]*models.Hole, 0, len(s.holes))
	for _, h := range s.holes {
		clone := *h
		holes = append(holes, &clone)
	}
	sort.Slice(holes, func(i, j int) bool { return holes[i].Code < holes[j].Code })

	return holes, nil
}

// CreateOrder adds an order; codes are unique.
func (s *CatalogStore) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.Code]; exists {
		return store.ErrOrderExists
	}

	clone := *order
	s.orders[order.Code] = &clone
	s.ordersByUser[order.UserID] = append(s.ordersByUser[order.UserID], order.Code)
	return nil
}

// ListOrdersByUser returns the user's orders, newest first.
func (s *CatalogStore) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := s.ordersByUser[userID]
	orders := make([]*models.Order, 0, len(codes))
	for _, code := range codes {
		clone := *s.orders[code]
		orders = append(orders, &clone)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })

	return orders, nil
}

// NewStores returns a complete set of in-memory stores.
func NewStores() store.Stores {
	catalog := NewCatalogStore()
	return store.Stores{
		Users:  NewUserStore(),
		Holes:  catalog,
		Orders: catalog,
	}
}
