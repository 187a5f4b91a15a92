package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/internal/models"
	"github.com/wolfeidau/holeportal/internal/store"
)

// CatalogStore implements store.HoleStore and store.OrderStore using PostgreSQL.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore creates a new PostgreSQL-backed catalog store.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// CreateHole inserts a hole definition.
func (s *CatalogStore) CreateHole(ctx context.Context, hole *models.Hole) error {
	query := `
		INSERT INTO hole_library (id, code, name, diameter_mm, depth_mm)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, hole.ID, hole.Code, hole.Name, hole.DiameterMM, hole.DepthMM)
	if err != nil {
		return fmt.Errorf("failed to create hole: %w", mapPostgresError(err))
	}

	log.Debug().Str("code", hole.Code).Msg("Created hole")

	return nil
}

// ListHoles returns the hole library ordered by code.
func (s *CatalogStore) ListHoles(ctx context.Context) ([]*models.Hole, error) {
	query := `
		SELECT id, code, name, diameter_mm, depth_mm
		FROM hole_library
		ORDER BY code
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list holes: %w", mapPostgresError(err))
	}

	holes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Hole, error) {
		var h models.Hole
		err := row.Scan(&h.ID, &h.Code, &h.Name, &h.DiameterMM, &h.DepthMM)
		return &h, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan holes: %w", mapPostgresError(err))
	}

	return holes, nil
}

// CreateOrder inserts an order.
func (s *CatalogStore) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, code, user_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, order.ID, order.Code, order.UserID, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("code", order.Code).
		Str("user_id", order.UserID.String()).
		Msg("Created order")

	return nil
}

// ListOrdersByUser returns the user's orders, newest first.
func (s *CatalogStore) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	query := `
		SELECT id, code, user_id, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", mapPostgresError(err))
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Order, error) {
		var o models.Order
		err := row.Scan(&o.ID, &o.Code, &o.UserID, &o.CreatedAt)
		return &o, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", mapPostgresError(err))
	}

	return orders, nil
}

// NewStores returns the PostgreSQL stores sharing pool.
func NewStores(pool *pgxpool.Pool) store.Stores {
	catalog := NewCatalogStore(pool)
	return store.Stores{
		Users:  NewUserStore(pool),
		Holes:  catalog,
		Orders: catalog,
	}
}
