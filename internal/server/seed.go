package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/internal/models"
	"github.com/wolfeidau/holeportal/internal/store"
)

func mm(v float64) *float64 { return &v }

var seedHoles = []models.Hole{
	{Code: "D05", Name: "Dowel 5mm", DiameterMM: mm(5), DepthMM: mm(12)},
	{Code: "D08", Name: "Dowel 8mm", DiameterMM: mm(8), DepthMM: mm(30)},
	{Code: "H35", Name: "Hinge cup 35mm", DiameterMM: mm(35), DepthMM: mm(13)},
	{Code: "S05", Name: "Shelf pin 5mm", DiameterMM: mm(5), DepthMM: mm(10)},
	{Code: "TH", Name: "Through hole"},
}

// Seed loads development data: an admin user, the hole library and a few
// orders owned by that user. Existing entries are left untouched.
func Seed(ctx context.Context, stores store.Stores, email, password string) error {
	user, err := NewUser(email, "Developer", password, models.RoleAdmin)
	if err != nil {
		return err
	}

	if err := stores.Users.Create(ctx, user); err != nil {
		if !errors.Is(err, store.ErrUserAlreadyExists) {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		if user, err = stores.Users.GetByEmail(ctx, email); err != nil {
			return fmt.Errorf("failed to load seeded user: %w", err)
		}
	}

	for _, h := range seedHoles {
		hole := h
		hole.ID = uuid.New()
		if err := stores.Holes.CreateHole(ctx, &hole); err != nil && !errors.Is(err, store.ErrHoleAlreadyExists) {
			return fmt.Errorf("failed to seed hole %s: %w", hole.Code, err)
		}
	}

	now := time.Now().UTC()
	for i := range 3 {
		order := &models.Order{
			ID:        uuid.New(),
			Code:      fmt.Sprintf("ORD-%04d", i+1),
			UserID:    user.ID,
			CreatedAt: now.Add(-time.Duration(i) * 24 * time.Hour),
		}
		if err := stores.Orders.CreateOrder(ctx, order); err != nil && !errors.Is(err, store.ErrOrderExists) {
			return fmt.Errorf("failed to seed order %s: %w", order.Code, err)
		}
	}

	log.Info().Str("email", email).Int("holes", len(seedHoles)).Msg("Seeded development data")
	return nil
}
