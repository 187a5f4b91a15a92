package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/internal/server"
	"github.com/wolfeidau/holeportal/internal/store"
	postgresstore "github.com/wolfeidau/holeportal/internal/store/postgres"
)

type UserAddCmd struct {
	Email    string `help:"user email" required:""`
	Name     string `help:"display name" default:""`
	Password string   `help:"user password" env:"HOLEPORTAL_USER_PASSWORD"`
	Roles    []string `help:"role granted to the user, repeatable (admin)" name:"role"`

	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *UserAddCmd) Run(ctx context.Context, globals *Globals) error {
	if c.Password == "" {
		return errors.New("password is required (--password or HOLEPORTAL_USER_PASSWORD)")
	}

	pool, err := c.PostgresStore.openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	return c.create(ctx, postgresstore.NewUserStore(pool))
}

func (c *UserAddCmd) create(ctx context.Context, users store.UserStore) error {
	user, err := server.NewUser(c.Email, c.Name, c.Password, c.Roles...)
	if err != nil {
		return err
	}

	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return fmt.Errorf("user %s already exists", c.Email)
		}
		return err
	}

	log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Strs("roles", user.Roles).Msg("Created user")
	return nil
}
