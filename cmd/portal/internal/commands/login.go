package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wolfeidau/holeportal/internal/session"
)

// LoginCmd authenticates against the portal and stores the session token.
type LoginCmd struct {
	Email    string `help:"Account email" required:"" env:"PORTAL_EMAIL"`
	Password string `help:"Account password" env:"PORTAL_PASSWORD"`
	Save     bool   `help:"Remember the server URL and timeout in config.yaml" default:"false"`

	out io.Writer
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	if c.Password == "" {
		return errors.New("password is required (--password or PORTAL_PASSWORD)")
	}

	p, err := globals.open()
	if err != nil {
		return err
	}

	result := p.session.Login(ctx, c.Email, c.Password)
	if !result.Success {
		if errors.Is(result.Err, session.ErrTransportFailure) {
			return fmt.Errorf("%s: %w", result.Detail, result.Err)
		}
		return errors.New(result.Detail)
	}

	if c.Save {
		_, dir, err := globals.clientConfig()
		if err != nil {
			return err
		}
		if err := SaveFileConfig(dir, &FileConfig{ServerURL: p.config.ServerURL, Timeout: Duration(p.config.Timeout)}); err != nil {
			return err
		}
	}

	email, _ := p.session.User()["email"].(string)
	if email == "" {
		email = c.Email
	}

	_, _ = fmt.Fprintf(writer(c.out), "Logged in as %s\n", email)
	return nil
}

func writer(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
