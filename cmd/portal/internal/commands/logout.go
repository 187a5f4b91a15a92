package commands

import (
	"context"
	"fmt"
	"io"
)

// LogoutCmd forgets the stored session.
type LogoutCmd struct {
	out io.Writer
}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	p, err := globals.open()
	if err != nil {
		return err
	}

	if !p.session.IsAuthenticated() {
		_, _ = fmt.Fprintln(writer(c.out), "Not logged in")
		return nil
	}

	p.session.Logout()
	_, _ = fmt.Fprintln(writer(c.out), "Logged out")
	return nil
}
