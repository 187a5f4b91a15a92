package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// RoutesCmd lists the navigation surface.
type RoutesCmd struct {
	out io.Writer
}

func (c *RoutesCmd) Run(ctx context.Context, globals *Globals) error {
	p, err := globals.open()
	if err != nil {
		return err
	}
	w := writer(c.out)

	_, _ = fmt.Fprintf(w, "%-10s %-10s %s\n", "PATH", "NAME", "AUTH")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 28))

	for _, r := range p.table.Routes() {
		auth := "-"
		if r.RequiresAuth {
			auth = "required"
		}
		_, _ = fmt.Fprintf(w, "%-10s %-10s %s\n", r.Path, r.Name, auth)
	}

	return nil
}
