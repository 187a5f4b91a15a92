package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/cmd/portal/internal/commands"
	"github.com/wolfeidau/holeportal/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		commands.Globals

		Login  commands.LoginCmd  `cmd:"" help:"Log in and store the session token"`
		Logout commands.LogoutCmd `cmd:"" help:"Forget the stored session token"`
		Status commands.StatusCmd `cmd:"" help:"Show the current session"`
		Open   commands.OpenCmd   `cmd:"" help:"Navigate to a portal page"`
		Routes commands.RoutesCmd `cmd:"" help:"List the portal pages"`

		Version kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("portal"),
		kong.Description("Hole Portal command line client."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)
	log.Debug().Str("version", version).Msg("Starting portal")

	globals := cli.Globals
	globals.Version = version
	err := cmd.Run(&globals)
	cmd.FatalIfErrorf(err)
}
