package action

import (
	"context"

	"github.com/littleburg/relay/internal/relay"
	"github.com/urfave/cli/v3"
)

func RelayCommand() *cli.Command {
	cmd := &cli.Command{
		Name:        "relay",
		Description: "Start the town relay server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: defaultRelayAddr,
				Usage: "Bind address for the relay server (host:port), overrides the PORT environment variable",
			},
			&cli.StringSliceFlag{
				Name:  "cors-origin",
				Value: []string{defaultCORSOrigin},
				Usage: "Allowed CORS origins",
			},
		},
	}

	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		opts := []relay.Option{
			relay.WithEnv(),
			relay.WithCORSAllowedOrigins(c.StringSlice("cors-origin")),
			relay.WithVersion(c.Root().Version),
		}
		if addr := c.String("addr"); addr != "" {
			opts = append(opts, relay.WithListenAddr(addr))
		}

		r := relay.NewRelay(opts...)

		start, stop := r.Handlers()
		return r.Graceful(ctx, start, stop)
	}

	return cmd
}
