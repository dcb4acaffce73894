package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scribe/internal/credentials"
	"github.com/desertthunder/scribe/internal/server"
	"github.com/desertthunder/scribe/internal/shared"
)

// Serve runs the mock backend until the command's context is cancelled (Ctrl+C).
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	opts := server.OptionsFromConfig(r.config.Mock)
	if cmd.IsSet("framed") {
		opts.Framed = cmd.Bool("framed")
	}
	if cmd.IsSet("delay") {
		opts.Delay = cmd.Duration("delay")
	}
	opts.FailWith = cmd.String("fail-with")
	opts.FailAfter = cmd.Int("fail-after")

	addr := r.config.Mock.Addr
	if a := cmd.String("addr"); a != "" {
		addr = a
	}

	// Cookie attributes follow the same scope rules the client uses for this address.
	if scope, err := credentials.ScopeFor("http://"+addr, r.config.Credentials.Cookie); err == nil {
		opts.CookieDomain = scope.Domain
		opts.CookieSecure = scope.Secure
	}

	logger := shared.WithLogger(r.logger, "component", "mock")
	backend := server.NewBackend(opts, logger)

	ready := make(chan string, 1)
	go func() {
		if bound, ok := <-ready; ok {
			r.writePlain("Mock backend listening on http://%s (user %q)\n", bound, opts.Username)
		}
	}()

	return server.Serve(ctx, addr, backend, logger, ready)
}
