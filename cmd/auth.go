package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/desertthunder/scribe/internal/shared"
)

// AuthLogin signs in and stores the issued token in both credential stores.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open()
	if err != nil {
		return err
	}

	username := cmd.String("username")
	password := cmd.String("password")
	if password == "" {
		if password, err = r.readPassword("Password: "); err != nil {
			return fmt.Errorf("%w: failed to read password: %v", shared.ErrInvalidInput, err)
		}
	}

	r.logger.Info("logging in", "user", username, "api", r.baseURL)

	if err := env.session.Login(ctx, username, password); err != nil {
		return err
	}

	return r.writePlain("✓ Logged in as %s\n", env.session.State().Username())
}

// AuthLogout clears the stored credential. No request is made.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open()
	if err != nil {
		return err
	}
	if err := env.session.Init(ctx); err != nil {
		r.logger.Warn("failed to restore session", "error", err)
	}

	was := env.session.State().Username()
	if err := env.session.Logout(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}

	if was == "" {
		return r.writePlain("Not logged in\n")
	}
	return r.writePlain("✓ Logged out %s\n", was)
}

// AuthStatus prints the session state and checks the backend's /health endpoint.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open()
	if err != nil {
		return err
	}
	if err := env.session.Init(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	state := env.session.State()
	r.writePlain("API: %s\n", r.baseURL)
	if state.Authenticated {
		r.writePlain("Session: ✓ Logged in as %s\n", state.Username())
		if _, claims, err := env.store.Current(); err == nil && !claims.ExpiresAt.IsZero() {
			r.writePlain("Expires: %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
		}
	} else {
		r.writePlain("Session: ✗ Not logged in\n")
	}

	r.logger.Info("checking service health")
	if err := env.api.Health(ctx); err != nil {
		r.writePlain("Service: ✗ Unavailable\n")
		return err
	}
	return r.writePlain("Service: ✓ Healthy\n")
}

// readPassword prompts without echo on a terminal, otherwise reads one line from input.
func (r *Runner) readPassword(prompt string) (string, error) {
	if f, ok := r.input.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
