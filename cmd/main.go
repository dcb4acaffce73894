package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scribe/internal/shared"
)

// defaultAPIURL is the backend used when neither $SCRIBE_API_URL nor the config sets one.
//
// Override at build time with -ldflags "-X main.defaultAPIURL=https://api.example.com".
var defaultAPIURL = shared.FallbackAPIURL

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:    "scribe",
		Usage:   "Paraphrase, expand, summarize and translate text with a streaming backend",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := app.Run(ctx, os.Args)
	stop()
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close database", "error", cerr)
	}

	switch code := exitCode(err); {
	case code == 0 && err != nil:
		logger.Warn("not implemented")
	case code == 2:
		logger.Error(shared.Message(err))
		logger.Info("run `scribe auth login` to sign in")
		os.Exit(code)
	case code != 0:
		logger.Fatalf("application error: %v", err)
	}
}

// exitCode maps a command error to the process exit status.
//
// Credential failures exit 2 so scripts can tell "log in again" apart from other failures.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrNotImplemented):
		return 0
	case shared.IsAuthError(err):
		return 2
	default:
		return 1
	}
}
