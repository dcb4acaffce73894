package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scribe/internal/shared"
	"github.com/desertthunder/scribe/internal/ui"
)

// TUI launches the interactive editor.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	env, err := r.open()
	if err != nil {
		return err
	}
	if err := env.session.Init(ctx); err != nil {
		r.logger.Warn("failed to restore session", "error", err)
	}

	model := ui.NewModel(ctx, ui.Options{
		Session:     env.session,
		Stream:      env.stream,
		Controller:  env.controller,
		History:     env.runs,
		Preferences: env.prefs,
		Logger:      shared.WithLogger(fileLogger, "component", "ui"),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
