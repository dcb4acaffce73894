package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/desertthunder/scribe/internal/editor"
	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/shared"
)

// TextOperation returns the action for one text operation.
//
// Fragments are printed as they arrive. The action returns the run's error when it fails,
// so the process exits non-zero.
func (r *Runner) TextOperation(kind models.Kind) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		text, err := r.readInput(cmd)
		if err != nil {
			return err
		}

		doc := editor.NewDocument(text)
		if sel := cmd.String("select"); sel != "" {
			start, end, err := editor.ParseRange(sel)
			if err != nil {
				return err
			}
			doc = doc.Select(start, end)
		}
		if doc.Input() == "" {
			return fmt.Errorf("%w: no input text", shared.ErrMissingArgument)
		}

		env, err := r.open()
		if err != nil {
			return err
		}
		if err := env.session.Init(ctx); err != nil {
			return fmt.Errorf("failed to restore session: %w", err)
		}

		var id string
		if kind == models.Translate {
			target, err := models.ParseLanguage(cmd.String("to"))
			if err != nil {
				return err
			}
			env.controller.SetTarget(target)
			env.controller.Translate(ctx, doc)
			id = env.controller.Translate(ctx, doc)
		} else {
			id = env.controller.Invoke(ctx, kind, doc)
		}
		if id == "" {
			return fmt.Errorf("%w: operation could not be started", shared.ErrInvalidRequest)
		}

		r.logger.Debug("run started", "run", id, "kind", kind)

		run, err := r.follow(ctx, id, !cmd.Bool("json"))
		if err != nil {
			return err
		}

		record, err := env.runs.Get(run.ID)
		if err != nil {
			r.logger.Debug("run was not recorded, exporting snapshot", "run", run.ID, "error", err)
			record = models.NewRunRecord(0, run)
			record.SetID(run.ID)
		}

		if cmd.Bool("json") {
			if err := r.writeJSON(formatter.NewRunExport(record), true); err != nil {
				return err
			}
		}

		if out := cmd.String("output"); out != "" {
			format := formatter.FormatFromPath(out)
			if f := cmd.String("format"); f != "" {
				if format, err = formatter.ParseFormat(f); err != nil {
					return err
				}
			}
			path, err := formatter.WriteExport(record, format, out)
			if err != nil {
				return err
			}
			r.logger.Info("run exported", "path", path, "format", format)
		}

		if run.Status == models.StatusFailed {
			return fmt.Errorf("%s failed: %w", kind, run.Err)
		}
		return nil
	}
}

// follow prints output deltas for run id until it finishes. Cancelling ctx resets the client.
//
// Updates may be dropped when the buffer is full; each one carries the full output so
// the printed text stays complete.
func (r *Runner) follow(ctx context.Context, id string, print bool) (models.Run, error) {
	client := r.env.stream
	updates := client.Updates()

	done := make(chan struct{})
	var final models.Run
	var waitErr error
	go func() {
		final, waitErr = client.Wait(ctx)
		close(done)
	}()

	printed := 0
	emit := func(run models.Run) {
		if !print || run.ID != id || len(run.Output) <= printed {
			return
		}
		r.writePlain("%s", run.Output[printed:])
		printed = len(run.Output)
	}

	for {
		select {
		case u := <-updates:
			emit(u.Run)
		case <-done:
			if waitErr != nil {
				client.Reset()
				return final, fmt.Errorf("run interrupted: %w", waitErr)
			}
			emit(final)
			if print && printed > 0 && !strings.HasSuffix(final.Output, "\n") {
				r.writePlain("\n")
			}
			return final, nil
		}
	}
}

// readInput takes the text argument, --file, or piped stdin, in that order.
func (r *Runner) readInput(cmd *cli.Command) (string, error) {
	if text := cmd.StringArg("text"); text != "" {
		return text, nil
	}

	switch path := cmd.String("file"); path {
	case "":
	case "-":
		return readAll(r.input)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: failed to read %s: %v", shared.ErrInvalidInput, path, err)
		}
		return string(data), nil
	}

	if f, ok := r.input.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", fmt.Errorf("%w: pass text as an argument, with --file, or on stdin", shared.ErrMissingArgument)
	}
	return readAll(r.input)
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read stdin: %v", shared.ErrInvalidInput, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
