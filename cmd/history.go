package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/shared"
)

// HistoryList prints recent runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if k := cmd.String("kind"); k != "" {
		kind, err := models.ParseKind(k)
		if err != nil {
			return err
		}
		criteria["kind"] = kind.String()
	}

	records, err := env.runs.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	r.logger.Debug("listed runs", "count", len(records))

	switch {
	case cmd.Bool("json"):
		exports := make([]formatter.RunExport, len(records))
		for i, rec := range records {
			exports[i] = formatter.NewRunExport(rec)
		}
		return r.writeJSON(exports, true)
	case cmd.Bool("csv"):
		data, err := formatter.ExportHistoryCSV(records)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	if len(records) == 0 {
		return r.writePlain("No runs recorded yet\n")
	}

	r.writePlainHeader(fmt.Sprintf("History (%d)", len(records)))
	for _, rec := range records {
		label := rec.Kind().Label()
		if rec.Kind() == models.Translate {
			label += " → " + rec.TargetLanguage().Label()
		}
		mark := "✓"
		if rec.Status() == models.StatusFailed {
			mark = "✗"
		}
		r.writePlain("%s #%-4d %-20s %s  %s\n", mark, rec.Sequence(), label,
			rec.StartedAt().Local().Format(time.DateTime), preview(rec.Input(), 40))
	}
	return nil
}

// HistoryShow prints or exports one run.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.open(); err != nil {
		return err
	}

	record, err := r.findRun(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if out := cmd.String("output"); out != "" {
		path, err := formatter.WriteExport(record, format, out)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported run #%d to %s\n", record.Sequence(), path)
	}

	data, err := formatter.Export(record, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// HistoryDelete soft-deletes one run.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open()
	if err != nil {
		return err
	}

	record, err := r.findRun(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if err := env.runs.Delete(record.ID()); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return r.writePlain("✓ Deleted run #%d\n", record.Sequence())
}

// HistoryClear soft-deletes every run.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open()
	if err != nil {
		return err
	}

	n, err := env.runs.Clear()
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return r.writePlain("✓ Cleared %d runs\n", n)
}

// findRun resolves a run by sequence number ("3" or "#3") or ID.
func (r *Runner) findRun(ref string) (*models.RunRecord, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: run id or sequence", shared.ErrMissingArgument)
	}

	if seq, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		return r.env.runs.GetBySequence(seq)
	}
	return r.env.runs.Get(ref)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
