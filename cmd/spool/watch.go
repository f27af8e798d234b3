package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spoolkit/spool/job"
	"github.com/spoolkit/spool/plan"
	"github.com/spoolkit/spool/source"
)

func watchCmd(configPath *string) *cobra.Command {
	var (
		task        string
		constraints []string
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and run an analysis job per changed document",
		Long: `Watch monitors a directory tree for document changes. Each created or
modified document is loaded and run through a fresh analysis job with
the given task. Jobs run one at a time in change order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			watcher, err := source.NewWatcher(args[0], watchConfig(app), app.logger)
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = watcher.Stop() }()

			fmt.Fprintf(os.Stderr, "watching %s\n", args[0])
			return watchLoop(ctx, app, watcher, task, constraints)
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "Analysis task to run on each changed document (required)")
	cmd.Flags().StringArrayVar(&constraints, "constraint", nil, "Constraint applied to every unit (repeatable)")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}

func watchLoop(ctx context.Context, app *App, watcher *source.Watcher, task string, constraints []string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if ev.Operation == source.WatchOpDelete {
				continue
			}
			if err := runForFile(ctx, app, ev.Path, task, constraints); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				app.logger.Error("Watch job failed", "path", ev.Path, "error", err)
			}
		}
	}
}

func runForFile(ctx context.Context, app *App, path, task string, constraints []string) error {
	doc, err := source.LoadFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s changed, starting job\n", path)
	rec, err := app.runner.Start(ctx, job.StartRequest{
		DocumentID:  doc.ID,
		Task:        task,
		Kind:        plan.KindAnalysis,
		SourceText:  doc.Text,
		Constraints: constraints,
	})
	if rec != nil {
		fmt.Fprintf(os.Stderr, "job %s: %s\n", rec.ID, rec.Status)
	}
	return err
}

// watchConfig overlays configured watch settings on the defaults.
func watchConfig(app *App) source.WatchConfig {
	cfg := source.DefaultWatchConfig()
	if app.cfg.Watch.DebounceDelay > 0 {
		cfg.DebounceDelay = app.cfg.Watch.DebounceDelay
	}
	if len(app.cfg.Watch.Extensions) > 0 {
		cfg.Extensions = app.cfg.Watch.Extensions
	}
	if len(app.cfg.Watch.ExcludeDirs) > 0 {
		cfg.ExcludeDirs = app.cfg.Watch.ExcludeDirs
	}
	return cfg
}
