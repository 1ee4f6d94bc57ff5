package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/conveyorhq/conveyor/internal/batch"
	"github.com/conveyorhq/conveyor/internal/log"
	"github.com/conveyorhq/conveyor/internal/model"
	"github.com/conveyorhq/conveyor/internal/proc"
	"github.com/conveyorhq/conveyor/internal/report"
	"github.com/conveyorhq/conveyor/internal/service"
	"github.com/conveyorhq/conveyor/internal/tui"
	"github.com/conveyorhq/conveyor/internal/walk"

	"github.com/spf13/cobra"
)

// stagedPaths merges positional arguments with the configured item list,
// arguments win when both are given.
func stagedPaths(args []string) ([]string, bool) {
	recurse := flagRecurse
	if config.Items != nil {
		recurse = recurse || config.Items.Recurse
	}
	if len(args) > 0 {
		return args, recurse
	}
	if config.Items != nil {
		return config.Items.Paths, recurse
	}
	return nil, recurse
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("conveyor",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	run, err := proc.FromConfig(config.Batch)
	if err != nil {
		return err
	}

	paths, recurse := stagedPaths(args)
	items, err := walk.Expand(ctx, paths, recurse)
	if err != nil {
		return err
	}

	factory := func() *batch.Coordinator {
		return batch.New(run, batch.WithWorkers(config.Batch.Workers))
	}
	return tui.Run(ctx, factory, items)
}

func doProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("conveyor",
		slog.String("cmd", "process"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	run, err := proc.FromConfig(config.Batch)
	if err != nil {
		return err
	}

	paths, recurse := stagedPaths(args)
	items := func(ctx context.Context) ([]model.Item, error) {
		return walk.Expand(ctx, paths, recurse)
	}

	sinks, err := configuredSinks(config.Service)
	if err != nil {
		return err
	}

	supervisor, err := service.NewSupervisor(config, run, items, sinks...)
	if err != nil {
		return err
	}
	return supervisor.Do(ctx)
}

// configuredSinks assembles the report destinations. Stdout is the fallback,
// so a bare `conveyor process` still shows where the run ended up.
func configuredSinks(cfg model.Service) ([]report.Sink, error) {
	var sinks []report.Sink
	if cfg.Dir != "" {
		dirSink, err := report.NewDirSink(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("opening report directory: %w", err)
		}
		sinks = append(sinks, dirSink)
	}
	if cfg.Webhook != nil && cfg.Webhook.Enabled {
		httpSink, err := report.NewHTTPSink(cfg.Webhook.URL)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, httpSink)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, report.NewWriteSink(os.Stdout))
	}
	return sinks, nil
}
