// Package service drives headless batch runs. The Supervisor owns the
// trigger sources (a manual start signal, or a timer schedule) and turns
// every trigger into one coordinator run: expand items, start, observe the
// lifecycle flag until done, publish the report.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conveyorhq/conveyor/internal/batch"
	"github.com/conveyorhq/conveyor/internal/model"
	"github.com/conveyorhq/conveyor/internal/proc"
	"github.com/conveyorhq/conveyor/internal/report"

	gocron "github.com/go-co-op/gocron/v2"
)

const defaultPollEvery = 50 * time.Millisecond

// ItemsFunc resolves the item list for one run. It is called per trigger, so
// timer mode picks up files that appeared since the previous run.
type ItemsFunc func(ctx context.Context) ([]model.Item, error)

type Supervisor struct {
	run       proc.Func
	items     ItemsFunc
	sinks     []report.Sink
	workers   int
	processor string
	oneshot   bool
	scheduler gocron.Scheduler
	start     chan struct{}
	pollEvery time.Duration
}

// NewSupervisor wires a Supervisor from the service config. In timer mode a
// gocron scheduler is built from the configured schedule; manual mode is a
// oneshot: Do triggers a single run and returns its error.
func NewSupervisor(cfg model.Config, run proc.Func, items ItemsFunc, sinks ...report.Sink) (*Supervisor, error) {
	s := &Supervisor{
		run:       run,
		items:     items,
		sinks:     sinks,
		workers:   cfg.Batch.Workers,
		processor: cfg.Batch.Processor,
		oneshot:   cfg.Service.Mode == model.ServiceModeManual,
		start:     make(chan struct{}, 1),
		pollEvery: defaultPollEvery,
	}

	if cfg.Service.Mode == model.ServiceModeTimer {
		scheduler, err := newScheduler(cfg.Service.Schedule, s.Start)
		if err != nil {
			return nil, fmt.Errorf("timer mode failed: %w", err)
		}
		s.scheduler = scheduler
	}

	return s, nil
}

// WithPollEvery changes how often the supervisor polls the lifecycle flag.
// This method exists for unit testing only.
func (s *Supervisor) WithPollEvery(d time.Duration) *Supervisor {
	s.pollEvery = d
	return s
}

// Start asks the supervisor to run one batch. It is a hint: if a start is
// already pending the signal is dropped, never queued behind it.
func (s *Supervisor) Start() {
	select {
	case s.start <- struct{}{}:
	default:
	}
}

// Do runs the supervisor event loop until ctx is cancelled. In oneshot mode
// it triggers one run on entry and returns that run's error; in timer mode
// run errors are only logged.
func (s *Supervisor) Do(ctx context.Context) error {
	slog.DebugContext(ctx, "starting the supervisor")

	if s.scheduler != nil {
		s.scheduler.Start()
		defer func() {
			err := s.scheduler.Shutdown()
			if err != nil {
				slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
			}
		}()
	}

	defer func() {
		report.CloseAll(ctx, s.sinks)
	}()

	if s.oneshot {
		s.Start()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.start:
			err := s.runOnce(ctx)
			if s.oneshot {
				return err
			}
			if err != nil {
				slog.ErrorContext(ctx, "batch run failed", "error", err)
			}
		}
	}
}

// runOnce drives one full coordinator lifecycle. Completion is observed the
// same way the interactive shell observes it: by polling the flag, never by
// joining the worker.
func (s *Supervisor) runOnce(ctx context.Context) error {
	items, err := s.items(ctx)
	if err != nil {
		return fmt.Errorf("resolving items: %w", err)
	}

	c := batch.New(s.run, batch.WithWorkers(s.workers))
	c.SetItems(items)

	started := time.Now().UTC()
	if err := c.Start(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "batch started", "items", len(items))

	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()
	for c.State() != batch.StateDone {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	outcomes := c.TakeResults()
	finished := time.Now().UTC()

	rep := report.New(s.processor, started, finished, outcomes)
	slog.InfoContext(ctx, "batch finished",
		"run_id", rep.ID,
		"items", len(outcomes),
		"failed", rep.Failed,
		"took", finished.Sub(started).String(),
	)

	var buf bytes.Buffer
	if err := rep.AsJSON(&buf); err != nil {
		return err
	}
	if err := report.PublishAll(ctx, s.sinks, buf.Bytes()); err != nil {
		return fmt.Errorf("publishing report: %w", err)
	}

	if rep.Failed > 0 {
		return fmt.Errorf("%d of %d items failed: %w", rep.Failed, len(outcomes), model.ErrItemsFailed)
	}
	return nil
}

func newScheduler(cfgp *model.TimerSchedule, startFunc func()) (gocron.Scheduler, error) {
	if cfgp == nil {
		return nil, fmt.Errorf("service.schedule is nil")
	}
	cfg := *cfgp

	var job gocron.JobDefinition
	switch {
	case cfg.Cron != "":
		err := ParseCron(cfg.Cron)
		if err != nil {
			return nil, fmt.Errorf("parsing service.schedule.cron: %w", err)
		}
		job = gocron.CronJob(cfg.Cron, false)
	case cfg.Duration != "":
		d, err := ParseISODuration(cfg.Duration)
		if err != nil {
			return nil, fmt.Errorf("parsing service.schedule.duration: %w", err)
		}
		job = gocron.DurationJob(d)
	default:
		return nil, fmt.Errorf("both cron and duration are empty")
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		job,
		gocron.NewTask(startFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return scheduler, nil
}
