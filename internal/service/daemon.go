package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"omni-ingest/internal/fixedwidth"
	"omni-ingest/internal/metrics"
	"omni-ingest/internal/scheduler"
)

// Run executes the daemon: an initial scan, then rescans driven by both a
// filesystem watcher on the data directory and a periodic scheduler, until
// ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.cfg.Metrics.Enabled {
		go func() {
			s.logger.Info().Str("listen", s.cfg.Metrics.Listen).Msg("serving metrics")
			if err := metrics.Serve(ctx, s.cfg.Metrics.Listen); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("metrics server failed")
				cancel()
			}
		}()
	}

	s.rescan(ctx, "startup")

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- s.watch(ctx)
	}()

	sched := scheduler.New(scheduler.Options{
		Interval:     s.cfg.Watch.Interval,
		StartupDelay: s.cfg.Watch.StartupDelay,
	}, s.logger)

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
			s.rescan(ctx, "interval")
			return nil
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-watchErr:
		return err
	case err := <-schedErr:
		return err
	}
}

// rescan runs one directory pass, downgrading an empty directory to a log
// line: in daemon mode the year files may simply not have arrived yet.
func (s *Service) rescan(ctx context.Context, trigger string) {
	result, err := s.Scan(ctx, ScanOptions{Year: s.cfg.Data.Year})
	if err != nil {
		if errors.Is(err, fixedwidth.ErrEmptyInput) {
			s.logger.Warn().Str("trigger", trigger).Msg("no data in the data directory yet")
			return
		}
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Str("trigger", trigger).Msg("rescan failed")
		}
		return
	}
	s.logger.Info().
		Str("trigger", trigger).
		Int("files", result.Files).
		Int("ingested", result.Ingested).
		Int("skipped", result.Skipped).
		Int("empty", result.Empty).
		Int("failed", result.Failed).
		Msg("rescan complete")
}

// watch reacts to filesystem events in the data directory. Events are
// debounced because a file being copied in raises a burst of writes.
func (s *Service) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(s.cfg.Data.Dir); err != nil {
		return err
	}
	s.logger.Info().Str("dir", s.cfg.Data.Dir).Msg("watching data directory")

	debounce := s.cfg.Watch.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			s.logger.Debug().Str("event", event.String()).Msg("data directory changed")
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(debounce)
			pending = true

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error().Err(err).Msg("watcher error")

		case <-timer.C:
			pending = false
			s.rescan(ctx, "fsnotify")
		}
	}
}

func relevantEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := event.Name
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".txt.gz")
}
