package app

import (
	"context"
	"errors"

	"omni-ingest/internal/service"
	"omni-ingest/internal/storage"
)

// Ingest runs a single pass over the data directory and persists the
// parsed samples.
func (a *App) Ingest(ctx context.Context, opts IngestOptions) error {
	var samples storage.SampleStore
	var ingests storage.IngestLogStore

	if opts.DryRun {
		a.Logger.Warn().Msg("dry run: nothing will be written to the database")
	} else {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database not configured; cannot ingest (use --dry-run to parse only)")
		}
		defer closeStore()
		samples = store
		ingests = store
	}

	ld, err := a.newLoader()
	if err != nil {
		return err
	}

	svc := service.New(a.Config, ld, samples, ingests, a.newNotifier(), a.Logger)
	result, err := svc.Scan(ctx, service.ScanOptions{
		Year:   opts.Year,
		DryRun: opts.DryRun,
		Force:  opts.Force,
	})
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("files", result.Files).
		Int("ingested", result.Ingested).
		Int("skipped", result.Skipped).
		Int("empty", result.Empty).
		Int("failed", result.Failed).
		Msg("ingest complete")

	if result.Failed > 0 {
		return errors.New("some files failed to ingest; see log")
	}
	return nil
}
