// Package service orchestrates scanning the data directory, parsing year
// files, persisting samples, and raising data-quality alerts.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"omni-ingest/internal/alerting"
	"omni-ingest/internal/config"
	"omni-ingest/internal/fixedwidth"
	"omni-ingest/internal/loader"
	"omni-ingest/internal/metrics"
	"omni-ingest/internal/omni"
	"omni-ingest/internal/storage"
)

// flushRows is how many parsed rows accumulate before a storage write.
const flushRows = 5000

// Service runs ingests over a data directory.
type Service struct {
	cfg      *config.Config
	loader   *loader.Loader
	samples  storage.SampleStore
	ingests  storage.IngestLogStore
	notifier alerting.Notifier
	logger   zerolog.Logger
}

// New constructs the ingestion service. samples and ingests may be nil for
// dry runs; notifier may be nil when alerting is disabled.
func New(cfg *config.Config, ld *loader.Loader, samples storage.SampleStore, ingests storage.IngestLogStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		loader:   ld,
		samples:  samples,
		ingests:  ingests,
		notifier: notifier,
		logger:   logger.With().Str("component", "service").Logger(),
	}
}

// ScanOptions tune one pass over the data directory.
type ScanOptions struct {
	Year   string // 4-digit year or loader.YearAll
	DryRun bool   // parse only, skip persistence and audit
	Force  bool   // re-ingest files whose size and mtime are unchanged
}

// ScanResult summarises one pass.
type ScanResult struct {
	Files    int
	Ingested int
	Skipped  int
	Empty    int
	Failed   int
	Stats    []loader.Stats
}

// Scan ingests every matching year file once. Files whose size and mtime
// match their last complete ingest are skipped unless forced. Returns
// fixedwidth.ErrEmptyInput when nothing in the directory matched, or when
// every matched file held zero data lines.
func (s *Service) Scan(ctx context.Context, opts ScanOptions) (ScanResult, error) {
	files, err := s.loader.ListFiles(opts.Year)
	if err != nil {
		return ScanResult{}, err
	}
	if len(files) == 0 {
		return ScanResult{}, fixedwidth.ErrEmptyInput
	}

	result := ScanResult{Files: len(files)}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		unchanged, err := s.alreadyIngested(ctx, file)
		if err != nil {
			return result, err
		}
		if unchanged && !opts.Force {
			s.logger.Debug().Str("file", file.Name).Msg("unchanged since last ingest, skipping")
			result.Skipped++
			continue
		}

		stats, err := s.ingestFile(ctx, file, opts.DryRun)
		result.Stats = append(result.Stats, stats)
		if err != nil {
			if ctx.Err() != nil {
				return result, err
			}
			if errors.Is(err, fixedwidth.ErrEmptyInput) {
				result.Empty++
				continue
			}
			result.Failed++
			s.logger.Error().Err(err).Str("file", file.Name).Msg("ingest failed")
			continue
		}
		result.Ingested++
	}

	if result.Empty == result.Files {
		return result, fixedwidth.ErrEmptyInput
	}
	return result, nil
}

func (s *Service) alreadyIngested(ctx context.Context, file loader.File) (bool, error) {
	if s.ingests == nil {
		return false, nil
	}
	last, err := s.ingests.LatestFileIngest(ctx, file.Name)
	if err != nil {
		return false, fmt.Errorf("look up last ingest of %s: %w", file.Name, err)
	}
	if last == nil || last.Status != storage.IngestComplete {
		return false, nil
	}
	return last.SizeBytes == file.Size && last.ModTime.Equal(file.ModTime), nil
}

// ingestFile parses one file, flushing rows to storage in chunks, then
// records the audit entry, updates metrics, and checks alert thresholds.
func (s *Service) ingestFile(ctx context.Context, file loader.File, dryRun bool) (loader.Stats, error) {
	s.logger.Info().Str("file", file.Name).Bool("dry_run", dryRun).Msg("ingesting file")

	pending := make([]storage.SampleRow, 0, flushRows)
	flush := func() error {
		if dryRun || s.samples == nil || len(pending) == 0 {
			pending = pending[:0]
			return nil
		}
		if err := s.samples.UpsertSamples(ctx, pending); err != nil {
			return err
		}
		pending = pending[:0]
		return nil
	}

	stats, loadErr := s.loader.Load(ctx, file, func(sample omni.Sample) error {
		pending = append(pending, storage.NewSampleRow(sample, file.Name))
		if len(pending) >= flushRows {
			return flush()
		}
		return nil
	})
	if loadErr == nil {
		loadErr = flush()
	}

	// A file with zero data lines is not a failed ingest and raises no
	// audit entry or alert; the year's data may simply not exist yet.
	if errors.Is(loadErr, fixedwidth.ErrEmptyInput) {
		s.logger.Warn().Str("file", file.Name).Msg("file contains no data lines")
		return stats, loadErr
	}

	s.record(ctx, file, stats, loadErr, dryRun)
	s.observe(file, stats, loadErr)
	s.maybeAlert(ctx, file, stats, loadErr)

	if loadErr != nil {
		return stats, loadErr
	}

	s.logger.Info().
		Str("file", file.Name).
		Int("rows", stats.Rows).
		Int("malformed", stats.Malformed).
		Dur("duration", stats.Duration).
		Msg("file ingested")
	return stats, nil
}

func (s *Service) record(ctx context.Context, file loader.File, stats loader.Stats, loadErr error, dryRun bool) {
	if dryRun || s.ingests == nil || ctx.Err() != nil {
		return
	}

	ingest := storage.FileIngest{
		Filename:  file.Name,
		Year:      file.Year,
		SizeBytes: file.Size,
		ModTime:   file.ModTime,
		Rows:      stats.Rows,
		Malformed: stats.Malformed,
		Missing:   totalMissing(stats),
		Status:    storage.IngestComplete,
		Duration:  stats.Duration,
	}
	if loadErr != nil {
		msg := loadErr.Error()
		ingest.Status = storage.IngestErrored
		ingest.Error = &msg
	}

	if _, err := s.ingests.RecordFileIngest(ctx, ingest); err != nil {
		s.logger.Error().Err(err).Str("file", file.Name).Msg("failed to record ingest audit entry")
	}
}

func (s *Service) observe(file loader.File, stats loader.Stats, loadErr error) {
	metrics.RowsParsed.WithLabelValues(file.Name).Add(float64(stats.Rows))
	metrics.RowsMalformed.WithLabelValues(file.Name).Add(float64(stats.Malformed))
	for column, count := range stats.Missing {
		metrics.ValuesMissing.WithLabelValues(column).Add(float64(count))
	}
	status := storage.IngestComplete
	if loadErr != nil {
		status = storage.IngestErrored
	}
	metrics.FilesIngested.WithLabelValues(status).Inc()
	metrics.IngestDuration.Observe(stats.Duration.Seconds())
}

func (s *Service) maybeAlert(ctx context.Context, file loader.File, stats loader.Stats, loadErr error) {
	if !s.cfg.Alerting.Enabled || s.notifier == nil {
		return
	}

	note := alerting.Notification{
		Filename:     file.Name,
		Year:         file.Year,
		Rows:         stats.Rows,
		Malformed:    stats.Malformed,
		MalformedPct: malformedPct(stats),
		ThresholdPct: s.cfg.Alerting.MaxMalformedPct,
		At:           time.Now().UTC(),
	}

	switch {
	case loadErr != nil && ctx.Err() == nil:
		note.IngestError = loadErr.Error()
	case note.MalformedPct > s.cfg.Alerting.MaxMalformedPct:
	default:
		return
	}

	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("file", file.Name).Msg("failed to dispatch data-quality alert")
	}
}

func malformedPct(stats loader.Stats) float64 {
	total := stats.Rows + stats.Malformed
	if total == 0 {
		return 0
	}
	return float64(stats.Malformed) / float64(total) * 100
}

func totalMissing(stats loader.Stats) int {
	total := 0
	for _, count := range stats.Missing {
		total += count
	}
	return total
}
