package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"omni-ingest/internal/omni"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

// upsertBatchSize caps how many rows go into one pgx batch.
const upsertBatchSize = 500

const (
	upsertSampleSQL = `INSERT INTO samples (
        sample_ts,
        year,
        day_of_year,
        hour,
        minute,
        scalar_b_nt,
        bx_gse_nt,
        by_gse_nt,
        bz_gse_nt,
        flow_speed_km_s,
        vx_gse_km_s,
        vy_gse_km_s,
        vz_gse_km_s,
        source_file
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
    )
    ON CONFLICT (sample_ts) DO UPDATE
    SET
        year            = EXCLUDED.year,
        day_of_year     = EXCLUDED.day_of_year,
        hour            = EXCLUDED.hour,
        minute          = EXCLUDED.minute,
        scalar_b_nt     = EXCLUDED.scalar_b_nt,
        bx_gse_nt       = EXCLUDED.bx_gse_nt,
        by_gse_nt       = EXCLUDED.by_gse_nt,
        bz_gse_nt       = EXCLUDED.bz_gse_nt,
        flow_speed_km_s = EXCLUDED.flow_speed_km_s,
        vx_gse_km_s     = EXCLUDED.vx_gse_km_s,
        vy_gse_km_s     = EXCLUDED.vy_gse_km_s,
        vz_gse_km_s     = EXCLUDED.vz_gse_km_s,
        source_file     = EXCLUDED.source_file;`

	sampleColumnsSQL = `sample_ts,
        year,
        day_of_year,
        hour,
        minute,
        scalar_b_nt,
        bx_gse_nt,
        by_gse_nt,
        bz_gse_nt,
        flow_speed_km_s,
        vx_gse_km_s,
        vy_gse_km_s,
        vz_gse_km_s,
        source_file,
        created_at`

	listSamplesBetweenSQL = `SELECT ` + sampleColumnsSQL + `
    FROM samples
    WHERE sample_ts >= $1
      AND sample_ts < $2
    ORDER BY sample_ts
    LIMIT $3;`

	listRecentSamplesSQL = `SELECT ` + sampleColumnsSQL + `
    FROM samples
    ORDER BY sample_ts DESC
    LIMIT $1;`

	countSamplesSQL = `SELECT COUNT(*) FROM samples;`

	insertFileIngestSQL = `INSERT INTO file_ingests (
        filename,
        year,
        size_bytes,
        mod_time,
        row_count,
        malformed,
        missing,
        status,
        error,
        duration_ms
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    ) RETURNING id, created_at;`

	latestFileIngestSQL = `SELECT
        id,
        filename,
        year,
        size_bytes,
        mod_time,
        row_count,
        malformed,
        missing,
        status,
        error,
        duration_ms,
        created_at
    FROM file_ingests
    WHERE filename = $1
    ORDER BY created_at DESC
    LIMIT 1;`

	listRecentIngestsSQL = `SELECT
        id,
        filename,
        year,
        size_bytes,
        mod_time,
        row_count,
        malformed,
        missing,
        status,
        error,
        duration_ms,
        created_at
    FROM file_ingests
    ORDER BY created_at DESC
    LIMIT $1;`
)

// SampleStore defines operations for sample persistence.
type SampleStore interface {
	UpsertSamples(ctx context.Context, rows []SampleRow) error
	ListSamplesBetween(ctx context.Context, from, to time.Time, limit int) ([]SampleRow, error)
	ListRecentSamples(ctx context.Context, limit int) ([]SampleRow, error)
	CountSamples(ctx context.Context) (int64, error)
}

// IngestLogStore defines operations for the ingest audit trail.
type IngestLogStore interface {
	RecordFileIngest(ctx context.Context, ingest FileIngest) (FileIngest, error)
	LatestFileIngest(ctx context.Context, filename string) (*FileIngest, error)
	ListRecentIngests(ctx context.Context, limit int) ([]FileIngest, error)
}

// Store aggregates access to samples and the ingest audit trail.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertSamples persists rows in batches, replacing rows that share a
// sample timestamp.
func (s *Store) UpsertSamples(ctx context.Context, rows []SampleRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	for start := 0; start < len(rows); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		batch := &pgx.Batch{}
		for _, row := range rows[start:end] {
			values := row.Values()
			args := make([]interface{}, 0, 14)
			args = append(args, row.TS, row.Year, row.DayOfYear, row.Hour, row.Minute)
			for _, v := range values {
				args = append(args, valueArg(v))
			}
			args = append(args, row.SourceFile)
			batch.Queue(upsertSampleSQL, args...)
		}

		results := pool.SendBatch(ctx, batch)
		for range rows[start:end] {
			if _, execErr := results.Exec(); execErr != nil {
				results.Close()
				return fmt.Errorf("upsert samples: %w", execErr)
			}
		}
		if closeErr := results.Close(); closeErr != nil {
			return fmt.Errorf("upsert samples: %w", closeErr)
		}
	}

	return nil
}

// ListSamplesBetween lists samples within a time window, oldest first.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time, limit int) ([]SampleRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	return collectSampleRows(rows)
}

// ListRecentSamples lists the most recent samples, newest first.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]SampleRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	return collectSampleRows(rows)
}

// CountSamples counts stored samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSamplesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count samples: %w", scanErr)
	}
	return count, nil
}

// RecordFileIngest appends one ingest attempt to the audit trail.
func (s *Store) RecordFileIngest(ctx context.Context, ingest FileIngest) (FileIngest, error) {
	pool, err := s.getPool()
	if err != nil {
		return FileIngest{}, err
	}

	var errMsg interface{}
	if ingest.Error != nil {
		errMsg = *ingest.Error
	}

	row := pool.QueryRow(ctx, insertFileIngestSQL,
		ingest.Filename,
		ingest.Year,
		ingest.SizeBytes,
		ingest.ModTime,
		ingest.Rows,
		ingest.Malformed,
		ingest.Missing,
		ingest.Status,
		errMsg,
		ingest.Duration.Milliseconds(),
	)
	if scanErr := row.Scan(&ingest.ID, &ingest.CreatedAt); scanErr != nil {
		return FileIngest{}, fmt.Errorf("record file ingest: %w", scanErr)
	}
	return ingest, nil
}

// LatestFileIngest returns the most recent ingest record for filename, or
// nil when the file has never been ingested.
func (s *Store) LatestFileIngest(ctx context.Context, filename string) (*FileIngest, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	ingest, scanErr := scanFileIngest(pool.QueryRow(ctx, latestFileIngestSQL, filename))
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest file ingest: %w", scanErr)
	}
	return &ingest, nil
}

// ListRecentIngests lists the most recent ingest records.
func (s *Store) ListRecentIngests(ctx context.Context, limit int) ([]FileIngest, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentIngestsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent ingests: %w", queryErr)
	}
	defer rows.Close()

	ingests := make([]FileIngest, 0, limit)
	for rows.Next() {
		ingest, scanErr := scanFileIngest(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		ingests = append(ingests, ingest)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ingests, nil
}

// valueArg maps a measurement onto a nullable numeric parameter. Values are
// bound as strings so the numeric column keeps the exact decimal.
func valueArg(v omni.Value) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Decimal.String()
}

func collectSampleRows(rows pgx.Rows) ([]SampleRow, error) {
	samples := make([]SampleRow, 0)
	for rows.Next() {
		sample, scanErr := scanSampleRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

func scanSampleRow(rows pgx.Rows) (SampleRow, error) {
	var (
		row    SampleRow
		values [8]sql.NullString
	)

	if err := rows.Scan(
		&row.TS,
		&row.Year,
		&row.DayOfYear,
		&row.Hour,
		&row.Minute,
		&values[0],
		&values[1],
		&values[2],
		&values[3],
		&values[4],
		&values[5],
		&values[6],
		&values[7],
		&row.SourceFile,
		&row.CreatedAt,
	); err != nil {
		return SampleRow{}, err
	}

	targets := []*omni.Value{
		&row.ScalarB, &row.BxGSE, &row.ByGSE, &row.BzGSE,
		&row.FlowSpeed, &row.VxGSE, &row.VyGSE, &row.VzGSE,
	}
	for i, raw := range values {
		if !raw.Valid {
			*targets[i] = omni.Missing()
			continue
		}
		d, err := decimal.NewFromString(raw.String)
		if err != nil {
			return SampleRow{}, fmt.Errorf("parse stored value: %w", err)
		}
		*targets[i] = omni.NewValue(d)
	}

	return row, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFileIngest(row rowScanner) (FileIngest, error) {
	var (
		ingest     FileIngest
		errMsg     sql.NullString
		durationMS int64
	)
	if err := row.Scan(
		&ingest.ID,
		&ingest.Filename,
		&ingest.Year,
		&ingest.SizeBytes,
		&ingest.ModTime,
		&ingest.Rows,
		&ingest.Malformed,
		&ingest.Missing,
		&ingest.Status,
		&errMsg,
		&durationMS,
		&ingest.CreatedAt,
	); err != nil {
		return FileIngest{}, err
	}
	if errMsg.Valid {
		msg := errMsg.String
		ingest.Error = &msg
	}
	ingest.Duration = time.Duration(durationMS) * time.Millisecond
	return ingest, nil
}
