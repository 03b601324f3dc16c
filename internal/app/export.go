package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"omni-ingest/internal/omni"
	"omni-ingest/internal/storage"
)

// Export writes stored samples in a time window to CSV. Absent measurements
// export as empty fields.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" {
		return errors.New("--csv must be provided")
	}

	opts.MaxRows = a.Config.ResolveMaxRows(opts.MaxRows)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.AddDate(-1, 0, 0)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	samples, err := store.ListSamplesBetween(ctx, from, to, opts.MaxRows)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		a.Logger.Info().Msg("no samples found for export window")
		return nil
	}

	a.Logger.Info().Int("rows", len(samples)).Str("path", opts.CSVPath).Msg("exporting samples")
	return writeSamplesCSV(opts.CSVPath, samples)
}

func writeSamplesCSV(path string, samples []storage.SampleRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"sample_ts", "year", "day_of_year", "hour", "minute",
		"scalar_b_nt", "bx_gse_nt", "by_gse_nt", "bz_gse_nt",
		"flow_speed_km_s", "vx_gse_km_s", "vy_gse_km_s", "vz_gse_km_s",
		"source_file",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range samples {
		record := []string{
			row.TS.UTC().Format(time.RFC3339),
			strconv.Itoa(row.Year),
			strconv.Itoa(row.DayOfYear),
			strconv.Itoa(row.Hour),
			strconv.Itoa(row.Minute),
		}
		for _, v := range row.Values() {
			record = append(record, csvValue(v))
		}
		record = append(record, row.SourceFile)
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func csvValue(v omni.Value) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
