package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"omni-ingest/internal/omni"
	"omni-ingest/internal/storage"
)

// Show prints recent stored samples, or recent ingest audit entries when
// opts.Ingests is set. Absent measurements print as "-".
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Ingests {
		return showIngests(ctx, store, opts.Limit, os.Stdout)
	}
	return showSamples(ctx, store, opts.Limit, os.Stdout)
}

func showSamples(ctx context.Context, store storage.SampleStore, limit int, out io.Writer) error {
	samples, err := store.ListRecentSamples(ctx, limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(out, "no samples found")
		return nil
	}

	total, err := store.CountSamples(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\t|B|\tBx\tBy\tBz\tSpeed\tVx\tVy\tVz\tFile")

	for _, row := range samples {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.TS.UTC().Format(time.RFC3339),
			formatValue(row.ScalarB),
			formatValue(row.BxGSE),
			formatValue(row.ByGSE),
			formatValue(row.BzGSE),
			formatValue(row.FlowSpeed),
			formatValue(row.VxGSE),
			formatValue(row.VyGSE),
			formatValue(row.VzGSE),
			row.SourceFile,
		)
	}

	if err := writer.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "showing %d of %d stored samples\n", len(samples), total)
	return nil
}

func showIngests(ctx context.Context, store storage.IngestLogStore, limit int, out io.Writer) error {
	ingests, err := store.ListRecentIngests(ctx, limit)
	if err != nil {
		return err
	}
	if len(ingests) == 0 {
		fmt.Fprintln(out, "no ingests recorded")
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "At (UTC)\tFile\tRows\tMalformed\tMissing\tStatus\tError")

	for _, ingest := range ingests {
		errMsg := ""
		if ingest.Error != nil {
			errMsg = sanitizeInline(*ingest.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			ingest.CreatedAt.UTC().Format(time.RFC3339),
			ingest.Filename,
			ingest.Rows,
			ingest.Malformed,
			ingest.Missing,
			ingest.Status,
			errMsg,
		)
	}

	return writer.Flush()
}

func formatValue(v omni.Value) string {
	if !v.Valid {
		return "-"
	}
	return v.Decimal.String()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
