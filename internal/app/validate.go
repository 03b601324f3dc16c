package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"omni-ingest/internal/loader"
	"omni-ingest/internal/service"
)

// Validate parses the configured data files without touching storage and
// prints per-file parse statistics. With Strict set, malformed rows fail
// the command.
func (a *App) Validate(ctx context.Context, opts ValidateOptions) error {
	ld, err := a.newLoader()
	if err != nil {
		return err
	}

	svc := service.New(a.Config, ld, nil, nil, nil, a.Logger)
	result, err := svc.Scan(ctx, service.ScanOptions{Year: opts.Year, DryRun: true})
	if err != nil {
		return err
	}

	printStats(result.Stats)

	malformed := 0
	for _, stats := range result.Stats {
		malformed += stats.Malformed
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d files failed to parse", result.Failed, result.Files)
	}
	if opts.Strict && malformed > 0 {
		return errors.New("malformed rows present and --strict is set")
	}
	return nil
}

func printStats(all []loader.Stats) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "File\tYear\tRows\tMalformed\tMissing\tDuration")

	for _, stats := range all {
		missing := 0
		for _, count := range stats.Missing {
			missing += count
		}
		fmt.Fprintf(
			writer,
			"%s\t%d\t%d\t%d\t%d\t%s\n",
			stats.File,
			stats.Year,
			stats.Rows,
			stats.Malformed,
			missing,
			stats.Duration.Round(time.Millisecond),
		)
	}

	writer.Flush()
}
