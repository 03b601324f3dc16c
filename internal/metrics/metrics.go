// Package metrics exposes ingest instrumentation for the daemon mode.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omniingest_rows_parsed_total",
			Help: "Rows successfully parsed from data files",
		},
		[]string{"file"},
	)

	RowsMalformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omniingest_rows_malformed_total",
			Help: "Rows skipped or rejected as malformed",
		},
		[]string{"file"},
	)

	ValuesMissing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omniingest_values_missing_total",
			Help: "Sentinel (missing data) values encountered, per column",
		},
		[]string{"column"},
	)

	FilesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omniingest_files_ingested_total",
			Help: "Year files processed, by outcome",
		},
		[]string{"status"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "omniingest_file_ingest_duration_seconds",
			Help:    "Wall-clock duration of single-file ingests",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Serve runs a /metrics endpoint on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
