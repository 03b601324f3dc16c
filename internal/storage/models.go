package storage

import (
	"time"

	"omni-ingest/internal/omni"
)

// SampleRow is a persisted measurement record.
type SampleRow struct {
	omni.Sample

	TS         time.Time // derived from the timestamp fields, UTC
	SourceFile string
	CreatedAt  time.Time
}

// NewSampleRow wraps a parsed sample for persistence.
func NewSampleRow(s omni.Sample, sourceFile string) SampleRow {
	return SampleRow{Sample: s, TS: s.Time(), SourceFile: sourceFile}
}

// FileIngest records one ingest attempt of a year file, for auditing and for
// skipping files that have not changed since their last successful ingest.
type FileIngest struct {
	ID        int64
	Filename  string
	Year      int
	SizeBytes int64
	ModTime   time.Time
	Rows      int
	Malformed int
	Missing   int // total absent measurement values across all rows
	Status    string
	Error     *string
	Duration  time.Duration
	CreatedAt time.Time
}

// FileIngest status values.
const (
	IngestComplete = "complete"
	IngestErrored  = "errored"
)
