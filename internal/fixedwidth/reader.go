package fixedwidth

import (
	"bufio"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"omni-ingest/internal/omni"
)

// ErrorMode selects how the Reader treats rows that fail to parse.
type ErrorMode int

const (
	// Halt stops the scan and surfaces the row error from Err.
	Halt ErrorMode = iota
	// Skip logs the row error, counts it, and continues with the next line.
	Skip
)

// maxRowErrorsLogged throttles per-row logging so a badly corrupted file
// cannot flood the log.
const maxRowErrorsLogged = 10

// ReaderOptions tune a Reader.
type ReaderOptions struct {
	Schema *Schema // nil selects DefaultSchema
	Mode   ErrorMode
	Logger zerolog.Logger
}

// Reader scans records off an io.Reader one line at a time, in input order.
// It performs no cross-row validation, no ordering enforcement, and no
// deduplication; re-reading the same source reproduces the same sequence.
//
// Usage follows bufio.Scanner: call Scan until it returns false, read each
// record with Sample, then check Err.
type Reader struct {
	scanner *bufio.Scanner
	schema  *Schema
	mode    ErrorMode
	logger  zerolog.Logger

	line      int
	dataLines int
	skipped   int
	sample    omni.Sample
	err       error
	done      bool
}

// NewReader constructs a Reader over r.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	schema := opts.Schema
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Reader{
		scanner: bufio.NewScanner(r),
		schema:  schema,
		mode:    opts.Mode,
		logger:  opts.Logger,
	}
}

// Scan advances to the next successfully parsed record. It returns false at
// end of input or, in Halt mode, on the first row error.
func (r *Reader) Scan() bool {
	if r.done {
		return false
	}

	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		r.dataLines++

		sample, err := ParseLine(r.schema, text, r.line)
		if err == nil {
			r.sample = sample
			return true
		}

		if r.mode == Halt {
			r.err = err
			r.done = true
			return false
		}

		r.skipped++
		if r.skipped <= maxRowErrorsLogged {
			r.logger.Warn().Int("line", r.line).Err(err).Msg("skipping malformed row")
		} else if r.skipped == maxRowErrorsLogged+1 {
			r.logger.Warn().Msg("further malformed rows suppressed from log")
		}
	}

	r.done = true
	if err := r.scanner.Err(); err != nil {
		r.err = err
	} else if r.dataLines == 0 {
		r.err = ErrEmptyInput
	}
	return false
}

// Sample returns the record produced by the last successful Scan.
func (r *Reader) Sample() omni.Sample {
	return r.sample
}

// Err returns the error that terminated the scan, if any. After a clean scan
// of an input with no data lines it returns ErrEmptyInput.
func (r *Reader) Err() error {
	return r.err
}

// Skipped reports how many rows were stepped over in Skip mode.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Line reports the 1-based number of the last line read.
func (r *Reader) Line() int {
	return r.line
}
