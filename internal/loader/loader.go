// Package loader streams samples out of a directory of per-year data files.
// Files are named YYYY.txt, optionally gzip-compressed as YYYY.txt.gz;
// anything else in the directory is ignored.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/klauspost/pgzip"
	"github.com/rs/zerolog"

	"omni-ingest/internal/fixedwidth"
	"omni-ingest/internal/omni"
)

// YearAll selects every year file in the data directory.
const YearAll = "all"

var yearFilePattern = regexp.MustCompile(`^(\d{4})\.txt(\.gz)?$`)

// File describes one recognized year file.
type File struct {
	Path    string
	Name    string
	Year    int
	Gzipped bool
	Size    int64
	ModTime time.Time
}

// Stats accumulates per-file parse bookkeeping.
type Stats struct {
	File      string
	Year      int
	Lines     int // lines read, including blank and malformed ones
	Rows      int
	Malformed int
	Missing   map[string]int // per measurement column
	Duration  time.Duration
}

// Loader reads year files through the fixed-width parser.
type Loader struct {
	dir    string
	schema *fixedwidth.Schema
	mode   fixedwidth.ErrorMode
	logger zerolog.Logger
}

// New constructs a Loader over dir. A nil schema selects the default layout.
func New(dir string, schema *fixedwidth.Schema, mode fixedwidth.ErrorMode, logger zerolog.Logger) *Loader {
	if schema == nil {
		schema = fixedwidth.DefaultSchema()
	}
	return &Loader{
		dir:    dir,
		schema: schema,
		mode:   mode,
		logger: logger.With().Str("component", "loader").Logger(),
	}
}

// Schema returns the column schema the loader parses with.
func (l *Loader) Schema() *fixedwidth.Schema {
	return l.schema
}

// ListFiles returns the recognized year files, sorted by filename. The year
// filter is either YearAll or a single 4-digit year.
func (l *Loader) ListFiles(year string) ([]File, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := yearFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if year != "" && year != YearAll && m[1] != year {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		fileYear, _ := strconv.Atoi(m[1])
		files = append(files, File{
			Path:    filepath.Join(l.dir, entry.Name()),
			Name:    entry.Name(),
			Year:    fileYear,
			Gzipped: m[2] != "",
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Load streams every sample in file through fn, stopping on the first error
// fn returns. The returned Stats are valid even when Load fails partway.
func (l *Loader) Load(ctx context.Context, file File, fn func(omni.Sample) error) (Stats, error) {
	stats := Stats{
		File:    file.Name,
		Year:    file.Year,
		Missing: make(map[string]int),
	}
	started := time.Now()
	defer func() { stats.Duration = time.Since(started) }()

	f, err := os.Open(file.Path)
	if err != nil {
		return stats, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer f.Close()

	var src io.Reader = f
	if file.Gzipped {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return stats, fmt.Errorf("open gzip %s: %w", file.Name, err)
		}
		defer gz.Close()
		src = gz
	}

	columns := l.schema.MeasurementColumns()
	reader := fixedwidth.NewReader(src, fixedwidth.ReaderOptions{
		Schema: l.schema,
		Mode:   l.mode,
		Logger: l.logger.With().Str("file", file.Name).Logger(),
	})

	for reader.Scan() {
		if err := ctx.Err(); err != nil {
			stats.Lines = reader.Line()
			stats.Malformed = reader.Skipped()
			return stats, err
		}

		sample := reader.Sample()
		stats.Rows++
		for i, v := range sample.Values() {
			if !v.Valid {
				stats.Missing[columns[i].Name]++
			}
		}

		if err := fn(sample); err != nil {
			stats.Lines = reader.Line()
			stats.Malformed = reader.Skipped()
			return stats, err
		}
	}
	stats.Lines = reader.Line()
	stats.Malformed = reader.Skipped()

	if err := reader.Err(); err != nil {
		if fixedwidth.IsRowError(err) {
			return stats, fmt.Errorf("%s: %w", file.Name, err)
		}
		return stats, err
	}
	return stats, nil
}

