package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/rs/zerolog"

	"omni-ingest/internal/fixedwidth"
	"omni-ingest/internal/omni"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func writeGzFile(t *testing.T, dir, name, content string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()
	gz := pgzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("write gzip %s: %v", name, err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip %s: %v", name, err)
	}
}

func line(year, doy, minute int, speed float64) string {
	return fmt.Sprintf("%4d%4d%3d%3d%8.2f%8.2f%8.2f%8.2f%8.1f%8.1f%8.1f%8.1f",
		year, doy, 0, minute, 5.20, -2.10, 1.30, 4.80, speed, -50.2, 10.1, 5.3)
}

func newLoader(t *testing.T, dir string) *Loader {
	t.Helper()
	return New(dir, nil, fixedwidth.Skip, zerolog.Nop())
}

func TestListFilesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2001.txt", line(2001, 1, 0, 400.1)+"\n")
	writeGzFile(t, dir, "1999.txt.gz", line(1999, 1, 0, 400.1)+"\n")
	writeFile(t, dir, "columns.yaml", "not a data file\n")
	writeFile(t, dir, "readme.txt", "not a year file\n")
	writeFile(t, dir, "20011.txt", "wrong digit count\n")

	files, err := newLoader(t, dir).ListFiles(YearAll)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("want 2 recognized files, got %d: %+v", len(files), files)
	}
	if files[0].Name != "1999.txt.gz" || files[1].Name != "2001.txt" {
		t.Fatalf("files not sorted by name: %+v", files)
	}
	if !files[0].Gzipped || files[1].Gzipped {
		t.Fatalf("gzip detection wrong: %+v", files)
	}

	only2001, err := newLoader(t, dir).ListFiles("2001")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(only2001) != 1 || only2001[0].Year != 2001 {
		t.Fatalf("year filter wrong: %+v", only2001)
	}
}

func TestLoadPlainAndGzip(t *testing.T) {
	dir := t.TempDir()
	content := line(1999, 1, 0, 400.1) + "\n" + line(1999, 1, 1, 99999.9) + "\n"
	writeFile(t, dir, "1999.txt", content)
	writeGzFile(t, dir, "2000.txt.gz", content)

	ld := newLoader(t, dir)
	files, err := ld.ListFiles(YearAll)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}

	for _, file := range files {
		var samples []omni.Sample
		stats, err := ld.Load(context.Background(), file, func(s omni.Sample) error {
			samples = append(samples, s)
			return nil
		})
		if err != nil {
			t.Fatalf("Load %s failed: %v", file.Name, err)
		}
		if stats.Rows != 2 {
			t.Fatalf("%s: want 2 rows, got %d", file.Name, stats.Rows)
		}
		if stats.Lines != 2 {
			t.Fatalf("%s: want 2 lines read, got %d", file.Name, stats.Lines)
		}
		if len(samples) != 2 {
			t.Fatalf("%s: want 2 samples, got %d", file.Name, len(samples))
		}
		if samples[1].FlowSpeed.Valid {
			t.Fatalf("%s: sentinel flow speed should be missing", file.Name)
		}
		if stats.Missing[fixedwidth.ColFlowSpeed] != 1 {
			t.Fatalf("%s: missing count for flow speed should be 1, got %d", file.Name, stats.Missing[fixedwidth.ColFlowSpeed])
		}
	}
}

func TestLoadCountsMalformedInSkipMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1999.txt", "garbage\n"+line(1999, 1, 0, 400.1)+"\n")

	ld := newLoader(t, dir)
	files, _ := ld.ListFiles(YearAll)

	stats, err := ld.Load(context.Background(), files[0], func(omni.Sample) error { return nil })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stats.Rows != 1 || stats.Malformed != 1 {
		t.Fatalf("want 1 row and 1 malformed, got %+v", stats)
	}
	if stats.Lines != 2 {
		t.Fatalf("want 2 lines read, got %d", stats.Lines)
	}
}

func TestLoadHaltModeSurfacesRowError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1999.txt", "garbage\n")

	ld := New(dir, nil, fixedwidth.Halt, zerolog.Nop())
	files, _ := ld.ListFiles(YearAll)

	_, err := ld.Load(context.Background(), files[0], func(omni.Sample) error { return nil })
	if !fixedwidth.IsRowError(err) {
		t.Fatalf("want a row error, got %v", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1999.txt", "\n\n")

	ld := newLoader(t, dir)
	files, _ := ld.ListFiles(YearAll)

	_, err := ld.Load(context.Background(), files[0], func(omni.Sample) error { return nil })
	if !errors.Is(err, fixedwidth.ErrEmptyInput) {
		t.Fatalf("want ErrEmptyInput, got %v", err)
	}
}

func TestLoadCallbackErrorStopsEarly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1999.txt", line(1999, 1, 0, 400.1)+"\n"+line(1999, 1, 1, 400.2)+"\n")

	ld := newLoader(t, dir)
	files, _ := ld.ListFiles(YearAll)

	wantErr := errors.New("stop")
	seen := 0
	_, err := ld.Load(context.Background(), files[0], func(omni.Sample) error {
		seen++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("want callback error, got %v", err)
	}
	if seen != 1 {
		t.Fatalf("callback should run once, ran %d times", seen)
	}
}
