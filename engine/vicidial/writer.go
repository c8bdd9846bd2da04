package vicidial

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const (
	filePrefix   = "vici_export_"
	fileExt      = ".csv"
	stampLayout  = "20060102_150405"
	maxNameTries = 100
)

// Writer persists dialer lists as CSV files in a directory. Files are created
// exclusively and never overwritten.
type Writer struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewWriter returns a writer rooted at dir, creating the directory when
// missing.
func NewWriter(fsys afero.Fs, dir string) (*Writer, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory %s: %w", dir, err)
	}
	return &Writer{fs: fsys, dir: dir, now: time.Now}, nil
}

// WithClock replaces the clock used to stamp file names.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Dir returns the export directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write creates vici_export_<YYYYMMDD_HHMMSS>.csv holding records and returns
// its path. When that name is taken, tag (usually the job's unique suffix) is
// appended, followed by a counter if needed.
func (w *Writer) Write(tag string, records []Record) (string, error) {
	f, path, err := w.create(tag)
	if err != nil {
		return "", err
	}
	if err := writeRecords(f, records); err != nil {
		_ = f.Close()
		_ = w.fs.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = w.fs.Remove(path)
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

func (w *Writer) create(tag string) (afero.File, string, error) {
	stamp := w.now().Format(stampLayout)
	for i := 0; i < maxNameTries; i++ {
		path := filepath.Join(w.dir, fileName(stamp, tag, i))
		f, err := w.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("no free export file name for %s after %d attempts", stamp, maxNameTries)
}

func fileName(stamp, tag string, attempt int) string {
	switch {
	case attempt == 0:
		return filePrefix + stamp + fileExt
	case tag == "":
		return fmt.Sprintf("%s%s_%d%s", filePrefix, stamp, attempt, fileExt)
	case attempt == 1:
		return fmt.Sprintf("%s%s_%s%s", filePrefix, stamp, tag, fileExt)
	default:
		return fmt.Sprintf("%s%s_%s_%d%s", filePrefix, stamp, tag, attempt, fileExt)
	}
}

func writeRecords(f afero.File, records []Record) error {
	cw := csv.NewWriter(f)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
