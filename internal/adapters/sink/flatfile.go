package sink

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/evalharvest/internal/adapters/tabular"
	"github.com/okian/evalharvest/internal/domain/model"
)

// BackendFlatFile names the directory backend.
const BackendFlatFile = "flatfile"

// FlatFile writes every flush as freshly named gzip CSV files under a
// directory, one file per submission so each file holds a single date.
// Files appear under their final name only once complete.
type FlatFile struct {
	dir     string
	newName func() string
}

// NewFlatFile creates dir if needed.
func NewFlatFile(dir string, opts ...Option) (*FlatFile, error) {
	o := newOptions(opts)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FlatFile{dir: dir, newName: o.newName}, nil
}

// Name implements Backend.
func (f *FlatFile) Name() string { return BackendFlatFile }

// Flush implements Backend.
func (f *FlatFile) Flush(_ context.Context, recs []model.EvaluationRecord) error {
	for _, g := range groupBy(recs, submissionOf) {
		dir := filepath.Join(f.dir, safeSegment(g.key.key.Benchmark))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(dir, f.newName()+tabular.CSVGzipSuffix)
		if err := writeBatch(path, g.recs); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// Close implements Backend.
func (f *FlatFile) Close(context.Context) error { return nil }

func writeBatch(path string, recs []model.EvaluationRecord) (err error) {
	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // output location is configured
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	zw := gzip.NewWriter(file)
	w := tabular.NewWriter(zw)
	for i := range recs {
		if err := w.Write(&recs[i]); err != nil {
			_ = file.Close()
			return err
		}
	}
	if err := errors.Join(w.Flush(), zw.Close(), file.Close()); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
