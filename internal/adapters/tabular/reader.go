package tabular

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/internal/domain/model"
)

// GzipSuffix marks compressed batches.
const GzipSuffix = ".gz"

// Reader decodes records from a delimited stream with a header row.
type Reader struct {
	csv    *csv.Reader
	layout Layout
	line   int
}

// NewReader reads the header of r. An empty stream yields io.EOF.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errkind.Wrap(errkind.ErrMalformed, "read header", err)
	}
	layout, err := NewLayout(header)
	if err != nil {
		return nil, err
	}
	return &Reader{csv: cr, layout: layout, line: 1}, nil
}

// Read returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Read() (model.EvaluationRecord, error) {
	row, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.EvaluationRecord{}, io.EOF
		}
		return model.EvaluationRecord{}, errkind.Wrap(errkind.ErrMalformed, fmt.Sprintf("line %d", r.line+1), err)
	}
	r.line++
	rec, err := r.layout.Decode(row)
	if err != nil {
		return model.EvaluationRecord{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	return rec, nil
}

// ReadAll drains the stream.
func (r *Reader) ReadAll() ([]model.EvaluationRecord, error) {
	var out []model.EvaluationRecord
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Open opens a persisted batch, decompressing it when the name ends in
// GzipSuffix. The returned closer releases every underlying handle.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path) //nolint:gosec // paths come from the corpus walk
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errkind.Wrap(errkind.ErrNotFound, path, err)
		}
		return nil, err
	}
	if !strings.HasSuffix(path, GzipSuffix) {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errkind.Wrap(errkind.ErrMalformed, path, err)
	}
	return &gzipFile{Reader: zr, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.file.Close())
}
