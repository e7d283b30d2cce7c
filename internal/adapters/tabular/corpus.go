package tabular

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/evalharvest/internal/domain/model"
)

// Batch file suffixes recognized in a corpus directory.
const (
	CSVSuffix     = ".csv"
	CSVGzipSuffix = ".csv.gz"
)

// ListCorpus returns every batch under root, sorted. A missing root is an
// empty corpus.
func ListCorpus(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == root {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() && (strings.HasSuffix(p, CSVSuffix) || strings.HasSuffix(p, CSVGzipSuffix)) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// FirstRecord reads only the first record of the batch at path.
func FirstRecord(_ context.Context, path string) (model.EvaluationRecord, error) {
	f, err := Open(path)
	if err != nil {
		return model.EvaluationRecord{}, err
	}
	defer func() { _ = f.Close() }()

	r, err := NewReader(f)
	if err != nil {
		return model.EvaluationRecord{}, err
	}
	return r.Read()
}
