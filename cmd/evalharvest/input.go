package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/evalharvest/internal/domain/model"
)

// Header cells of a source list.
const (
	colURI        = "uri"
	colEvaluation = "evaluation"
)

var errNoEvaluation = errors.New("source has no evaluation and --evaluation is not set")

// readSources parses work items from r. Each row is "uri,evaluation" or a
// bare uri that takes defaultEval. An optional "uri,evaluation" header and
// blank lines are skipped.
func readSources(r io.Reader, defaultEval string) ([]model.Source, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var sources []model.Source
	for first := true; ; first = false {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return sources, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read sources: %w", err)
		}

		uri := strings.TrimSpace(row[0])
		if uri == "" {
			continue
		}
		if first && strings.EqualFold(uri, colURI) {
			continue
		}

		src := model.Source{URI: uri, Evaluation: defaultEval}
		if len(row) > 1 && strings.TrimSpace(row[1]) != "" {
			src.Evaluation = strings.TrimSpace(row[1])
		}
		if src.Evaluation == "" {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %s: %w", line, uri, errNoEvaluation)
		}
		sources = append(sources, src)
	}
}

// readLines returns the non-blank lines of r, trimmed.
func readLines(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
