package model

import (
	"path"
	"strconv"
	"strings"

	"github.com/okian/evalharvest/internal/domain/errkind"
)

// Naming conventions of evaluation sources on the dataset host.
const (
	HarnessPrefix = "harness_"
	EmptySubject  = "_"
)

// Source is one unit of work: a remote evaluation dataset plus the
// configuration (sub-dataset) to read from it.
type Source struct {
	URI        string
	Evaluation string
}

func (s Source) String() string {
	if s.Evaluation == "" {
		return s.URI
	}
	return s.URI + "#" + s.Evaluation
}

// Submission derives the submission key from the source naming scheme.
func (s Source) Submission() (SubmissionKey, error) {
	author, mdl, err := ParseSourceName(s.URI)
	if err != nil {
		return SubmissionKey{}, err
	}
	benchmark, subject := ParseEvaluation(s.Evaluation)
	return SubmissionKey{Author: author, Model: mdl, Benchmark: benchmark, Subject: subject}, nil
}

// ParseSourceName splits a dataset id such as owner/details_<author>__<model>
// into author and model. The part before the first underscore is the listing
// prefix. Without a double underscore the remainder is the author and the
// model is empty; a double underscore right after the prefix leaves the author
// empty.
func ParseSourceName(uri string) (author, model string, err error) {
	name := path.Base(strings.TrimSuffix(uri, "/"))
	lhs := strings.Index(name, "_")
	if lhs < 0 {
		return "", "", errkind.Wrap(errkind.ErrMalformed, "cannot parse source name "+uri, nil)
	}
	rhs := strings.Index(name, "__")

	switch {
	case rhs == lhs:
		return "", name[rhs+2:], nil
	case rhs < 0:
		return name[lhs+1:], "", nil
	default:
		return name[lhs+1 : rhs], name[rhs+2:], nil
	}
}

// ParseEvaluation splits harness_<benchmark>_<subject...>_<nshot> into
// benchmark and subject. A trailing numeric few-shot count is dropped and a
// missing subject becomes EmptySubject. Names outside the harness scheme are
// taken whole as the benchmark.
func ParseEvaluation(name string) (benchmark, subject string) {
	rest, ok := strings.CutPrefix(name, HarnessPrefix)
	if !ok || rest == "" {
		return name, EmptySubject
	}

	parts := strings.Split(rest, "_")
	if n := len(parts); n > 1 {
		if _, err := strconv.Atoi(parts[n-1]); err == nil {
			parts = parts[:n-1]
		}
	}

	benchmark = parts[0]
	subject = strings.Join(parts[1:], "_")
	if subject == "" {
		subject = EmptySubject
	}
	return benchmark, subject
}

// AuthorModel is one entry of the flagged-model list.
type AuthorModel struct {
	Author string
	Model  string
}

func (a AuthorModel) String() string {
	return a.Author + "/" + a.Model
}
