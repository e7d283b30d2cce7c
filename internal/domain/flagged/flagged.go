// Package flagged parses the list of (author, model) pairs that must be
// suppressed from listings and harvested output.
//
// Two layouts are understood: a source file assigning a dictionary literal to
// a named variable, whose keys are "author/model" strings, and plain text
// with one "author/model" or "author,model" entry per line.
package flagged

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/internal/domain/model"
	"github.com/okian/evalharvest/pkg/logger"
)

// DefaultVariable names the dictionary holding flagged models.
const DefaultVariable = "FLAGGED"

// Set is an immutable set of flagged pairs. The zero value is empty.
type Set struct {
	pairs map[model.AuthorModel]struct{}
}

// NewSet builds a set from pairs.
func NewSet(pairs ...model.AuthorModel) *Set {
	s := &Set{pairs: make(map[model.AuthorModel]struct{}, len(pairs))}
	for _, p := range pairs {
		s.pairs[p] = struct{}{}
	}
	return s
}

// Contains reports whether author/model is flagged. Safe on a nil set.
func (s *Set) Contains(author, mdl string) bool {
	if s == nil {
		return false
	}
	_, ok := s.pairs[model.AuthorModel{Author: author, Model: mdl}]
	return ok
}

// Len returns the number of flagged pairs.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.pairs)
}

// Entries returns the pairs sorted by author then model.
func (s *Set) Entries() []model.AuthorModel {
	if s == nil {
		return nil
	}
	out := make([]model.AuthorModel, 0, len(s.pairs))
	for p := range s.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Author != out[j].Author {
			return out[i].Author < out[j].Author
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// Parse reads r. When a line starts with variable the dictionary layout is
// used, otherwise every line is an entry. Entries that do not split into
// exactly two names are logged and skipped.
func Parse(ctx context.Context, r io.Reader, variable string, log logger.Logger) (*Set, error) {
	if log == nil {
		log = logger.Nop()
	}
	if variable == "" {
		variable = DefaultVariable
	}

	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read flagged list: %w", err)
	}

	var names []string
	if literal, ok := dictionary(lines, variable); ok {
		keys, err := dictKeys(literal)
		if err != nil {
			return nil, err
		}
		names = keys
	} else {
		names = plainEntries(lines)
	}

	s := NewSet()
	for _, name := range names {
		p, ok := split(name)
		if !ok {
			log.Warn(ctx, "bad author/model entry", logger.String("entry", name))
			continue
		}
		s.pairs[p] = struct{}{}
	}
	return s, nil
}

// dictionary collects the text from the opening brace after variable up to
// the first line holding the closing brace, with comments stripped.
func dictionary(lines []string, variable string) (string, bool) {
	var (
		b      strings.Builder
		inside bool
	)
	for _, line := range lines {
		if !inside && strings.HasPrefix(strings.TrimLeft(line, " \t"), variable) {
			i := strings.IndexByte(line, '{')
			if i < 0 {
				continue
			}
			inside = true
			line = line[i:]
		}
		if !inside {
			continue
		}
		line = uncomment(line)
		b.WriteString(line)
		b.WriteByte('\n')
		if strings.IndexByte(line, '}') >= 0 {
			break
		}
	}
	return b.String(), inside
}

// dictKeys returns the string keys of a dictionary literal.
func dictKeys(literal string) ([]string, error) {
	var keys []string
	for i := 0; i < len(literal); i++ {
		q := literal[i]
		if q != '"' && q != '\'' {
			continue
		}
		s, end, err := quoted(literal, i)
		if err != nil {
			return nil, err
		}
		i = end
		j := end + 1
		for j < len(literal) && (literal[j] == ' ' || literal[j] == '\t' || literal[j] == '\n') {
			j++
		}
		if j < len(literal) && literal[j] == ':' {
			keys = append(keys, s)
		}
	}
	return keys, nil
}

// quoted reads the string literal starting at start and returns its value
// and the index of the closing quote.
func quoted(s string, start int) (string, int, error) {
	q := s[start]
	var b strings.Builder
	for i := start + 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == q:
			return b.String(), i, nil
		case c == '\n':
			return "", 0, errkind.Wrap(errkind.ErrMalformed, "unterminated string in flagged list", nil)
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, errkind.Wrap(errkind.ErrMalformed, "unterminated string in flagged list", nil)
}

func plainEntries(lines []string) []string {
	var out []string
	for i, line := range lines {
		line = strings.TrimSpace(uncomment(line))
		if line == "" || (i == 0 && strings.EqualFold(line, "author,model")) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func split(entry string) (model.AuthorModel, bool) {
	sep := "/"
	if strings.Contains(entry, ",") {
		sep = ","
	}
	parts := strings.Split(entry, sep)
	if len(parts) != 2 {
		return model.AuthorModel{}, false
	}
	a, m := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if a == "" || m == "" {
		return model.AuthorModel{}, false
	}
	return model.AuthorModel{Author: a, Model: m}, true
}

func uncomment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}
