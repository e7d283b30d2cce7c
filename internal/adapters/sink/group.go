package sink

import (
	"strings"
	"time"

	"github.com/okian/evalharvest/internal/domain/model"
)

type group[K comparable] struct {
	key  K
	recs []model.EvaluationRecord
}

// groupBy splits recs by key, keeping first-seen order of keys and input
// order within each group.
func groupBy[K comparable](recs []model.EvaluationRecord, key func(*model.EvaluationRecord) K) []group[K] {
	pos := make(map[K]int)
	var out []group[K]
	for i := range recs {
		k := key(&recs[i])
		j, ok := pos[k]
		if !ok {
			j = len(out)
			pos[k] = j
			out = append(out, group[K]{key: k})
		}
		out[j].recs = append(out[j].recs, recs[i])
	}
	return out
}

// submission is one corpus batch: every row shares key and date.
type submission struct {
	key  model.SubmissionKey
	date time.Time
}

func submissionOf(r *model.EvaluationRecord) submission {
	return submission{key: r.Key(), date: r.Date.UTC()}
}

// safeSegment makes s usable as a single path segment.
func safeSegment(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
}
