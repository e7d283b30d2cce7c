package dedupe_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/okian/evalharvest/internal/domain/dedupe"
	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/internal/domain/model"
	"github.com/okian/evalharvest/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(date time.Time, prompt string) model.EvaluationRecord {
	return model.EvaluationRecord{
		Date:      date,
		Author:    "A",
		Model:     "M",
		Benchmark: "mmlu",
		Subject:   "history",
		Prompt:    prompt,
		Metric:    "acc",
		Value:     1,
	}
}

// corpus simulates persisted batches keyed by path.
type corpus map[string][]model.EvaluationRecord

func (c corpus) paths() []string {
	out := make([]string, 0, len(c))
	for p := range c {
		out = append(out, p)
	}
	return out
}

func (c corpus) first(_ context.Context, path string) (model.EvaluationRecord, error) {
	recs := c[path]
	if len(recs) == 0 {
		return model.EvaluationRecord{}, io.EOF
	}
	return recs[0], nil
}

func TestIndex(t *testing.T) {
	Convey("Given an empty index", t, func() {
		ix := dedupe.NewIndex()
		key := model.SubmissionKey{Author: "A", Model: "M", Benchmark: "mmlu", Subject: "history"}

		Convey("When dates are observed out of order", func() {
			So(ix.Observe(key, day(2024, 1, 1)), ShouldBeTrue)
			So(ix.Observe(key, day(2024, 3, 1)), ShouldBeTrue)
			So(ix.Observe(key, day(2024, 2, 1)), ShouldBeFalse)

			Convey("Then the maximum is retained in a single entry", func() {
				latest, ok := ix.Latest(key)
				So(ok, ShouldBeTrue)
				So(latest, ShouldEqual, day(2024, 3, 1))
				So(ix.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the same instant is observed in another zone", func() {
			first := day(2024, 1, 1)
			ix.Observe(key, first)
			changed := ix.Observe(key, first.In(time.FixedZone("X", 3600)))

			Convey("Then the first observation wins the tie", func() {
				So(changed, ShouldBeFalse)
				latest, _ := ix.Latest(key)
				So(latest.Location(), ShouldEqual, time.UTC)
			})
		})

		Convey("Then freshness is strict", func() {
			ix.Observe(key, day(2024, 1, 1))
			So(ix.Fresh(key, day(2024, 1, 1)), ShouldBeFalse)
			So(ix.Fresh(key, day(2023, 12, 31)), ShouldBeFalse)
			So(ix.Fresh(key, day(2024, 1, 2)), ShouldBeTrue)
			So(ix.Fresh(model.SubmissionKey{Author: "B"}, day(2000, 1, 1)), ShouldBeTrue)
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given a corpus holding the 2024-01-01 submission", t, func() {
		ctx := context.Background()
		c := corpus{
			"mmlu/a.csv.gz":  {record(day(2024, 1, 1), "p1"), record(day(2024, 1, 1), "p2")},
			"mmlu/empty.csv": nil,
		}
		ix, err := dedupe.BuildIndex(ctx, c.paths(), c.first, dedupe.WithLogger(logger.Nop()), dedupe.WithWorkers(2))
		So(err, ShouldBeNil)
		So(ix.Len(), ShouldEqual, 1)

		m := dedupe.NewMerger(ix, dedupe.WithLogger(logger.Nop()))

		Convey("When rows dated 2024-01-01 and 2024-02-01 arrive", func() {
			incoming := []model.EvaluationRecord{record(day(2024, 1, 1), "p1"), record(day(2024, 2, 1), "p1")}
			out := m.Filter(ctx, incoming)

			Convey("Then only the 2024-02-01 row survives", func() {
				So(out, ShouldHaveLength, 1)
				So(out[0].Date, ShouldEqual, day(2024, 2, 1))
				So(m.Pass(&incoming[0]), ShouldBeFalse)
				So(m.Pass(&incoming[1]), ShouldBeTrue)
			})

			Convey("And the survivors are persisted and the merge runs again", func() {
				c["mmlu/b.csv.gz"] = out
				again, err := dedupe.BuildIndex(ctx, c.paths(), c.first, dedupe.WithLogger(logger.Nop()))
				So(err, ShouldBeNil)

				second := dedupe.NewMerger(again, dedupe.WithLogger(logger.Nop())).Filter(ctx, incoming)

				Convey("Then nothing passes the second time", func() {
					So(second, ShouldBeEmpty)
				})
			})
		})

		Convey("When a nil index is used", func() {
			out := dedupe.NewMerger(nil, dedupe.WithLogger(logger.Nop())).Filter(ctx, []model.EvaluationRecord{record(day(2020, 1, 1), "p")})

			Convey("Then everything passes", func() {
				So(out, ShouldHaveLength, 1)
			})
		})
	})
}

func TestBuildIndexErrors(t *testing.T) {
	Convey("Given corpus readers that fail", t, func() {
		ctx := context.Background()
		paths := []string{"good", "bad"}

		Convey("When a batch is malformed", func() {
			read := func(_ context.Context, p string) (model.EvaluationRecord, error) {
				if p == "bad" {
					return model.EvaluationRecord{}, errkind.Wrap(errkind.ErrMalformed, "no date column", nil)
				}
				return record(day(2024, 1, 1), "p"), nil
			}
			ix, err := dedupe.BuildIndex(ctx, paths, read, dedupe.WithLogger(logger.Nop()))

			Convey("Then it is skipped", func() {
				So(err, ShouldBeNil)
				So(ix.Len(), ShouldEqual, 1)
			})
		})

		Convey("When a batch cannot be read", func() {
			boom := errors.New("disk gone")
			read := func(_ context.Context, p string) (model.EvaluationRecord, error) {
				if p == "bad" {
					return model.EvaluationRecord{}, boom
				}
				return record(day(2024, 1, 1), "p"), nil
			}
			ix, err := dedupe.BuildIndex(ctx, paths, read, dedupe.WithLogger(logger.Nop()))

			Convey("Then the build fails", func() {
				So(ix, ShouldBeNil)
				So(errors.Is(err, boom), ShouldBeTrue)
			})
		})
	})
}
