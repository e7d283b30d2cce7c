package tabular

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sample(i int) model.EvaluationRecord {
	return model.EvaluationRecord{
		Date:      time.Date(2024, 2, 1, 9, 5, 23, 35568000, time.UTC),
		Author:    "A",
		Model:     "M",
		Benchmark: "mmlu",
		Subject:   "history",
		Prompt:    strings.Repeat("ab", 16),
		Metric:    "acc",
		Value:     float64(i) / 3,
	}
}

func TestRoundTrip(t *testing.T) {
	Convey("Given records written as a stream", t, func() {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		for i := range 3 {
			rec := sample(i)
			So(w.Write(&rec), ShouldBeNil)
		}
		So(w.Flush(), ShouldBeNil)

		Convey("When they are read back", func() {
			r, err := NewReader(&buf)
			So(err, ShouldBeNil)
			got, err := r.ReadAll()

			Convey("Then every field is reproduced", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				for i := range got {
					So(got[i], ShouldResemble, sample(i))
				}
			})
		})
	})

	Convey("Given a stream with reordered and extra columns", t, func() {
		text := "value,extra,metric,prompt,subject,benchmark,model,author,date\n" +
			"0.5,x,acc,p,_,gsm8k,M,A,2024-01-01 00:00:00\n"
		r, err := NewReader(strings.NewReader(text))
		So(err, ShouldBeNil)
		rec, err := r.Read()

		Convey("Then columns are resolved by name", func() {
			So(err, ShouldBeNil)
			So(rec.Value, ShouldEqual, 0.5)
			So(rec.Benchmark, ShouldEqual, "gsm8k")
			So(rec.Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})
	})

	Convey("Given malformed streams", t, func() {
		_, err := NewReader(strings.NewReader("date,author\n"))
		So(errors.Is(err, errkind.ErrMalformed), ShouldBeTrue)

		_, err = NewReader(strings.NewReader(""))
		So(errors.Is(err, io.EOF), ShouldBeTrue)

		r, err := NewReader(strings.NewReader(strings.Join(Header, ",") + "\nnot-a-date,A,M,b,s,p,acc,1\n"))
		So(err, ShouldBeNil)
		_, err = r.Read()
		So(errors.Is(err, errkind.ErrMalformed), ShouldBeTrue)
	})
}

func TestWriterExtraColumns(t *testing.T) {
	Convey("Given a writer with trailing id columns", t, func() {
		var buf bytes.Buffer
		w := NewWriter(&buf, "document_id", "author_model_id")
		rec := sample(0)

		So(w.WriteWith(&rec, "1", "1"), ShouldBeNil)
		So(w.Flush(), ShouldBeNil)

		Convey("Then the header and row carry them", func() {
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			So(lines[0], ShouldEqual, strings.Join(Header, ",")+",document_id,author_model_id")
			So(lines[1], ShouldEndWith, ",0,1,1")
		})

		Convey("Then a wrong number of extras is refused", func() {
			So(w.Write(&rec), ShouldNotBeNil)
		})
	})
}

func TestCorpus(t *testing.T) {
	Convey("Given a corpus directory", t, func() {
		root := t.TempDir()
		So(os.MkdirAll(filepath.Join(root, "mmlu"), 0o755), ShouldBeNil)

		var plain bytes.Buffer
		w := NewWriter(&plain)
		rec := sample(1)
		So(w.Write(&rec), ShouldBeNil)
		So(w.Flush(), ShouldBeNil)
		So(os.WriteFile(filepath.Join(root, "mmlu", "a.csv"), plain.Bytes(), 0o600), ShouldBeNil)

		var zipped bytes.Buffer
		zw := gzip.NewWriter(&zipped)
		_, err := zw.Write(plain.Bytes())
		So(err, ShouldBeNil)
		So(zw.Close(), ShouldBeNil)
		So(os.WriteFile(filepath.Join(root, "mmlu", "b.csv.gz"), zipped.Bytes(), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(root, "empty.csv"), nil, 0o600), ShouldBeNil)

		Convey("When listing it", func() {
			paths, err := ListCorpus(root)

			Convey("Then only batches are returned in order", func() {
				So(err, ShouldBeNil)
				So(paths, ShouldResemble, []string{
					filepath.Join(root, "empty.csv"),
					filepath.Join(root, "mmlu", "a.csv"),
					filepath.Join(root, "mmlu", "b.csv.gz"),
				})
			})
		})

		Convey("When reading first records", func() {
			a, errA := FirstRecord(context.Background(), filepath.Join(root, "mmlu", "a.csv"))
			b, errB := FirstRecord(context.Background(), filepath.Join(root, "mmlu", "b.csv.gz"))
			_, errEmpty := FirstRecord(context.Background(), filepath.Join(root, "empty.csv"))
			_, errMissing := FirstRecord(context.Background(), filepath.Join(root, "nope.csv"))

			Convey("Then plain and compressed batches agree", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldResemble, sample(1))
				So(b, ShouldResemble, a)
				So(errors.Is(errEmpty, io.EOF), ShouldBeTrue)
				So(errors.Is(errMissing, errkind.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the root does not exist", func() {
			paths, err := ListCorpus(filepath.Join(root, "missing"))
			So(err, ShouldBeNil)
			So(paths, ShouldBeEmpty)
		})
	})
}
