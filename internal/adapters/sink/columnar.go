package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/internal/domain/model"
)

// BackendColumnar names the partitioned parquet backend.
const BackendColumnar = "columnar"

const parquetContentType = "application/vnd.apache.parquet"

// ObjectPutter is the part of an object store client the columnar backend
// needs. *minio.Client satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type parquetRow struct {
	Date      int64   `parquet:"name=date, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	Author    string  `parquet:"name=author, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Model     string  `parquet:"name=model, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Benchmark string  `parquet:"name=benchmark, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Subject   string  `parquet:"name=subject, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Prompt    string  `parquet:"name=prompt, type=BYTE_ARRAY, convertedtype=UTF8"`
	Metric    string  `parquet:"name=metric, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Value     float64 `parquet:"name=value, type=DOUBLE"`
}

func toParquet(r *model.EvaluationRecord) parquetRow {
	return parquetRow{
		Date:      r.Date.UTC().UnixMicro(),
		Author:    r.Author,
		Model:     r.Model,
		Benchmark: r.Benchmark,
		Subject:   r.Subject,
		Prompt:    r.Prompt,
		Metric:    r.Metric,
		Value:     r.Value,
	}
}

func (p *parquetRow) record() model.EvaluationRecord {
	return model.EvaluationRecord{
		Date:      time.UnixMicro(p.Date).UTC(),
		Author:    p.Author,
		Model:     p.Model,
		Benchmark: p.Benchmark,
		Subject:   p.Subject,
		Prompt:    p.Prompt,
		Metric:    p.Metric,
		Value:     p.Value,
	}
}

type partition struct {
	benchmark string
	author    string
}

// Columnar writes every flush as gzip-compressed parquet objects,
// partitioned Hive-style by benchmark and author under
// bucket/prefix/benchmark=<b>/author=<a>/<name>.parquet.
type Columnar struct {
	store   ObjectPutter
	bucket  string
	prefix  string
	newName func() string
}

// NewColumnar writes objects through store.
func NewColumnar(store ObjectPutter, bucket, prefix string, opts ...Option) *Columnar {
	o := newOptions(opts)
	return &Columnar{store: store, bucket: bucket, prefix: prefix, newName: o.newName}
}

// Name implements Backend.
func (c *Columnar) Name() string { return BackendColumnar }

// Flush implements Backend.
func (c *Columnar) Flush(ctx context.Context, recs []model.EvaluationRecord) error {
	groups := groupBy(recs, func(r *model.EvaluationRecord) partition {
		return partition{benchmark: r.Benchmark, author: r.Author}
	})
	for _, g := range groups {
		body, err := EncodeParquet(g.recs)
		if err != nil {
			return err
		}
		key := c.objectKey(g.key)
		_, err = c.store.PutObject(ctx, c.bucket, key, bytes.NewReader(body), int64(len(body)),
			minio.PutObjectOptions{ContentType: parquetContentType})
		if err != nil {
			return fmt.Errorf("put %s/%s: %w", c.bucket, key, err)
		}
	}
	return nil
}

// Close implements Backend.
func (c *Columnar) Close(context.Context) error { return nil }

func (c *Columnar) objectKey(p partition) string {
	return path.Join(c.prefix,
		"benchmark="+url.PathEscape(p.benchmark),
		"author="+url.PathEscape(p.author),
		c.newName()+".parquet")
}

// EncodeParquet renders recs as one gzip-compressed parquet file.
func EncodeParquet(recs []model.EvaluationRecord) ([]byte, error) {
	var buf bytes.Buffer
	pw, err := writer.NewParquetWriterFromWriter(&buf, new(parquetRow), 1)
	if err != nil {
		return nil, fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_GZIP
	for i := range recs {
		if err := pw.Write(toParquet(&recs[i])); err != nil {
			return nil, fmt.Errorf("parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("parquet finish: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeParquet reads records written by EncodeParquet.
func DecodeParquet(data []byte) ([]model.EvaluationRecord, error) {
	pr, err := reader.NewParquetReader(buffer.NewBufferFileFromBytes(data), new(parquetRow), 1)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrMalformed, "parquet reader", err)
	}
	defer pr.ReadStop()

	rows := make([]parquetRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, errkind.Wrap(errkind.ErrMalformed, "parquet read", err)
	}
	out := make([]model.EvaluationRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].record()
	}
	return out, nil
}
