package sink

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StdoutDestination selects the stream backend on standard output.
const StdoutDestination = "-"

// Open builds a chunked sink for dest:
//
//	-                      CSV stream on stdout
//	path/to/dir            gzip CSV files under the directory
//	s3://bucket/prefix     parquet objects in an S3-compatible store
//	postgres://...         rows COPYed into a table
func Open(ctx context.Context, dest string, opts ...Option) (*Chunked, error) {
	b, err := openBackend(ctx, dest, newOptions(opts))
	if err != nil {
		return nil, err
	}
	return NewChunked(b, opts...), nil
}

func openBackend(ctx context.Context, dest string, o *options) (Backend, error) {
	if dest == StdoutDestination {
		return NewStream(o.stdout), nil
	}
	scheme, _, hasScheme := strings.Cut(dest, "://")
	if !hasScheme {
		return NewFlatFile(dest, WithNameFunc(o.newName))
	}

	u, err := url.Parse(dest)
	if err != nil {
		return nil, fmt.Errorf("parse destination: %w", err)
	}
	switch strings.ToLower(scheme) {
	case "s3":
		store := o.objectStore
		if store == nil {
			client, err := minio.New(o.objectEndpoint, &minio.Options{
				Creds:  credentials.NewEnvAWS(),
				Secure: o.objectSecure,
			})
			if err != nil {
				return nil, fmt.Errorf("object store client: %w", err)
			}
			store = client
		}
		if u.Host == "" {
			return nil, fmt.Errorf("%w: missing bucket in %q", ErrUnsupportedScheme, dest)
		}
		return NewColumnar(store, u.Host, strings.Trim(u.Path, "/"), WithNameFunc(o.newName)), nil
	case "postgres", "postgresql":
		if o.copier != nil {
			return NewPostgres(ctx, o.copier, o.table)
		}
		return DialPostgres(ctx, dest, o.table)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}
