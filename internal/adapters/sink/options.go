package sink

import (
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/okian/evalharvest/pkg/logger"
)

// Option configures a sink and the backend Open builds for it.
type Option func(*options)

type options struct {
	chunkSize int
	logger    logger.Logger
	newName   func() string

	stdout io.Writer

	objectStore    ObjectPutter
	objectEndpoint string
	objectSecure   bool

	copier Copier
	table  string
}

func newOptions(opts []Option) *options {
	o := &options{
		chunkSize:      defaultChunkSize,
		logger:         logger.Nop(),
		newName:        uuid.NewString,
		stdout:         os.Stdout,
		objectEndpoint: "s3.amazonaws.com",
		objectSecure:   true,
		table:          DefaultTable,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithChunkSize sets the flush threshold in records.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithNameFunc replaces the generator of fresh file and object names.
func WithNameFunc(f func() string) Option {
	return func(o *options) {
		if f != nil {
			o.newName = f
		}
	}
}

// WithStdout sets the stream written for the "-" destination.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.stdout = w
		}
	}
}

// WithObjectStore supplies the client used for s3:// destinations instead
// of dialing one.
func WithObjectStore(p ObjectPutter) Option {
	return func(o *options) {
		o.objectStore = p
	}
}

// WithObjectStoreEndpoint sets the S3-compatible host and TLS use.
func WithObjectStoreEndpoint(endpoint string, secure bool) Option {
	return func(o *options) {
		if endpoint != "" {
			o.objectEndpoint = endpoint
		}
		o.objectSecure = secure
	}
}

// WithCopier supplies the database handle used for postgres:// destinations
// instead of opening a pool.
func WithCopier(c Copier) Option {
	return func(o *options) {
		o.copier = c
	}
}

// WithTable sets the destination table of the postgres backend.
func WithTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.table = name
		}
	}
}
