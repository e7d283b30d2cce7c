package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/evalharvest/internal/adapters/tabular"
	"github.com/okian/evalharvest/internal/domain/model"
)

// BackendPostgres names the relational backend.
const BackendPostgres = "postgres"

// DefaultTable receives rows when no table is configured.
const DefaultTable = "evaluations"

// Copier is the part of a database handle the postgres backend needs.
// *pgxpool.Pool satisfies it.
type Copier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// Postgres bulk-loads every flush into one table with COPY.
type Postgres struct {
	db    Copier
	table pgx.Identifier
	close func()
}

// NewPostgres creates the table if it does not exist.
func NewPostgres(ctx context.Context, db Copier, table string) (*Postgres, error) {
	p := &Postgres{db: db, table: pgx.Identifier{table}}
	if _, err := db.Exec(ctx, p.createTable()); err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return p, nil
}

// DialPostgres opens a pool for conn and owns it until Close.
func DialPostgres(ctx context.Context, conn, table string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	p, err := NewPostgres(ctx, pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	p.close = pool.Close
	return p, nil
}

func (p *Postgres) createTable() string {
	return `CREATE TABLE IF NOT EXISTS ` + p.table.Sanitize() + ` (
	date      timestamptz      NOT NULL,
	author    text             NOT NULL,
	model     text             NOT NULL,
	benchmark text             NOT NULL,
	subject   text             NOT NULL,
	prompt    text             NOT NULL,
	metric    text             NOT NULL,
	value     double precision NOT NULL
)`
}

// Name implements Backend.
func (p *Postgres) Name() string { return BackendPostgres }

// Flush implements Backend.
func (p *Postgres) Flush(ctx context.Context, recs []model.EvaluationRecord) error {
	rows := make([][]any, len(recs))
	for i := range recs {
		r := &recs[i]
		rows[i] = []any{r.Date.UTC(), r.Author, r.Model, r.Benchmark, r.Subject, r.Prompt, r.Metric, r.Value}
	}
	n, err := p.db.CopyFrom(ctx, p.table, tabular.Header, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", p.table.Sanitize(), err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("%w: %d of %d", ErrShortCopy, n, len(rows))
	}
	return nil
}

// Close implements Backend.
func (p *Postgres) Close(context.Context) error {
	if p.close != nil {
		p.close()
		p.close = nil
	}
	return nil
}
