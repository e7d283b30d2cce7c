package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/okian/evalharvest/internal/adapters/tabular"
	"github.com/okian/evalharvest/internal/domain/model"
	"github.com/okian/evalharvest/internal/domain/numbering"
	"github.com/okian/evalharvest/pkg/logger"
)

var errNoCorpus = errors.New("merge needs --corpus")

// eachRecord decodes a CSV record stream and calls fn for every record. An
// empty stream has no records.
func eachRecord(r io.Reader, fn func(rec *model.EvaluationRecord) error) (int, error) {
	tr, err := tabular.NewReader(r)
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n := 0
	for {
		rec, err := tr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := fn(&rec); err != nil {
			return n, err
		}
		n++
	}
}

func mergeCmd() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Drop records from stdin that the corpus already holds a newer or equal submission for",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			if cfg.Corpus == "" {
				return errNoCorpus
			}
			log := logger.Named(name)

			merger, err := loadMerger(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("index corpus %s: %w", cfg.Corpus, err)
			}

			w := tabular.NewWriter(cmd.Root().Writer)
			kept := 0
			read, err := eachRecord(cmd.Root().Reader, func(rec *model.EvaluationRecord) error {
				if !merger.Pass(rec) {
					return nil
				}
				kept++
				return w.Write(rec)
			})
			if ferr := w.Flush(); err == nil {
				err = ferr
			}
			if err != nil {
				return err
			}
			log.Info(ctx, "merge complete", logger.Int("read", read), logger.Int("kept", kept), logger.Int("stale", read-kept))
			return nil
		},
	}
}

func storeCmd() *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Copy a record stream from stdin into --output",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			log := logger.Named(name)

			out, err := openSink(ctx, cfg, cmd.Root().Writer, log)
			if err != nil {
				return err
			}
			read, err := eachRecord(cmd.Root().Reader, func(rec *model.EvaluationRecord) error {
				_, err := out.Write(ctx, *rec)
				return err
			})
			if cerr := out.Close(context.WithoutCancel(ctx)); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			log.Info(ctx, "store complete", logger.Int("records", read), logger.String("backend", out.Backend()))
			return nil
		},
	}
}

func numberCmd() *cli.Command {
	return &cli.Command{
		Name:  "number",
		Usage: "Append dense document and author/model ids to a record stream",
		Description: `Ids are assigned in first-seen order over the whole stream, so this
must run as a single writer after the merge.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := loadConfig(ctx, cmd); err != nil {
				return err
			}
			log := logger.Named(name)

			ids := numbering.New()
			w := tabular.NewWriter(cmd.Root().Writer, numbering.DocumentColumn, numbering.AuthorModelColumn)
			read, err := eachRecord(cmd.Root().Reader, func(rec *model.EvaluationRecord) error {
				doc, pair := ids.Number(rec)
				return w.WriteWith(rec, strconv.Itoa(doc), strconv.Itoa(pair))
			})
			if ferr := w.Flush(); err == nil {
				err = ferr
			}
			if err != nil {
				return err
			}
			log.Info(ctx, "numbering complete",
				logger.Int("records", read),
				logger.Int("documents", ids.Documents()),
				logger.Int("pairs", ids.Pairs()),
			)
			return nil
		},
	}
}
