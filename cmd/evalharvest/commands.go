package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/urfave/cli/v3"

	service "github.com/okian/evalharvest/internal/app"
	"github.com/okian/evalharvest/internal/domain/model"
	"github.com/okian/evalharvest/pkg/logger"
)

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List evaluation datasets on the host, one per line",
		Description: `Queries the catalog with --author and --search and prints every dataset
whose author/model pair is not on the --flagged list.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			log := logger.Named(name)

			svc, err := newService(ctx, cfg, newHub(cfg, log), nil, log)
			if err != nil {
				return err
			}
			names, err := svc.Sources(ctx, cfg.Author, cfg.Search)
			if err != nil {
				return fmt.Errorf("list %s: %w", cfg.Author, err)
			}

			w := bufio.NewWriter(cmd.Root().Writer)
			for _, n := range names {
				_, _ = fmt.Fprintln(w, n)
			}
			return w.Flush()
		},
	}
}

func snapshotsCmd() *cli.Command {
	return &cli.Command{
		Name:  "snapshots",
		Usage: "Print the earliest samples file of every task for datasets read from stdin",
		Description: `Reads one dataset id per line and writes CSV rows of dataset,path,date.
Datasets that cannot be listed are logged and skipped; the exit status is 1
when any was skipped.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			log := logger.Named(name)

			datasets, err := readLines(cmd.Root().Reader)
			if err != nil {
				return fmt.Errorf("read datasets: %w", err)
			}
			svc, err := newService(ctx, cfg, newHub(cfg, log), nil, log)
			if err != nil {
				return err
			}
			stop := serveOps(ctx, cfg, svc, log)
			defer stop()

			w := csv.NewWriter(cmd.Root().Writer)
			if err := w.Write([]string{"dataset", "path", "date"}); err != nil {
				return err
			}
			report, err := svc.ListSamples(ctx, datasets, func(samples []service.Sample) error {
				for _, s := range samples {
					if err := w.Write([]string{s.Dataset, s.Path, model.FormatDate(s.Date)}); err != nil {
						return err
					}
				}
				w.Flush()
				return w.Error()
			})
			w.Flush()
			if err != nil {
				return err
			}
			return finish(ctx, log, report)
		},
	}
}

func harvestCmd() *cli.Command {
	return &cli.Command{
		Name:  "harvest",
		Usage: "Harvest evaluation records for sources read from stdin",
		Description: `Reads "uri,evaluation" rows, or bare dataset ids combined with --evaluation,
selects the earliest snapshot of each, extracts metric records and writes
those newer than the --corpus to --output.

Failed sources are logged with their error class and attempt count and
skipped; the exit status is 1 when any was skipped. A sink failure stops
the run.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			log := logger.Named(name)

			sources, err := readSources(cmd.Root().Reader, cfg.Evaluation)
			if err != nil {
				return err
			}
			merger, err := loadMerger(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("index corpus %s: %w", cfg.Corpus, err)
			}
			svc, err := newService(ctx, cfg, newHub(cfg, log), merger, log)
			if err != nil {
				return err
			}
			out, err := openSink(ctx, cfg, cmd.Root().Writer, log)
			if err != nil {
				return err
			}
			stop := serveOps(ctx, cfg, svc, log)
			defer stop()

			report, err := svc.Harvest(ctx, sources, out)

			// The remainder is flushed even when the run was interrupted.
			if cerr := out.Close(context.WithoutCancel(ctx)); cerr != nil {
				if err == nil {
					err = cerr
				} else {
					log.Error(ctx, "sink close failed", logger.Error(cerr))
				}
			}
			if err != nil {
				return err
			}
			return finish(ctx, log, report)
		},
	}
}

// finish logs the run summary and converts skipped items into errSkipped.
func finish(ctx context.Context, log logger.Logger, report service.Report) error {
	log.Info(ctx, "run complete",
		logger.Int("submitted", report.Submitted),
		logger.Int("processed", report.Processed),
		logger.Int("skipped", report.Skipped),
		logger.Int("flagged", report.Flagged),
		logger.Int("records", report.Records),
		logger.Int("stale", report.Stale),
		logger.Int("flushes", report.Flushes),
	)
	if !report.OK() {
		return errSkipped
	}
	return nil
}
