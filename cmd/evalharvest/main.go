// Command evalharvest harvests model evaluation records from a dataset host,
// keeps only the freshest submission per model and persists them to a flat
// file corpus, an object store or a SQL table.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/okian/evalharvest/pkg/logger"
)

const name = "evalharvest"

// overridden during build with ldflags
var version = "dev" //nolint:gochecknoglobals // build metadata

// errSkipped marks a run that completed but left items behind. The items
// themselves were already logged.
var errSkipped = errors.New("one or more items were skipped")

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and maps the outcome to an exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		_, _ = fmt.Fprintln(stderr, "failed to initialize logging:", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	root := rootCmd()
	root.Reader = stdin
	root.Writer = stdout
	root.ErrWriter = stderr

	if err := root.Run(ctx, args); err != nil {
		status := color.New(color.FgRed, color.Bold).SprintFunc()
		if errors.Is(err, errSkipped) {
			status = color.New(color.FgYellow, color.Bold).SprintFunc()
		}
		_, _ = fmt.Fprintln(stderr, status(name+":"), err)
		return 1
	}
	return 0
}

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Harvest, deduplicate and persist model evaluation records",
		Version: version,
		Description: `Pipeline stages read from stdin and write to stdout so they can be chained:

  evalharvest list --author open-llm-leaderboard > sources.txt
  evalharvest harvest --evaluation harness_arc_challenge_25 --output corpus/ < sources.txt
  evalharvest number < merged.csv > numbered.csv

Settings are layered: defaults, the YAML file named by HARVEST_CONFIG,
HARVEST_* environment variables, then the flags below.`,
		Flags: globalFlags(),
		// Errors are reported by run; never exit from inside the library.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			listCmd(),
			snapshotsCmd(),
			harvestCmd(),
			mergeCmd(),
			storeCmd(),
			numberCmd(),
		},
	}
}
