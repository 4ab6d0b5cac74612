package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/insightdelivered/broker-statement-converter/internal/ingest"
)

type ingestCmd struct {
	app     *App
	dir     string
	workers int
	broker  string
	format  string
	output  string
	report  string
	pretty  bool
}

func (*ingestCmd) Name() string { return "ingest" }
func (*ingestCmd) Synopsis() string {
	return "parse a directory of statements in parallel into one output"
}
func (*ingestCmd) Usage() string {
	return `bsc ingest [-dir <dir>] [-workers <n>] [-format <csv|jsonl|postgres>] [-output <file>] [-report <file>] [-pretty] [statement ...]

  Parses every PDF and CSV statement under -dir (or the files given as
  arguments) and writes all records to one sink. A statement that fails is
  reported and skipped. The run summary is printed at the end, written as
  JSON to -report, and rendered for the terminal with -pretty.

  -format postgres copies records into DATABASE_URL.
`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", c.app.Config.StatementsDir, "Directory of statements")
	f.IntVar(&c.workers, "workers", c.app.Config.Workers, "Number of statements parsed in parallel")
	f.StringVar(&c.broker, "broker", "", "Force one broker for every file: schwab, tda, cathay")
	f.StringVar(&c.format, "format", "csv", "Output format: csv, jsonl or postgres")
	f.StringVar(&c.output, "output", "", `Output file, "-" for stdout (default transactions.<format>)`)
	f.StringVar(&c.report, "report", "", "Write the run summary as JSON to this file")
	f.BoolVar(&c.pretty, "pretty", false, "Render the run summary as formatted markdown")
}

func (c *ingestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	broker, err := parseBroker(c.broker)
	if err != nil {
		fmt.Fprintln(c.app.Stderr, err)
		return subcommands.ExitUsageError
	}

	paths := f.Args()
	if len(paths) == 0 {
		if paths, err = ingest.Discover(c.dir); err != nil {
			fmt.Fprintf(c.app.Stderr, "Error listing %s: %v\n", c.dir, err)
			return subcommands.ExitFailure
		}
	}
	if len(paths) == 0 {
		fmt.Fprintf(c.app.Stderr, "No statements found in %s\n", c.dir)
		return subcommands.ExitFailure
	}

	output := c.output
	if output == "" {
		output = "transactions." + c.format
	}
	sink, err := c.app.openSink(ctx, c.format, output)
	if err != nil {
		fmt.Fprintln(c.app.Stderr, err)
		return subcommands.ExitFailure
	}

	d := &ingest.Driver{
		Engine:  c.app.Engine,
		Sink:    sink,
		Workers: c.workers,
		Broker:  broker,
	}
	c.app.Log.Info().Int("statements", len(paths)).Int("workers", c.workers).Str("format", c.format).Msg("ingest started")

	report, runErr := d.Run(ctx, paths)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = err
	}

	if err := c.printReport(report); err != nil {
		fmt.Fprintln(c.app.Stderr, err)
		return subcommands.ExitFailure
	}
	if runErr != nil {
		fmt.Fprintf(c.app.Stderr, "Ingest aborted: %v\n", runErr)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *ingestCmd) printReport(report *ingest.Report) error {
	if c.report != "" {
		f, err := os.Create(c.report)
		if err != nil {
			return fmt.Errorf("failed to create report %q: %w", c.report, err)
		}
		defer f.Close()
		if err := report.WriteJSON(f); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	md := report.Markdown()
	if c.pretty {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			return err
		}
		if md, err = r.Render(md); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(c.app.Stderr, md)
	return err
}
