package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/insightdelivered/broker-statement-converter/internal/extractor"
	"github.com/insightdelivered/broker-statement-converter/internal/ingest"
	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/insightdelivered/broker-statement-converter/internal/writer"
)

type parseCmd struct {
	app    *App
	broker string
	format string
	output string
	header bool
}

func (*parseCmd) Name() string     { return "parse" }
func (*parseCmd) Synopsis() string { return "convert statements to CSV or JSONL, one output per input" }
func (*parseCmd) Usage() string {
	return `bsc parse [-broker <schwab|tda|cathay>] [-format <csv|jsonl>] [-output <file>] <statement> [statement ...]

  Converts each statement into an output file next to it, named after the
  input with a .csv or .jsonl extension. The broker is detected from the
  file name or content when -broker is omitted. -output is only allowed
  with a single input; use "-" for stdout.

Examples:
  bsc parse "Brokerage Statement_2024-01-31_088.pdf"
  bsc parse -broker tda -format jsonl -output - december.pdf
`
}

func (c *parseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.broker, "broker", "", "Broker: schwab, tda, cathay (auto-detected if omitted)")
	f.StringVar(&c.format, "format", "csv", "Output format: csv or jsonl")
	f.StringVar(&c.output, "output", "", "Output file path (defaults to the input name with the format extension)")
	f.BoolVar(&c.header, "header", true, "Include statement metadata rows in CSV output")
}

func (c *parseCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprint(c.app.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	if c.output != "" && f.NArg() > 1 {
		fmt.Fprintln(c.app.Stderr, "-output needs a single input file")
		return subcommands.ExitUsageError
	}
	if c.format != "csv" && c.format != "jsonl" {
		fmt.Fprintf(c.app.Stderr, "unknown format %q (supported: csv, jsonl)\n", c.format)
		return subcommands.ExitUsageError
	}
	broker, err := parseBroker(c.broker)
	if err != nil {
		fmt.Fprintln(c.app.Stderr, err)
		return subcommands.ExitUsageError
	}

	status := subcommands.ExitSuccess
	for _, input := range f.Args() {
		if err := c.processFile(input, broker); err != nil {
			fmt.Fprintf(c.app.Stderr, "Error processing %s: %v\n", input, err)
			status = subcommands.ExitFailure
		}
	}
	return status
}

func (c *parseCmd) processFile(input string, broker models.BrokerType) error {
	out := c.app.Stderr
	fmt.Fprintf(out, "Processing: %s\n", input)

	doc, err := extractor.Load(input)
	if err != nil {
		return err
	}
	if doc.IsTabular() {
		fmt.Fprintf(out, "  Read %d row(s)\n", len(doc.Rows))
	} else {
		fmt.Fprintf(out, "  Extracted text from %d page(s)\n", len(doc.Pages))
	}

	info, err := ingest.ParseDocument(c.app.Engine, uuid.NewString(), doc, broker)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Broker: %s\n", info.Broker)
	fmt.Fprintf(out, "  Found %d transaction(s), %d flagged for review, %d line(s) suppressed\n",
		len(info.Transactions), info.Count(models.OutcomeDegraded), info.Count(models.OutcomeSuppressed))

	path := c.output
	if path == "" {
		path = outputPath(input, c.format)
	}
	if err := c.write(path, info); err != nil {
		return err
	}
	if path != "-" {
		fmt.Fprintf(out, "  Output: %s\n", path)
	}

	if info.AccountHolder != "" {
		fmt.Fprintf(out, "  Account holder: %s\n", info.AccountHolder)
	}
	if info.AccountID != "" {
		fmt.Fprintf(out, "  Account number: %s\n", info.AccountID)
	}
	if !info.StatementDate.IsZero() {
		fmt.Fprintf(out, "  Statement date: %s\n", info.StatementDate.Format("2006-01-02"))
	}
	fmt.Fprintln(out, "  Done.")
	return nil
}

func (c *parseCmd) write(path string, info *models.StatementInfo) error {
	if c.format == "csv" {
		w := &writer.CSVWriter{IncludeHeader: c.header}
		if path == "-" {
			return w.Write(c.app.Stdout, info)
		}
		return w.WriteToFile(path, info)
	}

	dst := c.app.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file %q: %w", path, err)
		}
		defer f.Close()
		dst = f
	}
	return writer.NewJSONLSink(dst).Write(context.Background(), info.Transactions)
}
