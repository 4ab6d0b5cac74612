package cli

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/broker-statement-converter/internal/config"
)

const cathayCSV = "股名,股票代號,日期,成交股數,成交價,成本,手續費,交易稅,淨收付金額,委託書號,買賣別\n" +
	`台積電,2330,2024/01/15,"1,000",580.00,"580,826",826,0,"-580,826",A0001,現買` + "\n" +
	`鴻海,2317,2024/01/20,"2,000",105.50,"211,000",300,633,"210,067",A0002,現賣` + "\n"

func testApp(t *testing.T) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{StatementsDir: t.TempDir(), Workers: 2, ServerPort: "0"}
	app := NewApp(cfg, zerolog.Nop())
	var stdout, stderr bytes.Buffer
	app.Stdout, app.Stderr = &stdout, &stderr
	return app, &stdout, &stderr
}

// run executes one subcommand with args through a fresh commander.
func run(t *testing.T, app *App, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet("bsc", flag.ContinueOnError)
	c := subcommands.NewCommander(fs, "bsc")
	c.Output, c.Error = app.Stderr, app.Stderr
	Register(c, app)
	require.NoError(t, fs.Parse(args))
	return c.Execute(context.Background())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	app, stdout, _ := testApp(t)
	assert.Equal(t, subcommands.ExitSuccess, run(t, app, "version"))
	assert.Contains(t, stdout.String(), "broker-statement-converter v")
}

func TestParseCommand(t *testing.T) {
	app, _, stderr := testApp(t)
	input := writeFile(t, t.TempDir(), "trades.csv", cathayCSV)

	status := run(t, app, "parse", input)
	require.Equal(t, subcommands.ExitSuccess, status, stderr.String())

	out, err := os.ReadFile(outputPath(input, "csv"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "# Broker,CATHAY")
	assert.Contains(t, stderr.String(), "Found 2 transaction(s)")
}

func TestParseCommand_JSONLToStdout(t *testing.T) {
	app, stdout, stderr := testApp(t)
	input := writeFile(t, t.TempDir(), "trades.csv", cathayCSV)

	status := run(t, app, "parse", "-format", "jsonl", "-output", "-", input)
	require.Equal(t, subcommands.ExitSuccess, status, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"transactionType":"BUY"`)
}

func TestParseCommand_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"parse"}},
		{"output with many inputs", []string{"parse", "-output", "x.csv", "a.pdf", "b.pdf"}},
		{"bad format", []string{"parse", "-format", "xml", "a.pdf"}},
		{"bad broker", []string{"parse", "-broker", "fidelity", "a.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := testApp(t)
			assert.Equal(t, subcommands.ExitUsageError, run(t, app, tt.args...))
		})
	}
}

func TestParseCommand_FailedStatement(t *testing.T) {
	app, _, stderr := testApp(t)
	input := writeFile(t, t.TempDir(), "notes.pdf", "not a pdf")

	assert.Equal(t, subcommands.ExitFailure, run(t, app, "parse", input))
	assert.Contains(t, stderr.String(), "Error processing")
}

func TestIngestCommand(t *testing.T) {
	app, _, stderr := testApp(t)
	dir := app.Config.StatementsDir
	writeFile(t, dir, "a.csv", cathayCSV)
	writeFile(t, dir, "b.csv", cathayCSV)
	writeFile(t, dir, "broken.csv", "")

	outDir := t.TempDir()
	output := filepath.Join(outDir, "all.jsonl")
	report := filepath.Join(outDir, "report.json")

	status := run(t, app, "ingest", "-format", "jsonl", "-output", output, "-report", report)
	require.Equal(t, subcommands.ExitSuccess, status, stderr.String())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 4)

	summary, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(summary), `"CATHAY"`)
	assert.Contains(t, stderr.String(), "3 processed, 1 failed")
}

func TestIngestCommand_Empty(t *testing.T) {
	app, _, stderr := testApp(t)
	assert.Equal(t, subcommands.ExitFailure, run(t, app, "ingest"))
	assert.Contains(t, stderr.String(), "No statements found")
}

func TestOpenSink_UnknownFormat(t *testing.T) {
	app, _, _ := testApp(t)
	_, err := app.openSink(context.Background(), "xml", "-")
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "dir/Brokerage Statement_2024-01-31_088.csv", outputPath("dir/Brokerage Statement_2024-01-31_088.pdf", "csv"))
	assert.Equal(t, "trades.jsonl", outputPath("trades.csv", "jsonl"))
}

func TestCompletion(t *testing.T) {
	cmd := Completion()
	for _, name := range []string{"parse", "ingest", "serve", "version"} {
		assert.Contains(t, cmd.Sub, name)
	}
	assert.Contains(t, cmd.Sub["ingest"].Flags, "pretty")
}
