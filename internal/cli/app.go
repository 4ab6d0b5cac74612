// Package cli implements the bsc subcommands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/broker-statement-converter/internal/config"
	"github.com/insightdelivered/broker-statement-converter/internal/ingest"
	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/insightdelivered/broker-statement-converter/internal/parser"
	"github.com/insightdelivered/broker-statement-converter/internal/store"
	"github.com/insightdelivered/broker-statement-converter/internal/writer"
)

// App is shared by every subcommand. As a CLI it lives for one command, so
// the engine is built once at start-up.
type App struct {
	Config *config.Config
	Log    zerolog.Logger
	Engine *parser.Engine
	Stdout io.Writer
	// Stderr receives progress output, keeping Stdout for records.
	Stderr io.Writer
}

// NewApp builds the parser engine from cfg.
func NewApp(cfg *config.Config, log zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Log:    log,
		Engine: parser.NewEngine(cfg.Parser(), log),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Register adds the subcommands to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(&versionCmd{app: app}, "")

	c.Register(&parseCmd{app: app}, "statements")
	c.Register(&ingestCmd{app: app}, "statements")
	c.Register(&serveCmd{app: app}, "server")
}

// recordSink is an ingest sink that must be closed.
type recordSink interface {
	ingest.Sink
	Close() error
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openSink opens the sink for format. output "-" or "" is stdout; postgres
// ignores output and uses DATABASE_URL.
func (a *App) openSink(ctx context.Context, format, output string) (recordSink, error) {
	if format == "postgres" {
		s, err := store.Open(ctx, a.Config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	}

	var w io.WriteCloser = nopCloser{a.Stdout}
	if output != "" && output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %q: %w", output, err)
		}
		w = f
	}

	switch format {
	case "csv":
		return &closingSink{recordSink: writer.NewCSVSink(w), file: w}, nil
	case "jsonl":
		return &closingSink{recordSink: writer.NewJSONLSink(w), file: w}, nil
	}
	w.Close()
	return nil, fmt.Errorf("unknown format %q (supported: csv, jsonl, postgres)", format)
}

// closingSink closes the underlying file after the sink.
type closingSink struct {
	recordSink
	file io.Closer
}

func (s *closingSink) Close() error {
	err := s.recordSink.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// outputPath derives the output file for input: same name, new extension.
func outputPath(input, format string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "." + format
}

func parseBroker(s string) (models.BrokerType, error) {
	if s == "" {
		return "", nil
	}
	return models.ParseBrokerType(s)
}
