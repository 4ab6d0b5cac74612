package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/broker-statement-converter/internal/extractor"
	"github.com/insightdelivered/broker-statement-converter/internal/logger"
	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/insightdelivered/broker-statement-converter/internal/parser"
)

// Sink receives the records of one statement at a time. The driver calls
// it from a single goroutine.
type Sink interface {
	Write(ctx context.Context, records []models.TransactionRecord) error
}

// BalanceSink is implemented by sinks that also store the summary
// figures of a statement. It is called after Write, only for statements
// that have them.
type BalanceSink interface {
	WriteBalances(ctx context.Context, info *models.StatementInfo) error
}

// Driver parses a batch of statement files in parallel and hands the
// records to a sink in input order. It logs to the logger carried by the
// Run context.
type Driver struct {
	Engine  *parser.Engine
	Sink    Sink
	Workers int
	// Broker forces every file to one broker instead of detecting it.
	Broker models.BrokerType
	// Load extracts a file; extractor.Load when nil.
	Load func(path string) (*extractor.Document, error)
}

type result struct {
	index int
	path  string
	info  *models.StatementInfo
	err   error
}

func (d *Driver) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return max(runtime.NumCPU()-1, 1)
}

// Run parses paths and writes their records. A statement that fails is
// recorded in the report and does not stop the batch; the returned error
// is non-nil only when the sink fails or ctx is cancelled.
func (d *Driver) Run(ctx context.Context, paths []string) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := NewReport()
	results := make(chan result)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers())

	var waitErr error
	go func() {
		defer close(results)
		for i, path := range paths {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				res := d.process(gctx, i, path)
				select {
				case results <- res:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		waitErr = g.Wait()
	}()

	var sinkErr error
	pending := make(map[int]result)
	next := 0
	for res := range results {
		pending[res.index] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			report.Add(r.path, r.info, r.err)
			if r.err != nil || sinkErr != nil || d.Sink == nil {
				continue
			}
			if err := d.write(ctx, r.info); err != nil {
				sinkErr = fmt.Errorf("writing records of %s: %w", r.path, err)
				cancel()
			}
		}
	}
	report.Finish()

	if sinkErr != nil {
		return report, sinkErr
	}
	if waitErr != nil {
		return report, waitErr
	}
	return report, ctx.Err()
}

func (d *Driver) write(ctx context.Context, info *models.StatementInfo) error {
	if err := d.Sink.Write(ctx, info.Transactions); err != nil {
		return err
	}
	if bs, ok := d.Sink.(BalanceSink); ok && info.Balances != nil {
		return bs.WriteBalances(ctx, info)
	}
	return nil
}

// process runs one statement end to end. Errors are returned as
// *parser.StatementError.
func (d *Driver) process(ctx context.Context, index int, path string) result {
	res := result{index: index, path: path}
	id := uuid.NewString()
	log := logger.FromContext(ctx).With().Str("statement", id).Str("file", filepath.Base(path)).Logger()

	fail := func(broker models.BrokerType, err error) result {
		var se *parser.StatementError
		if !errors.As(err, &se) {
			err = &parser.StatementError{Broker: broker, StatementID: id, Err: err}
		}
		log.Error().Err(err).Msg("statement failed")
		res.err = err
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(d.Broker, err)
	}

	load := d.Load
	if load == nil {
		load = extractor.Load
	}
	doc, err := load(path)
	if err != nil {
		return fail(d.Broker, err)
	}

	start := time.Now()
	info, err := ParseDocument(d.Engine, id, doc, d.Broker)
	if err != nil {
		return fail(d.Broker, err)
	}

	log.Info().
		Str("broker", string(info.Broker)).
		Int("records", len(info.Transactions)).
		Int("degraded", info.Count(models.OutcomeDegraded)).
		Int("suppressed", info.Count(models.OutcomeSuppressed)).
		Dur("elapsed", time.Since(start)).
		Msg("statement parsed")
	res.info = info
	return res
}

// ParseDocument parses one extracted statement. The broker is detected
// from the file name and text when it is empty. Failures are returned as
// *parser.StatementError.
func ParseDocument(engine *parser.Engine, id string, doc *extractor.Document, broker models.BrokerType) (*models.StatementInfo, error) {
	var err error
	if broker == "" {
		if broker, err = parser.Detect(doc.Path, doc.Text()); err != nil {
			return nil, &parser.StatementError{StatementID: id, Err: err}
		}
	}
	p, err := parser.New(broker, engine)
	if err != nil {
		return nil, &parser.StatementError{Broker: broker, StatementID: id, Err: err}
	}

	st := parser.Statement{ID: id, Path: doc.Path, Broker: broker}
	if doc.IsTabular() {
		st.Lines = parser.FromRows(id, broker, doc.Header, doc.Rows)
	} else {
		st.Lines = parser.FromPages(id, broker, doc.Pages)
	}
	if hint, ok := parser.DateHintFromName(doc.Path); ok {
		st.DateHint = hint
	}
	return p.Parse(st)
}

// Discover lists the statement files under dir, sorted by path.
func Discover(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			if path != dir && strings.HasPrefix(e.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasPrefix(e.Name(), ".") && extractor.IsStatementFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
