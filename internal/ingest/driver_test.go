package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/broker-statement-converter/internal/extractor"
	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/insightdelivered/broker-statement-converter/internal/parser"
)

const tdaPage = `TD Ameritrade
Statement Reporting Period: 12/01/22 - 12/31/22
Account Number: 123-456789
Account Activity
Trade Date Settle Date Acct Type Transaction/Cash Activity Description Symbol/CUSIP Quantity Price Amount Balance
Opening Balance $ 117,786.71
12/08/22 12/08/22 Cash Div/Int - Income MICROSOFT CORP MSFT - $ 0.00 $ 136.23 117,922.94
12/15/22 12/19/22 Cash Buy - Securities Purchased MICROSOFT CORP MSFT 10 245.50 $ (2,455.00) 115,467.94
12/20/22 12/20/22 Margin Journal - Other FOREIGN TAX WITHHELD $ (20.43) 115,447.51
12/28/22 12/30/22 Cash Sell - Securities Sold APPLE INC AAPL 5 129.93 $ 649.60 116,097.11
Closing Balance $ 116,097.11
Terms and Conditions apply to all accounts`

type memorySink struct {
	mu      sync.Mutex
	batches [][]models.TransactionRecord
	err     error
}

func (s *memorySink) Write(_ context.Context, records []models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, records)
	return nil
}

type balanceSink struct {
	memorySink
	balances []*models.Balances
}

func (s *balanceSink) WriteBalances(_ context.Context, info *models.StatementInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = append(s.balances, info.Balances)
	return nil
}

const tdaSummary = `Account Number: 123-456789
Portfolio Summary
Cash $ 116,097.11
Stocks 118,200.00 120,500.00 50.00% 120,500.00
Total $ 236,597.11`

// fakeLoader serves documents from memory. Files listed in slow take longer
// so later files finish first.
func fakeLoader(docs map[string][]string, slow ...string) func(string) (*extractor.Document, error) {
	return func(path string) (*extractor.Document, error) {
		for _, s := range slow {
			if s == path {
				time.Sleep(50 * time.Millisecond)
			}
		}
		pages, ok := docs[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return &extractor.Document{Path: path, Pages: pages}, nil
	}
}

func TestDriver_Run(t *testing.T) {
	docs := map[string][]string{
		"first_tda.pdf":  {tdaPage},
		"second_tda.pdf": {strings.Replace(tdaPage, "12/08/22 12/08/22", "12/09/22 12/09/22", 1)},
		"unknown.pdf":    {"Monthly newsletter with nothing to parse"},
	}
	paths := []string{"first_tda.pdf", "missing.pdf", "second_tda.pdf", "unknown.pdf"}

	sink := &memorySink{}
	d := &Driver{
		Engine:  parser.DefaultEngine(),
		Sink:    sink,
		Workers: 4,
		Load:    fakeLoader(docs, "first_tda.pdf"),
	}

	report, err := d.Run(context.Background(), paths)
	require.NoError(t, err, "statement failures do not fail the run")

	t.Run("results follow input order", func(t *testing.T) {
		require.Len(t, report.Statements, len(paths))
		for i, p := range paths {
			assert.Equal(t, p, report.Statements[i].Path)
		}
	})

	t.Run("sink receives statements in input order", func(t *testing.T) {
		require.Len(t, sink.batches, 2)
		assert.Equal(t, 8, sink.batches[0][0].Date.Day())
		assert.Equal(t, 9, sink.batches[1][0].Date.Day())
	})

	t.Run("failures are recorded per statement", func(t *testing.T) {
		assert.Equal(t, 2, report.Failed())
		assert.NotEmpty(t, report.Statements[1].Error)
		assert.Contains(t, report.Statements[3].Error, parser.ErrUnknownBroker.Error())
	})

	t.Run("broker summary", func(t *testing.T) {
		tda := report.Brokers[models.BrokerTDA]
		require.NotNil(t, tda)
		assert.Equal(t, 2, tda.Succeeded)
		assert.Equal(t, report.Records(), tda.Records)
		assert.Equal(t, "123-456789", report.Statements[0].AccountID)
	})
}

func TestDriver_ForcedBroker(t *testing.T) {
	d := &Driver{
		Engine: parser.DefaultEngine(),
		Broker: models.BrokerSchwab,
		Load:   fakeLoader(map[string][]string{"statement.pdf": {tdaPage}}),
	}

	report, err := d.Run(context.Background(), []string{"statement.pdf"})
	require.NoError(t, err)
	require.Len(t, report.Statements, 1)

	res := report.Statements[0]
	assert.Equal(t, models.BrokerSchwab, res.Broker)
	assert.Contains(t, res.Error, parser.ErrNoTransactionLines.Error(), "a Schwab parse of a TDA statement finds no transaction section")
	assert.Equal(t, 1, report.Brokers[models.BrokerSchwab].Failed)
}

func TestDriver_SinkFailure(t *testing.T) {
	sinkErr := errors.New("disk full")
	d := &Driver{
		Engine:  parser.DefaultEngine(),
		Sink:    &memorySink{err: sinkErr},
		Workers: 1,
		Load:    fakeLoader(map[string][]string{"a_tda.pdf": {tdaPage}, "b_tda.pdf": {tdaPage}}),
	}

	_, err := d.Run(context.Background(), []string{"a_tda.pdf", "b_tda.pdf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sinkErr))
}

func TestDriver_Balances(t *testing.T) {
	docs := map[string][]string{
		"summary_tda.pdf": {strings.Replace(tdaPage, "Account Number: 123-456789", tdaSummary, 1)},
		"plain_tda.pdf":   {tdaPage},
	}
	sink := &balanceSink{}
	d := &Driver{
		Engine:  parser.DefaultEngine(),
		Sink:    sink,
		Workers: 2,
		Load:    fakeLoader(docs),
	}

	_, err := d.Run(context.Background(), []string{"summary_tda.pdf", "plain_tda.pdf"})
	require.NoError(t, err)

	require.Len(t, sink.batches, 2, "records are written for every statement")
	require.Len(t, sink.balances, 1, "balances are written only when the statement has a summary")
	b := sink.balances[0]
	require.NotNil(t, b.EndingValue)
	assert.Equal(t, "236597.11", b.EndingValue.StringFixed(2))
	assert.Equal(t, "116097.11", b.Cash.StringFixed(2))
	assert.Equal(t, "120500.00", b.Investments.StringFixed(2))
}

func TestDriver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &Driver{Load: fakeLoader(map[string][]string{"a_tda.pdf": {tdaPage}})}
	_, err := d.Run(ctx, []string{"a_tda.pdf"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.pdf", "notes.txt", ".hidden/x.pdf", "2024/d.PDF", ".~lock.pdf"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	got, err := Discover(dir)
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "2024/d.PDF"),
		filepath.Join(dir, "a.pdf"),
		filepath.Join(dir, "b.csv"),
	}
	assert.Equal(t, want, got)
}
