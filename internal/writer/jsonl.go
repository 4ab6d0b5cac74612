package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

// JSONLSink writes one JSON object per record.
type JSONLSink struct {
	enc *json.Encoder
}

func NewJSONLSink(out io.Writer) *JSONLSink {
	return &JSONLSink{enc: json.NewEncoder(out)}
}

func (s *JSONLSink) Write(_ context.Context, records []models.TransactionRecord) error {
	for _, rec := range records {
		if err := s.enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return nil
}

func (s *JSONLSink) Close() error { return nil }
