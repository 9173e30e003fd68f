package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/config"
	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// sourceName is sent in the "source" header of every message.
const sourceName = "mdf-consolidate"

// Writer publishes consolidated records to a Kafka topic.
// It implements pipeline.RecordSink.
type Writer struct {
	writer    *kafkago.Writer
	batchSize int
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured record topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	batchSize := max(cfg.BatchSize, 1)
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchSize:              batchSize,
		BatchTimeout:           cfg.BatchFlushInterval,
		AllowAutoTopicCreation: true,
	}
	return &Writer{
		writer:    w,
		batchSize: batchSize,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
	}
}

// Name identifies the sink in logs.
func (w *Writer) Name() string {
	return "kafka:" + w.writer.Topic
}

// Write publishes the whole table in batches.
func (w *Writer) Write(ctx context.Context, table domain.Table) error {
	consolidatedAt := w.clock.Now()
	for start := 0; start < len(table.Records); start += w.batchSize {
		end := min(start+w.batchSize, len(table.Records))
		if err := w.loadBatch(ctx, table.Records[start:end], consolidatedAt); err != nil {
			return fmt.Errorf("publish records %d-%d: %w", start, end-1, err)
		}
	}
	w.logger.Info("records published", "topic", w.writer.Topic, "count", len(table.Records))
	return nil
}

// LoadBatch serializes and publishes records in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, records []domain.Record) error {
	return w.loadBatch(ctx, records, w.clock.Now())
}

func (w *Writer) loadBatch(ctx context.Context, records []domain.Record, consolidatedAt time.Time) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], consolidatedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// recordMessage is the JSON shape of a published record.
type recordMessage struct {
	ID             string            `json:"id"`
	Values         map[string]string `json:"values"`
	DeathDate      string            `json:"death_date,omitempty"`
	BirthDate      string            `json:"birth_date,omitempty"`
	AgeAtDeathDays *int              `json:"age_at_death_days,omitempty"`
}

func newRecordMessage(r domain.Record) recordMessage {
	msg := recordMessage{ID: r.ID(), Values: r.Values}
	if r.DeathDate != nil {
		msg.DeathDate = r.DeathDate.Format(time.DateOnly)
	}
	if r.BirthDate != nil {
		msg.BirthDate = r.BirthDate.Format(time.DateOnly)
	}
	if days, ok := r.AgeDays(); ok {
		msg.AgeAtDeathDays = &days
	}
	return msg
}

// serializeToMessage marshals a Record into a Kafka message keyed by its
// primary identifier.
func serializeToMessage(record domain.Record, consolidatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(newRecordMessage(record))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %s: %w", record.ID(), err)
	}
	return kafkago.Message{
		Key:   []byte(record.ID()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(sourceName)},
			{Key: "consolidated_at", Value: []byte(consolidatedAt.Format(time.RFC3339))},
		},
	}, nil
}
