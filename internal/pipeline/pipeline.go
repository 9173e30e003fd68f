package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"github.com/couchcryptid/mdf-dashboard/internal/observability"
)

// RecordSource reads every raw annotation row.
type RecordSource interface {
	Read(ctx context.Context) (domain.RawTable, error)
}

// RecordSink writes the consolidated table to a destination.
type RecordSink interface {
	Name() string
	Write(ctx context.Context, table domain.Table) error
}

// Summary reports what one consolidation run did.
type Summary struct {
	RawRows           int
	Malformed         int
	Duplicates        int
	Written           int
	MissingDeathDates int
	MissingBirthDates int
	NegativeAges      int
	Duration          time.Duration
}

// LogValue renders the summary as a single structured log attribute.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("raw_rows", s.RawRows),
		slog.Int("malformed", s.Malformed),
		slog.Int("duplicates", s.Duplicates),
		slog.Int("written", s.Written),
		slog.Int("missing_death_dates", s.MissingDeathDates),
		slog.Int("missing_birth_dates", s.MissingBirthDates),
		slog.Int("negative_ages", s.NegativeAges),
		slog.Duration("duration", s.Duration),
	)
}

// Consolidator runs the read, consolidate, write sequence once.
type Consolidator struct {
	source  RecordSource
	sinks   []RecordSink
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewConsolidator creates a Consolidator. Sinks are written in order; the
// first failing sink stops the run.
func NewConsolidator(source RecordSource, sinks []RecordSink, logger *slog.Logger, metrics *observability.Metrics) *Consolidator {
	return &Consolidator{
		source:  source,
		sinks:   sinks,
		logger:  logger,
		metrics: metrics,
	}
}

// Run consolidates the source into every sink. A source error aborts before
// any sink is touched, so no partial output is produced.
func (c *Consolidator) Run(ctx context.Context) (Summary, error) {
	if len(c.sinks) == 0 {
		return Summary{}, errors.New("consolidator has no sinks")
	}
	start := time.Now()
	c.logger.Info("consolidation started", "sinks", len(c.sinks))

	raw, err := c.source.Read(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read raw records: %w", err)
	}
	if raw.Malformed > 0 {
		c.logger.Warn("malformed rows dropped", "count", raw.Malformed)
	}

	table := domain.Consolidate(raw)
	summary := summarize(raw, table)

	for _, sink := range c.sinks {
		if err := sink.Write(ctx, table); err != nil {
			return summary, fmt.Errorf("write %s: %w", sink.Name(), err)
		}
		c.logger.Info("consolidated records written", "sink", sink.Name(), "records", len(table.Records))
	}

	summary.Duration = time.Since(start)
	c.record(summary)
	c.logger.Info("consolidation finished", "summary", summary)
	return summary, nil
}

func (c *Consolidator) record(s Summary) {
	c.metrics.ConsolidationRows.WithLabelValues("read").Add(float64(s.RawRows))
	c.metrics.ConsolidationRows.WithLabelValues("malformed").Add(float64(s.Malformed))
	c.metrics.ConsolidationRows.WithLabelValues("duplicate").Add(float64(s.Duplicates))
	c.metrics.ConsolidationRows.WithLabelValues("written").Add(float64(s.Written))
}

func summarize(raw domain.RawTable, table domain.Table) Summary {
	s := Summary{
		RawRows:    len(raw.Rows),
		Malformed:  raw.Malformed,
		Duplicates: len(raw.Rows) - len(table.Records),
		Written:    len(table.Records),
	}
	for i := range table.Records {
		r := &table.Records[i]
		if r.DeathDate == nil {
			s.MissingDeathDates++
		}
		if r.BirthDate == nil {
			s.MissingBirthDates++
		}
		if r.AgeAtDeath != nil && *r.AgeAtDeath < 0 {
			s.NegativeAges++
		}
	}
	return s
}
