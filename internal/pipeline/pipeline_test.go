package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"github.com/couchcryptid/mdf-dashboard/internal/observability"
	"github.com/couchcryptid/mdf-dashboard/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSource struct {
	table domain.RawTable
	err   error
}

func (m *mockSource) Read(_ context.Context) (domain.RawTable, error) {
	return m.table, m.err
}

type mockSink struct {
	name    string
	err     error
	written []domain.Table
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Write(_ context.Context, table domain.Table) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, table)
	return nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testColumns = []string{
	domain.ColPrimaryID,
	domain.ColDeathYear, domain.ColDeathMonth, domain.ColDeathDay,
	domain.ColBirthYear, domain.ColBirthMonth, domain.ColBirthDay,
}

func rawRow(line int, values ...string) domain.RawRecord {
	m := make(map[string]string, len(values))
	for i, v := range values {
		m[testColumns[i]] = v
	}
	return domain.RawRecord{Source: "lot.csv", Line: line, Values: m}
}

func sampleRaw() domain.RawTable {
	return domain.RawTable{
		Columns: testColumns,
		Rows: []domain.RawRecord{
			rawRow(2, "A", "1916", "2", "21", "1890", "2", "21"),
			rawRow(3, "B", "1915", "9", "25", "", "", ""),
			rawRow(4, "A", "", "", "", "", "", ""),
			rawRow(5, "C", "1918", "7", "15", "1918", "8", "1"),
		},
		Malformed: 2,
	}
}

// --- tests ---

func TestConsolidator_Run_HappyPath(t *testing.T) {
	src := &mockSource{table: sampleRaw()}
	csvSink := &mockSink{name: "csv"}
	kafkaSink := &mockSink{name: "kafka"}
	metrics := newTestMetrics()

	c := pipeline.NewConsolidator(src, []pipeline.RecordSink{csvSink, kafkaSink}, discardLogger(), metrics)
	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	want := pipeline.Summary{
		RawRows:           4,
		Malformed:         2,
		Duplicates:        1,
		Written:           3,
		MissingBirthDates: 1,
		NegativeAges:      1,
	}
	if diff := cmp.Diff(want, summary, cmpopts.IgnoreFields(pipeline.Summary{}, "Duration")); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, csvSink.written, 1)
	require.Len(t, kafkaSink.written, 1)
	assert.Equal(t, csvSink.written[0], kafkaSink.written[0], "every sink sees the same table")

	ids := make([]string, 0, 3)
	for _, r := range csvSink.written[0].Records {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"A", "C", "B"}, ids)

	assert.InDelta(t, 4, testutil.ToFloat64(metrics.ConsolidationRows.WithLabelValues("read")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ConsolidationRows.WithLabelValues("malformed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ConsolidationRows.WithLabelValues("duplicate")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.ConsolidationRows.WithLabelValues("written")), 0)
}

func TestConsolidator_Run_SourceErrorWritesNothing(t *testing.T) {
	src := &mockSource{err: errors.New("lot3.csv: permission denied")}
	sink := &mockSink{name: "csv"}

	c := pipeline.NewConsolidator(src, []pipeline.RecordSink{sink}, discardLogger(), newTestMetrics())
	_, err := c.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Empty(t, sink.written)
}

func TestConsolidator_Run_SinkErrorStopsLaterSinks(t *testing.T) {
	src := &mockSource{table: sampleRaw()}
	failing := &mockSink{name: "csv", err: errors.New("disk full")}
	later := &mockSink{name: "kafka"}

	c := pipeline.NewConsolidator(src, []pipeline.RecordSink{failing, later}, discardLogger(), newTestMetrics())
	summary, err := c.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "write csv")
	assert.Empty(t, later.written)
	assert.Equal(t, 3, summary.Written)
}

func TestConsolidator_Run_NoSinks(t *testing.T) {
	c := pipeline.NewConsolidator(&mockSource{}, nil, discardLogger(), newTestMetrics())
	_, err := c.Run(context.Background())
	assert.Error(t, err)
}

func TestSummary_LogValue(t *testing.T) {
	v := pipeline.Summary{RawRows: 10, Written: 7}.LogValue()

	require.Equal(t, slog.KindGroup, v.Kind())
	attrs := v.Group()
	require.NotEmpty(t, attrs)
	assert.Equal(t, "raw_rows", attrs[0].Key)
	assert.Equal(t, int64(10), attrs[0].Value.Int64())
}
