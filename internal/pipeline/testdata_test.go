package pipeline_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/mdf-dashboard/internal/adapter/csvstore"
	"github.com/couchcryptid/mdf-dashboard/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConsolidator_WithRawExports runs the whole consolidation over the
// latin-1 fixtures in testdata/raw and reads the result back.
func TestConsolidator_WithRawExports(t *testing.T) {
	out := filepath.Join(t.TempDir(), "processed", "mdf_df.csv")
	src := csvstore.RawSource{Pattern: filepath.Join("testdata", "raw", "*.csv")}
	sink := csvstore.TableSink{Path: out}

	c := pipeline.NewConsolidator(src, []pipeline.RecordSink{sink}, discardLogger(), newTestMetrics())
	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.RawRows)
	assert.Equal(t, 1, summary.Malformed)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 4, summary.Written)
	assert.Equal(t, 1, summary.MissingDeathDates, "31 April is not a date")
	assert.Zero(t, summary.MissingBirthDates)
	assert.Equal(t, 1, summary.NegativeAges)

	table, err := csvstore.ReadTable(out)
	require.NoError(t, err)
	require.Len(t, table.Records, 4)

	byID := make(map[string]int, len(table.Records))
	ids := make([]string, 0, len(table.Records))
	for i, r := range table.Records {
		byID[r.ID()] = i
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"m001", "m003", "m002", "m005"}, ids)

	martin := table.Records[byID["m001"]]
	assert.Equal(t, "Soldat", martin.Rank(), "the complete duplicate wins")
	require.NotNil(t, martin.DeathDate)
	assert.Equal(t, "1916-02-21", martin.DeathDate.Format("2006-01-02"))

	dupre := table.Records[byID["m002"]]
	assert.Equal(t, "Dupré", dupre.LastName())
	assert.Equal(t, "Sergent", dupre.Rank(), "the later, more complete row wins")
	require.NotNil(t, dupre.BirthDate)
	assert.Equal(t, "1888-03-03", dupre.BirthDate.Format("2006-01-02"))

	lefevre := table.Records[byID["m003"]]
	assert.Equal(t, "Émile", lefevre.FirstName())
	assert.Nil(t, lefevre.DeathDate)
	assert.Nil(t, lefevre.AgeAtDeath)

	days, ok := table.Records[byID["m005"]].AgeDays()
	require.True(t, ok)
	assert.Equal(t, -17, days)
}
