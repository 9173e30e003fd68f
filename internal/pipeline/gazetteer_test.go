package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"github.com/couchcryptid/mdf-dashboard/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapGeocoder struct {
	results map[string]domain.GeocodingResult
	errs    map[string]error
	calls   []string
}

func (m *mapGeocoder) ForwardGeocode(_ context.Context, place, _ string) (domain.GeocodingResult, error) {
	m.calls = append(m.calls, place)
	if err, ok := m.errs[place]; ok {
		return domain.GeocodingResult{}, err
	}
	return m.results[place], nil
}

func placed(id, country, place string) domain.Record {
	return domain.Record{Values: map[string]string{
		domain.ColPrimaryID: id,
		domain.ColCountry:   country,
		domain.ColPlace:     place,
	}}
}

func TestGazetteerBuilder_Run(t *testing.T) {
	records := []domain.Record{
		placed("1", "France", "Verdun"),
		placed("2", "France", "Souchez"),
		placed("3", "France", "Souchez"),
		placed("4", "France", "Nulle-Part"),
		placed("5", "France", "Tahure"),
		placed("6", "France", "Bapaume"),
		placed("7", "Belgique", "Ypres"),
		placed("8", "France", ""),
	}
	known := domain.Gazetteer{"Verdun": {Lat: 49.1598, Lon: 5.3844}}
	geocoder := &mapGeocoder{
		results: map[string]domain.GeocodingResult{
			"Souchez": {Lat: 50.3925, Lon: 2.7436, Confidence: 0.9},
			"Bapaume": {Lat: 50.1036, Lon: 2.8503, Confidence: 0.2},
		},
		errs: map[string]error{"Tahure": errors.New("status 500")},
	}

	b := pipeline.NewGazetteerBuilder(geocoder, "France", discardLogger())
	got, summary, err := b.Run(context.Background(), records, known)
	require.NoError(t, err)

	want := domain.Gazetteer{
		"Verdun":  {Lat: 49.1598, Lon: 5.3844},
		"Souchez": {Lat: 50.3925, Lon: 2.7436},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("gazetteer mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, pipeline.GeocodeSummary{Known: 1, Pending: 4, Resolved: 1, Failed: 3}, summary)
	assert.Equal(t, []string{"Bapaume", "Nulle-Part", "Souchez", "Tahure"}, geocoder.calls)
	assert.Len(t, known, 1, "the input gazetteer is not modified")
}

func TestGazetteerBuilder_Run_StopsOnCancel(t *testing.T) {
	records := []domain.Record{placed("1", "France", "Verdun")}
	geocoder := &mapGeocoder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := pipeline.NewGazetteerBuilder(geocoder, "France", discardLogger())
	_, _, err := b.Run(ctx, records, domain.Gazetteer{})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, geocoder.calls)
}
