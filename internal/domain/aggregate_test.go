package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func died(on time.Time) Record {
	return Record{Values: map[string]string{}, DeathDate: &on}
}

func located(country, region, place string) Record {
	return Record{Values: map[string]string{
		ColCountry: country,
		ColRegion:  region,
		ColPlace:   place,
	}}
}

func TestWeeklySeries_CountsAndCumulative(t *testing.T) {
	records := []Record{
		// Week closing Sunday 1916-02-27.
		died(date(1916, 2, 21)), died(date(1916, 2, 22)), died(date(1916, 2, 27)),
		// Week closing Sunday 1916-03-05.
		died(date(1916, 2, 28)), died(date(1916, 2, 29)), died(date(1916, 3, 1)),
		died(date(1916, 3, 4)), died(date(1916, 3, 5)),
		// Week closing Sunday 1916-03-12.
		died(date(1916, 3, 6)), died(date(1916, 3, 12)),
		// No death date.
		{Values: map[string]string{}},
	}

	series := WeeklySeries(records)

	require.Len(t, series, 3)
	assert.Equal(t, []WeekCount{
		{Week: date(1916, 2, 27), Count: 3, Cumulative: 3},
		{Week: date(1916, 3, 5), Count: 5, Cumulative: 8},
		{Week: date(1916, 3, 12), Count: 2, Cumulative: 10},
	}, series)
}

func TestWeeklySeries_FillsEmptyWeeks(t *testing.T) {
	series := WeeklySeries([]Record{died(date(1916, 3, 8)), died(date(1916, 2, 21))})

	require.Len(t, series, 3)
	assert.Equal(t, date(1916, 2, 27), series[0].Week)
	assert.Equal(t, 0, series[1].Count)
	assert.Equal(t, 1, series[1].Cumulative)
	assert.Equal(t, 2, series[2].Cumulative)
}

func TestWeeklySeries_SortedUniqueAndRunningSum(t *testing.T) {
	var records []Record
	start := date(1914, 8, 2)
	for i := 0; i < 400; i += 3 {
		records = append(records, died(start.AddDate(0, 0, i)))
	}

	series := WeeklySeries(records)

	sum := 0
	for i, w := range series {
		sum += w.Count
		assert.Equal(t, sum, w.Cumulative)
		assert.Equal(t, time.Sunday, w.Week.Weekday())
		if i > 0 {
			assert.Equal(t, series[i-1].Week.AddDate(0, 0, 7), w.Week)
		}
	}
	assert.Equal(t, len(records), sum)
}

func TestWeeklySeries_IgnoresOutOfRangeDeathYear(t *testing.T) {
	raw := RawTable{Columns: testColumns, Rows: []RawRecord{
		rawRow(2, map[string]string{ColPrimaryID: "X1", ColDeathYear: "1916", ColDeathMonth: "2", ColDeathDay: "21"}),
		rawRow(3, map[string]string{ColPrimaryID: "X2", ColDeathYear: "19166", ColDeathMonth: "2", ColDeathDay: "22"}),
	}}

	series := WeeklySeries(Consolidate(raw).Records)

	require.Len(t, series, 1)
	assert.Equal(t, WeekCount{Week: date(1916, 2, 27), Count: 1, Cumulative: 1}, series[0])
}

func TestWeeklySeries_Empty(t *testing.T) {
	assert.Empty(t, WeeklySeries(nil))
	assert.Empty(t, WeeklySeries([]Record{{Values: map[string]string{}}}))
}

func TestNormalizeRegion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"55 - Meuse", "Meuse"},
		{"2A - Corse-du-Sud", "Corse-du-Sud"},
		{"75 - Seine (ancien département)", "Seine"},
		{"Marne (51)", "Marne"},
		{"  Pas-de-Calais ", "Pas-de-Calais"},
		{"Somme", "Somme"},
		{"(inconnu)", "(inconnu)"},
		{"Haute-Saône (70) (Franche-Comté)", "Haute-Saône"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeRegion(tc.in))
		})
	}
}

func TestRegionTally(t *testing.T) {
	records := []Record{
		located("France", "55 - Meuse", ""),
		located("France", "Meuse (ancien)", ""),
		located("France", "51 - Marne", ""),
		located("France", "80 - Somme", ""),
		located("France", "", ""),
		located("France", "NaN", ""),
		located("Belgique", "Flandre-Occidentale", ""),
	}

	tally := RegionTally(records, "France")

	assert.Equal(t, []RegionCount{
		{Region: "Meuse", Count: 2},
		{Region: "Marne", Count: 1},
		{Region: "Somme", Count: 1},
	}, tally)

	total := 0
	for _, r := range tally {
		total += r.Count
	}
	withRegion := 0
	for _, r := range FilterCountry(records, "France") {
		if r.Region() != "" {
			withRegion++
		}
	}
	assert.Equal(t, withRegion, total)
}

func TestPlaceTally_DropsUngeocodedPlaces(t *testing.T) {
	records := []Record{
		located("France", "", "Verdun"),
		located("France", "", "Verdun"),
		located("France", "", "Douaumont"),
		located("France", "", "Lieu inconnu"),
		located("France", "", ""),
		located("Belgique", "", "Ypres"),
	}
	gazetteer := Gazetteer{
		"Verdun":    {Lat: 49.16, Lon: 5.38},
		"Douaumont": {Lat: 49.22, Lon: 5.43},
		"Ypres":     {Lat: 50.85, Lon: 2.89},
	}

	places, unmatched := PlaceTally(records, "France", gazetteer)

	assert.Equal(t, 1, unmatched)
	assert.Equal(t, []PlaceCount{
		{Place: "Verdun", Count: 2, Coordinates: Coordinates{Lat: 49.16, Lon: 5.38}},
		{Place: "Douaumont", Count: 1, Coordinates: Coordinates{Lat: 49.22, Lon: 5.43}},
	}, places)
}
