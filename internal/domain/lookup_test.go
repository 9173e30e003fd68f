package domain

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lookupNow = time.Date(2026, time.October, 17, 14, 30, 0, 0, time.UTC)

// agedRecord builds a record that died at 1916-02-21 aged exactly days days.
func agedRecord(days int, first string) Record {
	death := date(1916, time.February, 21)
	birth := death.AddDate(0, 0, -days)
	age := death.Sub(birth)
	return Record{
		Values: map[string]string{
			ColRank:      "Soldat",
			ColFirstName: first,
			ColLastName:  "Martin",
			ColPlace:     "Verdun",
		},
		DeathDate:  &death,
		BirthDate:  &birth,
		AgeAtDeath: &age,
	}
}

func TestElapsedBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to time.Time
		want     Elapsed
	}{
		{"same day", date(1990, 5, 5), date(1990, 5, 5), Elapsed{}},
		{"plain", date(2000, 1, 15), date(2026, 10, 17), Elapsed{Years: 26, Months: 9, Days: 2}},
		{"month end clamps", date(1915, 1, 31), date(1915, 3, 1), Elapsed{Months: 1, Days: 1}},
		{"leap day birthday", date(2000, 2, 29), date(2001, 2, 28), Elapsed{Years: 1}},
		{"day before birthday", date(1990, 6, 10), date(2020, 6, 9), Elapsed{Years: 29, Months: 11, Days: 30}},
		{"ignores clock", date(1990, 6, 10).Add(23 * time.Hour), date(1990, 6, 11), Elapsed{Days: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ElapsedBetween(tc.from, tc.to))
		})
	}
}

func TestLookup_ReturnsOnlyMatchingRecords(t *testing.T) {
	birth := date(2000, time.January, 15)
	days := int(date(2026, time.October, 17).Sub(birth).Hours() / 24)

	records := []Record{
		agedRecord(days, "Jean"),
		agedRecord(days+1, "Paul"),
		agedRecord(days, "Louis"),
		agedRecord(days-1, "Pierre"),
		agedRecord(days, "Marcel"),
		{Values: map[string]string{ColFirstName: "Sans date"}},
	}
	ix := NewLookupIndex(records)
	require.Len(t, ix.Candidates(days), 3)

	picked := map[string]bool{}
	for seed := range uint64(50) {
		m, err := ix.Lookup(&birth, lookupNow, rand.New(rand.NewPCG(seed, seed+1)))
		require.NoError(t, err)
		assert.Equal(t, days, m.DaysAlive)
		assert.Contains(t, []string{"Jean", "Louis", "Marcel"}, m.Record.FirstName())
		picked[m.Record.FirstName()] = true
	}
	assert.Greater(t, len(picked), 1, "random selection should vary across seeds")
}

func TestLookup_SameSeedSamePick(t *testing.T) {
	birth := date(2000, time.January, 15)
	days := int(date(2026, time.October, 17).Sub(birth).Hours() / 24)
	ix := NewLookupIndex([]Record{agedRecord(days, "Jean"), agedRecord(days, "Louis")})

	a, err := ix.Lookup(&birth, lookupNow, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	b, err := ix.Lookup(&birth, lookupNow, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	assert.Equal(t, a.Record.FirstName(), b.Record.FirstName())
}

func TestLookup_NoMatch(t *testing.T) {
	ix := NewLookupIndex([]Record{agedRecord(7000, "Jean")})
	birth := date(1995, time.March, 3)

	_, err := ix.Lookup(&birth, lookupNow, nil)

	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestLookup_NoBirthDate(t *testing.T) {
	ix := NewLookupIndex(nil)

	_, err := ix.Lookup(nil, lookupNow, nil)

	assert.ErrorIs(t, err, ErrNoBirthDate)
}

func TestLookup_RejectsOutOfRangeBirthDates(t *testing.T) {
	ix := NewLookupIndex(nil)

	future := date(2027, time.January, 1)
	_, err := ix.Lookup(&future, lookupNow, nil)
	assert.ErrorIs(t, err, ErrInvalidBirthDate)

	ancient := date(1899, time.December, 31)
	_, err = ix.Lookup(&ancient, lookupNow, nil)
	assert.ErrorIs(t, err, ErrInvalidBirthDate)
}

func TestFormatSentence(t *testing.T) {
	birth := date(2000, time.January, 15)
	days := int(date(2026, time.October, 17).Sub(birth).Hours() / 24)
	ix := NewLookupIndex([]Record{agedRecord(days, "Jean")})

	m, err := ix.Lookup(&birth, lookupNow, nil)
	require.NoError(t, err)

	assert.Equal(t,
		"Aged like you, at 26 years, 9 months and 2 days old, Soldat Jean Martin, died at Verdun in February 21, 1916",
		FormatSentence(m))
}

func TestFormatSentence_MissingRank(t *testing.T) {
	rec := agedRecord(9000, "Jean")
	rec.Values[ColRank] = "NaN"

	s := FormatSentence(Match{Record: rec, Elapsed: Elapsed{Years: 24, Months: 7, Days: 1}})

	assert.Contains(t, s, "old, Jean Martin, died at Verdun")
}

func TestFormatSentence_AbsentClausesOmitted(t *testing.T) {
	elapsed := Elapsed{Years: 24, Months: 7, Days: 1}
	noPlace := agedRecord(9000, "Jean")
	noPlace.Values[ColPlace] = ""
	noDate := agedRecord(9000, "Jean")
	noDate.DeathDate = nil
	bare := Record{Values: map[string]string{}}

	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"no place", noPlace, "Aged like you, at 24 years, 7 months and 1 days old, Soldat Jean Martin, died in February 21, 1916"},
		{"no death date", noDate, "Aged like you, at 24 years, 7 months and 1 days old, Soldat Jean Martin, died at Verdun"},
		{"nothing known", bare, "Aged like you, at 24 years, 7 months and 1 days old, died"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := FormatSentence(Match{Record: tc.rec, Elapsed: elapsed})
			assert.Equal(t, tc.want, s)
			assert.NotContains(t, s, "  ")
		})
	}
}
