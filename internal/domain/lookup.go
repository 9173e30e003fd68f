package domain

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

var (
	// ErrNoBirthDate means no date was picked yet; callers show nothing.
	ErrNoBirthDate = errors.New("no birth date")

	// ErrNoMatch means no record died at exactly the elapsed age.
	ErrNoMatch = errors.New("no record with a matching age at death")

	// ErrInvalidBirthDate means the birth date is after today or before
	// MinBirthDate. The lower bound follows the dashboard's date picker, so
	// records older at death than today minus MinBirthDate are never matched.
	ErrInvalidBirthDate = errors.New("birth date out of range")
)

// MinBirthDate is the earliest birth date the lookup accepts. It trades
// reachability of the oldest ages at death for the picker's fixed range.
var MinBirthDate = time.Date(1920, time.January, 1, 0, 0, 0, 0, time.UTC)

const oneDay = 24 * time.Hour

// Elapsed is a calendar-aware duration: adding Years, Months and then Days
// to the start date lands on the end date.
type Elapsed struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

// ElapsedBetween returns the years, months and days from from to to. Month
// arithmetic clamps to the last day of the month, so Jan 31 + 1 month is
// Feb 28 (or 29). to must not be before from.
func ElapsedBetween(from, to time.Time) Elapsed {
	from, to = civilDate(from), civilDate(to)

	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	anchor := addMonthsClamped(from, months)
	for to.Before(anchor) {
		months--
		anchor = addMonthsClamped(from, months)
	}
	return Elapsed{
		Years:  months / 12,
		Months: months % 12,
		Days:   daysBetween(anchor, to),
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	total := int(t.Month()) - 1 + months
	year := t.Year() + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)
	d := min(t.Day(), daysIn(year, month))
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// civilDate drops the clock and zone, keeping the wall-clock date.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(civilDate(to).Sub(civilDate(from)) / oneDay)
}

// Match is the result of a successful lookup.
type Match struct {
	Record    Record
	DaysAlive int
	Elapsed   Elapsed
}

// LookupIndex groups records by age at death in days. It is never mutated
// after construction and is safe for concurrent use.
type LookupIndex struct {
	byAge map[int][]Record
}

// NewLookupIndex indexes every record that has an age at death.
func NewLookupIndex(records []Record) *LookupIndex {
	ix := &LookupIndex{byAge: make(map[int][]Record)}
	for i := range records {
		days, ok := records[i].AgeDays()
		if !ok {
			continue
		}
		ix.byAge[days] = append(ix.byAge[days], records[i])
	}
	return ix
}

// Candidates returns the records that died aged exactly days days. The
// slice is shared; callers must not modify it.
func (ix *LookupIndex) Candidates(days int) []Record {
	return ix.byAge[days]
}

// Lookup finds someone who died at the age a person born on birth is on the
// date of now, and picks one at random with rng when several qualify.
func (ix *LookupIndex) Lookup(birth *time.Time, now time.Time, rng *rand.Rand) (Match, error) {
	if birth == nil {
		return Match{}, ErrNoBirthDate
	}
	born, today := civilDate(*birth), civilDate(now)
	if born.Before(MinBirthDate) || born.After(today) {
		return Match{}, fmt.Errorf("%w: %s", ErrInvalidBirthDate, born.Format(time.DateOnly))
	}

	days := daysBetween(born, today)
	candidates := ix.byAge[days]
	if len(candidates) == 0 {
		return Match{}, ErrNoMatch
	}

	var pick int
	if rng != nil {
		pick = rng.IntN(len(candidates))
	} else {
		pick = rand.IntN(len(candidates))
	}
	return Match{
		Record:    candidates[pick],
		DaysAlive: days,
		Elapsed:   ElapsedBetween(born, today),
	}, nil
}

// FormatSentence renders a match for the dashboard. Absent name, place or
// death date clauses are left out.
func FormatSentence(m Match) string {
	clauses := []string{fmt.Sprintf("Aged like you, at %d years, %d months and %d days old",
		m.Elapsed.Years, m.Elapsed.Months, m.Elapsed.Days)}
	if who := joinNonEmpty(m.Record.Rank(), m.Record.FirstName(), m.Record.LastName()); who != "" {
		clauses = append(clauses, who)
	}
	died := "died"
	if place := m.Record.Place(); place != "" {
		died += " at " + place
	}
	if m.Record.DeathDate != nil {
		died += " in " + m.Record.DeathDate.Format("January 02, 2006")
	}
	return strings.Join(append(clauses, died), ", ")
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
