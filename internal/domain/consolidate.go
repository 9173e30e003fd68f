package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Dates outside the pandas Timestamp range are treated as absent, as
// pd.to_datetime(errors="coerce") does with them.
var (
	MinDate = time.Date(1677, time.September, 22, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(2262, time.April, 11, 0, 0, 0, 0, time.UTC)
)

// maxAgeDays is the largest day count a time.Duration can hold.
const maxAgeDays = int64(math.MaxInt64 / int64(24*time.Hour))

// naValues are the cell values pandas reads as NaN by default. The raw
// exports were ranked on missing counts computed that way, so we match it.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a cell is empty or an NA sentinel.
func IsMissing(value string) bool {
	_, ok := naValues[strings.TrimSpace(value)]
	return ok
}

// MissingCount returns how many of columns are missing in row. Columns the
// row's source file does not have count as missing.
func MissingCount(row RawRecord, columns []string) int {
	n := 0
	for _, col := range columns {
		v, ok := row.Values[col]
		if !ok || IsMissing(v) {
			n++
		}
	}
	return n
}

// Deduplicate keeps one row per primary identifier: the one with the fewest
// missing cells, earliest input position on ties. The result is ordered by
// (missing count, input position).
func Deduplicate(table RawTable) []RawRecord {
	counts := make([]int, len(table.Rows))
	order := make([]int, len(table.Rows))
	for i := range table.Rows {
		counts[i] = MissingCount(table.Rows[i], table.Columns)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] < counts[order[b]]
	})

	seen := make(map[string]struct{}, len(table.Rows))
	out := make([]RawRecord, 0, len(table.Rows))
	for _, i := range order {
		id := strings.TrimSpace(table.Rows[i].Get(ColPrimaryID))
		if IsMissing(id) {
			id = ""
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, table.Rows[i])
	}
	return out
}

// Consolidate deduplicates the raw table and derives the unified death date,
// birth date and age at death of every surviving row.
func Consolidate(table RawTable) Table {
	rows := Deduplicate(table)
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, consolidateRow(row))
	}
	return Table{Columns: table.Columns, Records: records}
}

func consolidateRow(row RawRecord) Record {
	rec := Record{
		Values:    row.Values,
		DeathDate: BuildDate(row.Get(ColDeathYear), row.Get(ColDeathMonth), row.Get(ColDeathDay)),
		BirthDate: BuildDate(row.Get(ColBirthYear), row.Get(ColBirthMonth), row.Get(ColBirthDay)),
	}
	if rec.DeathDate != nil && rec.BirthDate != nil {
		rec.AgeAtDeath = AgeBetween(*rec.BirthDate, *rec.DeathDate)
	}
	return rec
}

// AgeBetween returns death minus birth in whole days, or nil when the
// difference does not fit a time.Duration.
func AgeBetween(birth, death time.Time) *time.Duration {
	days := (death.Unix() - birth.Unix()) / int64(24*time.Hour/time.Second)
	if days > maxAgeDays || days < -maxAgeDays {
		return nil
	}
	age := time.Duration(days) * 24 * time.Hour
	return &age
}

// BuildDate combines year, month and day cells into a UTC calendar date.
// It returns nil when any cell is missing or not an integer, when the
// triple is not a real date, or when the date falls outside MinDate..MaxDate.
func BuildDate(year, month, day string) *time.Time {
	y, ok := parseDatePart(year)
	if !ok {
		return nil
	}
	m, ok := parseDatePart(month)
	if !ok {
		return nil
	}
	d, ok := parseDatePart(day)
	if !ok {
		return nil
	}
	if y < 1 || m < 1 || m > 12 || d < 1 {
		return nil
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (April 31 -> May 1); reject those.
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return nil
	}
	if t.Before(MinDate) || t.After(MaxDate) {
		return nil
	}
	return &t
}

// parseDatePart accepts "1916" as well as the float form "1916.0" that
// spreadsheet exports produce for numeric columns with gaps.
func parseDatePart(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if IsMissing(s) {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
