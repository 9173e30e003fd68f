package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	// regionCodeRe matches a leading département code, e.g. "75 - Paris" or
	// "2A - Corse-du-Sud".
	regionCodeRe = regexp.MustCompile(`^\s*\d+[A-Za-z]?\s*-\s*`)

	// regionQualifierRe matches parenthetical qualifiers such as "(ancien)".
	regionQualifierRe = regexp.MustCompile(`\s*\([^)]*\)`)
)

// WeekCount is one bar of the weekly casualty series. Week is the Sunday
// that closes the week.
type WeekCount struct {
	Week       time.Time `json:"week"`
	Count      int       `json:"count"`
	Cumulative int       `json:"cumulative"`
}

// RegionCount is the casualty count of one normalized region.
type RegionCount struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// PlaceCount is the casualty count of one geocoded place of death.
type PlaceCount struct {
	Place       string      `json:"place"`
	Count       int         `json:"count"`
	Coordinates Coordinates `json:"coordinates"`
}

// WeeklySeries bins records by week of death. Weeks close on Sunday, and
// weeks with no deaths between the first and last death are emitted with a
// zero count, so the series has one entry per calendar week. Records without
// a death date are skipped.
func WeeklySeries(records []Record) []WeekCount {
	counts := make(map[time.Time]int)
	var first, last time.Time
	for i := range records {
		if records[i].DeathDate == nil {
			continue
		}
		week := weekEnding(*records[i].DeathDate)
		if len(counts) == 0 || week.Before(first) {
			first = week
		}
		if len(counts) == 0 || week.After(last) {
			last = week
		}
		counts[week]++
	}
	if len(counts) == 0 {
		return nil
	}

	var series []WeekCount
	cumulative := 0
	for week := first; !week.After(last); week = week.AddDate(0, 0, 7) {
		n := counts[week]
		cumulative += n
		series = append(series, WeekCount{Week: week, Count: n, Cumulative: cumulative})
	}
	return series
}

// weekEnding returns the Sunday on or after d, at midnight UTC.
func weekEnding(d time.Time) time.Time {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	offset := (7 - int(day.Weekday())) % 7
	return day.AddDate(0, 0, offset)
}

// NormalizeRegion strips the leading numeric code and any parenthetical
// qualifiers from a region name: "55 - Meuse (ancien)" -> "Meuse". If nothing
// would remain, the trimmed input is returned.
func NormalizeRegion(name string) string {
	name = strings.TrimSpace(name)
	cleaned := regionCodeRe.ReplaceAllString(name, "")
	cleaned = strings.TrimSpace(regionQualifierRe.ReplaceAllString(cleaned, ""))
	if cleaned == "" {
		return name
	}
	return cleaned
}

// RegionTally counts the records of one country by normalized region,
// sorted by count descending then name. Records without a region are skipped.
func RegionTally(records []Record, country string) []RegionCount {
	counts := make(map[string]int)
	for _, rec := range FilterCountry(records, country) {
		region := rec.Region()
		if region == "" {
			continue
		}
		counts[NormalizeRegion(region)]++
	}

	out := make([]RegionCount, 0, len(counts))
	for region, n := range counts {
		out = append(out, RegionCount{Region: region, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// PlaceTally counts the records of one country by place of death and joins
// the counts with the gazetteer. Places absent from the gazetteer are
// dropped; unmatched reports how many distinct places were lost that way.
func PlaceTally(records []Record, country string, gazetteer Gazetteer) (places []PlaceCount, unmatched int) {
	counts := make(map[string]int)
	for _, rec := range FilterCountry(records, country) {
		place := rec.Place()
		if place == "" {
			continue
		}
		counts[place]++
	}

	places = make([]PlaceCount, 0, len(counts))
	for place, n := range counts {
		coords, ok := gazetteer[place]
		if !ok {
			unmatched++
			continue
		}
		places = append(places, PlaceCount{Place: place, Count: n, Coordinates: coords})
	}
	sort.Slice(places, func(i, j int) bool {
		if places[i].Count != places[j].Count {
			return places[i].Count > places[j].Count
		}
		return places[i].Place < places[j].Place
	})
	return places, unmatched
}
