package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// coordinateRe matches signed decimal numbers in a coordinate pair string.
var coordinateRe = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String renders the pair the way the gazetteer file stores it.
func (c Coordinates) String() string {
	return fmt.Sprintf("(%s, %s)",
		strconv.FormatFloat(c.Lat, 'f', -1, 64),
		strconv.FormatFloat(c.Lon, 'f', -1, 64))
}

// Gazetteer maps a place of death to its coordinates.
type Gazetteer map[string]Coordinates

// ParseCoordinates reads a "(lat, lon)" pair. Any surrounding punctuation is
// ignored; the first two numbers found are latitude and longitude.
func ParseCoordinates(s string) (Coordinates, error) {
	nums := coordinateRe.FindAllString(s, -1)
	if len(nums) < 2 {
		return Coordinates{}, fmt.Errorf("parse coordinates %q: need two numbers, found %d", s, len(nums))
	}
	lat, err := strconv.ParseFloat(nums[0], 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse latitude %q: %w", nums[0], err)
	}
	lon, err := strconv.ParseFloat(nums[1], 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse longitude %q: %w", nums[1], err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Coordinates{}, fmt.Errorf("parse coordinates %q: out of range", s)
	}
	return Coordinates{Lat: lat, Lon: lon}, nil
}

// UngeocodedPlaces returns the distinct places of one country's records that
// the gazetteer has no entry for, sorted by name.
func UngeocodedPlaces(records []Record, country string, gazetteer Gazetteer) []string {
	seen := make(map[string]struct{})
	for _, rec := range FilterCountry(records, country) {
		place := rec.Place()
		if place == "" {
			continue
		}
		if _, ok := gazetteer[place]; ok {
			continue
		}
		seen[place] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for place := range seen {
		out = append(out, place)
	}
	sort.Strings(out)
	return out
}
