package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/mdf-dashboard/internal/domain"
)

// ColCoordinates holds the "(lat, lon)" pair in the gazetteer file.
const ColCoordinates = "coordinates"

// ReadGazetteer loads the place → coordinates table. Rows with an empty
// place or unparseable coordinates are skipped and counted in dropped.
func ReadGazetteer(path string) (gazetteer domain.Gazetteer, dropped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("missing header row")
		}
		return nil, 0, &FileError{Path: path, Err: err}
	}
	placeIdx, coordIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case domain.ColPlace:
			placeIdx = i
		case ColCoordinates:
			coordIdx = i
		}
	}
	if placeIdx < 0 || coordIdx < 0 {
		return nil, 0, &FileError{Path: path, Err: fmt.Errorf("need columns %q and %q", domain.ColPlace, ColCoordinates)}
	}

	gazetteer = make(domain.Gazetteer)
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, &FileError{Path: path, Err: err}
		}
		if placeIdx >= len(fields) || coordIdx >= len(fields) {
			dropped++
			continue
		}
		place := strings.TrimSpace(fields[placeIdx])
		if domain.IsMissing(place) {
			dropped++
			continue
		}
		coords, err := domain.ParseCoordinates(fields[coordIdx])
		if err != nil {
			dropped++
			continue
		}
		gazetteer[place] = coords
	}
	return gazetteer, dropped, nil
}

// WriteGazetteer writes the gazetteer sorted by place, replacing the file
// atomically.
func WriteGazetteer(path string, gazetteer domain.Gazetteer) error {
	places := make([]string, 0, len(gazetteer))
	for place := range gazetteer {
		places = append(places, place)
	}
	sort.Strings(places)

	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{domain.ColPlace, ColCoordinates}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for _, place := range places {
			if err := cw.Write([]string{place, gazetteer[place].String()}); err != nil {
				return fmt.Errorf("write place %q: %w", place, err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}
