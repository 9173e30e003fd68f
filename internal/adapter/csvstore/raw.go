// Package csvstore reads and writes the dashboard's tabular files: the raw
// annotation exports, the consolidated table and the gazetteer.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// RawDelimiter separates fields in the raw annotation exports.
const RawDelimiter = ';'

// ExpandGlob returns the files matching pattern in lexicographic order. The
// order fixes which duplicate wins a missing-count tie, so it must be stable.
func ExpandGlob(pattern string) ([]string, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("expand %q: no files match", pattern)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadRawFiles concatenates the raw exports at paths, in the given order.
// Rows that fail to parse or have the wrong number of fields are dropped and
// counted in RawTable.Malformed. A file that cannot be opened or has no
// header aborts the read with a *FileError.
func ReadRawFiles(ctx context.Context, paths []string) (domain.RawTable, error) {
	var table domain.RawTable
	known := make(map[string]struct{})

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return domain.RawTable{}, err
		}
		header, rows, malformed, err := readRawFile(path)
		if err != nil {
			return domain.RawTable{}, err
		}
		for _, col := range header {
			if _, ok := known[col]; !ok {
				known[col] = struct{}{}
				table.Columns = append(table.Columns, col)
			}
		}
		table.Rows = append(table.Rows, rows...)
		table.Malformed += malformed
	}
	return table, nil
}

func readRawFile(path string) ([]string, []domain.RawRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	r.Comma = RawDelimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("missing header row")
		}
		return nil, nil, 0, &FileError{Path: path, Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []domain.RawRecord
	malformed := 0
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			malformed++
			continue
		}
		if err != nil {
			return nil, nil, 0, &FileError{Path: path, Err: err}
		}
		// Short rows are padded: their trailing columns stay out of Values
		// and count as missing. Only rows with extra fields are malformed.
		if len(fields) > len(header) {
			malformed++
			continue
		}

		line, _ := r.FieldPos(0)
		values := make(map[string]string, len(header))
		for i, v := range fields {
			values[header[i]] = v
		}
		rows = append(rows, domain.RawRecord{Source: path, Line: line, Values: values})
	}
	return header, rows, malformed, nil
}
