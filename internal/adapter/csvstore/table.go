package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/domain"
)

// ageRe matches a day-resolution duration as written by this package
// ("9495 days") or by pandas ("9495 days 00:00:00", "-2 days +00:00:00").
var ageRe = regexp.MustCompile(`^(-?\d+) days?(?: \+?00:00:00)?$`)

// WriteTable writes the consolidated table as comma-delimited UTF-8: the
// original columns followed by the derived date and age columns. The file is
// replaced atomically.
func WriteTable(path string, table domain.Table) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		header := make([]string, 0, len(table.Columns)+len(domain.DerivedColumns))
		header = append(header, table.Columns...)
		header = append(header, domain.DerivedColumns...)
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}

		row := make([]string, len(header))
		for i := range table.Records {
			rec := &table.Records[i]
			for j, col := range table.Columns {
				row[j] = rec.Get(col)
			}
			n := len(table.Columns)
			row[n] = formatDate(rec.DeathDate)
			row[n+1] = formatDate(rec.BirthDate)
			row[n+2] = FormatAge(rec.AgeAtDeath)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write record %q: %w", rec.ID(), err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ReadTable loads a consolidated table. A leading unnamed index column, as
// written by pandas, is ignored. Unparseable derived values are read as
// absent.
func ReadTable(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("missing header row")
		}
		return domain.Table{}, &FileError{Path: path, Err: err}
	}
	header = append([]string(nil), header...)

	start := 0
	if len(header) > 0 && isIndexColumn(header[0]) {
		start = 1
	}
	derived := map[string]int{}
	var columns []string
	for i := start; i < len(header); i++ {
		switch header[i] {
		case domain.ColDeathDate, domain.ColBirthDate, domain.ColAgeAtDeath:
			derived[header[i]] = i
		default:
			columns = append(columns, header[i])
		}
	}
	for _, col := range domain.DerivedColumns {
		if _, ok := derived[col]; !ok {
			return domain.Table{}, &FileError{Path: path, Err: fmt.Errorf("missing column %q", col)}
		}
	}

	table := domain.Table{Columns: columns}
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, &FileError{Path: path, Err: err}
		}

		values := make(map[string]string, len(columns))
		for i := start; i < len(header) && i < len(fields); i++ {
			values[header[i]] = fields[i]
		}
		rec := domain.Record{
			Values:     values,
			DeathDate:  parseDate(fields[derived[domain.ColDeathDate]]),
			BirthDate:  parseDate(fields[derived[domain.ColBirthDate]]),
			AgeAtDeath: ParseAge(fields[derived[domain.ColAgeAtDeath]]),
		}
		for _, col := range domain.DerivedColumns {
			delete(rec.Values, col)
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

func isIndexColumn(name string) bool {
	return name == "" || strings.HasPrefix(name, "Unnamed:")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if domain.IsMissing(s) {
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// FormatAge renders a day-resolution duration as "<n> days".
func FormatAge(d *time.Duration) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%d days", int(*d/(24*time.Hour)))
}

// ParseAge reads a duration written by FormatAge or by pandas. Anything
// else is treated as absent.
func ParseAge(s string) *time.Duration {
	m := ageRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	d := time.Duration(n) * 24 * time.Hour
	return &d
}
