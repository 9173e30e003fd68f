package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/adapter/boundaries"
	"github.com/couchcryptid/mdf-dashboard/internal/adapter/csvstore"
	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"github.com/spf13/cobra"
)

// maxPlausibleAge bounds the age at death a soldier record can carry.
const maxPlausibleAge = 120 * 365 * 24 * time.Hour

// maxListed caps the detailed errors printed per phase.
const maxListed = 20

var errValidationFailed = errors.New("validation failed")

// phase tracks pass/fail for a validation phase. Warnings are reported but
// do not fail it.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func (a *app) newValidateCommand() *cobra.Command {
	var (
		dataPath      string
		gazetteerPath string
		boundaryURL   string
		country       string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the integrity of a consolidated table",
		Long: `validate re-derives the dates and ages of a consolidated table from its raw
columns and checks identifiers, age plausibility and the aggregate views.
With --gazetteer and --boundaries it also reports places and regions the
dashboard cannot draw. Exits non-zero when any phase fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := csvstore.ReadTable(dataPath)
			if err != nil {
				return fmt.Errorf("load consolidated table: %w", err)
			}

			phases := []*phase{
				validateIdentifiers(table.Records),
				validateDerivedColumns(table.Records),
				validateAges(table.Records),
				validateWeeklySeries(table.Records),
				validateRegionTally(table.Records, country),
			}

			if gazetteerPath != "" {
				gazetteer, err := loadGazetteer(gazetteerPath)
				if err != nil {
					return err
				}
				phases = append(phases, validateGazetteer(table.Records, country, gazetteer))
			}
			if boundaryURL != "" {
				shapes, err := boundaries.NewLoader(a.cfg.BoundariesTimeout, a.logger).Load(cmd.Context(), boundaryURL)
				if err != nil {
					return fmt.Errorf("load boundaries: %w", err)
				}
				phases = append(phases, validateBoundaries(table.Records, country, shapes.Regions))
			}

			if !report(cmd.OutOrStdout(), dataPath, len(table.Records), phases) {
				return errValidationFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", a.cfg.DataPath, "consolidated table path")
	cmd.Flags().StringVar(&gazetteerPath, "gazetteer", "", "gazetteer path (optional)")
	cmd.Flags().StringVar(&boundaryURL, "boundaries", "", "GeoJSON boundaries URL or path (optional)")
	cmd.Flags().StringVar(&country, "country", a.cfg.Country, "country of the regional views")
	return cmd
}

// report prints the phase table and the detailed errors and warnings. It
// returns whether every phase passed.
func report(w io.Writer, path string, records int, phases []*phase) bool {
	fmt.Fprintf(w, "=== MDF Data Integrity Validation ===\n\n")
	fmt.Fprintf(w, "Records: %d in %s\n\n", records, path)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		} else if len(p.warnings) > 0 {
			status = fmt.Sprintf("\033[33mPASS (%d warnings)\033[0m", len(p.warnings))
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		printFindings(w, p.name, p.errors)
		printFindings(w, p.name+" (warnings)", p.warnings)
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}

func printFindings(w io.Writer, title string, findings []string) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n--- %s ---\n", title)
	for i, f := range findings {
		if i == maxListed {
			fmt.Fprintf(w, "  ... and %d more\n", len(findings)-maxListed)
			break
		}
		fmt.Fprintf(w, "  [%d] %s\n", i+1, f)
	}
}

// ── Phases ──

func validateIdentifiers(records []domain.Record) *phase {
	p := &phase{name: "Unique identifiers"}
	seen := make(map[string]int, len(records))
	for i := range records {
		id := records[i].ID()
		if id == "" {
			p.errorf("record %d: missing %s", i+1, domain.ColPrimaryID)
			continue
		}
		if first, ok := seen[id]; ok {
			p.errorf("record %d: %s duplicates record %d", i+1, id, first)
			continue
		}
		seen[id] = i + 1
	}
	return p
}

func validateDerivedColumns(records []domain.Record) *phase {
	p := &phase{name: "Derived dates and ages"}
	for i := range records {
		rec := records[i]
		death := domain.BuildDate(rec.Values[domain.ColDeathYear], rec.Values[domain.ColDeathMonth], rec.Values[domain.ColDeathDay])
		birth := domain.BuildDate(rec.Values[domain.ColBirthYear], rec.Values[domain.ColBirthMonth], rec.Values[domain.ColBirthDay])

		if _, ok := rec.Values[domain.ColDeathYear]; ok && !sameDate(death, rec.DeathDate) {
			p.errorf("%s: %s is %s, raw columns give %s", rec.ID(), domain.ColDeathDate, fmtDate(rec.DeathDate), fmtDate(death))
		}
		if _, ok := rec.Values[domain.ColBirthYear]; ok && !sameDate(birth, rec.BirthDate) {
			p.errorf("%s: %s is %s, raw columns give %s", rec.ID(), domain.ColBirthDate, fmtDate(rec.BirthDate), fmtDate(birth))
		}

		switch {
		case rec.DeathDate != nil && rec.BirthDate != nil:
			want := domain.AgeBetween(*rec.BirthDate, *rec.DeathDate)
			if !sameAge(rec.AgeAtDeath, want) {
				p.errorf("%s: %s is %s, want %s", rec.ID(), domain.ColAgeAtDeath, fmtAge(rec.AgeAtDeath), fmtAge(want))
			}
		case rec.AgeAtDeath != nil:
			p.errorf("%s: %s set without both dates", rec.ID(), domain.ColAgeAtDeath)
		}
	}
	return p
}

// validateAges reports ages that are kept in the table but are source
// data-entry errors.
func validateAges(records []domain.Record) *phase {
	p := &phase{name: "Age plausibility"}
	for i := range records {
		age := records[i].AgeAtDeath
		if age == nil {
			continue
		}
		switch {
		case *age < 0:
			p.warnf("%s: negative age at death %s", records[i].ID(), csvstore.FormatAge(age))
		case *age > maxPlausibleAge:
			p.warnf("%s: age at death %s exceeds 120 years", records[i].ID(), csvstore.FormatAge(age))
		}
	}
	return p
}

func validateWeeklySeries(records []domain.Record) *phase {
	p := &phase{name: "Weekly series"}
	series := domain.WeeklySeries(records)

	withDate := 0
	for i := range records {
		if records[i].DeathDate != nil {
			withDate++
		}
	}

	total := 0
	for i, wc := range series {
		if wc.Week.Weekday() != time.Sunday {
			p.errorf("week %s does not end on Sunday", wc.Week.Format(time.DateOnly))
		}
		if i > 0 && !wc.Week.After(series[i-1].Week) {
			p.errorf("week %s is not after %s", wc.Week.Format(time.DateOnly), series[i-1].Week.Format(time.DateOnly))
		}
		total += wc.Count
		if wc.Cumulative != total {
			p.errorf("week %s: cumulative %d, want %d", wc.Week.Format(time.DateOnly), wc.Cumulative, total)
		}
	}
	if total != withDate {
		p.errorf("weekly counts sum to %d, %d records have a death date", total, withDate)
	}
	return p
}

func validateRegionTally(records []domain.Record, country string) *phase {
	p := &phase{name: fmt.Sprintf("Regional tally (%s)", country)}
	want := 0
	for _, rec := range domain.FilterCountry(records, country) {
		if rec.Region() != "" {
			want++
		}
	}
	got := 0
	for _, rc := range domain.RegionTally(records, country) {
		if rc.Region == "" {
			p.errorf("%d records normalize to an empty region", rc.Count)
		}
		got += rc.Count
	}
	if got != want {
		p.errorf("regional counts sum to %d, %d records have a region", got, want)
	}
	return p
}

func validateGazetteer(records []domain.Record, country string, gazetteer domain.Gazetteer) *phase {
	p := &phase{name: "Gazetteer coverage"}
	for _, place := range domain.UngeocodedPlaces(records, country, gazetteer) {
		p.warnf("no coordinates for %q", place)
	}
	return p
}

func validateBoundaries(records []domain.Record, country string, regions []string) *phase {
	p := &phase{name: "Boundary join"}
	known := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		known[r] = struct{}{}
	}
	for _, rc := range domain.RegionTally(records, country) {
		if _, ok := known[rc.Region]; !ok {
			p.warnf("region %q (%d records) has no boundary shape", rc.Region, rc.Count)
		}
	}
	return p
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameAge(a, b *time.Duration) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func fmtAge(d *time.Duration) string {
	if d == nil {
		return "absent"
	}
	return csvstore.FormatAge(d)
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return "absent"
	}
	return t.Format(time.DateOnly)
}
