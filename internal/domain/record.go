package domain

import (
	"time"
)

// Column names of the MDF annotation export.
const (
	ColPrimaryID = "c_id_primaire_fiche"

	ColDeathYear  = "annot_deces_jour_mois_annee_yyyy"
	ColDeathMonth = "annot_deces_jour_mois_annee_mm"
	ColDeathDay   = "annot_deces_jour_mois_annee_dd"

	ColBirthYear  = "c_naissance_jour_mois_annee_yyyy"
	ColBirthMonth = "c_naissance_jour_mois_annee_mm"
	ColBirthDay   = "c_naissance_jour_mois_annee_dd"

	ColCountry   = "annot_id_deces_pays_intitule"
	ColRegion    = "annot_id_deces_departement_intitule"
	ColPlace     = "annot_id_deces_lieu_intitule"
	ColRank      = "annot_id_grade_intitule"
	ColFirstName = "c_prenom"
	ColLastName  = "c_nom"
)

// Derived columns appended by the consolidator.
const (
	ColDeathDate  = "pd_death_date"
	ColBirthDate  = "pd_birth_date"
	ColAgeAtDeath = "age_at_death"
)

// DerivedColumns lists the consolidator's output columns in file order.
var DerivedColumns = []string{ColDeathDate, ColBirthDate, ColAgeAtDeath}

// RawRecord is one row of a raw annotation export.
type RawRecord struct {
	Source string
	Line   int
	Values map[string]string
}

// Get returns the cell for col, or "" when the row's source file lacks it.
func (r RawRecord) Get(col string) string {
	return r.Values[col]
}

// RawTable is the concatenation of every raw file, in input order. Columns
// is the union of the files' headers in first-seen order.
type RawTable struct {
	Columns []string
	Rows    []RawRecord

	// Malformed counts rows dropped while reading.
	Malformed int
}

// Record is one consolidated person. Absent dates and ages are nil.
type Record struct {
	Values map[string]string

	DeathDate  *time.Time
	BirthDate  *time.Time
	AgeAtDeath *time.Duration
}

// Get returns the original cell for col with missing sentinels mapped to "".
func (r Record) Get(col string) string {
	v := r.Values[col]
	if IsMissing(v) {
		return ""
	}
	return v
}

func (r Record) ID() string        { return r.Get(ColPrimaryID) }
func (r Record) Country() string   { return r.Get(ColCountry) }
func (r Record) Region() string    { return r.Get(ColRegion) }
func (r Record) Place() string     { return r.Get(ColPlace) }
func (r Record) Rank() string      { return r.Get(ColRank) }
func (r Record) FirstName() string { return r.Get(ColFirstName) }
func (r Record) LastName() string  { return r.Get(ColLastName) }

// AgeDays returns the age at death in whole days.
func (r Record) AgeDays() (int, bool) {
	if r.AgeAtDeath == nil {
		return 0, false
	}
	return int(*r.AgeAtDeath / (24 * time.Hour)), true
}

// Table is the consolidated record set. Columns holds the original raw
// columns only; the derived columns are carried on each Record.
type Table struct {
	Columns []string
	Records []Record
}

// FilterCountry returns the records whose country of death equals country.
// An empty country matches every record.
func FilterCountry(records []Record, country string) []Record {
	if country == "" {
		return records
	}
	out := make([]Record, 0, len(records))
	for i := range records {
		if records[i].Country() == country {
			out = append(out, records[i])
		}
	}
	return out
}
