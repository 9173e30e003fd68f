// Package domain models the "Mort pour la France" (MDF) casualty records of
// the First World War and the aggregate views derived from them.
//
// # Data Source
//
// The raw records are crowd-sourced annotation exports of the MDF index
// cards: semicolon-delimited, ISO-8859-1 encoded, one file per annotation
// batch. The same card (identified by c_id_primaire_fiche) is often annotated
// in several batches with varying completeness.
//
// # Conventions
//
// Dates are split over three numeric columns:
//
//	annot_deces_jour_mois_annee_yyyy / _mm / _dd    death
//	c_naissance_jour_mois_annee_yyyy / _mm / _dd    birth
//
// Columns may hold floats ("1916.0") where the export tool saw gaps. A triple
// that does not form a real date is treated as absent, never as an error.
//
// Régions are French départements prefixed with their code and sometimes
// followed by a qualifier: "55 - Meuse", "2A - Corse-du-Sud",
// "Seine (ancien département)". See [NormalizeRegion].
//
// Missing cells follow pandas conventions: empty strings and the usual NA
// sentinels ("NA", "NaN", "null", ...) all count as missing. See [IsMissing].
//
// # Consolidation
//
// Duplicates are resolved by keeping the annotation with the fewest missing
// cells; ties go to the row read first, with files read in lexicographic
// path order. Age at death is death date minus birth date, kept even when
// negative so data quality checks can report it.
//
// # Weeks
//
// Weekly series use weeks closing on Sunday, labelled by that Sunday. Weeks
// without deaths inside the covered range are present with a zero count.
package domain
