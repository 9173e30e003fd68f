// Package dashboard loads the consolidated data once and holds every view
// the dashboard serves in an immutable Bundle.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/adapter/boundaries"
	"github.com/couchcryptid/mdf-dashboard/internal/adapter/csvstore"
	"github.com/couchcryptid/mdf-dashboard/internal/chart"
	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"github.com/couchcryptid/mdf-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Sources locates the bundle's inputs.
type Sources struct {
	DataPath      string
	GazetteerPath string
	BoundariesURL string
}

// Options configures how the bundle is built and how lookups tell time.
type Options struct {
	// Country scopes the regional and place views. Empty means every
	// country.
	Country string
	// Location decides which calendar day "today" is. Defaults to UTC.
	Location *time.Location
	// Clock supplies "now" for lookups. Defaults to the real clock.
	Clock             clockwork.Clock
	BoundariesTimeout time.Duration
	Logger            *slog.Logger
	Metrics           *observability.Metrics
}

func (o *Options) setDefaults() {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.BoundariesTimeout <= 0 {
		o.BoundariesTimeout = 15 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = observability.NewMetricsForTesting()
	}
}

// Stats summarizes a loaded bundle.
type Stats struct {
	Records         int       `json:"records"`
	Weeks           int       `json:"weeks"`
	Regions         int       `json:"regions"`
	Places          int       `json:"places"`
	UnmatchedPlaces int       `json:"unmatched_places"`
	UnknownRegions  []string  `json:"unknown_regions"`
	Country         string    `json:"country"`
	LoadedAt        time.Time `json:"loaded_at"`
}

// Bundle is the loaded data and every precomputed view. It is never
// modified after New returns and is safe for concurrent use. Slices it
// returns are shared and must not be modified.
type Bundle struct {
	weekly  []domain.WeekCount
	regions []domain.RegionCount
	places  []domain.PlaceCount
	figures map[string]json.RawMessage
	index   *domain.LookupIndex
	stats   Stats

	clock    clockwork.Clock
	location *time.Location
}

// Load reads the consolidated table, the gazetteer and the boundary shapes,
// then builds the bundle. Any unreadable input is fatal.
func Load(ctx context.Context, src Sources, opts Options) (*Bundle, error) {
	opts.setDefaults()

	table, err := csvstore.ReadTable(src.DataPath)
	if err != nil {
		return nil, fmt.Errorf("load consolidated table: %w", err)
	}
	opts.Logger.Info("consolidated table loaded", "path", src.DataPath, "records", len(table.Records))

	gazetteer, dropped, err := csvstore.ReadGazetteer(src.GazetteerPath)
	if err != nil {
		return nil, fmt.Errorf("load gazetteer: %w", err)
	}
	opts.Logger.Info("gazetteer loaded", "path", src.GazetteerPath, "places", len(gazetteer), "dropped", dropped)

	shapes, err := boundaries.NewLoader(opts.BoundariesTimeout, opts.Logger).Load(ctx, src.BoundariesURL)
	if err != nil {
		return nil, err
	}

	return New(table, gazetteer, shapes, opts)
}

// New computes every view from already loaded inputs.
func New(table domain.Table, gazetteer domain.Gazetteer, shapes boundaries.Shapes, opts Options) (*Bundle, error) {
	opts.setDefaults()

	b := &Bundle{
		weekly:   domain.WeeklySeries(table.Records),
		regions:  domain.RegionTally(table.Records, opts.Country),
		index:    domain.NewLookupIndex(table.Records),
		clock:    opts.Clock,
		location: opts.Location,
	}
	var unmatched int
	b.places, unmatched = domain.PlaceTally(table.Records, opts.Country, gazetteer)

	figures := map[string]chart.Figure{
		chart.Casualties: chart.CasualtiesBar(b.weekly),
		chart.Cumulative: chart.CumulativeBar(b.weekly),
		chart.Choropleth: chart.RegionChoropleth(b.regions, shapes),
		chart.Density:    chart.PlaceDensity(b.places),
	}
	b.figures = make(map[string]json.RawMessage, len(figures))
	for name, fig := range figures {
		raw, err := json.Marshal(fig)
		if err != nil {
			return nil, fmt.Errorf("encode %s figure: %w", name, err)
		}
		b.figures[name] = raw
	}

	b.stats = Stats{
		Records:         len(table.Records),
		Weeks:           len(b.weekly),
		Regions:         len(b.regions),
		Places:          len(b.places),
		UnmatchedPlaces: unmatched,
		UnknownRegions:  unknownRegions(b.regions, shapes.Regions),
		Country:         opts.Country,
		LoadedAt:        opts.Clock.Now(),
	}

	if unmatched > 0 {
		opts.Logger.Debug("places without coordinates left off the density map", "count", unmatched)
	}
	if n := len(b.stats.UnknownRegions); n > 0 {
		opts.Logger.Debug("regions without a boundary shape", "count", n, "regions", b.stats.UnknownRegions)
	}

	m := opts.Metrics
	m.RecordsLoaded.Set(float64(b.stats.Records))
	m.ViewRows.WithLabelValues("weekly").Set(float64(b.stats.Weeks))
	m.ViewRows.WithLabelValues("regions").Set(float64(b.stats.Regions))
	m.ViewRows.WithLabelValues("places").Set(float64(b.stats.Places))
	m.UnmatchedPlaces.Set(float64(unmatched))

	opts.Logger.Info("dashboard bundle built",
		"records", b.stats.Records,
		"weeks", b.stats.Weeks,
		"regions", b.stats.Regions,
		"places", b.stats.Places,
	)
	return b, nil
}

// unknownRegions lists tallied regions with no shape of the same name.
func unknownRegions(tally []domain.RegionCount, shapeNames []string) []string {
	known := make(map[string]struct{}, len(shapeNames))
	for _, name := range shapeNames {
		known[name] = struct{}{}
	}
	out := []string{}
	for _, r := range tally {
		if _, ok := known[r.Region]; !ok {
			out = append(out, r.Region)
		}
	}
	slices.Sort(out)
	return out
}

func (b *Bundle) Weekly() []domain.WeekCount   { return b.weekly }
func (b *Bundle) Regions() []domain.RegionCount { return b.regions }
func (b *Bundle) Places() []domain.PlaceCount   { return b.places }
func (b *Bundle) Stats() Stats                  { return b.stats }

// Figure returns the encoded figure called name.
func (b *Bundle) Figure(name string) (json.RawMessage, bool) {
	raw, ok := b.figures[name]
	return raw, ok
}

// Lookup finds a record that died at the age someone born on birth is
// today, using the bundle's clock and location.
func (b *Bundle) Lookup(birth *time.Time, rng *rand.Rand) (domain.Match, error) {
	return b.index.Lookup(birth, b.Today(), rng)
}

// Today is the current wall-clock time in the bundle's location.
func (b *Bundle) Today() time.Time {
	return b.clock.Now().In(b.location)
}
