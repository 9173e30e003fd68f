package pipeline

import (
	"context"
	"log/slog"
	"maps"

	"github.com/couchcryptid/mdf-dashboard/internal/domain"
)

// GeocodeSummary reports what one gazetteer run did.
type GeocodeSummary struct {
	Known    int
	Pending  int
	Resolved int
	Failed   int
}

// GazetteerBuilder extends a gazetteer with the places of death it lacks.
type GazetteerBuilder struct {
	geocoder domain.Geocoder
	country  string
	logger   *slog.Logger
}

// NewGazetteerBuilder creates a GazetteerBuilder scoped to one country of
// death.
func NewGazetteerBuilder(geocoder domain.Geocoder, country string, logger *slog.Logger) *GazetteerBuilder {
	return &GazetteerBuilder{
		geocoder: geocoder,
		country:  country,
		logger:   logger,
	}
}

// Run geocodes every place of the builder's country that gazetteer does not
// hold yet, and returns a new gazetteer with the resolved places added. Places
// that cannot be resolved are skipped. Only context cancellation stops the run.
func (b *GazetteerBuilder) Run(ctx context.Context, records []domain.Record, gazetteer domain.Gazetteer) (domain.Gazetteer, GeocodeSummary, error) {
	out := make(domain.Gazetteer, len(gazetteer))
	maps.Copy(out, gazetteer)

	pending := domain.UngeocodedPlaces(records, b.country, gazetteer)
	summary := GeocodeSummary{Known: len(gazetteer), Pending: len(pending)}
	b.logger.Info("geocoding places", "country", b.country, "known", summary.Known, "pending", summary.Pending)

	for i, place := range pending {
		if err := ctx.Err(); err != nil {
			return out, summary, err
		}
		coords, ok := domain.ResolvePlace(ctx, place, b.country, b.geocoder, b.logger)
		if !ok {
			summary.Failed++
			continue
		}
		out[place] = coords
		summary.Resolved++
		if (i+1)%100 == 0 {
			b.logger.Info("geocoding progress", "done", i+1, "pending", len(pending))
		}
	}

	b.logger.Info("geocoding finished", "resolved", summary.Resolved, "failed", summary.Failed)
	return out, summary, nil
}
