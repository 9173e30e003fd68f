package domain

import (
	"context"
	"log/slog"
)

// minGeocodeConfidence is the relevance below which a provider answer is
// treated as a guess and discarded.
const minGeocodeConfidence = 0.5

// ResolvePlace forward-geocodes one place of death. Failures and low
// confidence answers are logged and reported as not found, so one bad place
// never stops a batch.
func ResolvePlace(ctx context.Context, place, country string, geocoder Geocoder, logger *slog.Logger) (Coordinates, bool) {
	if geocoder == nil || place == "" {
		return Coordinates{}, false
	}

	result, err := geocoder.ForwardGeocode(ctx, place, country)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"place", place,
			"country", country,
			"error", err,
		)
		return Coordinates{}, false
	}
	if !result.Found() {
		logger.Debug("place not found by geocoder", "place", place, "country", country)
		return Coordinates{}, false
	}
	if result.Confidence > 0 && result.Confidence < minGeocodeConfidence {
		logger.Debug("discarding low confidence geocode",
			"place", place,
			"match", result.FormattedAddress,
			"confidence", result.Confidence,
		)
		return Coordinates{}, false
	}
	return Coordinates{Lat: result.Lat, Lon: result.Lon}, true
}
