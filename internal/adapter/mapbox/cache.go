package mapbox

import (
	"context"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"github.com/couchcryptid/mdf-dashboard/internal/observability"
	gocache "github.com/patrickmn/go-cache"
)

// CachedGeocoder wraps a Geocoder with an in-memory TTL cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *gocache.Cache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder. Entries
// expire after ttl.
func NewCachedGeocoder(inner domain.Geocoder, ttl time.Duration, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   gocache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, place, country string) (domain.GeocodingResult, error) {
	key := "fwd:" + place + "|" + country
	if v, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return v.(domain.GeocodingResult), nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ForwardGeocode(ctx, place, country)
	if err != nil {
		return result, err
	}
	// Only cache found places so transient "not found" responses can be retried.
	if result.Found() {
		c.cache.SetDefault(key, result)
	}
	return result, nil
}

// Len returns the number of cached entries, expired ones included until
// the next cleanup.
func (c *CachedGeocoder) Len() int {
	return c.cache.ItemCount()
}
