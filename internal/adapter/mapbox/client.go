package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"github.com/couchcryptid/mdf-dashboard/internal/observability"
	"golang.org/x/time/rate"
)

// countryCodes maps the country names of the MDF exports to the ISO 3166
// codes Mapbox filters on. Unknown countries are not filtered.
var countryCodes = map[string]string{
	"France":      "fr",
	"Belgique":    "be",
	"Allemagne":   "de",
	"Italie":      "it",
	"Grèce":       "gr",
	"Serbie":      "rs",
	"Turquie":     "tr",
	"Maroc":       "ma",
	"Algérie":     "dz",
	"Tunisie":     "tn",
	"Royaume-Uni": "gb",
	"Suisse":      "ch",
}

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client that sends at most
// requestsPerSecond requests.
func NewClient(token string, timeout time.Duration, requestsPerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode converts a place name, scoped to a country, to coordinates.
func (c *Client) ForwardGeocode(ctx context.Context, place, country string) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(place))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality,neighborhood,poi"},
		"language":     {"fr"},
	}
	if code, ok := countryCodes[country]; ok {
		params.Set("country", code)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.GeocodingResult{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return c.doRequest(ctx, u+"?"+params.Encode())
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("forward geocode request: %s", redact(err.Error(), c.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeocodingResult{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return domain.GeocodingResult{}, nil
	}

	f := mapboxResp.Features[0]
	result := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
	}
	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	c.logger.Debug("geocoded", "match", result.FormattedAddress, "relevance", result.Confidence)
	return result, nil
}

// redact keeps the access token out of errors, which embed the request URL.
func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "REDACTED")
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
