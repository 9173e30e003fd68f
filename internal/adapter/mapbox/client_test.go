package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Verdun")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "fr", r.URL.Query().Get("country"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{5.3844, 49.1598},
					PlaceName: "Verdun, Meuse, France",
					Text:      "Verdun",
					Relevance: 0.95,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "Verdun", "France")
	require.NoError(t, err)

	assert.Equal(t, 49.1598, result.Lat)
	assert.Equal(t, 5.3844, result.Lon)
	assert.Equal(t, "Verdun, Meuse, France", result.FormattedAddress)
	assert.Equal(t, "Verdun", result.PlaceName)
	assert.Equal(t, 0.95, result.Confidence)
	assert.True(t, result.Found())
}

func TestClient_ForwardGeocode_UnknownCountryIsNotFiltered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["country"]
		assert.False(t, ok)
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{}))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Gallipoli", "Dardanelles")
	require.NoError(t, err)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "Nulle-Part", "France")
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.Empty(t, result.FormattedAddress)
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := &Client{
		token:      "bad-token",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    srv.URL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	_, err := c.ForwardGeocode(context.Background(), "Verdun", "France")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 50 * time.Millisecond},
		baseURL:    srv.URL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	_, err := c.ForwardGeocode(context.Background(), "Verdun", "France")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testToken)
}

func TestClient_ForwardGeocode_RateLimitHonoursContext(t *testing.T) {
	c := testClient("http://127.0.0.1:0")
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, c.limiter.Allow(), "drain the single token")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.ForwardGeocode(ctx, "Verdun", "France")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
