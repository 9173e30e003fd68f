// Package boundaries loads the region boundary shapes handed to the
// choropleth. The GeoJSON is passed on opaquely; only the region names are
// read, to check them against the regional tally.
package boundaries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
)

// FeatureIDKey is the GeoJSON property holding the region name.
const FeatureIDKey = "properties.nom"

// maxBodyBytes bounds the download; the département file is about 2.5 MB.
const maxBodyBytes = 64 << 20

// Download retry policy for network errors and 5xx responses.
const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 4 * time.Second
)

// Shapes is a loaded FeatureCollection.
type Shapes struct {
	GeoJSON json.RawMessage
	Regions []string
}

// Loader fetches boundary shapes over HTTP or from disk.
type Loader struct {
	httpClient *http.Client
	backoff    time.Duration
	logger     *slog.Logger
}

// NewLoader creates a Loader whose HTTP requests time out after timeout.
func NewLoader(timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: timeout},
		backoff:    initialBackoff,
		logger:     logger,
	}
}

// Load reads the shapes at location: an http(s) URL, a file:// URL, or a
// plain filesystem path.
func (l *Loader) Load(ctx context.Context, location string) (Shapes, error) {
	var (
		body []byte
		err  error
	)
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		body, err = l.fetch(ctx, location)
	case strings.HasPrefix(location, "file://"):
		u, perr := url.Parse(location)
		if perr != nil {
			return Shapes{}, fmt.Errorf("parse boundaries location: %w", perr)
		}
		body, err = os.ReadFile(u.Path)
	default:
		body, err = os.ReadFile(location)
	}
	if err != nil {
		return Shapes{}, fmt.Errorf("load boundaries from %s: %w", location, err)
	}

	shapes, err := Parse(body)
	if err != nil {
		return Shapes{}, fmt.Errorf("load boundaries from %s: %w", location, err)
	}
	l.logger.Info("boundaries loaded", "location", location, "regions", len(shapes.Regions), "bytes", len(body))
	return shapes, nil
}

// retryableError marks a failed download worth another attempt.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	backoff := l.backoff
	for attempt := 1; ; attempt++ {
		body, err := l.fetchOnce(ctx, rawURL)
		var retryable *retryableError
		if err == nil || !errors.As(err, &retryable) || attempt == maxAttempts {
			return body, err
		}
		l.logger.Warn("boundaries download failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (l *Loader) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("boundaries request: %w", err)
		}
		return nil, &retryableError{fmt.Errorf("boundaries request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("boundaries server error: status %d: %s", resp.StatusCode, snippet)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &retryableError{err}
		}
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// collection is the part of a FeatureCollection we look at.
type collection struct {
	Type     string `json:"type"`
	Features []struct {
		Properties struct {
			Nom string `json:"nom"`
		} `json:"properties"`
	} `json:"features"`
}

// Parse validates a FeatureCollection and lists its region names.
func Parse(body []byte) (Shapes, error) {
	var c collection
	if err := json.Unmarshal(body, &c); err != nil {
		return Shapes{}, fmt.Errorf("decode geojson: %w", err)
	}
	if c.Type != "FeatureCollection" {
		return Shapes{}, fmt.Errorf("decode geojson: want FeatureCollection, got %q", c.Type)
	}
	regions := make([]string, 0, len(c.Features))
	for _, f := range c.Features {
		if f.Properties.Nom != "" {
			regions = append(regions, f.Properties.Nom)
		}
	}
	return Shapes{GeoJSON: json.RawMessage(body), Regions: regions}, nil
}
