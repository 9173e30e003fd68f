package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Input files and the boundary shapes.
	RawGlob           string
	DataPath          string
	GazetteerPath     string
	BoundariesURL     string
	BoundariesTimeout time.Duration

	// Country scopes the regional and place views and geocoding.
	Country string
	// Location decides which calendar day "today" is for the lookup.
	Location *time.Location

	// Optional Kafka sink for consolidated records. Disabled when no
	// brokers are set.
	KafkaBrokers       []string
	KafkaTopic         string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken    string
	MapboxEnabled  bool
	MapboxTimeout  time.Duration
	MapboxCacheTTL time.Duration
	MapboxRate     float64
}

// KafkaEnabled reports whether consolidated records are also published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults
// where unset. Variables from the file named by ENV_FILE (default ".env")
// are loaded first when it exists; the process environment wins over it.
func Load() (*Config, error) {
	if err := loadDotEnv(sharedcfg.EnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}
	boundariesTimeout, err := parsePositiveDuration("BOUNDARIES_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	mapboxCacheTTL, err := parsePositiveDuration("MAPBOX_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}
	mapboxRate, err := parseMapboxRate()
	if err != nil {
		return nil, err
	}

	tz := sharedcfg.EnvOrDefault("TIMEZONE", "UTC")
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		RawGlob:           sharedcfg.EnvOrDefault("RAW_GLOB", "data/raw/*.csv"),
		DataPath:          sharedcfg.EnvOrDefault("DATA_PATH", "data/processed/mdf_df.csv"),
		GazetteerPath:     sharedcfg.EnvOrDefault("GAZETTEER_PATH", "data/processed/lieu_deces_sel.csv"),
		BoundariesURL:     sharedcfg.EnvOrDefault("BOUNDARIES_URL", "https://france-geojson.gregoiredavid.fr/repo/departements.geojson"),
		BoundariesTimeout: boundariesTimeout,

		Country:  sharedcfg.EnvOrDefault("COUNTRY", "France"),
		Location: location,

		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "mdf-consolidated-records"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:    mapboxToken,
		MapboxEnabled:  mapboxEnabled,
		MapboxTimeout:  mapboxTimeout,
		MapboxCacheTTL: mapboxCacheTTL,
		MapboxRate:     mapboxRate,
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseMapboxRate() (float64, error) {
	s := sharedcfg.EnvOrDefault("MAPBOX_RATE", "5")
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r <= 0 {
		return 0, errors.New("invalid MAPBOX_RATE: must be a positive number of requests per second")
	}
	return r, nil
}
