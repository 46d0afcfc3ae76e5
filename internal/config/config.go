package config

import (
	"errors"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all CLI settings, populated from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string

	// GRIB2 decoder executables.
	Wgrib2Path    string
	GribberPath   string
	DecodeTimeout time.Duration

	// NWS RIDGE station images.
	StationBaseURL string
	StationTimeout time.Duration

	// Directory of Natural Earth 50m shapefiles for the MRMS base map.
	BasemapDir string

	// Prometheus textfile written after each run.
	MetricsTextfile string

	// Render notifications. Empty brokers disable publishing.
	KafkaBrokers []string
	KafkaTopic   string

	// Mapbox reverse geocoding for the event label.
	MapboxToken   string
	MapboxEnabled bool
	MapboxTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	decodeTimeout, err := parsePositiveDuration("DECODE_TIMEOUT", "5m")
	if err != nil {
		return nil, err
	}
	stationTimeout, err := parsePositiveDuration("STATION_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		Wgrib2Path:      sharedcfg.EnvOrDefault("WGRIB2_PATH", "wgrib2"),
		GribberPath:     sharedcfg.EnvOrDefault("GRIBBER_PATH", "gribber"),
		DecodeTimeout:   decodeTimeout,
		StationBaseURL:  strings.TrimRight(sharedcfg.EnvOrDefault("STATION_BASE_URL", "https://radar.weather.gov/ridge/standard"), "/"),
		StationTimeout:  stationTimeout,
		BasemapDir:      os.Getenv("BASEMAP_DIR"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		KafkaBrokers:    brokers,
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "radar-images-rendered"),

		MapboxToken:   mapboxToken,
		MapboxEnabled: mapboxEnabled,
		MapboxTimeout: mapboxTimeout,
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("LOG_FORMAT must be text or json")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// NotifyEnabled reports whether render notifications should be published.
func (c *Config) NotifyEnabled() bool { return len(c.KafkaBrokers) > 0 }

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}
