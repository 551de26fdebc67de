package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration
	LoadConcurrency    int

	// Upstream weather APIs.
	UpstreamTimeout        time.Duration
	OpenMeteoForecastURL   string
	OpenMeteoHistoricalURL string
	OpenMeteoArchiveURL    string
	NWSBaseURL             string
	NWSUserAgent           string
	NWSCacheSize           int

	// RulesConfigPath is an optional YAML file of rule thresholds.
	RulesConfigPath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("UPSTREAM_TIMEOUT", "20s"))
	if err != nil || upstreamTimeout <= 0 {
		return nil, errors.New("invalid UPSTREAM_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	concurrency, err := parsePositiveInt("LOAD_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "season-load-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "season-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "snowpack-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		LoadConcurrency:    concurrency,

		UpstreamTimeout:        upstreamTimeout,
		OpenMeteoForecastURL:   sharedcfg.EnvOrDefault("OPEN_METEO_FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
		OpenMeteoHistoricalURL: sharedcfg.EnvOrDefault("OPEN_METEO_HISTORICAL_URL", "https://historical-forecast-api.open-meteo.com/v1/forecast"),
		OpenMeteoArchiveURL:    sharedcfg.EnvOrDefault("OPEN_METEO_ARCHIVE_URL", "https://archive-api.open-meteo.com/v1/archive"),
		NWSBaseURL:             sharedcfg.EnvOrDefault("NWS_BASE_URL", "https://api.weather.gov"),
		NWSUserAgent:           sharedcfg.EnvOrDefault("NWS_USER_AGENT", "snowpack-etl (ops@snowpack.local)"),
		NWSCacheSize:           parseNWSCacheSize(),

		RulesConfigPath: os.Getenv("RULES_CONFIG"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.NWSUserAgent == "" {
		return nil, errors.New("NWS_USER_AGENT is required")
	}

	return cfg, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseNWSCacheSize() int {
	if s := os.Getenv("NWS_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
