package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
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

	// WCS coverage configuration.
	WCSURL       string
	WCSCoverage  string
	WCSFormat    string
	WCSUsername  string
	WCSPassword  string
	WCSTimeout   time.Duration
	WCSCacheSize int

	// Sampling configuration.
	SamplingFactor float64
	PointBuffer    float64
	MaxValidValue  float64
	H3Resolution   int

	// Redis sample cache; an empty address disables it.
	RedisAddr        string
	RedisPoolSize    int
	RedisDialTimeout time.Duration
	SampleCacheTTL   time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
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

	wcsTimeout, err := parsePositiveDuration("WCS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("SAMPLE_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("WCS_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}
	redisPool, err := parsePositiveInt("REDIS_POOL_SIZE", 16)
	if err != nil {
		return nil, err
	}
	redisDial, err := parsePositiveDuration("REDIS_DIAL_TIMEOUT", "2s")
	if err != nil {
		return nil, err
	}
	samplingFactor, err := parsePositiveFloat("SAMPLING_FACTOR", 1)
	if err != nil {
		return nil, err
	}
	pointBuffer, err := parsePositiveFloat("POINT_BUFFER", 0.0001)
	if err != nil {
		return nil, err
	}
	maxValid, err := parseFloat("MAX_VALID_VALUE", 100)
	if err != nil {
		return nil, err
	}
	h3Res, err := parseH3Resolution()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-locations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "enriched-locations"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "coverage-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		WCSURL:       strings.TrimSpace(os.Getenv("WCS_URL")),
		WCSCoverage:  strings.TrimSpace(os.Getenv("WCS_COVERAGE")),
		WCSFormat:    sharedcfg.EnvOrDefault("WCS_FORMAT", "ArcGrid"),
		WCSUsername:  os.Getenv("WCS_USERNAME"),
		WCSPassword:  os.Getenv("WCS_PASSWORD"),
		WCSTimeout:   wcsTimeout,
		WCSCacheSize: cacheSize,

		SamplingFactor: samplingFactor,
		PointBuffer:    pointBuffer,
		MaxValidValue:  maxValid,
		H3Resolution:   h3Res,

		RedisAddr:        strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPoolSize:    redisPool,
		RedisDialTimeout: redisDial,
		SampleCacheTTL:   cacheTTL,
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
	if cfg.WCSURL == "" {
		return nil, errors.New("WCS_URL is required")
	}
	if cfg.WCSCoverage == "" {
		return nil, errors.New("WCS_COVERAGE is required")
	}
	if (cfg.WCSUsername == "") != (cfg.WCSPassword == "") {
		return nil, errors.New("WCS_USERNAME and WCS_PASSWORD must be set together")
	}

	return cfg, nil
}

func parseDuration(name, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(name, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return d, nil
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := parseDuration(name, def)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}

func parsePositiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, s)
	}
	return n, nil
}

func parseFloat(name string, def float64) (float64, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func parsePositiveFloat(name string, def float64) (float64, error) {
	v, err := parseFloat(name, def)
	if err != nil {
		return 0, err
	}
	if !(v > 0) {
		return 0, fmt.Errorf("invalid %s %g: must be positive", name, v)
	}
	return v, nil
}

// parseH3Resolution accepts H3 resolutions 0-15, or -1 to disable the cell
// attribute.
func parseH3Resolution() (int, error) {
	s := sharedcfg.EnvOrDefault("H3_RESOLUTION", "9")
	n, err := strconv.Atoi(s)
	if err != nil || n < -1 || n > 15 {
		return 0, fmt.Errorf("invalid H3_RESOLUTION %q: must be -1 to 15", s)
	}
	return n, nil
}
