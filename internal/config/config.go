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
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Station registry; empty uses the built-in stations.
	StationsFile string

	// Waveform acquisition.
	WaveformURL        string
	WaveformTimeout    time.Duration
	NetworkCode        string
	ChannelCode        string
	LocationCode       string
	AcquisitionWindow  time.Duration
	AcquisitionLatency time.Duration
	AcquisitionWorkers int

	// Detection and picking.
	StrongRMSThreshold float64
	WeakFraction       float64
	PickThreshold      float64

	// Retention lifecycle.
	PostEventWindow     time.Duration
	AggregationInterval time.Duration
	CleanupInterval     time.Duration
	RetentionDays       int
	MaxRawPerStation    int

	CycleInterval time.Duration

	// Persistence.
	StoreDriver   string
	StoreDSN      string
	BlobDir       string
	DashboardFile string

	// Estimate fan-out.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Notifications.
	TelegramEnabled   bool
	TelegramBotToken  string
	TelegramChatID    string
	NotifyMinPeak     float64
	NotifyMinDuration time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// RetentionAge returns RetentionDays as a duration.
func (c *Config) RetentionAge() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StationsFile: os.Getenv("STATIONS_FILE"),

		WaveformURL:        sharedcfg.EnvOrDefault("WAVEFORM_URL", "http://localhost:8090"),
		WaveformTimeout:    p.duration("WAVEFORM_TIMEOUT", "30s"),
		NetworkCode:        sharedcfg.EnvOrDefault("NETWORK_CODE", "IV"),
		ChannelCode:        sharedcfg.EnvOrDefault("CHANNEL_CODE", "HHZ"),
		LocationCode:       os.Getenv("LOCATION_CODE"),
		AcquisitionWindow:  p.duration("ACQUISITION_WINDOW", "600s"),
		AcquisitionLatency: p.duration("ACQUISITION_LATENCY", "300s"),
		AcquisitionWorkers: p.positiveInt("ACQUISITION_WORKERS", 1),

		StrongRMSThreshold: p.positiveFloat("STRONG_RMS_THRESHOLD", 0.1),
		WeakFraction:       p.positiveFloat("WEAK_FRACTION", 0.2),
		PickThreshold:      p.positiveFloat("PICK_THRESHOLD", 0.05),

		PostEventWindow:     p.duration("POST_EVENT_WINDOW", "300s"),
		AggregationInterval: p.duration("AGGREGATION_INTERVAL", "300s"),
		CleanupInterval:     p.duration("CLEANUP_INTERVAL", "6h"),
		RetentionDays:       p.positiveInt("RETENTION_DAYS", 7),
		MaxRawPerStation:    p.positiveInt("MAX_RAW_PER_STATION", 10),

		CycleInterval: p.duration("CYCLE_INTERVAL", "60s"),

		StoreDriver:   strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", "sqlite")),
		StoreDSN:      os.Getenv("STORE_DSN"),
		BlobDir:       sharedcfg.EnvOrDefault("BLOB_DIR", "./data/blobs"),
		DashboardFile: sharedcfg.EnvOrDefault("DASHBOARD_FILE", "dashboard_data.json"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "seismic-epicenters"),

		TelegramEnabled:   os.Getenv("TELEGRAM_ENABLED") == "true",
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:    os.Getenv("TELEGRAM_CHAT_ID"),
		NotifyMinPeak:     p.positiveFloat("NOTIFY_MIN_PEAK", 800),
		NotifyMinDuration: p.duration("NOTIFY_MIN_DURATION", "3s"),

		MapboxTimeout:   p.duration("MAPBOX_TIMEOUT", "5s"),
		MapboxCacheSize: parseMapboxCacheSize(),
	}
	if p.err != nil {
		return nil, p.err
	}

	cfg.MapboxToken = os.Getenv("MAPBOX_TOKEN")
	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.WeakFraction >= 1 {
		return errors.New("invalid WEAK_FRACTION: must be below 1")
	}
	if c.AcquisitionLatency < 300*time.Second || c.AcquisitionLatency > 800*time.Second {
		return errors.New("invalid ACQUISITION_LATENCY: must be between 300s and 800s")
	}
	if c.AcquisitionWindow < 10*time.Second {
		return errors.New("invalid ACQUISITION_WINDOW: must be at least 10s")
	}
	switch c.StoreDriver {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: must be sqlite or postgres", c.StoreDriver)
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required")
		}
	}
	if c.TelegramEnabled && (c.TelegramBotToken == "" || c.TelegramChatID == "") {
		return errors.New("TELEGRAM_ENABLED is true but TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is not set")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

// parser collects the first parse error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, want string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: must be %s", key, want)
	}
}

func (p *parser) duration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		p.fail(key, "a positive duration")
		return 0
	}
	return d
}

func (p *parser) positiveInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		p.fail(key, "a positive integer")
		return 0
	}
	return n
}

func (p *parser) positiveFloat(key string, fallback float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		p.fail(key, "a positive number")
		return 0
	}
	return f
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
