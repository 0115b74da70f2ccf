package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.StationsFile)

	assert.Equal(t, "http://localhost:8090", cfg.WaveformURL)
	assert.Equal(t, 30*time.Second, cfg.WaveformTimeout)
	assert.Equal(t, "IV", cfg.NetworkCode)
	assert.Equal(t, "HHZ", cfg.ChannelCode)
	assert.Empty(t, cfg.LocationCode)
	assert.Equal(t, 600*time.Second, cfg.AcquisitionWindow)
	assert.Equal(t, 300*time.Second, cfg.AcquisitionLatency)
	assert.Equal(t, 1, cfg.AcquisitionWorkers)

	assert.Equal(t, 0.1, cfg.StrongRMSThreshold)
	assert.Equal(t, 0.2, cfg.WeakFraction)
	assert.Equal(t, 0.05, cfg.PickThreshold)

	assert.Equal(t, 300*time.Second, cfg.PostEventWindow)
	assert.Equal(t, 300*time.Second, cfg.AggregationInterval)
	assert.Equal(t, 6*time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, 7*24*time.Hour, cfg.RetentionAge())
	assert.Equal(t, 10, cfg.MaxRawPerStation)
	assert.Equal(t, 60*time.Second, cfg.CycleInterval)

	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Empty(t, cfg.StoreDSN)
	assert.Equal(t, "./data/blobs", cfg.BlobDir)
	assert.Equal(t, "dashboard_data.json", cfg.DashboardFile)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "seismic-epicenters", cfg.KafkaTopic)

	assert.False(t, cfg.TelegramEnabled)
	assert.Equal(t, 800.0, cfg.NotifyMinPeak)
	assert.Equal(t, 3*time.Second, cfg.NotifyMinDuration)

	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("STATIONS_FILE", "/etc/seismic/stations.yaml")
	t.Setenv("WAVEFORM_URL", "http://gateway:9000")
	t.Setenv("NETWORK_CODE", "MN")
	t.Setenv("CHANNEL_CODE", "BHZ")
	t.Setenv("LOCATION_CODE", "00")
	t.Setenv("ACQUISITION_WINDOW", "120s")
	t.Setenv("ACQUISITION_LATENCY", "800s")
	t.Setenv("ACQUISITION_WORKERS", "3")
	t.Setenv("STRONG_RMS_THRESHOLD", "0.25")
	t.Setenv("WEAK_FRACTION", "0.5")
	t.Setenv("PICK_THRESHOLD", "2.5")
	t.Setenv("RETENTION_DAYS", "30")
	t.Setenv("MAX_RAW_PER_STATION", "50")
	t.Setenv("CYCLE_INTERVAL", "15s")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("STORE_DSN", "postgres://db/seismic")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "quakes")
	t.Setenv("TELEGRAM_ENABLED", "true")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/etc/seismic/stations.yaml", cfg.StationsFile)
	assert.Equal(t, "http://gateway:9000", cfg.WaveformURL)
	assert.Equal(t, "MN", cfg.NetworkCode)
	assert.Equal(t, "BHZ", cfg.ChannelCode)
	assert.Equal(t, "00", cfg.LocationCode)
	assert.Equal(t, 120*time.Second, cfg.AcquisitionWindow)
	assert.Equal(t, 800*time.Second, cfg.AcquisitionLatency)
	assert.Equal(t, 3, cfg.AcquisitionWorkers)
	assert.Equal(t, 0.25, cfg.StrongRMSThreshold)
	assert.Equal(t, 0.5, cfg.WeakFraction)
	assert.Equal(t, 2.5, cfg.PickThreshold)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 50, cfg.MaxRawPerStation)
	assert.Equal(t, 15*time.Second, cfg.CycleInterval)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "postgres://db/seismic", cfg.StoreDSN)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "quakes", cfg.KafkaTopic)
	assert.True(t, cfg.TelegramEnabled)
	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, "-100200", cfg.TelegramChatID)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_InvalidValuesNameTheVariable(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"WAVEFORM_TIMEOUT", "soon"},
		{"ACQUISITION_WINDOW", "0s"},
		{"ACQUISITION_WINDOW", "5s"},
		{"ACQUISITION_LATENCY", "60s"},
		{"ACQUISITION_LATENCY", "900s"},
		{"ACQUISITION_WORKERS", "0"},
		{"STRONG_RMS_THRESHOLD", "-0.1"},
		{"WEAK_FRACTION", "1.5"},
		{"PICK_THRESHOLD", "abc"},
		{"POST_EVENT_WINDOW", "-5m"},
		{"AGGREGATION_INTERVAL", "x"},
		{"CLEANUP_INTERVAL", "0"},
		{"RETENTION_DAYS", "0"},
		{"MAX_RAW_PER_STATION", "-3"},
		{"CYCLE_INTERVAL", "fast"},
		{"STORE_DRIVER", "mongo"},
		{"MAPBOX_TIMEOUT", "bad"},
		{"NOTIFY_MIN_DURATION", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_TelegramEnabledWithoutCredentials(t *testing.T) {
	t.Setenv("TELEGRAM_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestLoadStations_BuiltIn(t *testing.T) {
	reg, err := LoadStations("")
	require.NoError(t, err)
	assert.Equal(t, []string{"TRIV", "SACR", "CIGN"}, reg.IDs())
}

func TestLoadStations_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
stations:
  - id: CAFR
    name: Casalnuovo Monterotaro
    latitude: 41.6
    longitude: 15.1
  - id: TRIV
    name: Trivento
    latitude: 41.7666
    longitude: 14.5502
`), 0o600))

	reg, err := LoadStations(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"CAFR", "TRIV"}, reg.IDs())
	cafr, ok := reg.Lookup("CAFR")
	require.True(t, ok)
	assert.Equal(t, "Casalnuovo Monterotaro", cafr.Name)
	assert.Equal(t, 15.1, cafr.Longitude)
}

func TestLoadStations_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadStations(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATIONS_FILE")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("stations: [: nope"), 0o600))
	_, err = LoadStations(bad)
	require.Error(t, err)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("stations:\n  - id: A\n  - id: A\n"), 0o600))
	_, err = LoadStations(dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
