package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultQuality, cfg.Detection.Quality)
	assert.Equal(t, DefaultMetricsTag, cfg.Detection.MetricsTag)
	assert.Equal(t, DefaultThreshold, cfg.Detection.Threshold)
	assert.Zero(t, cfg.Detection.MaxCandidates)
	assert.Equal(t, DefaultMaxTextAttempts, cfg.Detection.MaxTextAttempts)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, DefaultLanguage, cfg.OCR.Language)
	assert.Empty(t, cfg.MQTT.Broker)
	assert.Equal(t, DefaultMQTTTopic, cfg.MQTT.Topic)
	assert.Equal(t, DefaultWatchInterval, cfg.Watch.Interval)
	assert.Equal(t, DefaultHashDistance, cfg.Watch.HashDistance)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
detection:
  quality: 720
  metrics_tag: phone
  max_candidates: 50
ocr:
  enabled: false
  language: deu
  max_edits: 2
mqtt:
  broker: tcp://localhost:1883
  topic: game/state
watch:
  interval: 250ms
  hash_distance: 4
`)

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 720.0, cfg.Detection.Quality)
	assert.Equal(t, "phone", cfg.Detection.MetricsTag)
	assert.Equal(t, 50, cfg.Detection.MaxCandidates)
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, "deu", cfg.OCR.Language)
	assert.Equal(t, 2, cfg.OCR.MaxEdits)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "game/state", cfg.MQTT.Topic)
	assert.Equal(t, DefaultMQTTClientID, cfg.MQTT.ClientID)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Interval)
	assert.Equal(t, 4, cfg.Watch.HashDistance)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "detection:\n  quality: 720\n")
	t.Setenv("CONDITION_MCP_DETECTION_QUALITY", "960")
	t.Setenv("CONDITION_MCP_LOG_LEVEL", "warn")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, 960.0, cfg.Detection.Quality)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("CONDITION_MCP_DETECTION_QUALITY", "960")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64("quality", DefaultQuality, "")
	require.NoError(t, flags.Parse([]string{"--quality", "1200"}))

	v := NewViper()
	require.NoError(t, v.BindPFlag("detection.quality", flags.Lookup("quality")))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, cfg.Detection.Quality)
}

func TestValidate_Clamps(t *testing.T) {
	cfg := &Config{
		Detection: DetectionConfig{
			Quality:         50000,
			Threshold:       150,
			MaxCandidates:   -3,
			MaxTextAttempts: 0,
		},
		OCR:   OCRConfig{MaxEdits: -1},
		MQTT:  MQTTConfig{QoS: 7},
		Watch: WatchConfig{Interval: -time.Second},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10000.0, cfg.Detection.Quality)
	assert.Equal(t, DefaultMetricsTag, cfg.Detection.MetricsTag)
	assert.Equal(t, DefaultThreshold, cfg.Detection.Threshold)
	assert.Zero(t, cfg.Detection.MaxCandidates)
	assert.Equal(t, DefaultMaxTextAttempts, cfg.Detection.MaxTextAttempts)
	assert.Equal(t, DefaultLanguage, cfg.OCR.Language)
	assert.Zero(t, cfg.OCR.MaxEdits)
	assert.Zero(t, cfg.MQTT.QoS)
	assert.Equal(t, DefaultWatchInterval, cfg.Watch.Interval)

	low := &Config{Detection: DetectionConfig{Quality: 20}}
	require.NoError(t, low.Validate())
	assert.Equal(t, 100.0, low.Detection.Quality)
}

func TestValidate_Errors(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.MQTT.Broker = "not a url"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "mqtt.broker")
}

func TestLoad_InvalidFileValue(t *testing.T) {
	path := writeConfig(t, "log:\n  level: shouty\n")
	_, err := Load(NewViper(), path)
	assert.Error(t, err)
}
