// Package config loads runtime settings from defaults, an optional YAML
// file, CONDITION_MCP_* environment variables and bound command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ironsheep/condition-detector-mcp/internal/imaging"
)

// EnvPrefix is prepended to every environment override, with dots in keys
// replaced by underscores: detection.quality -> CONDITION_MCP_DETECTION_QUALITY.
const EnvPrefix = "CONDITION_MCP"

// Config is the complete runtime configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Detection DetectionConfig `mapstructure:"detection"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DetectionConfig holds the screen scaling and search settings.
type DetectionConfig struct {
	// Quality is the target length in pixels of the longer scaled screen side.
	Quality float64 `mapstructure:"quality"`

	// MetricsTag identifies the screen geometry the ratio is cached under.
	MetricsTag string `mapstructure:"metrics_tag"`

	// Threshold is the default visual threshold (0-100) for the CLI and watch mode.
	Threshold int `mapstructure:"threshold"`

	// MaxCandidates caps the visual search loop. 0 means the map cell count.
	MaxCandidates int `mapstructure:"max_candidates"`

	// MaxTextAttempts caps text recognition attempts per call.
	MaxTextAttempts int `mapstructure:"max_text_attempts"`
}

type OCRConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Language string `mapstructure:"language"`
	Tessdata string `mapstructure:"tessdata"`
	MaxEdits int    `mapstructure:"max_edits"`
}

type MetricsConfig struct {
	// Listen is the address of the Prometheus endpoint. Empty disables it.
	Listen string `mapstructure:"listen"`
}

// MQTTConfig configures result publishing. An empty Broker disables it.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	QoS      int    `mapstructure:"qos"`
	Retain   bool   `mapstructure:"retain"`
}

type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`

	// HashDistance is the largest perceptual hash distance at which a frame
	// still counts as unchanged. Negative disables frame skipping.
	HashDistance int `mapstructure:"hash_distance"`
}

// Defaults for the settings a zero value would break.
const (
	DefaultQuality         = 480.0
	DefaultMetricsTag      = "default"
	DefaultThreshold       = 80
	DefaultMaxTextAttempts = 100
	DefaultLanguage        = "eng"
	DefaultMQTTTopic       = "condition-detector/results"
	DefaultMQTTClientID    = "condition-mcp"
	DefaultWatchInterval   = time.Second
	DefaultHashDistance    = 2
)

// SetDefaults registers every key and its default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("detection.quality", DefaultQuality)
	v.SetDefault("detection.metrics_tag", DefaultMetricsTag)
	v.SetDefault("detection.threshold", DefaultThreshold)
	v.SetDefault("detection.max_candidates", 0)
	v.SetDefault("detection.max_text_attempts", DefaultMaxTextAttempts)

	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.language", DefaultLanguage)
	v.SetDefault("ocr.tessdata", "")
	v.SetDefault("ocr.max_edits", 0)

	v.SetDefault("metrics.listen", "")

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("mqtt.client_id", DefaultMQTTClientID)
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("watch.interval", DefaultWatchInterval)
	v.SetDefault("watch.hash_distance", DefaultHashDistance)
}

// NewViper returns a viper instance with defaults and environment
// overrides registered. Flags are bound by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the configuration with nothing but defaults applied.
func Default() *Config {
	cfg, _ := Load(NewViper(), "")
	return cfg
}

// Load reads the YAML file at path (if path is not empty) into v, decodes
// the merged settings and validates them.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate clamps numeric settings to their usable ranges and rejects
// settings that cannot be repaired.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "trace", "debug", "info", "warn", "warning", "error":
	case "":
		c.Log.Level = "info"
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	if c.Detection.Quality <= 0 {
		c.Detection.Quality = DefaultQuality
	}
	c.Detection.Quality = imaging.ClampQuality(c.Detection.Quality)
	if strings.TrimSpace(c.Detection.MetricsTag) == "" {
		c.Detection.MetricsTag = DefaultMetricsTag
	}
	if c.Detection.Threshold < 0 || c.Detection.Threshold > 100 {
		c.Detection.Threshold = DefaultThreshold
	}
	if c.Detection.MaxCandidates < 0 {
		c.Detection.MaxCandidates = 0
	}
	if c.Detection.MaxTextAttempts <= 0 {
		c.Detection.MaxTextAttempts = DefaultMaxTextAttempts
	}

	if c.OCR.Language == "" {
		c.OCR.Language = DefaultLanguage
	}
	if c.OCR.MaxEdits < 0 {
		c.OCR.MaxEdits = 0
	}

	if c.MQTT.Broker != "" {
		u, err := url.Parse(c.MQTT.Broker)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("mqtt.broker: %q is not a broker URL like tcp://host:1883", c.MQTT.Broker))
		}
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = DefaultMQTTTopic
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultMQTTClientID
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		c.MQTT.QoS = 0
	}

	if c.Watch.Interval <= 0 {
		c.Watch.Interval = DefaultWatchInterval
	}

	return errors.Join(errs...)
}
