package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/gammad/internal/display"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig         `yaml:"log"`
	Database        DatabaseConfig    `yaml:"database"`
	Display         DisplayConfig     `yaml:"display"`
	Brightness      BrightnessConfig  `yaml:"brightness"`
	Temperature     TemperatureConfig `yaml:"temperature"`
	HTTP            HTTPConfig        `yaml:"http"`
	MQTT            MQTTConfig        `yaml:"mqtt"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DisplayConfig selects the capture and gamma backend
type DisplayConfig struct {
	Backend string `yaml:"backend"` // x11, image or null
	Name    string `yaml:"name"`    // X display, empty for $DISPLAY
	Image   string `yaml:"image"`   // image backend source file
	Width   int    `yaml:"width"`   // image/null capture size
	Height  int    `yaml:"height"`
	Level   int    `yaml:"level"` // null backend gray level
}

// BrightnessConfig contains adaptive brightness settings.
// Zero or negative fps or speed make transitions jump straight to the target.
type BrightnessConfig struct {
	Auto            bool     `yaml:"auto"`
	Manual          int      `yaml:"manual"` // step used when auto is off
	PollingInterval Duration `yaml:"polling_interval"`
	Speed           Duration `yaml:"speed"` // animation duration
	FPS             int      `yaml:"fps"`
	Threshold       int      `yaml:"threshold"` // accumulated luminance change that triggers a new target
	Min             int      `yaml:"min"`
	Max             int      `yaml:"max"`
	Offset          int      `yaml:"offset"`
	Script          string   `yaml:"script"`     // optional Lua policy
	RetryRate       float64  `yaml:"retry_rate"` // capture retries per second
}

// TemperatureConfig contains scheduled color temperature settings
type TemperatureConfig struct {
	Auto       bool     `yaml:"auto"`
	LowKelvin  int      `yaml:"low_kelvin"`
	HighKelvin int      `yaml:"high_kelvin"`
	Speed      Duration `yaml:"speed"`       // full transition duration
	QuickSpeed Duration `yaml:"quick_speed"` // duration of forced transitions
	FPS        int      `yaml:"fps"`
	Tick       Duration `yaml:"tick"` // schedule re-evaluation period
	Start      string   `yaml:"start"`
	End        string   `yaml:"end"`
	Latitude   float64  `yaml:"latitude"`
	Longitude  float64  `yaml:"longitude"`
	Timezone   string   `yaml:"timezone"`
}

// LowStep returns the temperature step of the low (warm) setting
func (c *TemperatureConfig) LowStep() int {
	return display.KelvinToStep(c.LowKelvin)
}

// HighStep returns the temperature step of the high (neutral) setting
func (c *TemperatureConfig) HighStep() int {
	return display.KelvinToStep(c.HighKelvin)
}

// HTTPConfig contains status/health server settings
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// MQTTConfig contains MQTT step publishing settings
type MQTTConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Broker      string   `yaml:"broker"`
	ClientID    string   `yaml:"client_id"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	TopicPrefix string   `yaml:"topic_prefix"`
	QoS         byte     `yaml:"qos"`
	RateLimit   float64  `yaml:"rate_limit"` // messages per second per topic
	Timeout     Duration `yaml:"timeout"`
}

// LedgerConfig contains transition ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	QueueSize int `yaml:"queue_size"` // Per-subscriber queue size (default: 256)
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 256
	}
	return c.QueueSize
}

// GetShutdownTimeout returns the shutdown timeout with default
func (c *Config) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return c.ShutdownTimeout.Duration()
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file.
// A .env file next to the working directory is loaded first so its values
// take part in ${VAR} expansion.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse expands environment variables and unmarshals onto the defaults, so
// keys missing from the file keep their default while explicit zero values
// are respected.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Normalize()

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info"},
		Database: DatabaseConfig{Path: "./gammad.sqlite"},
		Display: DisplayConfig{
			Backend: "x11",
			Width:   320,
			Height:  180,
			Level:   128,
		},
		Brightness: BrightnessConfig{
			Auto:            true,
			Manual:          display.MaxBrightnessStep,
			PollingInterval: Duration(100 * time.Millisecond),
			Speed:           Duration(3 * time.Second),
			FPS:             60,
			Threshold:       36,
			Min:             64,
			Max:             display.MaxBrightnessStep,
			Offset:          70,
			RetryRate:       2,
		},
		Temperature: TemperatureConfig{
			Auto:       true,
			LowKelvin:  3400,
			HighKelvin: display.MaxKelvin,
			Speed:      Duration(60 * time.Minute),
			QuickSpeed: Duration(2 * time.Second),
			FPS:        45,
			Tick:       Duration(60 * time.Second),
			Start:      "16:00",
			End:        "06:00",
		},
		HTTP: HTTPConfig{
			Host: "127.0.0.1",
			Port: 9090,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "gammad",
			RateLimit:   4,
			Timeout:     Duration(10 * time.Second),
		},
		Ledger: LedgerConfig{
			CleanupInterval: Duration(24 * time.Hour),
			RetentionDays:   30,
		},
		ShutdownTimeout: Duration(5 * time.Second),
	}
}

// Normalize bounds values that would otherwise break the control loops.
func (cfg *Config) Normalize() {
	b := &cfg.Brightness
	b.Min = display.Clamp(b.Min, 0, display.MaxBrightnessStep)
	b.Max = display.Clamp(b.Max, 0, display.MaxBrightnessStep)
	if b.Min > b.Max {
		b.Min, b.Max = b.Max, b.Min
	}
	b.Manual = display.Clamp(b.Manual, 0, display.MaxBrightnessStep)
	if b.Threshold < 0 {
		b.Threshold = 0
	}
	if b.PollingInterval < 0 {
		b.PollingInterval = 0
	}
	if b.RetryRate <= 0 {
		b.RetryRate = 2
	}

	t := &cfg.Temperature
	t.LowKelvin = display.Clamp(t.LowKelvin, display.MinKelvin, display.MaxKelvin)
	t.HighKelvin = display.Clamp(t.HighKelvin, display.MinKelvin, display.MaxKelvin)
	if t.Tick <= 0 {
		t.Tick = Duration(60 * time.Second)
	}
	if t.QuickSpeed < 0 {
		t.QuickSpeed = 0
	}

	cfg.Display.Level = display.Clamp(cfg.Display.Level, 0, 255)

	if cfg.MQTT.Timeout <= 0 {
		cfg.MQTT.Timeout = Duration(10 * time.Second)
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := strings.TrimSpace(parts[1])
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
