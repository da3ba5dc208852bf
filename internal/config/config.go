// Package config loads daemon configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourceIIO    = "iio"
	SourceSerial = "serial"
	SourceMQTT   = "mqtt"
	SourceFake   = "fake"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AQS_"

// Config represents the daemon configuration.
type Config struct {
	LogLevel       string         `yaml:"log_level"`
	SampleInterval time.Duration  `yaml:"sample_interval"`
	ReportInterval time.Duration  `yaml:"report_interval"`
	WarmUp         time.Duration  `yaml:"warm_up"`
	InitRetries    int            `yaml:"init_retries"`
	Sensors        []SensorConfig `yaml:"sensors"`
}

// SensorConfig describes one physical sensor and where its readings come from.
type SensorConfig struct {
	Name   string       `yaml:"name"`
	Source string       `yaml:"source"`
	IIO    IIOConfig    `yaml:"iio"`
	Serial SerialConfig `yaml:"serial"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Power  *PowerConfig `yaml:"power,omitempty"`
	Fake   FakeConfig   `yaml:"fake"`
}

// IIOConfig selects a Linux IIO ADC channel.
type IIOConfig struct {
	Root    string `yaml:"root"`
	Device  int    `yaml:"device"`
	Channel int    `yaml:"channel"`
}

// SerialConfig contains serial ADC bridge configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// MQTTConfig contains remote ADC node configuration.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// PowerConfig selects the GPIO line that switches the sensor supply.
type PowerConfig struct {
	Chip string `yaml:"chip"`
	Pin  int    `yaml:"pin"`
}

// FakeConfig scripts readings for bench testing without hardware.
type FakeConfig struct {
	Samples []int `yaml:"samples"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		SampleInterval: 500 * time.Millisecond,
		ReportInterval: 1000 * time.Millisecond,
		WarmUp:         20000 * time.Millisecond,
		InitRetries:    0,
		Sensors: []SensorConfig{
			{
				Name:   "air",
				Source: SourceIIO,
			},
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ensureDefaults()
	return cfg, nil
}

// ensureDefaults fills fields a partial file left empty. Absent keys keep
// their Default values through Unmarshal; warm_up may be an explicit 0.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = def.SampleInterval
	}
	if c.ReportInterval == 0 {
		c.ReportInterval = def.ReportInterval
	}
	if len(c.Sensors) == 0 {
		c.Sensors = def.Sensors
	}

	for i := range c.Sensors {
		s := &c.Sensors[i]
		if s.Name == "" {
			s.Name = fmt.Sprintf("sensor%d", i)
		}
		if s.Source == "" {
			s.Source = SourceIIO
		}
		if s.Source == SourceMQTT && s.MQTT.ClientID == "" {
			s.MQTT.ClientID = "air-quality-sensor-" + s.Name
		}
		if s.Power != nil && s.Power.Chip == "" {
			s.Power.Chip = "gpiochip0"
		}
	}
}

// ApplyEnv loads envFile (if present) into the environment and then applies
// AQS_* overrides. A missing envFile is not an error.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	if v := getEnv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if err := envDuration("SAMPLE_INTERVAL", &c.SampleInterval); err != nil {
		return err
	}
	if err := envDuration("REPORT_INTERVAL", &c.ReportInterval); err != nil {
		return err
	}
	if err := envDuration("WARM_UP", &c.WarmUp); err != nil {
		return err
	}
	if v := getEnv("INIT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sINIT_RETRIES: %w", EnvPrefix, err)
		}
		c.InitRetries = n
	}
	return nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func envDuration(key string, dst *time.Duration) error {
	v := getEnv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = d
	return nil
}

// Validate reports configuration errors that would stop the daemon.
func (c *Config) Validate() error {
	var errs []error

	if c.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("sample_interval must be positive, got %v", c.SampleInterval))
	}
	if c.ReportInterval <= 0 {
		errs = append(errs, fmt.Errorf("report_interval must be positive, got %v", c.ReportInterval))
	}
	if c.WarmUp < 0 {
		errs = append(errs, fmt.Errorf("warm_up must not be negative, got %v", c.WarmUp))
	}
	if c.InitRetries < 0 {
		errs = append(errs, fmt.Errorf("init_retries must not be negative, got %d", c.InitRetries))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(c.Sensors) == 0 {
		errs = append(errs, errors.New("no sensors configured"))
	}

	seen := make(map[string]bool)
	for _, s := range c.Sensors {
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("duplicate sensor name %q", s.Name))
		}
		seen[s.Name] = true

		switch s.Source {
		case SourceIIO:
		case SourceSerial:
			if s.Serial.Port == "" {
				errs = append(errs, fmt.Errorf("sensor %q: serial.port is required", s.Name))
			}
		case SourceMQTT:
			if s.MQTT.Broker == "" || s.MQTT.Topic == "" {
				errs = append(errs, fmt.Errorf("sensor %q: mqtt.broker and mqtt.topic are required", s.Name))
			}
		case SourceFake:
			if len(s.Fake.Samples) == 0 {
				errs = append(errs, fmt.Errorf("sensor %q: fake.samples is empty", s.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("sensor %q: unknown source %q", s.Name, s.Source))
		}
	}

	return errors.Join(errs...)
}

// ParseLevel maps a log level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
	return level, nil
}
