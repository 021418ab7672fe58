package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level gnssgwd configuration document.
type Config struct {
	GNSS      GNSSConfig      `yaml:"gnss"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Status    StatusConfig    `yaml:"status"`
}

// GNSSConfig configures the serial session manager and the resync
// interval: the oldest reference age the demo binary's watchdog
// accepts before it reports the reference as stale.
type GNSSConfig struct {
	Device         string        `yaml:"device"`
	Family         string        `yaml:"family"`
	Baud           int           `yaml:"baud"` // reserved: the line is always fixed at 115200
	ResyncInterval time.Duration `yaml:"resync_interval"`
	Verbose        bool          `yaml:"verbose"`
}

// TelemetryConfig configures the optional MQTT publisher.
type TelemetryConfig struct {
	Enable      bool   `yaml:"enable"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// StatusConfig configures the optional HTTP status/websocket server.
type StatusConfig struct {
	Enable bool   `yaml:"enable"`
	Addr   string `yaml:"addr"`
}

// Load reads and validates the YAML document at path, rejecting any
// field not recognized by the schema above (the teacher's own config
// loader tolerates unknown fields; this one does not, so a typo in an
// operator's config file is caught at startup instead of silently
// ignored).
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config contains unknown fields: %w", err)
	}

	if cfg.GNSS.Device == "" {
		return Config{}, fmt.Errorf("gnss.device is required")
	}
	if cfg.GNSS.ResyncInterval <= 0 {
		cfg.GNSS.ResyncInterval = 5 * time.Second
	}

	if cfg.Telemetry.Enable {
		if cfg.Telemetry.Broker == "" {
			return Config{}, fmt.Errorf("telemetry.broker is required when telemetry.enable is true")
		}
		if cfg.Telemetry.ClientID == "" {
			cfg.Telemetry.ClientID = "gnssgwd"
		}
		if cfg.Telemetry.TopicPrefix == "" {
			cfg.Telemetry.TopicPrefix = "gnss"
		}
	}

	if cfg.Status.Enable && cfg.Status.Addr == "" {
		cfg.Status.Addr = "127.0.0.1:8080"
	}

	return cfg, nil
}
