package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the gateway module host.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Persistence PersistenceConfig `yaml:"persistence"`
	History     HistoryConfig     `yaml:"history"`
	Logging     LoggingConfig     `yaml:"logging"`
	Devices     []DeviceConfig    `yaml:"devices"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PersistenceConfig selects and configures the message store backend.
//
// Backend "memory" keeps queued readings in process memory only; backend
// "sqlite" persists them to disk so they survive host restarts.
type PersistenceConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// HistoryConfig contains the optional InfluxDB reading-history mirror settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DeviceConfig describes one subdevice the host manages through the module.
type DeviceConfig struct {
	Name     string         `yaml:"name"`
	Key      string         `yaml:"key"`
	Firmware string         `yaml:"firmware"`
	Template TemplateConfig `yaml:"template"`
}

// TemplateConfig describes a subdevice's capability template.
type TemplateConfig struct {
	Sensors        []SensorConfig        `yaml:"sensors"`
	Actuators      []ActuatorConfig      `yaml:"actuators"`
	Alarms         []AlarmConfig         `yaml:"alarms"`
	Configurations []ConfigurationConfig `yaml:"configurations"`
}

// SensorConfig describes one sensor on a subdevice template.
type SensorConfig struct {
	Name        string  `yaml:"name"`
	Reference   string  `yaml:"reference"`
	ReadingType string  `yaml:"reading_type"`
	Unit        string  `yaml:"unit"`
	Description string  `yaml:"description"`
	Minimum     float64 `yaml:"minimum"`
	Maximum     float64 `yaml:"maximum"`
}

// ActuatorConfig describes one actuator on a subdevice template.
type ActuatorConfig struct {
	Name        string   `yaml:"name"`
	Reference   string   `yaml:"reference"`
	DataType    string   `yaml:"data_type"`
	Description string   `yaml:"description"`
	Minimum     *float64 `yaml:"minimum"`
	Maximum     *float64 `yaml:"maximum"`
}

// AlarmConfig describes one alarm on a subdevice template.
type AlarmConfig struct {
	Name        string `yaml:"name"`
	Reference   string `yaml:"reference"`
	Description string `yaml:"description"`
}

// ConfigurationConfig describes one configuration item on a subdevice template.
type ConfigurationConfig struct {
	Name         string   `yaml:"name"`
	Reference    string   `yaml:"reference"`
	DataType     string   `yaml:"data_type"`
	DefaultValue string   `yaml:"default_value"`
	Labels       []string `yaml:"labels"`
	Minimum      *float64 `yaml:"minimum"`
	Maximum      *float64 `yaml:"maximum"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GATEWAYMODULE_SECTION_KEY
// For example: GATEWAYMODULE_MQTT_HOST, GATEWAYMODULE_PERSISTENCE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "gateway-module",
			},
			QoS: 0,
		},
		Persistence: PersistenceConfig{
			Backend: "memory",
			Path:    "./data/gatewaymodule.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GATEWAYMODULE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("GATEWAYMODULE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GATEWAYMODULE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GATEWAYMODULE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Persistence
	if v := os.Getenv("GATEWAYMODULE_PERSISTENCE_PATH"); v != "" {
		cfg.Persistence.Path = v
	}

	// History
	if v := os.Getenv("GATEWAYMODULE_HISTORY_TOKEN"); v != "" {
		cfg.History.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Persistence validation
	switch c.Persistence.Backend {
	case "memory":
	case "sqlite":
		if c.Persistence.Path == "" {
			errs = append(errs, "persistence.path is required for the sqlite backend")
		}
	default:
		errs = append(errs, "persistence.backend must be \"memory\" or \"sqlite\"")
	}

	// History validation
	if c.History.Enabled {
		if c.History.URL == "" {
			errs = append(errs, "history.url is required when history is enabled")
		}
		if c.History.Bucket == "" {
			errs = append(errs, "history.bucket is required when history is enabled")
		}
	}

	// Device validation
	seen := make(map[string]struct{}, len(c.Devices))
	for i, dev := range c.Devices {
		if dev.Key == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].key is required", i))
			continue
		}
		if _, dup := seen[dev.Key]; dup {
			errs = append(errs, fmt.Sprintf("devices[%d].key %q is duplicated", i, dev.Key))
		}
		seen[dev.Key] = struct{}{}
		if dev.Name == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].name is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BrokerURI builds the broker URI from the host, port and TLS settings.
func (c *Config) BrokerURI() string {
	scheme := "tcp"
	if c.MQTT.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.Broker.Host, c.MQTT.Broker.Port)
}
