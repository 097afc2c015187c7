// Package config loads controller configuration from YAML with
// environment variable overrides.
//
// Precedence, lowest first: built-in defaults, the YAML file (optional),
// HOMECTL_* environment variables. Command-line flags are applied by main.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/home-controller/internal/device"
)

// Config is the root configuration structure.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Devices  []DeviceConfig `yaml:"devices"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Storage  StorageConfig  `yaml:"storage"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	Broker         string `yaml:"broker"` // host:port
	TopicPrefix    string `yaml:"topic_prefix"`
	ClientID       string `yaml:"client_id"` // empty generates one
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	QoS            int    `yaml:"qos"`
	ProbeTimeout   int    `yaml:"probe_timeout"`   // seconds
	ConnectTimeout int    `yaml:"connect_timeout"` // seconds
}

// SensorConfig contains sampling settings.
type SensorConfig struct {
	Interval int   `yaml:"interval"` // seconds
	Window   int   `yaml:"window"`
	Seed     int64 `yaml:"seed"` // simulated sensor seed; 0 uses the clock
}

// DeviceConfig is one entry of the static device list.
type DeviceConfig struct {
	ID      string `yaml:"id"`
	Address int    `yaml:"address"`
	Name    string `yaml:"name"`
	Icon    string `yaml:"icon"`
	Class   string `yaml:"class"`
}

// GPIO driver modes.
const (
	GPIOModeSimulated = "simulated"
	GPIOModeHardware  = "hardware"
	GPIOModeAuto      = "auto" // hardware, falling back to simulated
)

// GPIOConfig selects the output driver.
type GPIOConfig struct {
	Mode string `yaml:"mode"`
	Chip string `yaml:"chip"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	ReadingLog string `yaml:"reading_log"`
	ActionLog  string `yaml:"action_log"`
	SQLite     bool   `yaml:"sqlite"`
	SQLitePath string `yaml:"sqlite_path"`
}

// InfluxDBConfig contains the optional time-series sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// HTTPConfig contains the observer API settings.
type HTTPConfig struct {
	Enabled bool     `yaml:"enabled"`
	Addr    string   `yaml:"addr"`
	Origins []string `yaml:"cors_origins"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Default returns the built-in configuration: the public HiveMQ broker,
// a five-second sampling cadence and the four stock devices.
func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker:         "broker.hivemq.com:1883",
			TopicPrefix:    "smart_home",
			QoS:            0,
			ProbeTimeout:   5,
			ConnectTimeout: 10,
		},
		Sensor: SensorConfig{
			Interval: 5,
			Window:   50,
		},
		Devices: []DeviceConfig{
			{ID: "led1", Address: 18, Name: "Living Room Light", Icon: "fa-lightbulb", Class: string(device.ClassActuator)},
			{ID: "led2", Address: 19, Name: "Bedroom Light", Icon: "fa-lightbulb", Class: string(device.ClassActuator)},
			{ID: "fan", Address: 23, Name: "Ceiling Fan", Icon: "fa-fan", Class: string(device.ClassActuator)},
			{ID: "door", Address: 24, Name: "Front Door Sensor", Icon: "fa-door-open", Class: string(device.ClassSensor)},
		},
		GPIO: GPIOConfig{
			Mode: GPIOModeSimulated,
			Chip: "gpiochip0",
		},
		Storage: StorageConfig{
			DataDir:    ".",
			ReadingLog: "sensor_data.csv",
			ActionLog:  "device_logs.csv",
			SQLite:     true,
			SQLitePath: "history.db",
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "home",
			Bucket:        "home-controller",
			BatchSize:     100,
			FlushInterval: 10,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from path. An empty path uses the defaults.
// Environment overrides are applied and the result validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMECTL_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("HOMECTL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("HOMECTL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("HOMECTL_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("HOMECTL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HOMECTL_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("HOMECTL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if _, port, err := net.SplitHostPort(c.MQTT.Broker); err != nil || port == "" {
		errs = append(errs, "mqtt.broker must be host:port")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.ProbeTimeout <= 0 {
		errs = append(errs, "mqtt.probe_timeout must be positive")
	}
	if c.MQTT.ConnectTimeout <= 0 {
		errs = append(errs, "mqtt.connect_timeout must be positive")
	}

	if c.Sensor.Interval <= 0 {
		errs = append(errs, "sensor.interval must be positive")
	}
	if c.Sensor.Window <= 0 {
		errs = append(errs, "sensor.window must be positive")
	}

	if len(c.Devices) == 0 {
		errs = append(errs, "at least one device is required")
	}
	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		switch {
		case d.ID == "":
			errs = append(errs, fmt.Sprintf("devices[%d].id is required", i))
		case strings.Contains(d.ID, ":"):
			errs = append(errs, fmt.Sprintf("devices[%d].id must not contain ':'", i))
		case seen[d.ID]:
			errs = append(errs, fmt.Sprintf("devices[%d].id %q is duplicated", i, d.ID))
		}
		seen[d.ID] = true
		if d.Address < 0 {
			errs = append(errs, fmt.Sprintf("devices[%d].address must not be negative", i))
		}
		if d.Class != "" && d.Class != string(device.ClassActuator) && d.Class != string(device.ClassSensor) {
			errs = append(errs, fmt.Sprintf("devices[%d].class must be actuator or sensor", i))
		}
	}

	switch c.GPIO.Mode {
	case GPIOModeSimulated, GPIOModeHardware, GPIOModeAuto:
	default:
		errs = append(errs, "gpio.mode must be simulated, hardware, or auto")
	}

	if c.Storage.ReadingLog == "" || c.Storage.ActionLog == "" {
		errs = append(errs, "storage.reading_log and storage.action_log are required")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when enabled")
	}

	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		errs = append(errs, "http.addr is required when enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "logging.level must be debug, info, warn, or error")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, "logging.format must be console or json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// BrokerURL returns the paho broker URL.
func (c *Config) BrokerURL() string {
	return "tcp://" + c.MQTT.Broker
}

// ProbeTimeout returns the reachability probe bound.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.MQTT.ProbeTimeout) * time.Second
}

// ConnectTimeout returns the initial session bound.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.MQTT.ConnectTimeout) * time.Second
}

// SampleInterval returns the sensor cadence.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Sensor.Interval) * time.Second
}

// DeviceSpecs converts the device list for device.NewRegistry.
func (c *Config) DeviceSpecs() []device.Spec {
	specs := make([]device.Spec, 0, len(c.Devices))
	for _, d := range c.Devices {
		specs = append(specs, device.Spec{
			ID:      d.ID,
			Address: d.Address,
			Name:    d.Name,
			Icon:    d.Icon,
			Class:   device.Class(d.Class),
		})
	}
	return specs
}

// ReadingLogPath returns the reading CSV path.
func (c *Config) ReadingLogPath() string {
	return c.dataPath(c.Storage.ReadingLog)
}

// ActionLogPath returns the action CSV path.
func (c *Config) ActionLogPath() string {
	return c.dataPath(c.Storage.ActionLog)
}

// SQLitePath returns the history database path.
func (c *Config) SQLitePath() string {
	return c.dataPath(c.Storage.SQLitePath)
}

func (c *Config) dataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Storage.DataDir, name)
}
