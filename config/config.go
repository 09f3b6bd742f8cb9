// Package config holds the settings for the cxtool commands: where
// contexts are stored, how the service listens, how to reach an MQTT
// broker, and how to log.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/mwsobol/SORCER-sub002/sio"
	"github.com/mwsobol/SORCER-sub002/storage"
	"github.com/mwsobol/SORCER-sub002/storage/bolt"
	"github.com/mwsobol/SORCER-sub002/util"
)

// EnvPrefix starts the names of environment variables that override
// settings.
const EnvPrefix = "SORCER_"

type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Service     ServiceConfig     `yaml:"service"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Logging     LoggingConfig     `yaml:"logging"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
}

type StoreConfig struct {
	// Kind is "memory", "bolt", or "noop".
	Kind string `yaml:"kind"`

	// Path is the bolt database file.
	Path string `yaml:"path,omitempty"`
}

type ServiceConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

type MQTTConfig struct {
	Broker       string        `yaml:"broker"`
	ClientID     string        `yaml:"clientId,omitempty"`
	Username     string        `yaml:"username,omitempty"`
	Password     string        `yaml:"password,omitempty"`
	Prefix       string        `yaml:"prefix"`
	QoS          int           `yaml:"qos"`
	KeepAlive    time.Duration `yaml:"keepAlive"`
	Timeout      time.Duration `yaml:"timeout"`
	CleanSession bool          `yaml:"cleanSession"`
	CAFile       string        `yaml:"caFile,omitempty"`
	CertFile     string        `yaml:"certFile,omitempty"`
	KeyFile      string        `yaml:"keyFile,omitempty"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type InterpreterConfig struct {
	// Timeout bounds script evaluations.  Zero means no bound.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Kind: "memory",
		},
		Service: ServiceConfig{
			Addr: "localhost:8080",
			Path: "/ws/api",
		},
		MQTT: MQTTConfig{
			Broker:       "tcp://localhost:1883",
			Prefix:       "sorcer",
			KeepAlive:    10 * time.Second,
			Timeout:      10 * time.Second,
			CleanSession: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file over the defaults.  An empty filename
// means just the defaults.  Environment overrides are applied, and
// the result is validated.
func Load(filename string) (*Config, error) {
	c := Default()
	if filename != "" {
		bs, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		if err := yaml.UnmarshalStrict(bs, c); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides settings with SORCER_* variables, such as
// SORCER_STORE_KIND and SORCER_MQTT_TIMEOUT.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, have := lookup(EnvPrefix + name); have {
			*dst = v
		}
	}
	var err error
	dur := func(name string, dst *time.Duration) {
		if v, have := lookup(EnvPrefix + name); have && err == nil {
			var d time.Duration
			if d, err = time.ParseDuration(v); err != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v, have := lookup(EnvPrefix + name); have && err == nil {
			var b bool
			if b, err = strconv.ParseBool(v); err != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, have := lookup(EnvPrefix + name); have && err == nil {
			var n int
			if n, err = strconv.Atoi(v); err != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
				return
			}
			*dst = n
		}
	}

	str("STORE_KIND", &c.Store.Kind)
	str("STORE_PATH", &c.Store.Path)
	str("SERVICE_ADDR", &c.Service.Addr)
	str("SERVICE_PATH", &c.Service.Path)
	str("MQTT_BROKER", &c.MQTT.Broker)
	str("MQTT_CLIENT_ID", &c.MQTT.ClientID)
	str("MQTT_USERNAME", &c.MQTT.Username)
	str("MQTT_PASSWORD", &c.MQTT.Password)
	str("MQTT_PREFIX", &c.MQTT.Prefix)
	integer("MQTT_QOS", &c.MQTT.QoS)
	dur("MQTT_KEEP_ALIVE", &c.MQTT.KeepAlive)
	dur("MQTT_TIMEOUT", &c.MQTT.Timeout)
	boolean("MQTT_CLEAN_SESSION", &c.MQTT.CleanSession)
	str("LOG_LEVEL", &c.Logging.Level)
	boolean("LOG_DEVELOPMENT", &c.Logging.Development)
	dur("INTERPRETER_TIMEOUT", &c.Interpreter.Timeout)

	return err
}

// Validate checks the settings.
func (c *Config) Validate() error {
	var problems []string
	switch c.Store.Kind {
	case "memory", "noop":
	case "bolt":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for bolt")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store.kind %q", c.Store.Kind))
	}
	if !strings.HasPrefix(c.Service.Path, "/") {
		problems = append(problems, "service.path must start with /")
	}
	if c.MQTT.QoS < 0 || 2 < c.MQTT.QoS {
		problems = append(problems, fmt.Sprintf("mqtt.qos %d not in 0..2", c.MQTT.QoS))
	}
	if c.MQTT.Prefix == "" {
		problems = append(problems, "mqtt.prefix is required")
	}
	if c.MQTT.Timeout < 0 || c.Interpreter.Timeout < 0 {
		problems = append(problems, "negative timeout")
	}
	if _, err := util.NewLogger(c.Logging.Level, c.Logging.Development); err != nil {
		problems = append(problems, "logging.level: "+err.Error())
	}
	if 0 < len(problems) {
		return fmt.Errorf("bad config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Logger builds the logger the settings describe.
func (c *Config) Logger() (*zap.Logger, error) {
	return util.NewLogger(c.Logging.Level, c.Logging.Development)
}

// OpenStore opens the configured ContextManagement.  The returned
// function closes it.
func (c *Config) OpenStore(ctx context.Context) (storage.ContextManagement, func() error, error) {
	switch c.Store.Kind {
	case "memory":
		return storage.NewMemory(), func() error { return nil }, nil
	case "noop":
		s := &storage.Noop{}
		if err := s.Open(ctx); err != nil {
			return nil, nil, err
		}
		return s, func() error { return s.Close(ctx) }, nil
	case "bolt":
		s, err := bolt.NewStorage(c.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Open(ctx); err != nil {
			return nil, nil, err
		}
		return s, func() error { return s.Close(ctx) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store.kind %q", c.Store.Kind)
}

// BrokerOptions renders the MQTT settings for sio.
func (m *MQTTConfig) BrokerOptions() sio.BrokerOptions {
	return sio.BrokerOptions{
		Broker:       m.Broker,
		ClientID:     m.ClientID,
		Username:     m.Username,
		Password:     m.Password,
		KeepAlive:    m.KeepAlive,
		CleanSession: m.CleanSession,
		Timeout:      m.Timeout,
		Quiesce:      100,
		CAFile:       m.CAFile,
		CertFile:     m.CertFile,
		KeyFile:      m.KeyFile,
	}
}
