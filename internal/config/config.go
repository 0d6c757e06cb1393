// Package config loads bridge settings from configs/config.yml, the
// environment (NURSECALL_*) and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "NURSECALL"

type Config struct {
	Port     string
	LogLevel string
	Serial   Serial
	Store    Store
	DB       DB
	MQTT     MQTT
	Debounce Debounce
}

type Serial struct {
	Port             string
	BaudRate         int
	ReadTimeout      time.Duration
	OpenBackoff      time.Duration
	ReconnectBackoff time.Duration
	LineBuffering    bool
}

// Store points at the application-owned JSON document.
type Store struct {
	Path string
}

type DB struct {
	Path string
}

type MQTT struct {
	Enabled     bool
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

type Debounce struct {
	CallWindow  time.Duration
	ErrorWindow time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud_rate", 9600)
	v.SetDefault("serial.read_timeout", "200ms")
	v.SetDefault("serial.open_backoff", "1000ms")
	v.SetDefault("serial.reconnect_backoff", "800ms")
	v.SetDefault("serial.line_buffering", false)

	v.SetDefault("store.path", "config.json")
	v.SetDefault("db.path", "app.db")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "nursecall-bridge")
	v.SetDefault("mqtt.topic_prefix", "nursecall")
	v.SetDefault("mqtt.qos", 0)

	v.SetDefault("debounce.call_window", "1500ms")
	v.SetDefault("debounce.error_window", "3000ms")
}

// Load reads config.yml from the given directories. A missing file is not an
// error; defaults and environment variables still apply.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(paths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	qos, err := mqttQoS(v.GetInt("mqtt.qos"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log.level"),
		Serial: Serial{
			Port:             strings.TrimSpace(v.GetString("serial.port")),
			BaudRate:         v.GetInt("serial.baud_rate"),
			ReadTimeout:      v.GetDuration("serial.read_timeout"),
			OpenBackoff:      v.GetDuration("serial.open_backoff"),
			ReconnectBackoff: v.GetDuration("serial.reconnect_backoff"),
			LineBuffering:    v.GetBool("serial.line_buffering"),
		},
		Store: Store{Path: v.GetString("store.path")},
		DB:    DB{Path: v.GetString("db.path")},
		MQTT: MQTT{
			Enabled:     v.GetBool("mqtt.enabled"),
			Broker:      v.GetString("mqtt.broker"),
			ClientID:    v.GetString("mqtt.client_id"),
			TopicPrefix: strings.Trim(v.GetString("mqtt.topic_prefix"), "/"),
			QoS:         qos,
		},
		Debounce: Debounce{
			CallWindow:  v.GetDuration("debounce.call_window"),
			ErrorWindow: v.GetDuration("debounce.error_window"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("serial.read_timeout must be positive, got %s", c.Serial.ReadTimeout)
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	return nil
}

// mqttQoS range-checks the raw value before narrowing it to a byte.
func mqttQoS(n int) (byte, error) {
	if n < 0 || n > 2 {
		return 0, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", n)
	}
	return byte(n), nil
}
