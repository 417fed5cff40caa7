// Package config loads weekplan settings from an optional YAML or JSON file
// and WEEKPLAN_* environment variables. Nested keys use a double
// underscore in the environment, e.g. WEEKPLAN_MQTT__BROKER.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/julianstephens/weekplan/internal/constants"
)

type Config struct {
	// Store is a SQLite path, a .json file path or a postgres:// URL.
	Store    string        `json:"store"`
	Schedule string        `json:"schedule"`
	Debug    bool          `json:"debug"`
	Metrics  MetricsConfig `json:"metrics"`
	MQTT     MQTTConfig    `json:"mqtt"`
}

type MetricsConfig struct {
	// Addr enables the /metrics endpoint when set, e.g. "127.0.0.1:9464".
	Addr string `json:"addr"`
}

type MQTTConfig struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
}

// Enabled reports whether a broker is configured.
func (c MQTTConfig) Enabled() bool {
	return strings.TrimSpace(c.Broker) != ""
}

func (c *MQTTConfig) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = constants.DefaultTopicPrefix
	}
	if c.ClientID == "" {
		host, _ := os.Hostname()
		c.ClientID = fmt.Sprintf("%s-%s-%d", constants.AppName, host, os.Getpid())
	}
}

func (c MQTTConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	u, err := url.Parse(c.Broker)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid mqtt.broker %q: expected a URL such as tcp://localhost:1883", c.Broker)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("invalid mqtt.broker scheme %q", u.Scheme)
	}
	if strings.ContainsAny(c.TopicPrefix, "+#") {
		return fmt.Errorf("mqtt.topic_prefix must not contain wildcards")
	}
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Store:    constants.DefaultConfigPath,
		Schedule: constants.DefaultScheduleName,
	}
	cfg.MQTT.SetDefaults()
	return cfg
}

// DefaultPath returns ~/.config/weekplan/config.yaml.
func DefaultPath() string {
	return filepath.Join(ExpandHome(constants.DefaultConfigDir), constants.DefaultConfigFile)
}

// Load reads path if it exists, then applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		path = ExpandHome(path)
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	prefix := constants.EnvPrefix
	if err := k.Load(env.Provider(prefix, ".", func(s string) string {
		if s == constants.ConnectionEnvVar {
			return ""
		}
		s = strings.ToLower(strings.TrimPrefix(s, prefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.MQTT.SetDefaults()
	if strings.TrimSpace(cfg.Store) == "" {
		cfg.Store = constants.DefaultConfigPath
	}
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = constants.DefaultScheduleName
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
