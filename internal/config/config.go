package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort         = 9061
	DefaultTickInterval = 2 * time.Second
	DefaultProbeTimeout = 5 * time.Second
	DefaultSocketIOPath = "/socket.io/"
)

// DefaultBrowsers lists browser process and window-owner names, lowercased.
var DefaultBrowsers = []string{
	"google chrome",
	"chrome",
	"yandex with voice assistant alice",
	"yandex",
	"browser",
	"microsoft edge",
	"msedge",
	"firefox",
	"safari",
}

// DefaultDeniedApps lists remote-control and messaging tools that must not
// run during an observed session.
var DefaultDeniedApps = []string{
	"telegram desktop",
	"telegram",
	"teamviewer",
	"anydesk",
	"aeroadmin",
	"getscreen",
	"getscreen.me",
	"supremo",
	"tightvnc",
	"tvnserver",
	"radmin",
	"kickidler",
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Monitor MonitorConfig `yaml:"monitor"`
	Probe   ProbeConfig   `yaml:"probe"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxConnections int      `yaml:"max_connections"`
	SocketIOPath   string   `yaml:"socketio_path"`
}

type MonitorConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

type ProbeConfig struct {
	Browsers   []string `yaml:"browsers"`
	DeniedApps []string `yaml:"denied_apps"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           DefaultPort,
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
			SocketIOPath:   DefaultSocketIOPath,
		},
		Monitor: MonitorConfig{
			TickInterval: DefaultTickInterval,
			ProbeTimeout: DefaultProbeTimeout,
		},
		Probe: ProbeConfig{
			Browsers:   slices.Clone(DefaultBrowsers),
			DeniedApps: slices.Clone(DefaultDeniedApps),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must not be negative")
	}
	if !strings.HasPrefix(c.Server.SocketIOPath, "/") {
		return fmt.Errorf("server.socketio_path %q must start with /", c.Server.SocketIOPath)
	}
	if c.Monitor.TickInterval <= 0 {
		return fmt.Errorf("monitor.tick_interval must be positive")
	}
	if c.Monitor.ProbeTimeout < 0 {
		return fmt.Errorf("monitor.probe_timeout must not be negative")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AllowsAnyOrigin reports whether the origin list contains the "*" wildcard.
func (c *Config) AllowsAnyOrigin() bool {
	return slices.Contains(c.Server.AllowedOrigins, "*")
}

// Diff lists human-readable differences between two configs, for logging
// on reload.
func Diff(old, new *Config) []string {
	var changes []string
	add := func(key string, a, b any) {
		changes = append(changes, fmt.Sprintf("%s: %v → %v", key, a, b))
	}

	if old.Server.Host != new.Server.Host {
		add("server.host", old.Server.Host, new.Server.Host)
	}
	if old.Server.Port != new.Server.Port {
		add("server.port", old.Server.Port, new.Server.Port)
	}
	if !slices.Equal(old.Server.AllowedOrigins, new.Server.AllowedOrigins) {
		add("server.allowed_origins", old.Server.AllowedOrigins, new.Server.AllowedOrigins)
	}
	if old.Server.MaxConnections != new.Server.MaxConnections {
		add("server.max_connections", old.Server.MaxConnections, new.Server.MaxConnections)
	}
	if old.Monitor.TickInterval != new.Monitor.TickInterval {
		add("monitor.tick_interval", old.Monitor.TickInterval, new.Monitor.TickInterval)
	}
	if old.Monitor.ProbeTimeout != new.Monitor.ProbeTimeout {
		add("monitor.probe_timeout", old.Monitor.ProbeTimeout, new.Monitor.ProbeTimeout)
	}
	if !slices.Equal(old.Probe.Browsers, new.Probe.Browsers) {
		add("probe.browsers", old.Probe.Browsers, new.Probe.Browsers)
	}
	if !slices.Equal(old.Probe.DeniedApps, new.Probe.DeniedApps) {
		add("probe.denied_apps", old.Probe.DeniedApps, new.Probe.DeniedApps)
	}
	if old.Metrics.Enabled != new.Metrics.Enabled {
		add("metrics.enabled", old.Metrics.Enabled, new.Metrics.Enabled)
	}
	return changes
}
