package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: 9090
  host: "127.0.0.1"
  allowed_origins:
    - "http://localhost:3000"
  max_connections: 4
monitor:
  tick_interval: 500ms
probe:
  denied_apps:
    - anydesk
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.MaxConnections != 4 {
		t.Errorf("Server.MaxConnections = %d, want 4", cfg.Server.MaxConnections)
	}
	if cfg.AllowsAnyOrigin() {
		t.Error("AllowsAnyOrigin() = true with explicit origin list")
	}
	if cfg.Monitor.TickInterval != 500*time.Millisecond {
		t.Errorf("Monitor.TickInterval = %v, want 500ms", cfg.Monitor.TickInterval)
	}
	if !slices.Equal(cfg.Probe.DeniedApps, []string{"anydesk"}) {
		t.Errorf("Probe.DeniedApps = %v, want [anydesk]", cfg.Probe.DeniedApps)
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.Monitor.ProbeTimeout != DefaultProbeTimeout {
		t.Errorf("Monitor.ProbeTimeout = %v, want default %v", cfg.Monitor.ProbeTimeout, DefaultProbeTimeout)
	}
	if !slices.Equal(cfg.Probe.Browsers, DefaultBrowsers) {
		t.Errorf("Probe.Browsers = %v, want defaults", cfg.Probe.Browsers)
	}
	if cfg.Server.SocketIOPath != DefaultSocketIOPath {
		t.Errorf("Server.SocketIOPath = %q, want %q", cfg.Server.SocketIOPath, DefaultSocketIOPath)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() on missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Monitor.TickInterval != 2*time.Second {
		t.Errorf("Monitor.TickInterval = %v, want 2s", cfg.Monitor.TickInterval)
	}
	if !cfg.AllowsAnyOrigin() {
		t.Error("default config should allow any origin")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want default true")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte(":::not valid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
	if _, err := LoadOrDefault(cfgPath); err == nil {
		t.Fatal("LoadOrDefault() with invalid YAML should return error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, false},
		{"negative max connections", func(c *Config) { c.Server.MaxConnections = -1 }, false},
		{"relative socketio path", func(c *Config) { c.Server.SocketIOPath = "socket.io" }, false},
		{"zero tick", func(c *Config) { c.Monitor.TickInterval = 0 }, false},
		{"negative probe timeout", func(c *Config) { c.Monitor.ProbeTimeout = -time.Second }, false},
		{"probe timeout disabled", func(c *Config) { c.Monitor.ProbeTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestDefaultListsAreCopies(t *testing.T) {
	cfg := defaultConfig()
	cfg.Probe.DeniedApps[0] = "mutated"
	if DefaultDeniedApps[0] == "mutated" {
		t.Error("defaultConfig shares the package-level deny list")
	}
}

func TestDiffNoChanges(t *testing.T) {
	if changes := Diff(defaultConfig(), defaultConfig()); len(changes) != 0 {
		t.Errorf("Diff of identical configs = %v, want empty", changes)
	}
}

func TestDiffDetectsChanges(t *testing.T) {
	old := defaultConfig()
	new := defaultConfig()

	new.Monitor.TickInterval = time.Second
	new.Probe.DeniedApps = []string{"anydesk"}
	new.Metrics.Enabled = false

	found := map[string]bool{}
	for _, c := range Diff(old, new) {
		found[c] = true
	}

	want := []string{
		"monitor.tick_interval: 2s → 1s",
		"metrics.enabled: true → false",
	}
	for _, w := range want {
		if !found[w] {
			t.Errorf("Missing expected change: %q\nGot: %v", w, found)
		}
	}
	if len(found) != 3 {
		t.Errorf("Diff reported %d changes, want 3: %v", len(found), found)
	}
}
