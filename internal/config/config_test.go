package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
debug: true
server:
  host: "0.0.0.0"
  port: 8060
database:
  host: "localhost"
  port: 5432
  user: "testuser"
  password: "testpass"
  dbname: "testdb"
scraper:
  task_poll_interval: 2s
  queue_poll_interval: 10s
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if !cfg.Debug {
		t.Error("Load() cfg.Debug = false, want true")
	}
	if cfg.Server.Port != 8060 {
		t.Errorf("Load() cfg.Server.Port = %v, want 8060", cfg.Server.Port)
	}
	if cfg.Scraper.TaskPollInterval != 2*time.Second {
		t.Errorf("Load() cfg.Scraper.TaskPollInterval = %v, want 2s", cfg.Scraper.TaskPollInterval)
	}
	if cfg.Scraper.QueuePollInterval != 10*time.Second {
		t.Errorf("Load() cfg.Scraper.QueuePollInterval = %v, want 10s", cfg.Scraper.QueuePollInterval)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
database:
  host: "localhost"
  user: "testuser"
  dbname: "testdb"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default server host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8060 {
		t.Errorf("default server port = %d, want 8060", cfg.Server.Port)
	}
	if cfg.Scraper.TaskPollInterval != 2*time.Second {
		t.Errorf("default task poll interval = %v, want 2s", cfg.Scraper.TaskPollInterval)
	}
	if cfg.Scraper.QueuePollInterval != 10*time.Second {
		t.Errorf("default queue poll interval = %v, want 10s", cfg.Scraper.QueuePollInterval)
	}
	if cfg.Scraper.WorkerTick != time.Second {
		t.Errorf("default worker tick = %v, want 1s", cfg.Scraper.WorkerTick)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Errorf("default sslmode = %q, want disable", cfg.Database.SSLMode)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 8060
database:
  host: "localhost"
  user: "testuser"
  dbname: "testdb"
`)

	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("TASK_POLL_INTERVAL", "500ms")
	t.Setenv("REDIS_EVENTS_ENABLED", "true")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("env override port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Scraper.TaskPollInterval != 500*time.Millisecond {
		t.Errorf("env override task poll interval = %v, want 500ms", cfg.Scraper.TaskPollInterval)
	}
	if !cfg.Redis.Enabled {
		t.Error("env override redis enabled = false, want true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing server host", mutate: func(c *Config) { c.Server.Host = "" }, wantErr: true},
		{name: "missing database host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: true},
		{name: "missing database user", mutate: func(c *Config) { c.Database.User = "" }, wantErr: true},
		{name: "zero task poll interval", mutate: func(c *Config) { c.Scraper.TaskPollInterval = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Server:   ServerConfig{Host: "0.0.0.0", Port: 8060},
				Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "u", DBName: "d"},
				Scraper: ScraperConfig{
					TaskPollInterval:  2 * time.Second,
					QueuePollInterval: 10 * time.Second,
				},
			}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
