package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BooksDirectory = t.TempDir()
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "server" {
		t.Errorf("Expected default mode to be 'server', got '%s'", cfg.Mode)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}

	if cfg.Port != 5500 {
		t.Errorf("Expected default port to be 5500, got %d", cfg.Port)
	}

	if cfg.DBDriver != "sqlite" {
		t.Errorf("Expected default driver to be 'sqlite', got '%s'", cfg.DBDriver)
	}

	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Errorf("Expected default model to be 'gemini-1.5-flash', got '%s'", cfg.GeminiModel)
	}

	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("Expected default cache TTL to be 24h, got %s", cfg.CacheTTL)
	}

	if len(cfg.JWTSecret) != 32 {
		t.Errorf("Expected a random 32 character JWT secret, got %q", cfg.JWTSecret)
	}

	if other := DefaultConfig(); other.JWTSecret == cfg.JWTSecret {
		t.Error("Expected each default config to carry a fresh secret")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid server config", mutate: func(*Config) {}, wantErr: false},
		{
			name:    "valid stdio config",
			mutate:  func(c *Config) { c.Mode = ModeStdio; c.MCPUser = "alice" },
			wantErr: false,
		},
		{name: "stdio without user", mutate: func(c *Config) { c.Mode = ModeStdio }, wantErr: true},
		{name: "invalid mode", mutate: func(c *Config) { c.Mode = "invalid" }, wantErr: true},
		{name: "port too low", mutate: func(c *Config) { c.Port = 0 }, wantErr: true},
		{name: "port too high", mutate: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{
			name:    "port ignored in stdio mode",
			mutate:  func(c *Config) { c.Mode = ModeStdio; c.MCPUser = "alice"; c.Port = 0 },
			wantErr: false,
		},
		{name: "empty directory", mutate: func(c *Config) { c.BooksDirectory = "" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "oracle" }, wantErr: true},
		{name: "postgres driver", mutate: func(c *Config) { c.DBDriver = DriverPostgres }, wantErr: false},
		{name: "empty dsn", mutate: func(c *Config) { c.DBDSN = "" }, wantErr: true},
		{name: "invalid max file size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: true},
		{name: "no workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: true},
		{name: "negative ttl", mutate: func(c *Config) { c.CacheTTL = -time.Second }, wantErr: true},
		{name: "empty secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "invalid log level", mutate: func(c *Config) { c.LogLevel = "invalid" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateCreatesDirectory(t *testing.T) {
	cfg := validConfig(t)
	cfg.BooksDirectory = filepath.Join(t.TempDir(), "nested", "books")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Config.Validate() unexpected error: %v", err)
	}
	if info, err := os.Stat(cfg.BooksDirectory); err != nil || !info.IsDir() {
		t.Errorf("Expected %s to be created", cfg.BooksDirectory)
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{
		Host: "192.168.1.1",
		Port: 9090,
	}

	expected := "192.168.1.1:9090"
	if got := cfg.Address(); got != expected {
		t.Errorf("Config.Address() = %v, want %v", got, expected)
	}
}

func TestConfigIsDebug(t *testing.T) {
	tests := []struct {
		logLevel string
		want     bool
	}{
		{logLevel: "debug", want: true},
		{logLevel: "info", want: false},
		{logLevel: "warn", want: false},
		{logLevel: "error", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			if got := cfg.IsDebug(); got != tt.want {
				t.Errorf("Config.IsDebug() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigStringHidesSecrets(t *testing.T) {
	cfg := &Config{
		Mode:           "server",
		Host:           "localhost",
		Port:           8080,
		BooksDirectory: "/srv/books",
		DBDriver:       "sqlite",
		GeminiAPIKey:   "super-secret-key",
		JWTSecret:      "another-secret",
		LogLevel:       "debug",
		MaxFileSize:    1024,
	}

	result := cfg.String()

	for _, substr := range []string{
		"Mode: server",
		"Host: localhost",
		"Port: 8080",
		"BooksDirectory: /srv/books",
		"GeminiAPIKey: set",
		"LogLevel: debug",
	} {
		if !strings.Contains(result, substr) {
			t.Errorf("Config.String() result doesn't contain expected substring: %s\nGot: %s", substr, result)
		}
	}
	if strings.Contains(result, "super-secret-key") || strings.Contains(result, "another-secret") {
		t.Errorf("Config.String() leaked a secret: %s", result)
	}
}

func TestConfigModes(t *testing.T) {
	cfg := &Config{Mode: ModeServer}
	if !cfg.IsServerMode() || cfg.IsStdioMode() {
		t.Error("Expected server mode")
	}
	cfg.Mode = ModeStdio
	if cfg.IsServerMode() || !cfg.IsStdioMode() {
		t.Error("Expected stdio mode")
	}
}

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClientConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*ClientConfig) {}, wantErr: false},
		{name: "bad url", mutate: func(c *ClientConfig) { c.ServerURL = "localhost:5500" }, wantErr: true},
		{name: "no username", mutate: func(c *ClientConfig) { c.Username = "" }, wantErr: true},
		{name: "no password", mutate: func(c *ClientConfig) { c.Password = "" }, wantErr: true},
		{name: "bad level", mutate: func(c *ClientConfig) { c.LogLevel = "trace" }, wantErr: true},
		{name: "no log file", mutate: func(c *ClientConfig) { c.LogFile = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClientConfig()
			cfg.Username = "alice"
			cfg.Password = "secret"
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ClientConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
