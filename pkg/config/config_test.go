package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() is invalid: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "empty server address",
			mutate: func(c *Config) { c.Server.Address = "" },
		},
		{
			name:   "zero read timeout",
			mutate: func(c *Config) { c.Server.ReadTimeout = 0 },
		},
		{
			name:   "zero shutdown timeout",
			mutate: func(c *Config) { c.Server.ShutdownTimeout = 0 },
		},
		{
			name:   "zero ping interval",
			mutate: func(c *Config) { c.WebSocket.PingInterval = 0 },
		},
		{
			name:   "zero max message size",
			mutate: func(c *Config) { c.WebSocket.MaxMessageSizeBytes = 0 },
		},
		{
			name:   "zero send buffer",
			mutate: func(c *Config) { c.WebSocket.SendBufferSize = 0 },
		},
		{
			name:   "empty encryption algorithm",
			mutate: func(c *Config) { c.Encryption.Algorithm = "" },
		},
		{
			name:   "empty key exchange",
			mutate: func(c *Config) { c.Encryption.KeyExchange = "" },
		},
		{
			name: "ice server without urls",
			mutate: func(c *Config) {
				c.ICEServers = append(c.ICEServers, struct {
					URLs       []string `yaml:"urls"`
					Username   string   `yaml:"username,omitempty"`
					Credential string   `yaml:"credential,omitempty"`
				}{})
			},
		},
		{
			name: "connect token without secret",
			mutate: func(c *Config) {
				c.Auth.RequireConnectToken = true
				c.Auth.JWTSecret = ""
			},
		},
		{
			name: "redis enabled without address",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Address = ""
			},
		},
		{
			name: "redis enabled with zero ttl",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.PresenceTTL = 0
			},
		},
		{
			name:   "zero health check interval",
			mutate: func(c *Config) { c.Monitoring.HealthCheckInterval = 0 },
		},
		{
			name: "tracing sample rate out of range",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.SampleRate = 1.5
			},
		},
		{
			name: "rate limiting enabled with zero http rps",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.HTTP.RequestsPerSecond = 0
			},
		},
		{
			name: "rate limiting enabled with zero ws burst",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.WebSocket.Burst = 0
			},
		},
		{
			name:   "unknown logging format",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0
	cfg.RateLimiting.WebSocket.MessagesPerSecond = 0
	cfg.RateLimiting.WebSocket.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	content := `
server:
  address: ":9000"
  read_timeout: 5s
  write_timeout: 5s
  shutdown_timeout: 20s
websocket:
  ping_interval: 10s
  pong_timeout: 25s
ice_servers:
  - urls:
      - "stun:stun.example.org:3478"
  - urls:
      - "turn:turn.example.org:3478"
    username: "relay"
    credential: "secret"
redis:
  enabled: true
  address: "redis:6379"
  presence_ttl: 10m
logging:
  level: "debug"
  format: "console"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Address != ":9000" {
		t.Errorf("Address = %q, want :9000", cfg.Server.Address)
	}
	if cfg.Server.ShutdownTimeout != 20*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 20s", cfg.Server.ShutdownTimeout)
	}
	if cfg.WebSocket.PingInterval != 10*time.Second {
		t.Errorf("PingInterval = %v, want 10s", cfg.WebSocket.PingInterval)
	}
	// Fields absent from the file keep their defaults.
	if cfg.WebSocket.SendBufferSize != 256 {
		t.Errorf("SendBufferSize = %d, want default 256", cfg.WebSocket.SendBufferSize)
	}
	if len(cfg.ICEServers) != 2 {
		t.Fatalf("ICEServers = %d entries, want 2", len(cfg.ICEServers))
	}
	if cfg.ICEServers[1].Username != "relay" {
		t.Errorf("ICEServers[1].Username = %q, want relay", cfg.ICEServers[1].Username)
	}
	if !cfg.Redis.Enabled || cfg.Redis.PresenceTTL != 10*time.Minute {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() = nil error for missing file")
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	content := `
logging:
  format: "xml"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() = nil error for invalid config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEDRELAY_SERVER_ADDRESS", ":7777")
	t.Setenv("MEDRELAY_LOG_LEVEL", "warn")
	t.Setenv("MEDRELAY_JWT_SECRET", "env-secret")
	t.Setenv("MEDRELAY_REDIS_ADDRESS", "redis.internal:6379")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Server.Address != ":7777" {
		t.Errorf("Address = %q, want :7777", cfg.Server.Address)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("JWTSecret = %q, want env-secret", cfg.Auth.JWTSecret)
	}
	if cfg.Redis.Address != "redis.internal:6379" {
		t.Errorf("Redis.Address = %q, want redis.internal:6379", cfg.Redis.Address)
	}
}
