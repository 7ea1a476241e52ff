// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v3"
)

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"", true},
		{"localhost", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"app.localhost", true},
		{"sub.domain.localhost", true},
		{"example.com", false},
		{"www.example.com", false},
		{"192.168.1.1", false},
		{"localhost.com", false}, // not a real localhost
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalhost(tt.host))
		})
	}
}

func TestShouldUseTLS(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		host     string
		expected bool
	}{
		{"off mode", "off", "example.com", false},
		{"acme mode", "acme", "localhost", true},
		{"selfsigned mode", "selfsigned", "localhost", true},
		{"manual mode", "manual", "localhost", true},
		{"auto mode with localhost", "auto", "localhost", false},
		{"auto mode with remote host", "auto", "example.com", true},
		{"empty mode with localhost", "", "localhost", false},
		{"empty mode with remote host", "", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shouldUseTLS(tt.mode, tt.host))
		})
	}
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected string
	}{
		{
			name: "localhost HTTP default port",
			cfg: &Config{
				Server: ServerConfig{Host: "localhost", Port: 80},
				TLS:    TLSConfig{Mode: "off"},
			},
			expected: "http://localhost",
		},
		{
			name: "localhost HTTP custom port",
			cfg: &Config{
				Server: ServerConfig{Host: "localhost", Port: 8080},
				TLS:    TLSConfig{Mode: "off"},
			},
			expected: "http://localhost:8080",
		},
		{
			name: "remote host with auto TLS",
			cfg: &Config{
				Server: ServerConfig{Host: "example.com", Port: 443},
				TLS:    TLSConfig{Mode: "auto"},
			},
			expected: "https://example.com",
		},
		{
			name: "remote host with auto TLS custom port",
			cfg: &Config{
				Server: ServerConfig{Host: "example.com", Port: 8443},
				TLS:    TLSConfig{Mode: "selfsigned"},
			},
			expected: "https://example.com:8443",
		},
		{
			name: "ACME mode forces port 443",
			cfg: &Config{
				Server: ServerConfig{Host: "example.com", Port: 8080},
				TLS:    TLSConfig{Mode: "acme"},
			},
			expected: "https://example.com",
		},
		{
			name: "localhost with auto TLS uses HTTP",
			cfg: &Config{
				Server: ServerConfig{Host: "localhost", Port: 8080},
				TLS:    TLSConfig{Mode: "auto"},
			},
			expected: "http://localhost:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildBaseURL(tt.cfg))
		})
	}
}

func TestApplyVerificationDefaults(t *testing.T) {
	t.Run("sender falls back to SMTP from", func(t *testing.T) {
		cfg := &Config{SMTP: SMTPConfig{From: "courses@example.com"}}

		applyVerificationDefaults(cfg)

		assert.Equal(t, "courses@example.com", cfg.Verification.SenderAddress)
		assert.Equal(t, 24*time.Hour, cfg.Verification.TokenTTL)
	})

	t.Run("does not override existing values", func(t *testing.T) {
		cfg := &Config{
			SMTP: SMTPConfig{From: "noreply@example.com"},
			Verification: VerificationConfig{
				SenderAddress:  "hello@example.com",
				TokenTTL:       time.Hour,
				MaxOutstanding: 3,
			},
		}

		applyVerificationDefaults(cfg)

		assert.Equal(t, "hello@example.com", cfg.Verification.SenderAddress)
		assert.Equal(t, time.Hour, cfg.Verification.TokenTTL)
		assert.Equal(t, 3, cfg.Verification.MaxOutstanding)
	})

	t.Run("negative limit disables rate limiting", func(t *testing.T) {
		cfg := &Config{Verification: VerificationConfig{MaxOutstanding: -1}}

		applyVerificationDefaults(cfg)

		assert.Equal(t, 0, cfg.Verification.MaxOutstanding)
	})
}

func TestFlags(t *testing.T) {
	flags := Flags()

	// Should have all expected flags
	assert.NotEmpty(t, flags)

	// Check for key flags
	flagNames := make(map[string]bool)
	for _, f := range flags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	assert.True(t, flagNames["host"], "should have host flag")
	assert.True(t, flagNames["port"], "should have port flag")
	assert.True(t, flagNames["base-url"], "should have base-url flag")
	assert.True(t, flagNames["log-level"], "should have log-level flag")
	assert.True(t, flagNames["database-dsn"], "should have database-dsn flag")
	assert.True(t, flagNames["tls-mode"], "should have tls-mode flag")
	assert.True(t, flagNames["smtp-host"], "should have smtp-host flag")
	assert.True(t, flagNames["verification-token-ttl"], "should have verification-token-ttl flag")
	assert.True(t, flagNames["media-cloud-name"], "should have media-cloud-name flag")
	assert.True(t, flagNames["session-cookie-name"], "should have session-cookie-name flag")
	assert.True(t, flagNames["catalogue-cache-ttl"], "should have catalogue-cache-ttl flag")
	assert.True(t, flagNames["metrics"], "should have metrics flag")
}

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			// Verify defaults are applied
			assert.NotNil(t, cfg)
			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "info", cfg.Log.Level)
			assert.Equal(t, "text", cfg.Log.Format)
			assert.Equal(t, "_session", cfg.Session.CookieName)
			assert.Equal(t, 1209600, cfg.Session.MaxAge) // 14 days in seconds

			// BaseURL should be auto-generated
			assert.NotEmpty(t, cfg.Server.BaseURL)

			// Verification defaults
			assert.Equal(t, "noreply@localhost", cfg.Verification.SenderAddress)
			assert.Equal(t, 24*time.Hour, cfg.Verification.TokenTTL)
			assert.Equal(t, 5, cfg.Verification.MaxOutstanding)

			assert.Equal(t, 128, cfg.Catalogue.CacheSize)
			assert.Equal(t, time.Minute, cfg.Catalogue.CacheTTL)
			assert.True(t, cfg.Metrics.Enabled)

			return nil
		},
	}

	// Run the command with default flags
	err := app.Run(context.Background(), []string{"test"})
	assert.NoError(t, err)
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			// Verify custom values
			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, 9000, cfg.Server.Port)
			assert.Equal(t, "https://example.com", cfg.Server.BaseURL)
			assert.Equal(t, "debug", cfg.Log.Level)
			assert.Equal(t, "./data/test.db", cfg.Database.DSN)
			assert.Equal(t, 2*time.Hour, cfg.Verification.TokenTTL)
			assert.Equal(t, "courses@example.com", cfg.Verification.SenderAddress)

			return nil
		},
	}

	// Run with custom args
	args := []string{
		"test",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-url", "https://example.com",
		"--log-level", "debug",
		"--database-dsn", "./data/test.db",
		"--verification-token-ttl", "2h",
		"--smtp-from", "courses@example.com",
	}
	err := app.Run(context.Background(), args)
	assert.NoError(t, err)
}
