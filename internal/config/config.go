// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server       ServerConfig
	Log          LogConfig
	Database     DatabaseConfig
	TLS          TLSConfig
	Session      SessionConfig
	SMTP         SMTPConfig
	Verification VerificationConfig
	Media        MediaConfig
	Catalogue    CatalogueConfig
	Metrics      MetricsConfig
}

type TLSConfig struct {
	Mode     string // auto, acme, selfsigned, manual, off
	CertDir  string // Directory for auto-generated certificates
	Email    string // ACME email for Let's Encrypt
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // Session cookie name
	MaxAge     int    // Session max age in seconds
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (derived from HashKey if empty)
}

// SMTPConfig holds the outgoing mail server settings.
// An empty Host selects the log-only mailer.
type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// VerificationConfig controls the email verification token lifecycle.
type VerificationConfig struct {
	SenderAddress  string        // shown to visitors; defaults to SMTP.From
	TokenTTL       time.Duration // lifetime of an issued token
	MaxOutstanding int           // max unconsumed, unexpired tokens per address (0 = unlimited)
}

// MediaConfig configures the media CDN delivery URLs.
type MediaConfig struct {
	CloudName string
	APISecret string // only needed for signed video URLs
}

// CatalogueConfig sizes the in-memory course catalogue cache.
type CatalogueConfig struct {
	CacheSize int           // entries per cache, 0 disables caching
	CacheTTL  time.Duration // 0 disables caching
}

type MetricsConfig struct {
	Enabled bool // serve Prometheus metrics on /metrics
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertDir:  cmd.String("tls-cert-dir"),
			Email:    cmd.String("tls-email"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			MaxAge:     int(cmd.Int("session-max-age")),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Verification: VerificationConfig{
			SenderAddress:  cmd.String("verification-sender"),
			TokenTTL:       cmd.Duration("verification-token-ttl"),
			MaxOutstanding: int(cmd.Int("verification-max-outstanding")),
		},
		Media: MediaConfig{
			CloudName: cmd.String("media-cloud-name"),
			APISecret: cmd.String("media-api-secret"),
		},
		Catalogue: CatalogueConfig{
			CacheSize: int(cmd.Int("catalogue-cache-size")),
			CacheTTL:  cmd.Duration("catalogue-cache-ttl"),
		},
		Metrics: MetricsConfig{
			Enabled: cmd.Bool("metrics"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	applyVerificationDefaults(cfg)

	return cfg
}

// applyVerificationDefaults fills in the sender address and token lifetime.
func applyVerificationDefaults(cfg *Config) {
	if cfg.Verification.SenderAddress == "" {
		cfg.Verification.SenderAddress = cfg.SMTP.From
	}
	if cfg.Verification.TokenTTL <= 0 {
		cfg.Verification.TokenTTL = 24 * time.Hour
	}
	if cfg.Verification.MaxOutstanding < 0 {
		cfg.Verification.MaxOutstanding = 0
	}
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port
	mode := strings.ToLower(cfg.TLS.Mode)

	useTLS := shouldUseTLS(mode, host)

	scheme := "http"
	if useTLS {
		scheme = "https"
	}

	// ACME mode always uses port 443
	if mode == "acme" {
		return fmt.Sprintf("https://%s", host)
	}

	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

func shouldUseTLS(mode, host string) bool {
	switch mode {
	case "off":
		return false
	case "acme", "selfsigned", "manual":
		return true
	default: // "auto" or empty
		return !IsLocalhost(host)
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.HasSuffix(host, ".localhost")
}

func source(env, key string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(cli.EnvVar(env), toml.TOML(key, configFile))
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: source("HOST", "server.host"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: source("PORT", "server.port"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application (used in verification links)",
			Sources: source("BASE_URL", "server.base_url"),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: source("MAX_BODY_SIZE", "server.max_body_size"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: source("LOG_LEVEL", "log.level"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: source("LOG_FORMAT", "log.format"),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/courses.db",
			Usage:   "Database DSN",
			Sources: source("DATABASE_DSN", "database.dsn"),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, acme, selfsigned, manual, off)",
			Sources: source("TLS_MODE", "tls.mode"),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for auto-generated certificates",
			Sources: source("TLS_CERT_DIR", "tls.cert_dir"),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Email for ACME/Let's Encrypt registration",
			Sources: source("TLS_EMAIL", "tls.email"),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: source("TLS_CERT_FILE", "tls.cert_file"),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: source("TLS_KEY_FILE", "tls.key_file"),
		},
		// Session flags
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "_session",
			Usage:   "Session cookie name",
			Sources: source("SESSION_COOKIE_NAME", "session.cookie_name"),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   1209600, // 14 days in seconds
			Usage:   "Session max age in seconds",
			Sources: source("SESSION_MAX_AGE", "session.max_age"),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Session hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: source("SESSION_HASH_KEY", "session.hash_key"),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Session block key for encryption (32-byte hex, derived from hash key if empty)",
			Sources: source("SESSION_BLOCK_KEY", "session.block_key"),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (empty logs verification links instead of sending)",
			Sources: source("SMTP_HOST", "smtp.host"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: source("SMTP_PORT", "smtp.port"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: source("SMTP_USERNAME", "smtp.username"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: source("SMTP_PASSWORD", "smtp.password"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@localhost",
			Usage:   "Sender address for outgoing mail",
			Sources: source("SMTP_FROM", "smtp.from"),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Usage:   "Sender display name for outgoing mail",
			Sources: source("SMTP_FROM_NAME", "smtp.from_name"),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP (implicit TLS on port 465, STARTTLS otherwise)",
			Sources: source("SMTP_TLS", "smtp.tls"),
		},
		// Verification flags
		&cli.StringFlag{
			Name:    "verification-sender",
			Usage:   "Address shown to visitors as the sender of verification mail (defaults to smtp-from)",
			Sources: source("VERIFICATION_SENDER", "verification.sender_address"),
		},
		&cli.DurationFlag{
			Name:    "verification-token-ttl",
			Value:   24 * time.Hour,
			Usage:   "Lifetime of an email verification token",
			Sources: source("VERIFICATION_TOKEN_TTL", "verification.token_ttl"),
		},
		&cli.IntFlag{
			Name:    "verification-max-outstanding",
			Value:   5,
			Usage:   "Maximum open verification tokens per address (0 disables the limit)",
			Sources: source("VERIFICATION_MAX_OUTSTANDING", "verification.max_outstanding"),
		},
		// Media flags
		&cli.StringFlag{
			Name:    "media-cloud-name",
			Value:   "demo",
			Usage:   "Media CDN cloud name",
			Sources: source("MEDIA_CLOUD_NAME", "media.cloud_name"),
		},
		&cli.StringFlag{
			Name:    "media-api-secret",
			Usage:   "Media CDN API secret for signed delivery URLs",
			Sources: source("MEDIA_API_SECRET", "media.api_secret"),
		},
		// Catalogue and metrics flags
		&cli.IntFlag{
			Name:    "catalogue-cache-size",
			Value:   128,
			Usage:   "Entries kept in the course catalogue cache (0 disables the cache)",
			Sources: source("CATALOGUE_CACHE_SIZE", "catalogue.cache_size"),
		},
		&cli.DurationFlag{
			Name:    "catalogue-cache-ttl",
			Value:   time.Minute,
			Usage:   "How long catalogue reads are cached (0 disables the cache)",
			Sources: source("CATALOGUE_CACHE_TTL", "catalogue.cache_ttl"),
		},
		&cli.BoolFlag{
			Name:    "metrics",
			Value:   true,
			Usage:   "Serve Prometheus metrics on /metrics",
			Sources: source("METRICS", "metrics.enabled"),
		},
	}
}
