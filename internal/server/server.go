// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, services and handlers into the HTTP
// server and runs it.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/courses/internal/appcontext"
	"codeberg.org/oliverandrich/courses/internal/assets"
	"codeberg.org/oliverandrich/courses/internal/config"
	"codeberg.org/oliverandrich/courses/internal/database"
	"codeberg.org/oliverandrich/courses/internal/handlers"
	"codeberg.org/oliverandrich/courses/internal/i18n"
	"codeberg.org/oliverandrich/courses/internal/media"
	"codeberg.org/oliverandrich/courses/internal/metrics"
	"codeberg.org/oliverandrich/courses/internal/repository"
	"codeberg.org/oliverandrich/courses/internal/services/courses"
	"codeberg.org/oliverandrich/courses/internal/services/email"
	"codeberg.org/oliverandrich/courses/internal/services/session"
	"codeberg.org/oliverandrich/courses/internal/services/verification"
	"codeberg.org/oliverandrich/courses/internal/validator"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	e, err := New(cfg, db)
	if err != nil {
		return err
	}

	return startWithGracefulShutdown(ctx, e, cfg)
}

// New builds the echo instance with all services and routes wired to db.
// i18n must be initialised by the caller.
func New(cfg *config.Config, db *sqlx.DB) (*echo.Echo, error) {
	repo := repository.New(db)

	mailer, err := newMailer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up mail: %w", err)
	}

	sessions, err := session.NewManager(&cfg.Session, strings.HasPrefix(cfg.Server.BaseURL, "https://"))
	if err != nil {
		return nil, fmt.Errorf("failed to set up sessions: %w", err)
	}

	verifier := verification.NewService(verification.Config{
		SenderAddress:  cfg.Verification.SenderAddress,
		TokenTTL:       cfg.Verification.TokenTTL,
		MaxOutstanding: cfg.Verification.MaxOutstanding,
	}, repo, mailer)

	catalogue := courses.NewService(courses.WrapStoreWithCache(repo, cfg.Catalogue.CacheSize, cfg.Catalogue.CacheTTL))
	h := handlers.New(repo, sessions, verifier, catalogue, media.NewBuilder(cfg.Media))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.Echo{}

	paths := &appcontext.Assets{CSSPath: assets.CSSPath(), JSPath: assets.JSPath()}
	slog.Debug("assets loaded", "css", paths.CSSPath, "js", paths.JSPath)
	setupMiddleware(e, cfg, paths)

	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", assets.FileServer())))
	if cfg.Metrics.Enabled {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}
	h.Register(e)

	return e, nil
}

// newMailer returns the SMTP mailer, or a mailer that only logs the
// verification link when no SMTP host is configured.
func newMailer(cfg *config.Config) (verification.Mailer, error) {
	if cfg.SMTP.Host == "" {
		slog.Warn("no SMTP host configured, verification links are logged instead of sent")
		return email.NewLogMailer(cfg.Server.BaseURL), nil
	}
	return email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)
	serve := func(start func() error) {
		if err := start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("server running", "url", cfg.Server.BaseURL, "tls", tlsResult.Mode)

	// HTTP redirect and ACME challenge server, ACME mode only.
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		go serve(func() error { return e.Start(addr) })
	case TLSModeACME:
		go serve(func() error { return startTLSServer(e, ":443", tlsResult.TLSConfig) })
		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go serve(httpServer.ListenAndServe)
	default:
		go serve(func() error { return startTLSServer(e, addr, tlsResult.TLSConfig) })
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
