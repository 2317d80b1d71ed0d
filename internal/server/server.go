// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the application together and runs it.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gatekit/gatekit/internal/config"
	"github.com/gatekit/gatekit/internal/database"
	"github.com/gatekit/gatekit/internal/handlers"
	"github.com/gatekit/gatekit/internal/repository"
	"github.com/gatekit/gatekit/internal/services/auth"
	"github.com/gatekit/gatekit/internal/services/email"
	"github.com/gatekit/gatekit/internal/services/otp"
	"github.com/gatekit/gatekit/internal/services/recovery"
	"github.com/gatekit/gatekit/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// deps holds everything the routes and middleware need.
type deps struct {
	cfg      *config.Config
	repo     *repository.Repository
	sessions *session.Manager
	auth     *auth.Service
	recovery *recovery.Service
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

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

	repo := repository.New(db)

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return err
	}

	cookieSecure := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	sessions, err := session.NewManager(repo, &cfg.Session, cookieSecure)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	policy := auth.PasswordPolicy{MinLength: cfg.Auth.MinPasswordLength}
	issuer := otp.NewIssuer(repo, dispatcher, cfg.OTP.TTL, cfg.OTP.MaxAttempts)

	d := &deps{
		cfg:      cfg,
		repo:     repo,
		sessions: sessions,
		auth:     auth.NewService(repo, policy),
		recovery: recovery.NewService(repo, issuer, sessions, policy),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, d)
	setupRoutes(e, d)

	go sweepExpired(ctx, repo)

	return startWithGracefulShutdown(e, cfg)
}

func buildDispatcher(cfg *config.Config) (email.Dispatcher, error) {
	if cfg.SMTP.Host == "" {
		slog.Warn("no SMTP host configured, one-time codes will not be delivered")
		return email.NewNoop(), nil
	}
	dispatcher, err := email.NewSMTP(&cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail dispatcher: %w", err)
	}
	return dispatcher, nil
}

func setupRoutes(e *echo.Echo, d *deps) {
	h := handlers.New(d.repo)
	authHandler := handlers.NewAuth(d.auth, d.sessions)
	otpHandler := handlers.NewOTP(d.recovery)

	e.GET("/health", h.Health)

	g := e.Group("/auth")
	g.POST("/register", authHandler.Register)
	g.POST("/login", authHandler.Login)
	g.POST("/logout", authHandler.Logout)
	g.GET("/me", authHandler.Me)
	g.POST("/change-password", authHandler.ChangePassword)
	g.POST("/otp/send", otpHandler.Send)
	g.POST("/otp/reset-password", otpHandler.ResetPassword)
	g.POST("/otp/verify-email", otpHandler.VerifyEmail)
}

// sweepExpired periodically removes expired sessions and codes. Expiry
// is enforced at read time regardless; this only keeps the tables slim.
func sweepExpired(ctx context.Context, repo *repository.Repository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			if _, err := repo.DeleteExpiredSessions(ctx, now); err != nil {
				slog.Warn("expired session sweep failed", "error", err)
			}
			if _, err := repo.DeleteExpiredCodes(ctx, now); err != nil {
				slog.Warn("expired code sweep failed", "error", err)
			}
		}
	}
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP to HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeSelfSigned, TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
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
