package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/user/symbolic-cat-go/api"
	"github.com/user/symbolic-cat-go/apperror"
	"github.com/user/symbolic-cat-go/auth"
	"github.com/user/symbolic-cat-go/background"
	"github.com/user/symbolic-cat-go/comments"
	"github.com/user/symbolic-cat-go/config"
	"github.com/user/symbolic-cat-go/credential"
	"github.com/user/symbolic-cat-go/csrf"
	_ "github.com/user/symbolic-cat-go/docs" // Registers the Swagger document
	"github.com/user/symbolic-cat-go/docstore"
	"github.com/user/symbolic-cat-go/feed"
	"github.com/user/symbolic-cat-go/session"
	"github.com/user/symbolic-cat-go/users"
)

// services is everything wired on top of the document store.
type services struct {
	auth     *auth.Service
	comments *comments.Service
	feed     *feed.Broadcaster
}

// buildServices opens the store and wires the services. cleanup stops the
// writers and then closes the backend.
func buildServices(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*services, func(), error) {
	if cfg.Store.Backend == config.BackendPostgres {
		if err := docstore.RunMigrations(cfg.Store.DatabaseURL); err != nil {
			return nil, nil, err
		}
	}

	store, closeStore, err := docstore.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	logger.Info("document store ready", "backend", store.Name(), "conditional", store.Conditional())

	writers := docstore.NewWriters(store, docstore.WriterOptions{
		MaxConflictRetries: cfg.Store.MaxConflictRetries,
		RetryDelay:         cfg.Store.ConflictRetryDelay,
		Logger:             logger,
	})
	cleanup := func() {
		writers.Close()
		closeStore()
	}

	broadcaster := feed.NewBroadcaster(logger)
	sessions := session.NewManager(cfg.Auth.SessionTTL, session.RealClock{})
	repo := users.NewRepository(writers, logger)

	return &services{
		auth:     auth.NewService(repo, credential.NewHasher(cfg.Auth.BcryptCost), sessions, logger),
		comments: comments.NewService(writers, broadcaster, logger),
		feed:     broadcaster,
	}, cleanup, nil
}

func serveAction(c *cli.Context) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	janitor := background.NewSessionJanitor(svc.auth, cfg.Auth.SessionPruneInterval, 2*cfg.Store.Timeout, logger)
	janitor.Start()
	defer janitor.Stop()

	rs := apperror.NewResponder(cfg.Server.Debug, logger)
	cookies := auth.CookieOptions{Secure: cfg.Auth.CookieSecure}
	router := api.NewRouter(api.Deps{
		Responder:      rs,
		AuthService:    svc.auth,
		AuthHandlers:   auth.NewHandlers(svc.auth, rs, cookies),
		Comments:       comments.NewCommentHandler(svc.comments, svc.feed, rs),
		CSRF:           csrf.NewIssuer(cfg.Auth.CSRFSecret, cfg.Auth.CSRFTokenTTL),
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		SecureCookies:  cfg.Auth.CookieSecure,
		Swagger:        true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: it would cut the SSE stream. Ordinary requests are
		// bounded by the router's timeout middleware.
		IdleTimeout: 60 * time.Second,
	}

	srv.RegisterOnShutdown(svc.feed.Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
