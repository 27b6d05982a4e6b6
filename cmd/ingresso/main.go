package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/pbellini/ingresso/internal/adapter/fsm"
	"github.com/pbellini/ingresso/internal/adapter/otel"
	"github.com/pbellini/ingresso/internal/adapter/river"
	"github.com/pbellini/ingresso/internal/adapter/sqlite"
	"github.com/pbellini/ingresso/internal/app"
	"github.com/pbellini/ingresso/internal/config"

	handler "github.com/pbellini/ingresso/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return err
	}

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return err
	}
	defer store.Close()

	identities := otel.NewTracingIdentityRepository(store.Identities)
	invites := otel.NewTracingInvitationRepository(store.Invitations)

	client, err := river.Setup(ctx, db, invites, cfg.SweepInterval)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			slog.Warn("river stop", "error", err)
		}
	}()

	publisher := otel.NewTracingPublisher(river.NewPublisher(client))

	// --- Application ---
	svc := app.NewActivationService(identities, store.Tenants, invites, publisher, fsm.New())

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	// Every store call downstream inherits this deadline.
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Use(otelchi.Middleware("ingresso", otelchi.WithChiRoutes(router)))
	router.Use(handler.Authenticator([]byte(cfg.AuthSecret)))

	api := humachi.New(router, huma.DefaultConfig("ingresso", "0.1.0"))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	slog.Info("ingresso listening", "port", cfg.Port)
	slog.Info("API docs", "url", "http://localhost:"+cfg.Port+"/docs")

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-done:
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", "error", err)
	}

	slog.Info("stopped")
	return nil
}
