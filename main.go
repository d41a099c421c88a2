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

	"compliance-training/config"
	"compliance-training/database"
	"compliance-training/internal/app"
	"compliance-training/internal/metrics"
)

func main() {
	cfg := config.MustLoad()

	log := app.SetupLogger(cfg.Env)
	log = log.With(slog.String("env", cfg.Env))
	log.Info("starting compliance-training api", slog.String("port", cfg.Port))

	metrics.Register()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialise app", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.Close()

	if err := database.Migrate(a.DB, log); err != nil {
		log.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	if n, err := app.SeedCourses(a.DB, a.Catalog); err != nil {
		log.Error("failed to seed courses", slog.Any("error", err))
		os.Exit(1)
	} else {
		log.Debug("courses seeded", slog.Int("count", n))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
		log.Info("stopping server...")
	case err := <-errChan:
		log.Error("server crashed", slog.Any("error", err))
		os.Exit(1)
	}

	// The SSE stream holds connections for up to a minute; do not wait for it.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop server", slog.Any("error", err))
	}
	log.Info("server stopped")
}
