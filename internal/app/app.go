// Package app wires configuration, storage and the payment provider into the
// HTTP server and the ops CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"compliance-training/config"
	"compliance-training/database"
	adminapi "compliance-training/internal/api/admin"
	authapi "compliance-training/internal/api/auth"
	"compliance-training/internal/api/checkout"
	coursesapi "compliance-training/internal/api/courses"
	stripewebhooks "compliance-training/internal/api/stripewebhook"
	"compliance-training/internal/api/teams"
	"compliance-training/internal/api/users"
	routes "compliance-training/internal/app/http"
	"compliance-training/internal/app/http/middleware"
	"compliance-training/internal/infra/events"
	"compliance-training/internal/infra/notify"
	"compliance-training/internal/infra/stripe"
	"compliance-training/internal/provisioning"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type App struct {
	cfg *config.Config
	log *slog.Logger

	DB        *gorm.DB
	Catalog   *stripe.PriceCatalog
	Gateway   *stripe.Client
	Store     *provisioning.GormStore
	Processor *provisioning.Processor
	Resolver  *provisioning.Resolver

	notifier *notify.RedisNotifier
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	db, err := database.Open(cfg.DBURL)
	if err != nil {
		return nil, err
	}

	catalog, err := stripe.LoadPriceCatalog(cfg.Stripe.PriceMapPath)
	if err != nil {
		return nil, fmt.Errorf("load price map: %w", err)
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		DB:      db,
		Catalog: catalog,
		Gateway: stripe.NewClient(cfg.Stripe.SecretKey),
		Store:   provisioning.NewGormStore(db),
	}

	var notifiers []provisioning.Notifier
	redisNotifier, err := notify.NewRedisNotifier(ctx, notify.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TLS:      cfg.Redis.TLS,
	})
	switch {
	case err != nil:
		log.Warn("redis unavailable, live checkout updates disabled", slog.Any("error", err))
	case redisNotifier != nil:
		a.notifier = redisNotifier
		notifiers = append(notifiers, redisNotifier)
	}
	if cfg.RabbitMQ.URL != "" {
		notifiers = append(notifiers, events.NewRabbitPublisher(cfg.RabbitMQ.URL))
	}

	a.Processor = provisioning.NewProcessor(a.Store, catalog, log, notifiers...)
	a.Resolver = provisioning.NewResolver(a.Gateway, a.Store, a.Processor, provisioning.ResolverOptions{
		Attempts: cfg.Failsafe.Attempts,
		Delay:    cfg.Failsafe.Delay,
	}, log)

	log.Info("app initialised",
		slog.Int("prices", len(catalog.Entries())),
		slog.Bool("redis", a.notifier != nil),
		slog.Bool("rabbitmq", cfg.RabbitMQ.URL != ""),
	)
	return a, nil
}

// Router builds the gin engine with every route mounted.
func (a *App) Router() *gin.Engine {
	if a.cfg.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(a.log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{a.cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// A nil *RedisNotifier must not end up inside a non-nil interface.
	var waiter checkout.ProvisionWaiter
	if a.notifier != nil {
		waiter = a.notifier
	}

	routes.RegisterRoutes(r, a.DB, a.cfg.JWTSecret, routes.Handlers{
		Auth: authapi.NewHandler(a.DB, a.cfg.JWTSecret, authapi.GoogleConfig{
			ClientID:         a.cfg.Google.ClientID,
			ClientSecret:     a.cfg.Google.ClientSecret,
			RedirectURL:      a.cfg.Google.RedirectURL,
			FrontendRedirect: a.cfg.Google.FrontendRedirect,
		}, a.log),
		Checkout: checkout.NewHandler(a.Gateway, a.Catalog, a.Store, a.Resolver, waiter, checkout.Options{
			AppURL: a.cfg.AppURL,
			APIURL: a.cfg.APIURL,
		}, a.log),
		Webhook: stripewebhooks.NewHandler(a.cfg.Stripe.WebhookSecret, a.Gateway, a.Processor, a.Store, a.log),
		Courses: coursesapi.NewHandler(a.DB, a.Catalog),
		Users:   users.NewHandler(a.DB),
		Teams:   teams.NewHandler(a.DB),
		Admin:   adminapi.NewHandler(a.DB, a.Gateway, a.Processor, a.Catalog, a.log),
	})
	return r
}

func (a *App) Close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.log.Warn("close redis", slog.Any("error", err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// SetupLogger picks the slog handler for the environment.
func SetupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
