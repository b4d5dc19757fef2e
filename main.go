package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"food-marketplace-api/config"
	"food-marketplace-api/handlers"
	"food-marketplace-api/metrics"
	"food-marketplace-api/middleware"
	"food-marketplace-api/notify"
	"food-marketplace-api/reports"
	"food-marketplace-api/routes"
	"food-marketplace-api/services"
	"food-marketplace-api/tracing"
	"food-marketplace-api/tracking"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.MustLoad()
	config.SetupLogger(cfg.Log.Level)

	if err := run(cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	gin.SetMode(cfg.Server.GinMode)
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.Init(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	// Initialize database
	db, err := config.OpenDB(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	m := metrics.New()

	// Notifications are persisted as inbox messages and, when a broker is
	// configured, published to it as well.
	store := notify.NewStoreSink(db)
	var sink notify.Sink = store
	if cfg.Notifications.AMQPURL != "" {
		client, err := notify.Dial(cfg.Notifications.AMQPURL)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher, err := notify.NewAMQPSink(client, cfg.Notifications.Exchange)
		if err != nil {
			return err
		}
		sink = notify.Fanout{store, publisher}
		slog.Info("Publishing notifications to AMQP", "exchange", cfg.Notifications.Exchange)
	}
	dispatcher := notify.NewDispatcher(sink, cfg.Notifications.QueueSize, notify.WithMetrics(m))

	hub := tracking.NewHub(cfg.Server.CORS.AllowedOrigins)
	svc := services.New(db,
		services.WithNotifier(dispatcher),
		services.WithMetrics(m),
		services.WithLocationPublisher(hub),
	)
	if err := svc.Users.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return err
	}

	tokens := middleware.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	h := handlers.New(svc, reports.New(db), tokens, hub, store)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Trace(cfg.Tracing.ServiceName))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Food Marketplace API",
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// Welcome
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Food Marketplace API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"customer", "merchant", "driver", "admin"},
		})
	})

	// Register all routes
	routes.SetupRoutes(r, h, middleware.AuthRequired(tokens, svc.Users))

	corsCfg := cfg.Server.CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   corsCfg.AllowedMethods,
		AllowedHeaders:   corsCfg.AllowedHeaders,
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAge,
	})
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: c.Handler(r),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("Server running", "addr", "http://localhost:"+cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
