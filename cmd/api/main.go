package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/internal/modules/auth"
	"github.com/bazaarhq/bazaar-backend/internal/modules/cart"
	"github.com/bazaarhq/bazaar-backend/internal/modules/catalog"
	"github.com/bazaarhq/bazaar-backend/internal/modules/inventory"
	"github.com/bazaarhq/bazaar-backend/internal/modules/order"
	"github.com/bazaarhq/bazaar-backend/internal/modules/payment"
	"github.com/bazaarhq/bazaar-backend/internal/modules/review"
	"github.com/bazaarhq/bazaar-backend/internal/modules/user"
	"github.com/bazaarhq/bazaar-backend/internal/modules/vendor"
	"github.com/bazaarhq/bazaar-backend/internal/modules/webhook"
	"github.com/bazaarhq/bazaar-backend/migrations"
	"github.com/bazaarhq/bazaar-backend/pkg/cache"
	"github.com/bazaarhq/bazaar-backend/pkg/config"
	"github.com/bazaarhq/bazaar-backend/pkg/logging"
	"github.com/bazaarhq/bazaar-backend/pkg/metrics"
	"github.com/bazaarhq/bazaar-backend/pkg/queue"
)

func main() {
	cfg := config.Load()
	log := logging.New("bazaar-api", !cfg.Production())
	defer log.Sync()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("database unreachable", zap.Error(err))
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal("set migration dialect", zap.Error(err))
	}
	if err := goose.Up(db, "."); err != nil {
		log.Fatal("run migrations", zap.Error(err))
	}

	c := cache.New(cfg.RedisURL, log)
	defer c.Close()
	jobs := queue.NewProducer(cfg.KafkaBrokers, log)
	defer jobs.Close()

	userRepo := user.NewPostgresRepository(db)
	vendorRepo := vendor.NewPostgresRepository(db)
	catalogRepo := catalog.NewPostgresRepository(db)
	reviewRepo := review.NewPostgresRepository(db)
	cartRepo := cart.NewPostgresRepository(db)
	inventoryRepo := inventory.NewPostgresRepository(db)
	orderRepo := order.NewPostgresRepository(db)
	paymentRepo := payment.NewPostgresRepository(db)
	webhookRepo := webhook.NewPostgresRepository(db)

	userService := user.NewService(userRepo, c)
	authService := auth.NewService(auth.NewPostgresAccounts(db), []byte(cfg.JWTSecret))
	vendorService := vendor.NewService(vendorRepo)
	catalogService := catalog.NewService(catalogRepo, vendorService, c)
	reviewService := review.NewService(reviewRepo)
	cartService := cart.NewService(cartRepo, catalogService)
	inventoryService := inventory.NewService(inventoryRepo, vendorService, c, jobs, log)
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey)
	paymentService := payment.NewService(gateway, paymentRepo, inventoryService, jobs, log)
	orderService := order.NewService(orderRepo, inventoryService, paymentService, vendorService, jobs, log)
	webhookService := webhook.NewService(webhookRepo, userService, paymentService, c, jobs, log)

	production := cfg.Production()
	userHandler := user.NewHandler(userService, log, production)
	authHandler := auth.NewHandler(authService, log, production)
	vendorHandler := vendor.NewHandler(vendorService, log, production)
	catalogHandler := catalog.NewHandler(catalogService, log, production)
	reviewHandler := review.NewHandler(reviewService, log, production)
	cartHandler := cart.NewHandler(cartService, log, production)
	inventoryHandler := inventory.NewHandler(inventoryService, log, production)
	orderHandler := order.NewHandler(orderService, log, production)
	paymentHandler := payment.NewHandler(paymentService, log, production)
	webhookHandler := webhook.NewHandler(webhookService, cfg.IdentityWebhookSecret, cfg.StripeWebhookSecret, log, production)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpapi.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", metrics.Handler())

	// Webhooks authenticate by signature, not session.
	webhookHandler.RegisterRoutes(router)

	authHandler.RegisterRoutes(router)
	vendorHandler.RegisterPublicRoutes(router)
	catalogHandler.RegisterPublicRoutes(router)
	reviewHandler.RegisterPublicRoutes(router)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware([]byte(cfg.JWTSecret), c, log))
		userHandler.RegisterRoutes(r)
		vendorHandler.RegisterRoutes(r)
		catalogHandler.RegisterRoutes(r)
		reviewHandler.RegisterRoutes(r)
		cartHandler.RegisterRoutes(r)
		inventoryHandler.RegisterRoutes(r)
		orderHandler.RegisterRoutes(r)
		paymentHandler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
		os.Exit(1)
	}
}
