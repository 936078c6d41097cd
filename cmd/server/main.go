package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/flexit/backend/internal/config"
	"github.com/flexit/backend/internal/database"
	mW "github.com/flexit/backend/internal/middleware"
	"github.com/flexit/backend/internal/services"
	"github.com/flexit/backend/internal/store"
)

// @title Flexit Leaderboard API
// @version 1.0
// @description Pay-to-rank leaderboard backend with payment webhook reconciliation
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("environment", "ENVIRONMENT")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("lemonsqueezy.webhook_secret", "LEMON_SQUEEZY_WEBHOOK_SECRET")
	viper.BindEnv("lemonsqueezy.product_url", "LEMON_SQUEEZY_PRODUCT_URL")
	viper.BindEnv("lemonsqueezy.app_url", "APP_URL")
	viper.BindEnv("lemonsqueezy.use_mock_checkout", "USE_MOCK_CHECKOUT")
	viper.BindEnv("lemonsqueezy.skip_webhook_verification", "SKIP_WEBHOOK_VERIFICATION")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("admin.password_hash", "ADMIN_PASSWORD_HASH")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	lsConfig := config.LoadLemonSqueezy()

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	entryStore := store.NewPostgresEntryStore(db)

	verifier := services.NewSignatureVerifier(lsConfig)
	normalizer := services.NewEventNormalizer()
	reconciler := services.NewReconciliationService(entryStore)
	webhookService := services.NewWebhookService(verifier, normalizer, reconciler)
	leaderboardService := services.NewLeaderboardService(entryStore)
	checkoutService := services.NewCheckoutService(redisClient, reconciler, lsConfig)
	adminService := services.NewAdminService(entryStore, redisClient)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Signature"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/checkout", checkoutService.CreateCheckout)
		r.Get("/leaderboard", leaderboardService.GetLeaderboard)
		r.Post("/webhooks/lemonsqueezy", webhookService.HandleWebhook)
		r.Post("/admin/login", adminService.Login)

		// Development-only mock completion path
		if lsConfig.UseMockCheckout && !config.IsProduction() {
			r.Get("/mock-checkout", checkoutService.MockCheckout)
		}

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/admin/entries", adminService.ListEntries)
			r.Post("/admin/logout", adminService.Logout)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
