package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dispatchly/dispatchly-api/internal/config"
	"github.com/dispatchly/dispatchly-api/internal/domain/ai"
	"github.com/dispatchly/dispatchly-api/internal/domain/credits"
	"github.com/dispatchly/dispatchly-api/internal/domain/orders"
	"github.com/dispatchly/dispatchly-api/internal/middleware"
	"github.com/dispatchly/dispatchly-api/internal/pkg/database"
	"github.com/dispatchly/dispatchly-api/internal/pkg/imaging"
	"github.com/dispatchly/dispatchly-api/internal/pkg/jwt"
	"github.com/dispatchly/dispatchly-api/internal/pkg/metrics"
	pkgresponse "github.com/dispatchly/dispatchly-api/internal/pkg/response"
	"github.com/dispatchly/dispatchly-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Dispatchly API")

	costs, err := credits.NewCostTable(cfg.CreditCostOverrides)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid credit cost configuration")
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if cfg.MigrateOnStart {
		if err := database.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// Payment-proof storage: R2 in production, local disk otherwise.
	var proofs storage.Storage
	if cfg.R2AccountID != "" {
		r2, err := storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create R2 storage")
		}
		proofs = r2
	} else {
		local, err := storage.NewLocalStorage("./data/proofs", "/files")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create local storage")
		}
		proofs = local
	}

	// ---------- Credits ----------
	creditRepo := credits.NewRepository(db)
	balanceCache := credits.NewBalanceCache(redisClient, cfg.BalanceCacheTTL)
	creditService := credits.NewService(creditRepo, balanceCache)
	creditGate := credits.NewGate(creditService, costs)
	creditHandler := credits.NewHandler(creditService, proofs)
	adminCreditHandler := credits.NewAdminHandler(creditService)

	// ---------- Orders ----------
	orderRepo := orders.NewRepository(db)
	orderService := orders.NewService(orderRepo, creditGate, nil)
	orderHandler := orders.NewHandler(orderService)

	// ---------- AI processing ----------
	var aiHandler *ai.Handler
	if cfg.AIBackendURL != "" {
		processor := ai.NewHTTPProcessor(cfg.AIBackendURL, cfg.AITimeout)
		normalizer := imaging.NewNormalizer(imaging.DefaultConfig())
		aiHandler = ai.NewHandler(ai.NewService(processor, creditGate, normalizer))
	}

	authMiddleware := middleware.Auth(jwtService)
	adminMiddleware := middleware.AdminAuth(cfg.AdminTokenHash)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/orders", orderHandler.Routes(authMiddleware))
		if aiHandler != nil {
			r.Mount("/ai", aiHandler.Routes(authMiddleware))
		}
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Mount("/credits", adminCreditHandler.Routes(adminMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
