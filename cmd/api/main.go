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
	"time"

	_ "unireview/docs" // This is for Swagger
	"unireview/internal/auth"
	"unireview/internal/blindsign"
	"unireview/internal/config"
	"unireview/internal/database"
	"unireview/internal/envelope"
	"unireview/internal/handlers"
	"unireview/internal/keymanager"
	"unireview/internal/logger"
	"unireview/internal/middleware"
	"unireview/internal/repository"
	"unireview/internal/scheduler"
	"unireview/internal/service"
	"unireview/internal/vault"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title UniReview API
// @version 1.0
// @description Anonymous professor review platform: blind-signature token issuance, sealed submission, batched publication

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize Vault client (optional; keys stay plaintext PEM in
	// the database without it)
	var vaultClient *vault.Client
	if cfg.Vault.Enabled {
		vaultClient, err = vault.NewClient(&vault.Config{
			Address:      cfg.Vault.Address,
			Token:        cfg.Vault.Token,
			TransitMount: cfg.Vault.TransitMount,
		})
		if err != nil {
			slog.Error("Failed to initialize Vault client", "error", err)
			os.Exit(1)
		}
		slog.Info("Vault transit encryption enabled", "vault_addr", cfg.Vault.Address)
	} else {
		slog.Warn("Vault is disabled - service keys will be stored unwrapped")
	}

	// Load or generate the long-lived service keypairs
	keyManager, err := keymanager.NewKeyManager(db.DB, vaultClient, cfg.Anonymous.SigningKeyBits)
	if err != nil {
		slog.Error("Failed to initialize KeyManager", "error", err)
		os.Exit(1)
	}
	signingKeys, err := keyManager.SigningKeyPair()
	if err != nil {
		slog.Error("Failed to load signing keypair", "error", err)
		os.Exit(1)
	}
	encryptionKeys, err := keyManager.EncryptionKeyPair()
	if err != nil {
		slog.Error("Failed to load encryption keypair", "error", err)
		os.Exit(1)
	}
	encryptionKeyPEM, err := envelope.MarshalPublicKeyPEM(encryptionKeys.Public())
	if err != nil {
		slog.Error("Failed to marshal encryption public key", "error", err)
		os.Exit(1)
	}
	authority := blindsign.NewAuthority(signingKeys)

	// Initialize repositories
	claimRepo := repository.NewClaimRepository(db.DB)
	pendingRepo := repository.NewPendingReviewRepository(db.DB)
	reviewRepo := repository.NewReviewRepository(db.DB)
	professorRepo := repository.NewProfessorRepository(db.DB)
	shuffleStateRepo := repository.NewShuffleStateRepository(db.DB)

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	claimService := service.NewClaimService(db.DB, claimRepo, authority, cfg.Anonymous.IdentitySecret)
	submissionService := service.NewSubmissionService(pendingRepo, professorRepo, authority)
	shuffleService := service.NewShuffleService(db.DB, pendingRepo, reviewRepo, shuffleStateRepo, encryptionKeys, cfg.Shuffle)

	// Initialize scheduler
	schedulerService := scheduler.NewScheduler(shuffleService, claimService, cfg.Shuffle)
	if err := schedulerService.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer schedulerService.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)

	// Initialize handlers
	anonymousHandler := handlers.NewAnonymousHandler(claimService, submissionService, encryptionKeyPEM)
	professorHandler := handlers.NewProfessorHandler(professorRepo, reviewRepo)

	// Setup router
	mux := http.NewServeMux()

	// Anonymous channel. Submit is deliberately unauthenticated: the
	// review token is the only credential it may carry.
	mux.Handle("GET /api/v1/anonymous/status", authMw.Authenticate(http.HandlerFunc(anonymousHandler.Status)))
	mux.Handle("POST /api/v1/anonymous/claim", authMw.Authenticate(http.HandlerFunc(anonymousHandler.Claim)))
	mux.HandleFunc("GET /api/v1/anonymous/encryption-key", anonymousHandler.EncryptionKey)
	mux.HandleFunc("POST /api/v1/anonymous/submit", anonymousHandler.Submit)

	// Public roster and published reviews
	mux.HandleFunc("GET /api/v1/professors", professorHandler.List)
	mux.HandleFunc("GET /api/v1/professors/{id}", professorHandler.Get)
	mux.HandleFunc("GET /api/v1/professors/{id}/reviews", professorHandler.Reviews)
	mux.HandleFunc("GET /api/v1/professors/{id}/stats", professorHandler.Stats)

	// Health check endpoint
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`)); err != nil {
				slog.Error("Failed to write health check response", "error", err)
			}
			return
		}
		if vaultClient != nil {
			if err := vaultClient.Health(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				if _, err := w.Write([]byte(`{"status":"unhealthy","vault":"error"}`)); err != nil {
					slog.Error("Failed to write health check response", "error", err)
				}
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`)); err != nil {
			slog.Error("Failed to write health check response", "error", err)
		}
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
