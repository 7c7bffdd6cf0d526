package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "evrental-backend/internal/api/http"
	"evrental-backend/internal/config"
	"evrental-backend/internal/gateway"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/repository/postgres"
	"evrental-backend/internal/security"
	"evrental-backend/internal/service"
	"evrental-backend/internal/storage"
	"evrental-backend/migrations"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting EV Rental Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Storage configuration", "type", cfg.Storage.Type)

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	ctx := context.Background()

	if cfg.Database.AutoMigrate {
		provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
		if err != nil {
			log.Fatalf("Failed to create migration provider: %v", err)
		}
		results, err := provider.Up(ctx)
		if err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		logger.Info("Migrations applied", "count", len(results))
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Gateway
	gw, err := gateway.NewVNPay(cfg.GatewaySettings())
	if err != nil {
		log.Fatalf("Failed to configure payment gateway: %v", err)
	}

	// Initialize Services
	emailService := service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	availabilityService := service.NewAvailabilityService(store.VehicleRepository)
	rentalService := service.NewRentalService(
		store.RentalRepository,
		store.VehicleRepository,
		store.UserRepository,
		emailService,
		cfg.Pricing,
		cfg.RentalPolicy(),
	)
	paymentService := service.NewPaymentService(
		store.PaymentRepository,
		store.RentalRepository,
		gw,
		rentalService,
	)

	// Initialize Storage
	photoStore, err := storage.New(ctx, storage.Config{
		Type:            cfg.Storage.Type,
		MockDir:         cfg.Storage.UploadDir,
		BaseURL:         cfg.Storage.BaseURL,
		ProjectID:       cfg.Storage.FirebaseProject,
		Bucket:          cfg.Storage.FirebaseBucket,
		CredentialsFile: cfg.Storage.CredentialsFile,
	})
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	tokenManager := security.NewTokenManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Rentals:      rentalService,
		Payments:     paymentService,
		Availability: availabilityService,
		Storage:      photoStore,
		Tokens:       tokenManager,
		Uploads: httpapi.UploadLimits{
			MaxBytes:     cfg.Storage.MaxFileSize << 20,
			AllowedTypes: cfg.Storage.AllowedTypes,
		},
	})

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
