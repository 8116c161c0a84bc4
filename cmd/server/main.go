package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	api "rental-escrow-backend/internal/api/grpc"
	"rental-escrow-backend/internal/api/grpc/interceptor"
	httpapi "rental-escrow-backend/internal/api/http"
	"rental-escrow-backend/internal/cache"
	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/notify"
	"rental-escrow-backend/internal/repository/postgres"
	"rental-escrow-backend/internal/security"
	"rental-escrow-backend/internal/service"
	"rental-escrow-backend/internal/storage"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	migrate := flag.Bool("migrate", true, "Apply pending database migrations on start")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rental Escrow Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc", cfg.GetServerAddress(), "http", cfg.GetHTTPAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db := must(sql.Open("postgres", cfg.GetDatabaseConnectionString()))
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if *migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	store := postgres.NewStore(db)
	repos := store.Repos()

	blobs := must(storage.New(ctx, cfg.StorageOptions()))
	logger.Info("Blob storage ready", "type", cfg.Storage.Type)

	timeline := cache.Connect(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.CacheTTL(),
	})
	defer timeline.Close()

	notifier, closeNotifier := notify.Setup(ctx, notify.Options{
		SendGridAPIKey:          cfg.SendGrid.APIKey,
		FromEmail:               cfg.SendGrid.FromEmail,
		FromName:                cfg.SendGrid.FromName,
		FirebaseCredentialsFile: cfg.Firebase.CredentialsFile,
		RabbitMQURL:             cfg.RabbitMQ.URL,
		Exchange:                cfg.RabbitMQ.Exchange,
	}, repos.Users, repos.Notifications)
	defer closeNotifier()

	policy := service.Policy{
		ServiceFeePercent: cfg.Pricing.ServiceFeePercent,
		MinFeedbackLength: cfg.Pricing.MinFeedbackLength,
		DefaultPageSize:   cfg.Pricing.DefaultPageSize,
		MaxPageSize:       cfg.Pricing.MaxPageSize,
	}
	deps := service.Dependencies{
		Tx:       store,
		Blobs:    blobs,
		Notifier: notifier,
		Timeline: timeline,
		Policy:   policy,

		NotifyTimeout: cfg.NotifyTimeout(),
	}

	handler := api.NewRentalHandler(api.Services{
		Rentals:       service.NewRentalService(deps),
		Payments:      service.NewPaymentService(deps),
		Handovers:     service.NewHandoverService(deps),
		Schedules:     service.NewScheduleService(deps),
		Disputes:      service.NewDisputeService(deps),
		Notifications: service.NewNotificationService(repos.Notifications, policy),
	})

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.AccessTokenTTL())
	authInterceptor := interceptor.NewAuthInterceptor(tokenManager)

	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptor.Observe(), authInterceptor.Unary()),
	)
	api.RegisterRentalServiceServer(s, handler)

	// Register reflection service for grpcurl
	reflection.Register(s)

	var httpServer *http.Server
	if addr := cfg.GetHTTPAddress(); addr != "" {
		opts := httpapi.RouterOptions{
			DB:             db,
			Tokens:         tokenManager,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
		}
		if local, ok := blobs.(*storage.LocalStorage); ok {
			opts.Images = local
		}
		httpServer = &http.Server{
			Addr:              addr,
			Handler:           httpapi.NewRouter(opts),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "address", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down...")
		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP shutdown error", "error", err)
			}
		}
		s.GracefulStop()
	}()

	logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
	if err := s.Serve(lis); err != nil {
		logger.Error("Failed to serve gRPC", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
	logger.Info("Server stopped")
}
