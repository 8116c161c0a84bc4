package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"rental-escrow-backend/internal/cache"
	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/jobs"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/notify"
	"rental-escrow-backend/internal/repository/postgres"
	"rental-escrow-backend/internal/scheduler"
	"rental-escrow-backend/internal/service"
	"rental-escrow-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-stale-requests', 'all-nightly')")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rental Escrow Cronjob Runner...", "log_level", cfg.Log.Level)

	ctx := context.Background()

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	repos := store.Repos()

	blobs, err := storage.New(ctx, cfg.StorageOptions())
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

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

	rentalService := service.NewRentalService(service.Dependencies{
		Tx:       store,
		Blobs:    blobs,
		Notifier: notifier,
		Timeline: timeline,
		Policy: service.Policy{
			ServiceFeePercent: cfg.Pricing.ServiceFeePercent,
			MinFeedbackLength: cfg.Pricing.MinFeedbackLength,
			DefaultPageSize:   cfg.Pricing.DefaultPageSize,
			MaxPageSize:       cfg.Pricing.MaxPageSize,
		},

		NotifyTimeout: cfg.NotifyTimeout(),
	})

	jobRunner := jobs.NewJobRunner(rentalService, notifier)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := jobRunner.RunOnce(*runOnce); err != nil {
			logger.Error("Job execution failed", "job", *runOnce, "error", err)
			fmt.Printf("Available jobs:\n  - %s\n  - %s\n  - %s\n",
				jobs.JobExpireStaleRequests, jobs.JobSendOverdueReminders, jobs.JobAllNightly)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler, err := scheduler.NewScheduler(jobRunner, cfg.Scheduler)
	if err != nil {
		log.Fatalf("Failed to configure scheduler: %v", err)
	}

	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}
