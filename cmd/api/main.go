package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-cards/internal/config"
	"github.com/Dan9191/bank-cards/internal/handler"
	"github.com/Dan9191/bank-cards/internal/metrics"
	"github.com/Dan9191/bank-cards/internal/repository"
	"github.com/Dan9191/bank-cards/internal/scheduler"
	"github.com/Dan9191/bank-cards/internal/service"
	"github.com/Dan9191/bank-cards/internal/utils"
	"github.com/Dan9191/bank-cards/internal/utils/email"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	if cfg.RunMigrations {
		if err := repository.Migrate(db); err != nil {
			logger.Fatalf("Failed to apply migrations: %v", err)
		}
		logger.Info("Database schema is up to date")
	}

	cipher, err := utils.NewFieldCipher(cfg.EncryptionKey)
	if err != nil {
		logger.Fatalf("Failed to initialize card cipher: %v", err)
	}

	// Initialize layers
	cards := repository.NewEncryptedCardStore(repository.NewCardRepository(db), cipher)
	users := repository.NewUserRepository(db)
	m := metrics.New()

	var notifier service.Notifier
	if cfg.SMTPEnabled() {
		notifier = email.NewSender(cfg, logger)
	} else {
		logger.Warn("SMTP is not configured, card notifications are disabled")
	}

	sweeper := service.NewExpirationSweeper(cards, m, logger)
	cardSvc := service.NewCardService(cards, users, sweeper, notifier, m, logger)
	adminSvc := service.NewAdminCardService(cards, users, cipher,
		service.IssueOptions{Prefix: cfg.CardPrefix, MaxAttempts: cfg.CardNumberMaxAttempts}, notifier, m, logger)
	userSvc := service.NewUserService(users, cards, logger)
	authSvc := service.NewAuthService(users, cfg.JWTSecret, cfg.JWTTTL, logger)

	job, err := scheduler.NewExpiryJob(sweeper, cfg.ExpirySweepSchedule, logger)
	if err != nil {
		logger.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	job.Start()

	h := handler.NewHandler(cardSvc, adminSvc, userSvc, authSvc, m.Handler(), logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	job.Stop(ctx)
}
