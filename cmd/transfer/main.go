package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"digital-banking-platform/config"
	httpHandler "digital-banking-platform/internal/adapter/http/handler"
	"digital-banking-platform/internal/adapter/kafka"
	pgStorage "digital-banking-platform/internal/adapter/storage/postgres"
	"digital-banking-platform/internal/core/domain"
	"digital-banking-platform/internal/core/ports"
	"digital-banking-platform/internal/outbox"
	"digital-banking-platform/internal/service"
	"digital-banking-platform/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Transfer Service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Initialize repositories
	txRepo := pgStorage.NewTransactionRepo(pool)
	outboxRepo := pgStorage.NewOutboxRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Kafka producer and dead-letter producer
	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger.For(log, "producer"))
	defer producer.Close()
	dlq := kafka.NewDeadLetterProducer(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic, logger.For(log, "dlq"))
	defer dlq.Close()

	// Initialize business services
	transferSvc := service.NewTransferService(
		txRepo,
		outboxRepo,
		transactor,
		domain.FeePolicy{RateBasisPoints: cfg.Fee.RateBasisPoints, MinFee: cfg.Fee.MinFee},
		cfg.Kafka.TransferTopic,
		logger.For(log, "transfer"),
	)

	var wg sync.WaitGroup

	// Outbox relay: drains staged events into Kafka
	relay := outbox.NewRelay(
		transactor, outboxRepo, producer,
		cfg.Outbox.PollInterval, cfg.Outbox.BatchSize,
		logger.For(log, "outbox-relay"),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()

	// Outcome consumer: applies settlement results to transaction rows
	outcomeHandler := service.NewOutcomeHandler(transferSvc, dlq, cfg.Kafka.OutcomeTopic, logger.For(log, "outcome"))
	outcomeConsumer := kafka.NewConsumer(
		cfg.Kafka.Brokers, cfg.Kafka.OutcomeTopic, cfg.Kafka.OutcomeGroup,
		outcomeHandler, logger.For(log, "outcome-consumer"),
	)
	defer outcomeConsumer.Close()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := outcomeConsumer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("outcome consumer stopped")
			stop()
		}
	}()

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransferSvc:    transferSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth},
		Logger:         logger.For(log, "http"),
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down transfer service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	wg.Wait()
	log.Info().Msg("Transfer service exited")
}
