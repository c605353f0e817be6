package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"digital-banking-platform/config"
	"digital-banking-platform/internal/adapter/kafka"
	pgStorage "digital-banking-platform/internal/adapter/storage/postgres"
	redisStorage "digital-banking-platform/internal/adapter/storage/redis"
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
		Str("group", cfg.Kafka.SettlementGroup).
		Msg("Starting Settlement Service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool (account store)
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Initialize repositories and stores
	accountRepo := pgStorage.NewAccountRepo(pool)
	inboxRepo := pgStorage.NewSettlementInboxRepo(pool)
	outboxRepo := pgStorage.NewOutboxRepo(pool)
	transactor := pgStorage.NewTransactor(pool)
	settlementCache := redisStorage.NewSettlementCache(rdb)

	// Initialize Kafka producers
	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger.For(log, "producer"))
	defer producer.Close()
	dlq := kafka.NewDeadLetterProducer(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic, logger.For(log, "dlq"))
	defer dlq.Close()

	// Initialize settlement service
	settlementSvc := service.NewSettlementService(
		accountRepo,
		inboxRepo,
		outboxRepo,
		transactor,
		settlementCache,
		dlq,
		cfg.Kafka.TransferTopic,
		cfg.Kafka.OutcomeTopic,
		cfg.Settlement.DedupTTL,
		logger.For(log, "settlement"),
	)

	var wg sync.WaitGroup

	// Outbox relay: drains outcome events into Kafka
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

	// Settlement consumer: applies transfer events to account balances
	consumer := kafka.NewConsumer(
		cfg.Kafka.Brokers, cfg.Kafka.TransferTopic, cfg.Kafka.SettlementGroup,
		settlementSvc, logger.For(log, "settlement-consumer"),
	)
	defer consumer.Close()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("settlement consumer stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down settlement service...")

	wg.Wait()
	log.Info().Msg("Settlement service exited")
}
