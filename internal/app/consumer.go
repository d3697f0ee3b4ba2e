package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-timeclock/internal/assignment"
	"go-timeclock/internal/audit"
	"go-timeclock/internal/events"
	"go-timeclock/internal/idempotency"
	"go-timeclock/internal/job"
	"go-timeclock/internal/messaging/kafka"
	"go-timeclock/internal/messaging/kafka/consumer"
	"go-timeclock/internal/shared/connection"
	"go-timeclock/internal/timeentry"
)

// RunConsumer reads worker-raised disputes from Kafka and tags the referenced
// entries for review.
func RunConsumer() error {
	logger := zap.L().Named("app.consumer")
	cfg := LoadConfig()

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaBroker := os.Getenv("KAFKA_BROKER")
	if kafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	entryRepo := timeentry.NewRepository(gormDB)
	jobRepo := job.NewRepository(gormDB)
	assignmentRepo := assignment.NewRepository(gormDB)
	idemRepo := idempotency.NewRepository(gormDB)
	auditRepo := audit.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(sqlDB)
	guard := idempotency.NewGuard(cfg.IdempotencyWindow)

	entryService := timeentry.NewService(
		sqlDB, entryRepo, jobRepo, assignmentRepo, idemRepo, guard, auditRepo, outboxRepo,
		timeentry.Config{
			MaxShift:              cfg.MaxShift,
			AccuracyCeilingMeters: cfg.AccuracyCeilingM,
		},
	)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{kafkaBroker},
		Topic:          events.DisputeTopic,
		GroupID:        "go-timeclock-disputes",
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.ConsumeDisputes(ctx, reader, entryService, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()

	return nil
}
