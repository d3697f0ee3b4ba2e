package consumer

import (
	"context"
	"encoding/json"
	"errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-timeclock/internal/events"
	"go-timeclock/internal/shared/apperror"
	"go-timeclock/internal/timeentry"
)

// ConsumeDisputes tags entries a worker has contested from the mobile app.
// Disputes arrive asynchronously because the app queues them offline; the tag
// only flags the entry for review, so applying it late is harmless.
func ConsumeDisputes(
	ctx context.Context,
	reader *kafkago.Reader,
	entryService timeentry.Service,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.disputes")
	log.Info("dispute consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("dispute consumer stopped")
				return
			}
			log.Error("fetch dispute message failed", zap.Error(err))
			continue
		}

		var event events.DisputeRaisedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode dispute event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		err = entryService.Dispute(ctx, event.CompanyID, event.UserID, event.EntryID, event.Reason)
		if err != nil {
			if isTerminalDisputeError(err) {
				log.Warn("dispute references an unusable entry, skipping",
					zap.String("entry_id", event.EntryID),
					zap.String("company_id", event.CompanyID),
					zap.Error(err),
				)
				_ = reader.CommitMessages(ctx, msg)
				continue
			}

			log.Error("apply dispute failed",
				zap.String("entry_id", event.EntryID),
				zap.String("company_id", event.CompanyID),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit dispute message failed", zap.Error(err))
			continue
		}

		log.Info("dispute applied",
			zap.String("entry_id", event.EntryID),
			zap.String("company_id", event.CompanyID),
		)
	}
}

// isTerminalDisputeError reports whether retrying the event can never
// succeed, so the message should be committed and dropped.
func isTerminalDisputeError(err error) bool {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case apperror.CodeNotFound, apperror.CodeInvalidInput:
		return true
	default:
		return false
	}
}
