// Package mqhandler contains the worker's MQ consumers. Each handler
// decodes one event type and writes an audit entry; returning an error
// nacks the message for redelivery, returning nil acks it.
package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/repository"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
	"github.com/mjaychoi/hc-violins/pkg/mq"
)

type DigestSentHandler struct {
	repo   *repository.NotificationLogRepository
	logger *zap.Logger
}

func NewDigestSentHandler(repo *repository.NotificationLogRepository, logger *zap.Logger) *DigestSentHandler {
	return &DigestSentHandler{repo: repo, logger: logger}
}

func (h *DigestSentHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mq.DigestSentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// Decode failures never become valid on redelivery; ack and log.
		h.logger.Error("Failed to unmarshal digest.sent payload",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		return nil
	}

	var userID *int64
	if id, err := strconv.ParseInt(p.UserID, 10, 64); err == nil {
		userID = &id
	}

	entry := &repository.NotificationLog{
		UserID: userID,
		Kind:   mq.RoutingKeyDigestSent,
		Detail: fmt.Sprintf("digest sent: %d overdue, %d today, %d upcoming", p.Overdue, p.Today, p.Upcoming),
	}
	if err := h.repo.Insert(ctx, entry); err != nil {
		retryable, errType := apperr.IsRetryable(err)
		h.logger.Error("Failed to insert digest.sent log",
			zap.String("user_id", p.UserID),
			zap.String("error_type", errType),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		if !retryable {
			return nil
		}
		return err
	}

	h.logger.Info("Digest sent event logged", zap.String("user_id", p.UserID))
	return nil
}
